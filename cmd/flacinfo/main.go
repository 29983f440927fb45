// Command flacinfo prints a FLAC file's StreamInfo, decodes every frame to
// confirm CRC validity end-to-end, and optionally dumps the decoded audio to
// a WAV file.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/mewkiz/flac"
)

const wavFormat = 1 // PCM

func main() {
	var wavPath string
	flag.StringVar(&wavPath, "wav", "", "dump decoded audio to this WAV file")
	flag.Parse()

	for _, path := range flag.Args() {
		if err := run(path, wavPath); err != nil {
			log.Fatalf("%s: %v", path, err)
		}
	}
}

func run(path, wavPath string) error {
	s, err := flac.Open(path)
	if err != nil {
		return err
	}
	defer s.Close()

	si := s.Info
	fmt.Printf("sample rate:    %d Hz\n", si.SampleRate)
	fmt.Printf("channels:       %d\n", si.NChannels)
	fmt.Printf("bits/sample:    %d\n", si.BitsPerSample)
	fmt.Printf("total samples:  %d\n", si.NSamples)
	fmt.Printf("block size:     %d..%d\n", si.MinBlockSize, si.MaxBlockSize)
	fmt.Printf("metadata blocks: %d\n", len(s.Blocks))

	var enc *wav.Encoder
	var w io.WriteCloser
	intBuf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: int(si.NChannels),
			SampleRate:  int(si.SampleRate),
		},
		SourceBitDepth: int(si.BitsPerSample),
	}
	if wavPath != "" {
		f, err := os.Create(wavPath)
		if err != nil {
			return err
		}
		w = f
		enc = wav.NewEncoder(f, int(si.SampleRate), int(si.BitsPerSample), int(si.NChannels), wavFormat)
		defer w.Close()
		defer enc.Close()
	}

	var nsamples uint64
	var data []int
	for {
		f, err := s.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		nsamples += uint64(f.Header.BlockSize)

		if enc != nil {
			data = data[:0]
			for i := 0; i < int(f.Header.BlockSize); i++ {
				for _, sub := range f.Subframes {
					data = append(data, int(sub.Samples[i]))
				}
			}
			intBuf.Data = data
			if err := enc.Write(intBuf); err != nil {
				return err
			}
		}
	}

	fmt.Printf("decoded samples: %d\n", nsamples)
	if si.NSamples != 0 && nsamples != si.NSamples {
		return fmt.Errorf("decoded sample count %d does not match StreamInfo total %d", nsamples, si.NSamples)
	}
	return nil
}
