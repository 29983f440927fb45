/*
Links:
	http://flac.sourceforge.net/api/hierarchy.html
	http://flac.sourceforge.net/documentation_format_overview.html
	http://flac.sourceforge.net/format.html
*/

// Package flac provides access to FLAC (Free Lossless Audio Codec) streams.
package flac

import (
	"crypto/md5"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/internal/bits"
	"github.com/mewkiz/flac/meta"
)

// Signature is the four-byte magic present at the beginning of every FLAC
// stream.
const Signature = "fLaC"

// Sentinel errors returned by this package.
var (
	// ErrWrongMagic is returned when a stream's leading four bytes are not
	// "fLaC".
	ErrWrongMagic = errors.New("flac: invalid magic; expected \"fLaC\"")
	// ErrMissingStreamInfo is returned when the metadata chain's first block
	// is not StreamInfo.
	ErrMissingStreamInfo = errors.New("flac: first metadata block must be StreamInfo")
)

// Stream is a parsed FLAC bitstream: its metadata block chain plus a
// pull-model cursor over its audio frames.
type Stream struct {
	// Info is the mandatory StreamInfo metadata block.
	Info *meta.StreamInfo
	// Blocks holds every metadata block read from the stream, in order,
	// including Info itself as Blocks[0].
	Blocks []*meta.Block

	br     *bits.Reader
	closer io.Closer

	// bufs holds one reusable sample buffer per channel, each pre-sized to
	// Info.MaxBlockSize capacity. ParseNext reslices and decodes directly
	// into these buffers rather than allocating fresh storage per frame, so
	// a Frame's Subframes alias bufs and are only valid until the next
	// ParseNext call.
	bufs [][]int32

	// nDecoded counts the samples (per channel) decoded so far. It is not
	// compared against Info.NSamples.
	nDecoded uint64
}

// allocBuffers pre-allocates one zero-length, MaxBlockSize-capacity sample
// buffer per channel, once Info is known.
func (s *Stream) allocBuffers() {
	s.bufs = make([][]int32, s.Info.NChannels)
	for i := range s.bufs {
		s.bufs[i] = make([]int32, 0, s.Info.MaxBlockSize)
	}
}

// New parses the metadata block chain of a FLAC stream read from r and
// returns a Stream ready to decode audio frames one at a time via Next or
// ParseNext. The caller owns r; if it implements io.Closer, Stream.Close
// forwards to it.
func New(r io.Reader) (*Stream, error) {
	br := bits.NewReader(r)

	if err := readMagic(br); err != nil {
		return nil, err
	}

	s := &Stream{br: br}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}

	for {
		block, err := meta.New(br)
		if err == meta.ErrReservedType {
			if len(s.Blocks) == 0 {
				return nil, ErrMissingStreamInfo
			}
			// New has no body parser for a reserved type; skip it by
			// declared length and keep walking the chain.
			if err := block.Header.Skip(br); err != nil {
				return nil, err
			}
			s.Blocks = append(s.Blocks, block)
			if block.Header.IsLast {
				break
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		if len(s.Blocks) == 0 {
			si, ok := block.Body.(*meta.StreamInfo)
			if !ok {
				return nil, ErrMissingStreamInfo
			}
			s.Info = si
			s.allocBuffers()
		}
		s.Blocks = append(s.Blocks, block)
		if block.Header.IsLast {
			break
		}
	}
	return s, nil
}

// readMagic consumes the stream's leading "fLaC" signature, first skipping
// over an ID3v2 tag if one is present. Real-world FLAC files occasionally
// carry a leading ID3v2 tag — prepended rather than merged in by a tagging
// tool — which would otherwise make a conformant stream fail the magic check.
//
// An ID3v2 tag is a 10-byte header ("ID3", a 2-byte version, a 1-byte flag
// field, and a 4-byte synchsafe size) followed by that many bytes of tag
// body, skipped whole rather than parsed; bits.Reader has no unread
// primitive, so the first 4 bytes are read once and reinterpreted as either
// the start of an ID3v2 header or the full "fLaC" signature.
func readMagic(br *bits.Reader) error {
	head, err := br.ReadBytes(4)
	if err != nil {
		return err
	}
	if string(head[:3]) != "ID3" {
		if string(head) != Signature {
			return ErrWrongMagic
		}
		return nil
	}

	if err := br.SkipBits(8 * 2); err != nil { // version byte 2 + flags
		return err
	}
	sizeBytes, err := br.ReadBytes(4)
	if err != nil {
		return err
	}
	size := int(sizeBytes[0]&0x7f)<<21 | int(sizeBytes[1]&0x7f)<<14 | int(sizeBytes[2]&0x7f)<<7 | int(sizeBytes[3]&0x7f)
	if err := br.SkipBits(size * 8); err != nil {
		return err
	}

	magic, err := br.ReadBytes(4)
	if err != nil {
		return err
	}
	if string(magic) != Signature {
		return ErrWrongMagic
	}
	return nil
}

// Open opens the named file and returns a Stream over it; the file is
// closed automatically by Stream.Close.
func Open(path string) (*Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	s, err := New(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// Parse fully decodes every frame of a FLAC stream read from r, verifying
// the overall MD5 checksum when StreamInfo declares a non-zero one, and
// returns a Stream with Blocks populated but no further frames to pull.
//
// Parse does not retain the decoded samples: each frame is folded into the
// checksum and then dropped. Use New and ParseNext instead when the audio
// itself is needed.
func Parse(r io.Reader) (*Stream, error) {
	s, err := New(r)
	if err != nil {
		return nil, err
	}
	h := md5.New()
	for {
		f, err := s.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		writeSamples(h, f)
	}
	if s.Info.MD5sum != ([16]byte{}) {
		var sum [16]byte
		copy(sum[:], h.Sum(nil))
		if sum != s.Info.MD5sum {
			return nil, fmt.Errorf("flac.Parse: MD5 checksum mismatch; expected %x, got %x", s.Info.MD5sum, sum)
		}
	}
	return s, nil
}

// ParseFile is the Parse counterpart to Open.
func ParseFile(path string) (*Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// writeSamples folds a frame's decoded samples into h in little-endian,
// channel-interleaved order, matching how StreamInfo's MD5 signature is
// computed over the original uncompressed audio.
func writeSamples(h io.Writer, f *frame.Frame) {
	bytesPerSample := (int(f.Header.BitsPerSample) + 7) / 8
	buf := make([]byte, bytesPerSample)
	n := int(f.Header.BlockSize)
	for i := 0; i < n; i++ {
		for _, sub := range f.Subframes {
			v := uint32(sub.Samples[i])
			for j := 0; j < bytesPerSample; j++ {
				buf[j] = byte(v >> (8 * uint(j)))
			}
			h.Write(buf)
		}
	}
}

// Next reads and fully decodes the next frame, same as ParseNext, but
// returns only its header: the decoded subframe samples are discarded
// rather than retained in the return value, for callers that only need
// frame boundaries or header metadata (total duration, block sizes, channel
// layout per frame) and would otherwise hold onto audio they never use.
// There is no cheaper header-only path, since a frame's length in bytes is
// only known once its body and trailing CRC-16 have been consumed. It
// returns io.EOF once the stream is exhausted.
func (s *Stream) Next() (*frame.Header, error) {
	f, err := s.ParseNext()
	if err != nil {
		return nil, err
	}
	h := f.Header
	return &h, nil
}

// ParseNext reads, decodes, and CRC-verifies the next audio frame. It
// returns io.EOF once the stream is exhausted. Each Subframe.Samples slice
// aliases the Stream's own per-channel buffer and is only valid until the
// next call to ParseNext or Next; copy it first if it must outlive that
// call.
func (s *Stream) ParseNext() (*frame.Frame, error) {
	if s.Info == nil {
		return nil, ErrMissingStreamInfo
	}
	f, err := frame.ParseFrame(s.br, s.Info, s.bufs)
	if err != nil {
		return nil, err
	}
	s.nDecoded += uint64(f.Header.BlockSize)
	return f, nil
}

// Close closes the underlying reader, if it was opened by this package or
// otherwise implements io.Closer.
func (s *Stream) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
