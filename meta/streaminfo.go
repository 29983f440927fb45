package meta

import (
	"fmt"

	"github.com/mewkiz/flac/internal/bits"
)

// StreamInfo contains information about the FLAC audio stream. It must be
// present as the first metadata block of a FLAC stream.
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_streaminfo
type StreamInfo struct {
	// Minimum block size (in samples) used in the stream.
	MinBlockSize uint16
	// Maximum block size (in samples) used in the stream.
	MaxBlockSize uint16
	// Minimum frame size (in bytes) used in the stream; 0 if unknown.
	MinFrameSize uint32
	// Maximum frame size (in bytes) used in the stream; 0 if unknown.
	MaxFrameSize uint32
	// Sample rate in Hz.
	SampleRate uint32
	// Number of channels, between 1 and 8.
	NChannels uint8
	// Bits-per-sample, between 4 and 32.
	BitsPerSample uint8
	// Total number of samples, per channel; 0 if unknown.
	NSamples uint64
	// MD5 checksum of the unencoded audio data; all zero if unknown. This
	// package does not verify it; flac.Parse does when it is not all zero.
	MD5sum [16]byte
}

// parseStreamInfo reads and parses the body of a StreamInfo metadata block.
func parseStreamInfo(br *bits.Reader) (*StreamInfo, error) {
	si := new(StreamInfo)

	minBlockSize, err := br.Read(16)
	if err != nil {
		return nil, err
	}
	si.MinBlockSize = uint16(minBlockSize)
	if si.MinBlockSize < 16 {
		return nil, fmt.Errorf("meta.parseStreamInfo: invalid min block size; expected >= 16, got %d", si.MinBlockSize)
	}

	maxBlockSize, err := br.Read(16)
	if err != nil {
		return nil, err
	}
	si.MaxBlockSize = uint16(maxBlockSize)
	if si.MaxBlockSize < si.MinBlockSize {
		return nil, fmt.Errorf("meta.parseStreamInfo: invalid max block size; expected >= min block size (%d), got %d", si.MinBlockSize, si.MaxBlockSize)
	}

	minFrameSize, err := br.Read(24)
	if err != nil {
		return nil, err
	}
	si.MinFrameSize = uint32(minFrameSize)

	maxFrameSize, err := br.Read(24)
	if err != nil {
		return nil, err
	}
	si.MaxFrameSize = uint32(maxFrameSize)

	sampleRate, err := br.Read(20)
	if err != nil {
		return nil, err
	}
	si.SampleRate = uint32(sampleRate)
	if si.SampleRate == 0 || si.SampleRate > 655350 {
		return nil, fmt.Errorf("meta.parseStreamInfo: invalid sample rate; expected > 0 and <= 655350, got %d", si.SampleRate)
	}

	nchannels, err := br.Read(3)
	if err != nil {
		return nil, err
	}
	si.NChannels = uint8(nchannels) + 1

	bps, err := br.Read(5)
	if err != nil {
		return nil, err
	}
	si.BitsPerSample = uint8(bps) + 1
	if si.BitsPerSample < 4 || si.BitsPerSample > 32 {
		return nil, fmt.Errorf("meta.parseStreamInfo: invalid bits-per-sample; expected >= 4 and <= 32, got %d", si.BitsPerSample)
	}

	nsamples, err := br.Read(36)
	if err != nil {
		return nil, err
	}
	si.NSamples = nsamples

	md5sum, err := br.ReadUint128()
	if err != nil {
		return nil, err
	}
	si.MD5sum = md5sum

	return si, nil
}
