// Package frame implements access to FLAC audio frames.
package frame

import (
	"errors"
	"fmt"

	"github.com/mewkiz/flac/internal/bits"
	"github.com/mewkiz/flac/meta"
)

// Sentinel errors returned while parsing a frame header.
var (
	// ErrFrameOutOfSync is returned when the 14-bit frame sync code does not
	// match 0x3FFE.
	ErrFrameOutOfSync = errors.New("frame: sync code mismatch; stream out of sync")
	// ErrFrameHeaderCRCMismatch is returned when the trailing CRC-8 of a frame
	// header does not match the header bytes actually read.
	ErrFrameHeaderCRCMismatch = errors.New("frame: header CRC-8 mismatch")
	// ErrFrameCRCMismatch is returned when the trailing CRC-16 of a frame does
	// not match the frame bytes actually read.
	ErrFrameCRCMismatch = errors.New("frame: CRC-16 mismatch")
	// ErrFrameBlockSizeUnknown is returned for the reserved block size code.
	ErrFrameBlockSizeUnknown = errors.New("frame: reserved block size code")
	// ErrFrameSampleSizeUnknown is returned for a reserved sample size code.
	ErrFrameSampleSizeUnknown = errors.New("frame: reserved sample size code")
	// ErrFrameChannelAssignmentUnknown is returned for a reserved channel
	// assignment code.
	ErrFrameChannelAssignmentUnknown = errors.New("frame: reserved channel assignment code")
)

// ChannelAssignment specifies the channel layout and any inter-channel
// decorrelation applied to a frame's two stereo subframes.
type ChannelAssignment uint8

// Channel assignments.
const (
	// ChannelsIndependent stores each channel without decorrelation; NChannels
	// gives the actual channel count (1..=8).
	ChannelsIndependent ChannelAssignment = iota
	// ChannelsLeftSide stores the left channel and a left-minus-right side
	// channel.
	ChannelsLeftSide
	// ChannelsSideRight stores a left-minus-right side channel and the right
	// channel.
	ChannelsSideRight
	// ChannelsMidSide stores a mid channel and a left-minus-right side
	// channel.
	ChannelsMidSide
)

func (c ChannelAssignment) String() string {
	switch c {
	case ChannelsIndependent:
		return "independent"
	case ChannelsLeftSide:
		return "left/side"
	case ChannelsSideRight:
		return "side/right"
	case ChannelsMidSide:
		return "mid/side"
	default:
		return "invalid"
	}
}

// Header holds the per-frame metadata decoded ahead of the frame's
// subframes.
type Header struct {
	// HasFixedBlockSize reports whether every frame of the stream shares the
	// same block size, per the blocking-strategy bit.
	HasFixedBlockSize bool
	// BlockSize is the number of samples per subframe in this frame.
	BlockSize uint16
	// SampleRate is the sample rate in Hz, as declared by this frame's
	// header, or StreamInfo's sample rate when the header defers to it.
	SampleRate uint32
	// Channels specifies channel layout and decorrelation.
	Channels ChannelAssignment
	// NChannels is the number of encoded subframes (for ChannelsIndependent,
	// the actual channel count; always 2 for the stereo decorrelation
	// assignments).
	NChannels uint8
	// BitsPerSample is the sample resolution in bits, as declared by this
	// frame's header, or StreamInfo's resolution when the header defers to it.
	BitsPerSample uint8
	// Num is the frame or sample number, decoded from the header's UTF-8-like
	// field. Its interpretation depends on HasFixedBlockSize: a frame number
	// when true, the first sample number in the frame when false. Decoding
	// does not depend on this value; it is exposed for diagnostics only.
	Num uint64
}

// blockSize decodes the 4-bit block size code: 0b0001 and codes
// 0b0010..=0b0101 and 0b1000..=0b1111 map to a fixed block size, codes
// 0b0110/0b0111 read an explicit size from the stream, and the reserved code
// 0b0000 is an error.
func blockSize(br *bits.Reader, code uint64) (uint16, error) {
	switch {
	case code == 0x1:
		return 192, nil
	case code >= 0x2 && code <= 0x5:
		return 576 << (code - 2), nil
	case code == 0x6:
		v, err := br.ReadUint8()
		if err != nil {
			return 0, err
		}
		return uint16(v) + 1, nil
	case code == 0x7:
		v, err := br.ReadUint16()
		if err != nil {
			return 0, err
		}
		return v + 1, nil
	case code >= 0x8 && code <= 0xF:
		return 256 << (code - 8), nil
	default:
		return 0, ErrFrameBlockSizeUnknown
	}
}

// sampleRate decodes the 4-bit sample rate code, which is informational only
// — a decoder always has StreamInfo's sample rate available and need not
// trust this field. 0 is returned for code 0b0000, signalling "defer to
// StreamInfo".
func sampleRate(br *bits.Reader, code uint64) (uint32, error) {
	switch code {
	case 0x0:
		return 0, nil
	case 0x1:
		return 88200, nil
	case 0x2:
		return 176400, nil
	case 0x3:
		return 192000, nil
	case 0x4:
		return 8000, nil
	case 0x5:
		return 16000, nil
	case 0x6:
		return 22050, nil
	case 0x7:
		return 24000, nil
	case 0x8:
		return 32000, nil
	case 0x9:
		return 44100, nil
	case 0xA:
		return 48000, nil
	case 0xB:
		return 96000, nil
	case 0xC:
		v, err := br.ReadUint8()
		if err != nil {
			return 0, err
		}
		return uint32(v) * 1000, nil
	case 0xD:
		v, err := br.ReadUint16()
		if err != nil {
			return 0, err
		}
		return uint32(v), nil
	case 0xE:
		v, err := br.ReadUint16()
		if err != nil {
			return 0, err
		}
		return uint32(v) * 10, nil
	default:
		// 0xF is invalid; the frame header is malformed but the sample rate
		// is informational, so report 0 rather than failing the frame.
		return 0, nil
	}
}

// channels decodes the 4-bit channel assignment code.
func channels(code uint64) (ChannelAssignment, uint8, error) {
	switch {
	case code <= 0x7:
		return ChannelsIndependent, uint8(code) + 1, nil
	case code == 0x8:
		return ChannelsLeftSide, 2, nil
	case code == 0x9:
		return ChannelsSideRight, 2, nil
	case code == 0xA:
		return ChannelsMidSide, 2, nil
	default:
		return 0, 0, ErrFrameChannelAssignmentUnknown
	}
}

// sampleSize decodes the 3-bit sample size code. 0 is returned for code
// 0b000, signalling "defer to StreamInfo".
func sampleSize(code uint64) (uint8, error) {
	switch code {
	case 0x0:
		return 0, nil
	case 0x1:
		return 8, nil
	case 0x2:
		return 12, nil
	case 0x4:
		return 16, nil
	case 0x5:
		return 20, nil
	case 0x6:
		return 24, nil
	default:
		return 0, ErrFrameSampleSizeUnknown
	}
}

// decodeUTF8Int decodes the frame/sample number field: the first byte's
// leading one-bits give the total encoded width (1..=7 bytes), mirroring
// UTF-8's continuation-byte scheme.
func decodeUTF8Int(br *bits.Reader) (uint64, error) {
	first, err := br.ReadUint8()
	if err != nil {
		return 0, err
	}
	var n int
	var value uint64
	switch {
	case first&0x80 == 0x00:
		return uint64(first), nil
	case first&0xE0 == 0xC0:
		n, value = 1, uint64(first&0x1F)
	case first&0xF0 == 0xE0:
		n, value = 2, uint64(first&0x0F)
	case first&0xF8 == 0xF0:
		n, value = 3, uint64(first&0x07)
	case first&0xFC == 0xF8:
		n, value = 4, uint64(first&0x03)
	case first&0xFE == 0xFC:
		n, value = 5, uint64(first&0x01)
	case first == 0xFE:
		n, value = 6, 0
	default:
		return 0, fmt.Errorf("frame.decodeUTF8Int: invalid leading byte 0x%02X", first)
	}
	for i := 0; i < n; i++ {
		cont, err := br.ReadUint8()
		if err != nil {
			return 0, err
		}
		if cont&0xC0 != 0x80 {
			return 0, fmt.Errorf("frame.decodeUTF8Int: invalid continuation byte 0x%02X", cont)
		}
		value = value<<6 | uint64(cont&0x3F)
	}
	return value, nil
}

// parseHeader reads and parses a frame header, opening and closing the
// CRC-8 region over exactly the header's bytes. si supplies the fallback
// sample rate and bits-per-sample when the header defers to StreamInfo.
func parseHeader(br *bits.Reader, si *meta.StreamInfo) (*Header, error) {
	br.CRC8Begin()

	sync, err := br.Read(14)
	if err != nil {
		br.CRC8End()
		return nil, err
	}
	if sync != 0x3FFE {
		br.CRC8End()
		return nil, ErrFrameOutOfSync
	}
	if _, err := br.Read(1); err != nil { // reserved
		br.CRC8End()
		return nil, err
	}
	variableBlockSize, err := br.ReadBool()
	if err != nil {
		br.CRC8End()
		return nil, err
	}
	blockSizeCode, err := br.Read(4)
	if err != nil {
		br.CRC8End()
		return nil, err
	}
	sampleRateCode, err := br.Read(4)
	if err != nil {
		br.CRC8End()
		return nil, err
	}
	channelCode, err := br.Read(4)
	if err != nil {
		br.CRC8End()
		return nil, err
	}
	sampleSizeCode, err := br.Read(3)
	if err != nil {
		br.CRC8End()
		return nil, err
	}
	if _, err := br.Read(1); err != nil { // reserved
		br.CRC8End()
		return nil, err
	}

	num, err := decodeUTF8Int(br)
	if err != nil {
		br.CRC8End()
		return nil, err
	}

	bs, err := blockSize(br, blockSizeCode)
	if err != nil {
		br.CRC8End()
		return nil, err
	}
	sr, err := sampleRate(br, sampleRateCode)
	if err != nil {
		br.CRC8End()
		return nil, err
	}
	assignment, nchannels, err := channels(channelCode)
	if err != nil {
		br.CRC8End()
		return nil, err
	}
	bps, err := sampleSize(sampleSizeCode)
	if err != nil {
		br.CRC8End()
		return nil, err
	}
	if bps == 0 && si != nil {
		bps = si.BitsPerSample
	}
	if sr == 0 && si != nil {
		sr = si.SampleRate
	}

	wantCRC := br.CRC8End()
	gotCRC, err := br.ReadUint8()
	if err != nil {
		return nil, err
	}
	if gotCRC != wantCRC {
		return nil, ErrFrameHeaderCRCMismatch
	}

	return &Header{
		HasFixedBlockSize: !variableBlockSize,
		BlockSize:         bs,
		SampleRate:        sr,
		Channels:          assignment,
		NChannels:         nchannels,
		BitsPerSample:     bps,
		Num:               num,
	}, nil
}
