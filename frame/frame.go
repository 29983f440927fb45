package frame

import (
	"github.com/mewkiz/flac/internal/bits"
	"github.com/mewkiz/flac/meta"
)

// Frame holds one decoded frame: its header and the decoded samples of each
// subframe (one per channel, pre-decorrelation already undone).
type Frame struct {
	Header    Header
	Subframes []Subframe
}

// subframeBPS returns the effective bits-per-sample subframe i of a frame
// must decode at: stereo decorrelation gives one channel in each pair an
// extra bit of headroom to hold the wider side/mid values.
func subframeBPS(h *Header, i int) uint {
	bps := uint(h.BitsPerSample)
	switch h.Channels {
	case ChannelsLeftSide:
		if i == 1 {
			return bps + 1
		}
	case ChannelsSideRight:
		if i == 0 {
			return bps + 1
		}
	case ChannelsMidSide:
		if i == 1 {
			return bps + 1
		}
	}
	return bps
}

// decorrelate undoes the frame's inter-channel decorrelation in place,
// turning the two stored subframes into left/right samples.
func decorrelate(f *Frame) {
	if len(f.Subframes) != 2 {
		return
	}
	a, b := f.Subframes[0].Samples, f.Subframes[1].Samples
	switch f.Header.Channels {
	case ChannelsLeftSide:
		// a = left, b = side = left - right.
		for i := range a {
			a[i], b[i] = a[i], a[i]-b[i]
		}
	case ChannelsSideRight:
		// a = side = left - right, b = right.
		for i := range a {
			a[i], b[i] = b[i]+a[i], b[i]
		}
	case ChannelsMidSide:
		// a = mid (right-shifted average), b = side = left - right.
		for i := range a {
			side := b[i]
			mid := a[i]<<1 | (side & 1)
			a[i] = (mid + side) / 2
			b[i] = (mid - side) / 2
		}
	}
}

// ParseFrame reads and fully decodes a single frame from br, including
// inter-channel decorrelation and CRC-16 verification. si is consulted for
// any header field a frame leaves at its StreamInfo-deferred value.
//
// bufs is the driver's per-channel buffer array, one reusable, max-block-size
// capacity slice per channel StreamInfo declares; ParseFrame reslices
// bufs[i] down to the frame's block size and decodes directly into it rather
// than allocating fresh sample storage, so a frame's Subframes alias bufs and
// are only valid until the next ParseFrame call reuses them. A frame header
// that declares more channels, or a larger block size, than bufs was
// pre-sized for is reported as ErrFrameBufferUnallocated.
func ParseFrame(br *bits.Reader, si *meta.StreamInfo, bufs [][]int32) (*Frame, error) {
	br.CRC16Begin()

	header, err := parseHeader(br, si)
	if err != nil {
		br.CRC16End()
		return nil, err
	}

	if int(header.NChannels) > len(bufs) {
		br.CRC16End()
		return nil, ErrFrameBufferUnallocated
	}

	f := &Frame{Header: *header, Subframes: make([]Subframe, header.NChannels)}
	for i := 0; i < int(header.NChannels); i++ {
		if int(header.BlockSize) > cap(bufs[i]) {
			br.CRC16End()
			return nil, ErrFrameBufferUnallocated
		}
		dst := bufs[i][:header.BlockSize]
		bps := subframeBPS(header, i)
		sub, err := parseSubframe(br, dst, bps)
		if err != nil {
			br.CRC16End()
			return nil, err
		}
		f.Subframes[i] = *sub
	}
	decorrelate(f)

	br.AlignToByte()
	wantCRC := br.CRC16End()
	gotCRC, err := br.ReadUint16()
	if err != nil {
		return nil, err
	}
	if gotCRC != wantCRC {
		return nil, ErrFrameCRCMismatch
	}
	return f, nil
}
