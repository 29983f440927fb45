package meta

import "github.com/mewkiz/flac/internal/bits"

// PlaceholderPoint marks an unused seek point slot.
const PlaceholderPoint = 0xFFFFFFFFFFFFFFFF

// SeekTable contains one or more precalculated audio frame seek points.
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_seektable
type SeekTable struct {
	// One or more seek points.
	Points []SeekPoint
}

// A SeekPoint specifies the byte offset and initial sample number of a given
// target frame.
//
// ref: https://www.xiph.org/flac/format.html#seekpoint
type SeekPoint struct {
	// Sample number of the first sample in the target frame, or
	// PlaceholderPoint for a placeholder point.
	SampleNum uint64
	// Offset in bytes from the first byte of the first frame header to the
	// first byte of the target frame's header.
	Offset uint64
	// Number of samples in the target frame.
	NSamples uint16
}

// seekPointSize is the encoded width, in bytes, of a single seek point:
// sample_num:64 | offset:64 | nsamples:16.
const seekPointSize = 8 + 8 + 2

// parseSeekTable reads and parses the body of a SeekTable metadata block.
func parseSeekTable(br *bits.Reader, length int) (*SeekTable, error) {
	n := length / seekPointSize
	st := &SeekTable{Points: make([]SeekPoint, n)}
	for i := 0; i < n; i++ {
		sampleNum, err := br.Read(64)
		if err != nil {
			return nil, err
		}
		offset, err := br.Read(64)
		if err != nil {
			return nil, err
		}
		nsamples, err := br.Read(16)
		if err != nil {
			return nil, err
		}
		st.Points[i] = SeekPoint{
			SampleNum: sampleNum,
			Offset:    offset,
			NSamples:  uint16(nsamples),
		}
	}
	return st, nil
}
