package meta

import (
	"fmt"
	"strings"

	"github.com/mewkiz/flac/internal/bits"
)

// A CueSheet describes how tracks are laid out within a FLAC stream.
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_cuesheet
type CueSheet struct {
	// Media catalog number.
	MCN string
	// Number of lead-in samples. This field only has meaning for CD-DA cue
	// sheets; for other uses it should be 0. Refer to the spec for additional
	// information.
	NLeadInSamples uint64
	// Specifies if the cue sheet corresponds to a Compact Disc.
	IsCompactDisc bool
	// One or more tracks. The last track of a cue sheet is always the lead-out
	// track.
	Tracks []CueSheetTrack
}

// CueSheetTrack contains the start offset of a track and other track specific
// metadata.
type CueSheetTrack struct {
	// Track offset in samples, relative to the beginning of the FLAC audio
	// stream.
	Offset uint64
	// Track number; never 0, always unique.
	Num uint8
	// International Standard Recording Code; empty string if not present.
	//
	// ref: http://isrc.ifpi.org/
	ISRC string
	// Specifies if the track contains audio or data.
	IsAudio bool
	// Specifies if the track has been recorded with pre-emphasis.
	HasPreEmphasis bool
	// Every track has one or more track index points, except for the lead-out
	// track which has zero. Each index point specifies a position within the
	// track.
	Indicies []CueSheetTrackIndex
}

// A CueSheetTrackIndex specifies a position within a track.
type CueSheetTrackIndex struct {
	// Index point offset in samples, relative to the track offset.
	Offset uint64
	// Index point number; subsequently incrementing by 1 and always unique
	// within a track.
	Num uint8
}

func readNULPaddedString(br *bits.Reader, n int) (string, error) {
	buf, err := br.ReadBytes(n)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(buf), "\x00"), nil
}

// parseCueSheet reads and parses the body of a CueSheet metadata block.
func parseCueSheet(br *bits.Reader) (*CueSheet, error) {
	cs := new(CueSheet)

	mcn, err := readNULPaddedString(br, 128)
	if err != nil {
		return nil, err
	}
	cs.MCN = mcn

	leadIn, err := br.Read(64)
	if err != nil {
		return nil, err
	}
	cs.NLeadInSamples = leadIn

	isCD, err := br.ReadBool()
	if err != nil {
		return nil, err
	}
	cs.IsCompactDisc = isCD

	// 7 reserved bits + 258 reserved bytes.
	if err := br.SkipBits(7 + 258*8); err != nil {
		return nil, err
	}

	ntracks, err := br.Read(8)
	if err != nil {
		return nil, err
	}
	if ntracks == 0 {
		return nil, fmt.Errorf("meta.parseCueSheet: at least one track (the lead-out track) is required")
	}
	cs.Tracks = make([]CueSheetTrack, ntracks)
	for i := range cs.Tracks {
		track := &cs.Tracks[i]

		offset, err := br.Read(64)
		if err != nil {
			return nil, err
		}
		track.Offset = offset

		num, err := br.Read(8)
		if err != nil {
			return nil, err
		}
		track.Num = uint8(num)

		isrc, err := readNULPaddedString(br, 12)
		if err != nil {
			return nil, err
		}
		track.ISRC = isrc

		isAudio, err := br.ReadBool()
		if err != nil {
			return nil, err
		}
		track.IsAudio = !isAudio // bit set means non-audio.

		hasPreEmphasis, err := br.ReadBool()
		if err != nil {
			return nil, err
		}
		track.HasPreEmphasis = hasPreEmphasis

		// 6 reserved bits + 13 reserved bytes.
		if err := br.SkipBits(6 + 13*8); err != nil {
			return nil, err
		}

		nindices, err := br.Read(8)
		if err != nil {
			return nil, err
		}
		track.Indicies = make([]CueSheetTrackIndex, nindices)
		for j := range track.Indicies {
			idx := &track.Indicies[j]

			idxOffset, err := br.Read(64)
			if err != nil {
				return nil, err
			}
			idx.Offset = idxOffset

			idxNum, err := br.Read(8)
			if err != nil {
				return nil, err
			}
			idx.Num = uint8(idxNum)

			// 3 reserved bytes.
			if err := br.SkipBits(3 * 8); err != nil {
				return nil, err
			}
		}
	}

	return cs, nil
}
