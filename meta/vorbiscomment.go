package meta

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/mewkiz/flac/internal/bits"
)

// VorbisComment contains a list of name-value pairs.
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_vorbis_comment
type VorbisComment struct {
	// Vendor name.
	Vendor string
	// A list of tags, each represented by a name-value pair.
	Tags [][2]string
}

// readVorbisUint32 reads a 32-bit little-endian integer, the one place in a
// FLAC stream where a field isn't big-endian: Vorbis comments carry over
// their wire format unchanged from Ogg Vorbis.
func readVorbisUint32(br *bits.Reader) (uint32, error) {
	buf, err := br.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf), nil
}

func readVorbisString(br *bits.Reader) (string, error) {
	n, err := readVorbisUint32(br)
	if err != nil {
		return "", err
	}
	buf, err := br.ReadBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// parseVorbisComment reads and parses the body of a VorbisComment metadata
// block.
func parseVorbisComment(br *bits.Reader, length int) (*VorbisComment, error) {
	vc := new(VorbisComment)
	vendor, err := readVorbisString(br)
	if err != nil {
		return nil, err
	}
	vc.Vendor = vendor

	ntags, err := readVorbisUint32(br)
	if err != nil {
		return nil, err
	}
	vc.Tags = make([][2]string, ntags)
	for i := range vc.Tags {
		comment, err := readVorbisString(br)
		if err != nil {
			return nil, err
		}
		name, value, ok := strings.Cut(comment, "=")
		if !ok {
			return nil, fmt.Errorf("meta.parseVorbisComment: invalid comment vector; no '=' present in: %q", comment)
		}
		vc.Tags[i] = [2]string{name, value}
	}
	return vc, nil
}
