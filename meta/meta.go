// Package meta parses FLAC metadata blocks: the StreamInfo block every
// stream must start with, and the six other well-known block types a stream
// may carry after it.
package meta

import (
	"errors"
	"fmt"

	"github.com/mewkiz/flac/internal/bits"
)

// BlockType identifies the kind of a metadata block.
type BlockType uint8

// Metadata block types.
const (
	TypeStreamInfo BlockType = iota
	TypePadding
	TypeApplication
	TypeSeekTable
	TypeVorbisComment
	TypeCueSheet
	TypePicture
)

func (t BlockType) String() string {
	m := map[BlockType]string{
		TypeStreamInfo:    "stream info",
		TypePadding:       "padding",
		TypeApplication:   "application",
		TypeSeekTable:     "seek table",
		TypeVorbisComment: "vorbis comment",
		TypeCueSheet:      "cue sheet",
		TypePicture:       "picture",
	}
	if s, ok := m[t]; ok {
		return s
	}
	return fmt.Sprintf("reserved(%d)", uint8(t))
}

// ErrReservedType is returned for a metadata block header whose type lies in
// the reserved range (7..=126). flac.New skips such blocks by length; New
// refuses them since there is no body to dispatch to.
var ErrReservedType = errors.New("meta: reserved block type")

// ErrInvalidType is returned for a metadata block header whose type is 127,
// which the FLAC format reserves to avoid confusion with a frame sync code.
var ErrInvalidType = errors.New("meta: invalid block type (127)")

// BlockHeader precedes every metadata block body.
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_header
type BlockHeader struct {
	// IsLast reports whether this is the last metadata block before the
	// first audio frame.
	IsLast bool
	// Type of the block body that follows.
	Type BlockType
	// Length in bytes of the block body that follows.
	Length int
}

// parseBlockHeader reads a 32-bit metadata block header: last:1 | type:7 |
// length:24.
func parseBlockHeader(br *bits.Reader) (*BlockHeader, error) {
	isLast, err := br.ReadBool()
	if err != nil {
		return nil, err
	}
	typ, err := br.Read(7)
	if err != nil {
		return nil, err
	}
	length, err := br.Read(24)
	if err != nil {
		return nil, err
	}
	h := &BlockHeader{
		IsLast: isLast,
		Type:   BlockType(typ),
		Length: int(length),
	}
	switch {
	case h.Type >= 7 && h.Type <= 126:
		return h, ErrReservedType
	case h.Type == 127:
		return h, ErrInvalidType
	}
	return h, nil
}

// Skip discards the block body described by h without parsing it.
func (h *BlockHeader) Skip(br *bits.Reader) error {
	return br.SkipBits(h.Length * 8)
}

// Block is a metadata block: a header plus its parsed body.
type Block struct {
	Header *BlockHeader
	// Body holds *StreamInfo, *Application, *SeekTable, *VorbisComment,
	// *CueSheet, *Picture, or nil for Padding.
	Body interface{}
}

// New parses a metadata block header and its full body. Reserved block
// types are returned with ErrReservedType and a nil Body; callers that want
// to tolerate them (as flac.New does) should skip the body by h.Length bytes
// themselves via BlockHeader.Skip, since New has nothing to dispatch to.
func New(br *bits.Reader) (*Block, error) {
	h, err := parseBlockHeader(br)
	if err != nil {
		return &Block{Header: h}, err
	}

	block := &Block{Header: h}
	switch h.Type {
	case TypeStreamInfo:
		block.Body, err = parseStreamInfo(br)
	case TypePadding:
		err = verifyPadding(br, h.Length)
	case TypeApplication:
		block.Body, err = parseApplication(br, h.Length)
	case TypeSeekTable:
		block.Body, err = parseSeekTable(br, h.Length)
	case TypeVorbisComment:
		block.Body, err = parseVorbisComment(br, h.Length)
	case TypeCueSheet:
		block.Body, err = parseCueSheet(br)
	case TypePicture:
		block.Body, err = parsePicture(br)
	}
	if err != nil {
		return block, err
	}
	return block, nil
}
