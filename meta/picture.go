package meta

import (
	"fmt"

	"github.com/mewkiz/flac/internal/bits"
)

// A Picture metadata block stores a picture associated with the file, most
// commonly cover art from CDs. There may be more than one Picture block in a
// file.
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_picture
type Picture struct {
	// Picture type according to the ID3v2 APIC frame. Others are reserved
	// and should not be used; there may be only one each of type 1 and 2 in
	// a file.
	Type uint32
	// MIME type string, in printable ASCII 0x20-0x7E. May be "-->" to
	// signify that Data is a URL of the picture rather than the picture
	// itself.
	MIME string
	// Description of the picture, in UTF-8.
	Desc string
	// Width of the picture in pixels.
	Width uint32
	// Height of the picture in pixels.
	Height uint32
	// Color depth of the picture in bits-per-pixel.
	ColorDepth uint32
	// For indexed-color pictures, the number of colors used, or 0 for
	// non-indexed pictures.
	ColorCount uint32
	// Binary picture data.
	Data []byte
}

// parsePicture reads and parses the body of a Picture metadata block.
func parsePicture(br *bits.Reader) (*Picture, error) {
	pic := new(Picture)

	typ, err := br.Read(32)
	if err != nil {
		return nil, err
	}
	pic.Type = uint32(typ)
	if pic.Type > 20 {
		return nil, fmt.Errorf("meta.parsePicture: reserved picture type: %d", pic.Type)
	}

	mimeLen, err := br.Read(32)
	if err != nil {
		return nil, err
	}
	mime, err := br.ReadBytes(int(mimeLen))
	if err != nil {
		return nil, err
	}
	pic.MIME = string(mime)
	for _, c := range pic.MIME {
		if c < 0x20 || c > 0x7E {
			return nil, fmt.Errorf("meta.parsePicture: invalid character in MIME type; expected >= 0x20 and <= 0x7E, got 0x%02X", c)
		}
	}

	descLen, err := br.Read(32)
	if err != nil {
		return nil, err
	}
	desc, err := br.ReadBytes(int(descLen))
	if err != nil {
		return nil, err
	}
	pic.Desc = string(desc)

	width, err := br.Read(32)
	if err != nil {
		return nil, err
	}
	pic.Width = uint32(width)

	height, err := br.Read(32)
	if err != nil {
		return nil, err
	}
	pic.Height = uint32(height)

	depth, err := br.Read(32)
	if err != nil {
		return nil, err
	}
	pic.ColorDepth = uint32(depth)

	count, err := br.Read(32)
	if err != nil {
		return nil, err
	}
	pic.ColorCount = uint32(count)

	dataLen, err := br.Read(32)
	if err != nil {
		return nil, err
	}
	data, err := br.ReadBytes(int(dataLen))
	if err != nil {
		return nil, err
	}
	pic.Data = data

	return pic, nil
}
