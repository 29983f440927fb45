package meta

import (
	"fmt"

	"github.com/mewkiz/flac/internal/bits"
)

// verifyPadding reads the body of a Padding metadata block and verifies that
// it contains only zero bits, as the FLAC format requires.
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_padding
func verifyPadding(br *bits.Reader, length int) error {
	buf, err := br.ReadBytes(length)
	if err != nil {
		return err
	}
	for _, b := range buf {
		if b != 0 {
			return fmt.Errorf("meta.verifyPadding: invalid padding; must contain only zero bits, got 0x%02X", b)
		}
	}
	return nil
}
