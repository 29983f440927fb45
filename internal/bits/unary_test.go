package bits_test

import (
	"bytes"
	"testing"

	"github.com/mewkiz/flac/internal/bits"
)

// TestUnary checks that every unary-coded value of 0..100 round-trips through
// a hand-built bitstream: n zero bits followed by a terminating one bit.
func TestUnary(t *testing.T) {
	for want := uint64(0); want < 100; want++ {
		buf := new(bytes.Buffer)
		var cur byte
		var n uint
		push := func(bit byte) {
			cur = cur<<1 | bit
			n++
			if n == 8 {
				buf.WriteByte(cur)
				cur, n = 0, 0
			}
		}
		for i := uint64(0); i < want; i++ {
			push(0)
		}
		push(1)
		for n != 0 {
			push(0)
		}

		r := bits.NewReader(bytes.NewReader(buf.Bytes()))
		got, err := r.ReadUnary()
		if err != nil {
			t.Fatalf("ReadUnary(%d): %v", want, err)
		}
		if got != want {
			t.Fatalf("ReadUnary: got %d, want %d", got, want)
		}
	}
}
