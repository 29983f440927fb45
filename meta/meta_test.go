package meta_test

import (
	"bytes"
	"testing"

	"github.com/mewkiz/flac/internal/bits"
	"github.com/mewkiz/flac/meta"
)

// bitWriter accumulates MSB-first bit fields into a byte slice, for building
// synthetic test bitstreams without binary fixtures.
type bitWriter struct {
	buf  []byte
	cur  byte
	nbit uint
}

func (w *bitWriter) writeBits(v uint64, n uint) {
	for i := int(n) - 1; i >= 0; i-- {
		bit := byte(v>>uint(i)) & 1
		w.cur = w.cur<<1 | bit
		w.nbit++
		if w.nbit == 8 {
			w.buf = append(w.buf, w.cur)
			w.cur, w.nbit = 0, 0
		}
	}
}

func (w *bitWriter) bytes() []byte {
	if w.nbit != 0 {
		w.cur <<= 8 - w.nbit
		w.buf = append(w.buf, w.cur)
		w.cur, w.nbit = 0, 0
	}
	return w.buf
}

func buildStreamInfoBlock(last bool) []byte {
	w := new(bitWriter)
	if last {
		w.writeBits(1, 1)
	} else {
		w.writeBits(0, 1)
	}
	w.writeBits(uint64(meta.TypeStreamInfo), 7)
	w.writeBits(34, 24)

	w.writeBits(4096, 16) // min block size
	w.writeBits(4096, 16) // max block size
	w.writeBits(0, 24)    // min frame size
	w.writeBits(0, 24)    // max frame size
	w.writeBits(44100, 20)
	w.writeBits(1, 3)  // channels - 1 (2 channels)
	w.writeBits(15, 5) // bps - 1 (16 bits)
	w.writeBits(0, 36) // total samples
	for i := 0; i < 16; i++ {
		w.writeBits(0, 8) // md5
	}
	return w.bytes()
}

func TestParseStreamInfoBlock(t *testing.T) {
	data := buildStreamInfoBlock(true)
	br := bits.NewReader(bytes.NewReader(data))

	block, err := meta.New(br)
	if err != nil {
		t.Fatalf("meta.New: %v", err)
	}
	if !block.Header.IsLast {
		t.Fatal("expected IsLast true")
	}
	if block.Header.Type != meta.TypeStreamInfo {
		t.Fatalf("Type = %v, want StreamInfo", block.Header.Type)
	}
	si, ok := block.Body.(*meta.StreamInfo)
	if !ok {
		t.Fatalf("Body has type %T, want *meta.StreamInfo", block.Body)
	}
	if si.MinBlockSize != 4096 || si.MaxBlockSize != 4096 {
		t.Fatalf("block size = %d/%d, want 4096/4096", si.MinBlockSize, si.MaxBlockSize)
	}
	if si.SampleRate != 44100 {
		t.Fatalf("SampleRate = %d, want 44100", si.SampleRate)
	}
	if si.NChannels != 2 {
		t.Fatalf("NChannels = %d, want 2", si.NChannels)
	}
	if si.BitsPerSample != 16 {
		t.Fatalf("BitsPerSample = %d, want 16", si.BitsPerSample)
	}
}

func TestPaddingBlockConsumesBody(t *testing.T) {
	w := new(bitWriter)
	w.writeBits(0, 1) // not last
	w.writeBits(uint64(meta.TypePadding), 7)
	w.writeBits(4, 24)
	w.writeBits(0, 8)
	w.writeBits(0, 8)
	w.writeBits(0, 8)
	w.writeBits(0, 8)
	// Trailing byte belonging to the next (unrelated) block header.
	w.writeBits(0xFF, 8)

	br := bits.NewReader(bytes.NewReader(w.bytes()))
	block, err := meta.New(br)
	if err != nil {
		t.Fatalf("meta.New: %v", err)
	}
	if block.Header.Type != meta.TypePadding {
		t.Fatalf("Type = %v, want Padding", block.Header.Type)
	}

	next, err := br.Read(8)
	if err != nil {
		t.Fatal(err)
	}
	if next != 0xFF {
		t.Fatalf("byte after padding body = %#x, want 0xff", next)
	}
}

func TestReservedBlockType(t *testing.T) {
	w := new(bitWriter)
	w.writeBits(1, 1)
	w.writeBits(10, 7) // reserved type
	w.writeBits(0, 24)

	br := bits.NewReader(bytes.NewReader(w.bytes()))
	_, err := meta.New(br)
	if err != meta.ErrReservedType {
		t.Fatalf("err = %v, want ErrReservedType", err)
	}
}
