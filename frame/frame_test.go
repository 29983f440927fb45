package frame

import (
	"bytes"
	"testing"

	"github.com/mewkiz/flac/internal/bits"
	"github.com/mewkiz/flac/internal/hashutil/crc16"
	"github.com/mewkiz/flac/internal/hashutil/crc8"
	"github.com/mewkiz/flac/meta"
)

// testBufs builds the per-channel buffer array ParseFrame expects a driver
// to own, sized the way flac.Stream.allocBuffers sizes it.
func testBufs(nchannels, maxBlockSize int) [][]int32 {
	bufs := make([][]int32, nchannels)
	for i := range bufs {
		bufs[i] = make([]int32, 0, maxBlockSize)
	}
	return bufs
}

// bitWriter accumulates MSB-first bit fields into a byte slice.
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

func (w *bitWriter) writeSigned(v int32, n uint) {
	w.writeBits(uint64(v)&(1<<n-1), n)
}

func (w *bitWriter) bytes() []byte {
	if w.nbit != 0 {
		w.cur <<= 8 - w.nbit
		w.buf = append(w.buf, w.cur)
		w.cur, w.nbit = 0, 0
	}
	return w.buf
}

// buildConstantFrame assembles one independent-stereo, fixed-block-size
// frame with two Constant subframes, computing real CRC-8/CRC-16 trailers.
func buildConstantFrame(t *testing.T, blockSize uint16, bps uint, left, right int32) []byte {
	t.Helper()
	w := new(bitWriter)
	w.writeBits(0x3FFE, 14) // sync
	w.writeBits(0, 1)       // reserved
	w.writeBits(0, 1)       // blocking strategy: fixed
	w.writeBits(0x7, 4)     // block size: read 16-bit explicit value
	w.writeBits(0x9, 4)     // sample rate: 44100 Hz
	w.writeBits(0x0, 4)     // channels: independent, 1 channel... overwritten below
	w.writeBits(0x4, 3)     // sample size: 16 bits
	w.writeBits(0, 1)       // reserved
	w.writeBits(0, 8)       // frame number 0 (1-byte UTF-8 form)
	w.writeBits(uint64(blockSize)-1, 16)

	header := w.bytes()
	// Patch the channel assignment nibble (byte 3, high nibble) to stereo
	// independent (2 channels: code 0b0001).
	header[3] = header[3]&0x0F | 0x01<<4

	crc8h := crc8.NewATM()
	crc8h.Write(header)
	header = append(header, crc8h.Sum8())

	body := new(bitWriter)
	body.writeBits(0, 1)     // subframe 0 padding
	body.writeBits(0x00, 6)  // Constant
	body.writeBits(0, 1)     // no wasted bits
	body.writeSigned(left, uint(bps))
	body.writeBits(0, 1)     // subframe 1 padding
	body.writeBits(0x00, 6)  // Constant
	body.writeBits(0, 1)     // no wasted bits
	body.writeSigned(right, uint(bps))
	bodyBytes := body.bytes()

	frameBytes := append(append([]byte{}, header...), bodyBytes...)
	crc16h := crc16.NewIBM()
	crc16h.Write(frameBytes)
	sum := crc16h.Sum16()
	frameBytes = append(frameBytes, byte(sum>>8), byte(sum))
	return frameBytes
}

func TestParseFrameConstant(t *testing.T) {
	data := buildConstantFrame(t, 4096, 16, 1000, -500)
	br := bits.NewReader(bytes.NewReader(data))
	si := &meta.StreamInfo{SampleRate: 44100, NChannels: 2, BitsPerSample: 16, MaxBlockSize: 4096}
	bufs := testBufs(2, 4096)

	f, err := ParseFrame(br, si, bufs)
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if f.Header.BlockSize != 4096 {
		t.Fatalf("BlockSize = %d, want 4096", f.Header.BlockSize)
	}
	if f.Header.Channels != ChannelsIndependent {
		t.Fatalf("Channels = %v, want independent", f.Header.Channels)
	}
	if len(f.Subframes) != 2 {
		t.Fatalf("len(Subframes) = %d, want 2", len(f.Subframes))
	}
	if f.Subframes[0].Samples[0] != 1000 {
		t.Fatalf("left sample = %d, want 1000", f.Subframes[0].Samples[0])
	}
	if f.Subframes[1].Samples[0] != -500 {
		t.Fatalf("right sample = %d, want -500", f.Subframes[1].Samples[0])
	}
	if f.Subframes[0].Samples[4095] != 1000 {
		t.Fatalf("constant subframe not filled to block size")
	}
}

func TestParseFrameHeaderCRCMismatch(t *testing.T) {
	data := buildConstantFrame(t, 192, 16, 1, 2)
	data[7] ^= 0xFF // corrupt the header CRC-8 byte (header is 7 bytes, index 0..6)
	br := bits.NewReader(bytes.NewReader(data))
	si := &meta.StreamInfo{SampleRate: 44100, NChannels: 2, BitsPerSample: 16, MaxBlockSize: 192}
	bufs := testBufs(2, 192)

	_, err := ParseFrame(br, si, bufs)
	if err != ErrFrameHeaderCRCMismatch {
		t.Fatalf("err = %v, want ErrFrameHeaderCRCMismatch", err)
	}
}

func TestDecodeSubframeType(t *testing.T) {
	cases := []struct {
		code  uint64
		pred  PredMethod
		order int
	}{
		{0x00, PredConstant, 0},
		{0x01, PredVerbatim, 0},
		{0x08, PredFixed, 0},
		{0x0C, PredFixed, 4},
		{0x20, PredFIR, 1},
		{0x3F, PredFIR, 32},
	}
	for _, c := range cases {
		pred, order, err := decodeSubframeType(c.code)
		if err != nil {
			t.Fatalf("decodeSubframeType(%#x): %v", c.code, err)
		}
		if pred != c.pred || order != c.order {
			t.Fatalf("decodeSubframeType(%#x) = (%v, %d), want (%v, %d)", c.code, pred, order, c.pred, c.order)
		}
	}
}

func TestDecodeSubframeTypeReserved(t *testing.T) {
	if _, _, err := decodeSubframeType(0x02); err != ErrSubframeReservedType {
		t.Fatalf("err = %v, want ErrSubframeReservedType", err)
	}
	if _, _, err := decodeSubframeType(0x0E); err != ErrFixedCoefficientUnknown {
		t.Fatalf("err = %v, want ErrFixedCoefficientUnknown", err)
	}
}

func TestRestoreFixedOrderZero(t *testing.T) {
	samples := []int32{7, 3, -2, 9}
	restoreFixed(0, samples)
	want := []int32{7, 3, -2, 9}
	for i := range want {
		if samples[i] != want[i] {
			t.Fatalf("samples[%d] = %d, want %d", i, samples[i], want[i])
		}
	}
}

func TestRestoreFixedOrderOne(t *testing.T) {
	// Order-1 predictor: x[i] += x[i-1]. Warm-up sample 10, residuals 1,1,1.
	samples := []int32{10, 1, 1, 1}
	restoreFixed(1, samples)
	want := []int32{10, 11, 12, 13}
	for i := range want {
		if samples[i] != want[i] {
			t.Fatalf("samples[%d] = %d, want %d", i, samples[i], want[i])
		}
	}
}
