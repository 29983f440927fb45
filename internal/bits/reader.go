// Package bits provides the bit-level reader at the heart of the FLAC
// decoder: arbitrary-width (1..=64) big-endian field reads over a byte
// source, with a small residual queue kept across calls, and optional CRC-8 /
// CRC-16 taps so frame-header and whole-frame checksums can be verified
// without a second pass over the bytes.
package bits

import (
	"encoding/binary"
	"io"

	"github.com/mewkiz/flac/internal/hashutil/crc16"
	"github.com/mewkiz/flac/internal/hashutil/crc8"
)

// Reader serves bit fields from an underlying byte source. The zero value is
// not usable; construct one with NewReader.
type Reader struct {
	src io.Reader

	queue      uint64 // up to 7 leftover bits, right-aligned
	queueCount uint    // number of valid bits held in queue, 0..=7

	crc8       *crc8.Hash8
	crc16      *crc16.Hash16
	crc8open   bool
	crc16open  bool
}

// NewReader returns a Reader that pulls bytes from src.
func NewReader(src io.Reader) *Reader {
	return &Reader{src: src}
}

// tap feeds consumed bytes into whichever CRC accumulators currently have an
// open region. Bytes are folded in the order they were read off src, exactly
// once, regardless of how they end up sliced across queue boundaries.
func (r *Reader) tap(p []byte) {
	if r.crc8open {
		r.crc8.Write(p)
	}
	if r.crc16open {
		r.crc16.Write(p)
	}
}

// CRC8Begin opens a CRC-8 (polynomial 0x07, unreflected) region. Every byte
// subsequently consumed from the byte source is folded into the checksum
// until CRC8End is called.
func (r *Reader) CRC8Begin() {
	r.crc8 = crc8.NewATM()
	r.crc8open = true
}

// CRC8End closes the CRC-8 region and returns the accumulated checksum.
func (r *Reader) CRC8End() uint8 {
	r.crc8open = false
	return r.crc8.Sum8()
}

// CRC16Begin opens a CRC-16/BUYPASS region, independent of and possibly
// nested inside a CRC-8 region.
func (r *Reader) CRC16Begin() {
	r.crc16 = crc16.NewIBM()
	r.crc16open = true
}

// CRC16End closes the CRC-16 region and returns the accumulated checksum.
func (r *Reader) CRC16End() uint16 {
	r.crc16open = false
	return r.crc16.Sum16()
}

// Read returns the next n bits (0..=64) as a right-aligned unsigned value,
// most-significant bit first. It blocks on the byte source as needed.
func (r *Reader) Read(n uint) (uint64, error) {
	if n > 64 {
		panic("bits: read width exceeds 64 bits")
	}
	if n == 0 {
		return 0, nil
	}
	nBits := int(n) - int(r.queueCount)
	if nBits > 0 {
		nBytes := (nBits-1)/8 + 1
		var array [8]byte
		offset := 8 - nBytes
		if _, err := io.ReadFull(r.src, array[offset:]); err != nil {
			return 0, err
		}
		r.tap(array[offset:])
		loaded := binary.BigEndian.Uint64(array[:])
		dequeued := r.queue << uint(nBits)
		remaining := uint((8 - (nBits & 7)) & 7)
		result := dequeued | (loaded >> remaining)
		r.queue = loaded & (uint64(1)<<remaining - 1)
		r.queueCount = remaining
		return result, nil
	}
	remaining := uint(-nBits)
	result := r.queue >> remaining
	r.queue &= uint64(1)<<remaining - 1
	r.queueCount = remaining
	return result, nil
}

// ReadBool reads a single bit and reports whether it was set.
func (r *Reader) ReadBool() (bool, error) {
	v, err := r.Read(1)
	if err != nil {
		return false, err
	}
	return v == 1, nil
}

// ReadUint8 reads an 8-bit field.
func (r *Reader) ReadUint8() (uint8, error) {
	v, err := r.Read(8)
	return uint8(v), err
}

// ReadUint16 reads a 16-bit field.
func (r *Reader) ReadUint16() (uint16, error) {
	v, err := r.Read(16)
	return uint16(v), err
}

// ReadUint32 reads a 32-bit field.
func (r *Reader) ReadUint32() (uint32, error) {
	v, err := r.Read(32)
	return uint32(v), err
}

// ReadUint64 reads a 64-bit field.
func (r *Reader) ReadUint64() (uint64, error) {
	return r.Read(64)
}

// ReadUint128 reads a 128-bit field as two big-endian 64-bit halves and
// returns it as a 16-byte array, high half first. Used only for StreamInfo's
// opaque MD5 signature.
func (r *Reader) ReadUint128() ([16]byte, error) {
	var out [16]byte
	hi, err := r.Read(64)
	if err != nil {
		return out, err
	}
	lo, err := r.Read(64)
	if err != nil {
		return out, err
	}
	binary.BigEndian.PutUint64(out[0:8], hi)
	binary.BigEndian.PutUint64(out[8:16], lo)
	return out, nil
}

// AlignToByte discards any residual queued bits, resynchronizing the reader
// to the next byte boundary of the underlying source.
func (r *Reader) AlignToByte() {
	r.queue = 0
	r.queueCount = 0
}

// ReadBytes reads n bytes, one at a time, respecting any residual sub-byte
// queue rather than requiring byte alignment. Used for metadata block bodies
// that carry opaque or string data.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	for i := range buf {
		v, err := r.Read(8)
		if err != nil {
			return nil, err
		}
		buf[i] = byte(v)
	}
	return buf, nil
}

// SkipBits discards n bits (n >= 0) without allocating a result, used for
// metadata bodies the decoder has no need to parse.
func (r *Reader) SkipBits(n int) error {
	for n > 0 {
		chunk := n
		if chunk > 64 {
			chunk = 64
		}
		if _, err := r.Read(uint(chunk)); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}
