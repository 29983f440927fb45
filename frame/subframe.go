package frame

import (
	"errors"
	"fmt"

	"github.com/mewkiz/flac/internal/bits"
)

// Sentinel errors returned while parsing a subframe.
var (
	// ErrSubframeOutOfSync is returned when a subframe's zero padding bit is
	// not zero.
	ErrSubframeOutOfSync = errors.New("frame: subframe padding bit not zero; stream out of sync")
	// ErrSubframeReservedType is returned for a reserved subframe type code.
	ErrSubframeReservedType = errors.New("frame: reserved subframe type code")
	// ErrResidualCodingMethodUnknown is returned for a reserved residual
	// coding method code.
	ErrResidualCodingMethodUnknown = errors.New("frame: reserved residual coding method code")
	// ErrFixedCoefficientUnknown is returned for a fixed predictor order
	// outside 0..=4.
	ErrFixedCoefficientUnknown = errors.New("frame: fixed predictor order outside 0..4")
	// ErrQLPPrecisionInvalid is returned for the reserved QLP precision
	// escape code.
	ErrQLPPrecisionInvalid = errors.New("frame: invalid QLP coefficient precision")
	// ErrLPCRestoreFailure is returned when an LPC subframe declares a
	// negative quantization shift, which this decoder cannot restore.
	ErrLPCRestoreFailure = errors.New("frame: negative LPC shift; cannot restore samples")
	// ErrFrameBufferUnallocated is returned when a frame header declares a
	// channel index or block size outside the driver-owned buffer array
	// ParseFrame was given to decode into.
	ErrFrameBufferUnallocated = errors.New("frame: channel index out of driver-owned buffer array")
)

// PredMethod identifies the prediction method used to encode a subframe.
type PredMethod uint8

// Prediction methods.
const (
	PredConstant PredMethod = iota
	PredVerbatim
	PredFixed
	PredFIR
)

// fixedCoeffs are the FLAC fixed predictor coefficients indexed by order
// 0..=4.
var fixedCoeffs = [][]int32{
	{},
	{1},
	{2, -1},
	{3, -3, 1},
	{4, -6, 4, -1},
}

// Subframe holds one channel's decoded samples for a frame.
type Subframe struct {
	// Pred is the prediction method used to encode this subframe.
	Pred PredMethod
	// Order is the predictor order: 0 for Constant/Verbatim, 0..=4 for Fixed,
	// 1..=32 for FIR.
	Order int
	// Wasted is the number of low-order zero bits every sample was shifted
	// out of before encoding, restored here by left-shifting Samples.
	Wasted uint8
	// Samples holds one decoded sample per frame position, length equal to
	// the frame's block size. When decoded via ParseFrame with a
	// driver-owned buffer array, it aliases that buffer and is only valid
	// until the buffer is reused by a later frame.
	Samples []int32
}

// decodeSubframeType classifies a 6-bit subframe type code.
func decodeSubframeType(code uint64) (PredMethod, int, error) {
	switch {
	case code == 0x00:
		return PredConstant, 0, nil
	case code == 0x01:
		return PredVerbatim, 0, nil
	case code >= 0x08 && code <= 0x0F:
		order := int(code & 0x07)
		if order > 4 {
			return 0, 0, ErrFixedCoefficientUnknown
		}
		return PredFixed, order, nil
	case code >= 0x20 && code <= 0x3F:
		return PredFIR, int(code&0x1F) + 1, nil
	default:
		return 0, 0, ErrSubframeReservedType
	}
}

// parseSubframe reads and decodes a single subframe into dst, which the
// caller has already resliced to len(dst) == blockSize from a driver-owned,
// per-channel buffer. bps is the effective bits-per-sample for this channel,
// already adjusted for a decorrelated side channel's extra bit of headroom.
func parseSubframe(br *bits.Reader, dst []int32, bps uint) (*Subframe, error) {
	pad, err := br.ReadBool()
	if err != nil {
		return nil, err
	}
	if pad {
		return nil, ErrSubframeOutOfSync
	}
	typeCode, err := br.Read(6)
	if err != nil {
		return nil, err
	}
	pred, order, err := decodeSubframeType(typeCode)
	if err != nil {
		return nil, err
	}
	hasWasted, err := br.ReadBool()
	if err != nil {
		return nil, err
	}
	var wasted uint8
	if hasWasted {
		n, err := br.ReadUnary()
		if err != nil {
			return nil, err
		}
		wasted = uint8(n) + 1
	}
	if uint(wasted) >= bps {
		return nil, fmt.Errorf("frame.parseSubframe: wasted bits %d >= sample size %d", wasted, bps)
	}
	effBps := bps - uint(wasted)

	sub := &Subframe{Pred: pred, Order: order, Wasted: wasted, Samples: dst}
	switch pred {
	case PredConstant:
		err = decodeConstant(br, dst, effBps)
	case PredVerbatim:
		err = decodeVerbatim(br, dst, effBps)
	case PredFixed:
		err = decodeFixed(br, dst, order, effBps)
	case PredFIR:
		err = decodeFIR(br, dst, order, effBps)
	}
	if err != nil {
		return nil, err
	}

	if wasted > 0 {
		for i, s := range sub.Samples {
			sub.Samples[i] = s << wasted
		}
	}
	return sub, nil
}

func readSigned(br *bits.Reader, n uint) (int32, error) {
	v, err := br.Read(n)
	if err != nil {
		return 0, err
	}
	return int32(bits.IntN(v, n)), nil
}

// decodeConstant fills dst, a driver-owned per-channel buffer already
// resliced to the frame's block size, with len(dst) copies of the single
// encoded sample value.
func decodeConstant(br *bits.Reader, dst []int32, bps uint) error {
	v, err := readSigned(br, bps)
	if err != nil {
		return err
	}
	for i := range dst {
		dst[i] = v
	}
	return nil
}

// decodeVerbatim fills dst with len(dst) raw samples read directly off the
// bitstream.
func decodeVerbatim(br *bits.Reader, dst []int32, bps uint) error {
	for i := range dst {
		v, err := readSigned(br, bps)
		if err != nil {
			return err
		}
		dst[i] = v
	}
	return nil
}

func decodeFixed(br *bits.Reader, dst []int32, order int, bps uint) error {
	for i := 0; i < order; i++ {
		v, err := readSigned(br, bps)
		if err != nil {
			return err
		}
		dst[i] = v
	}
	residual, err := decodeResidual(br, len(dst), order)
	if err != nil {
		return err
	}
	copy(dst[order:], residual)
	restoreFixed(order, dst)
	return nil
}

func restoreFixed(order int, samples []int32) {
	coeffs := fixedCoeffs[order]
	for i := order; i < len(samples); i++ {
		var sum int64
		for j, c := range coeffs {
			sum += int64(c) * int64(samples[i-1-j])
		}
		samples[i] = int32(int64(samples[i]) + sum)
	}
}

func decodeFIR(br *bits.Reader, dst []int32, order int, bps uint) error {
	for i := 0; i < order; i++ {
		v, err := readSigned(br, bps)
		if err != nil {
			return err
		}
		dst[i] = v
	}

	precisionCode, err := br.Read(4)
	if err != nil {
		return err
	}
	if precisionCode == 0xF {
		return ErrQLPPrecisionInvalid
	}
	precision := uint(precisionCode) + 1

	shiftCode, err := br.Read(5)
	if err != nil {
		return err
	}
	shift := bits.IntN(shiftCode, 5)
	if shift < 0 {
		return ErrLPCRestoreFailure
	}

	coeffs := make([]int32, order)
	for i := range coeffs {
		v, err := br.Read(precision)
		if err != nil {
			return err
		}
		coeffs[i] = int32(bits.IntN(v, precision))
	}

	residual, err := decodeResidual(br, len(dst), order)
	if err != nil {
		return err
	}
	copy(dst[order:], residual)
	restoreLPC(coeffs, uint(shift), dst, order)
	return nil
}

func restoreLPC(coeffs []int32, shift uint, samples []int32, order int) {
	for i := order; i < len(samples); i++ {
		var sum int64
		for j, c := range coeffs {
			sum += int64(c) * int64(samples[i-1-j])
		}
		samples[i] = int32(int64(samples[i]) + (sum >> shift))
	}
}

// decodeResidual reads the partitioned-Rice residual for a fixed or FIR
// subframe, covering exactly blockSize-predOrder samples.
func decodeResidual(br *bits.Reader, blockSize, predOrder int) ([]int32, error) {
	codingMethod, err := br.Read(2)
	if err != nil {
		return nil, err
	}
	var paramWidth uint
	switch codingMethod {
	case 0x0:
		paramWidth = 4
	case 0x1:
		paramWidth = 5
	default:
		return nil, ErrResidualCodingMethodUnknown
	}
	escape := uint64(1)<<paramWidth - 1

	partOrderBits, err := br.Read(4)
	if err != nil {
		return nil, err
	}
	nParts := 1 << partOrderBits
	if blockSize%nParts != 0 {
		return nil, fmt.Errorf("frame.decodeResidual: block size %d not divisible by %d partitions", blockSize, nParts)
	}
	partSize := blockSize / nParts
	if partSize <= predOrder && nParts > 1 {
		return nil, fmt.Errorf("frame.decodeResidual: first partition size %d too small for predictor order %d", partSize, predOrder)
	}

	residual := make([]int32, 0, blockSize-predOrder)
	for i := 0; i < nParts; i++ {
		n := partSize
		if i == 0 {
			n -= predOrder
		}
		param, err := br.Read(paramWidth)
		if err != nil {
			return nil, err
		}
		if param == escape {
			rawWidth, err := br.Read(5)
			if err != nil {
				return nil, err
			}
			for j := 0; j < n; j++ {
				v, err := readSigned(br, uint(rawWidth))
				if err != nil {
					return nil, err
				}
				residual = append(residual, v)
			}
			continue
		}
		for j := 0; j < n; j++ {
			v, err := br.ReadRice(uint(param))
			if err != nil {
				return nil, err
			}
			residual = append(residual, v)
		}
	}
	return residual, nil
}
