package bits

// ReadRice decodes a single Rice-coded residual with parameter k: a unary
// quotient, k binary remainder bits, and a zig-zag decode back to signed.
//
//	v := (msb << k) | lsb
//	signed := (v >> 1) ^ -(v & 1)
func (r *Reader) ReadRice(k uint) (int32, error) {
	msb, err := r.ReadUnary()
	if err != nil {
		return 0, err
	}
	var lsb uint64
	if k > 0 {
		lsb, err = r.Read(k)
		if err != nil {
			return 0, err
		}
	}
	v := uint32(msb<<k | lsb)
	return DecodeZigZag(v), nil
}
