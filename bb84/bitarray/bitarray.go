// Package bitarray provides densely-packed arrays of booleans, used
// throughout the protocol for bitstrings, basis choices, detection masks
// and keys.
package bitarray

import (
	"fmt"
	"math/bits"
	"math/rand"

	"github.com/qkdlab/qkdsim/bb84/wire"
)

const blockSize = 8

// A Dense is a bit array where every bit is explicitly represented. Bits
// are stored little-endian within each byte. All operations have copy
// semantics; a Dense is never mutated through a value it was derived
// from.
type Dense struct {
	bits []byte
	len  int
}

// NewDense returns a Dense whose data is a copy of data truncated or
// zero-extended to bitLen bits. A negative bitLen is inferred from data.
func NewDense(data []byte, bitLen int) Dense {
	if bitLen < 0 {
		bitLen = len(data) * blockSize
	}
	b := make([]byte, BytesFor(bitLen))
	copy(b, data)
	d := Dense{bits: b, len: bitLen}
	d.maskTail()
	return d
}

// Empty returns a zero-length Dense.
func Empty() Dense {
	return Dense{}
}

// Random returns a Dense of n uniformly random bits drawn from r.
func Random(r *rand.Rand, n int) Dense {
	buf := make([]byte, BytesFor(n))
	r.Read(buf)
	return NewDense(buf, n)
}

// FromString converts a string of '1's and '0's, with optional spaces,
// into a Dense.
func FromString(s string) (Dense, error) {
	var d Dense
	for _, c := range s {
		switch c {
		case '1':
			d.AppendBit(true)
		case '0':
			d.AppendBit(false)
		case ' ':
			continue
		default:
			return Dense{}, fmt.Errorf("invalid bit string %q: bad rune %q", s, c)
		}
	}
	return d, nil
}

// FromWire converts a wire-level bit array into a Dense. A nil message
// converts to an empty array.
func FromWire(m *wire.DenseBitArray) Dense {
	if m == nil {
		return Dense{}
	}
	return NewDense(m.Bits, int(m.Len))
}

// ToWire converts d into its wire representation.
func (d Dense) ToWire() *wire.DenseBitArray {
	return &wire.DenseBitArray{
		Bits: d.Data(),
		Len:  int32(d.len),
	}
}

// Size returns the number of bits in d.
func (d Dense) Size() int {
	return d.len
}

// ByteSize returns the number of bytes needed to represent d.
func (d Dense) ByteSize() int {
	return BytesFor(d.len)
}

// Data returns a copy of the bytes underlying d.
func (d Dense) Data() []byte {
	return append([]byte(nil), d.bits...)
}

// Get returns the bit at idx. Bits beyond the end of d read as zero.
func (d Dense) Get(idx int) bool {
	if idx < 0 || idx >= d.len {
		return false
	}
	return d.bits[idx/blockSize]&(1<<(idx%blockSize)) != 0
}

// AppendBit adds a single bit to the end of d.
func (d *Dense) AppendBit(bit bool) {
	if d.len%blockSize == 0 {
		d.bits = append(d.bits, 0)
	}
	if bit {
		d.bits[d.len/blockSize] |= 1 << (d.len % blockSize)
	}
	d.len++
}

// Append adds the contents of other to the end of d.
func (d *Dense) Append(other Dense) {
	for i := 0; i < other.len; i++ {
		d.AppendBit(other.Get(i))
	}
}

// Flip inverts the bit at idx.
func (d *Dense) Flip(idx int) {
	d.bits[idx/blockSize] ^= 1 << (idx % blockSize)
}

// Shuffle randomly permutes the bits of d in place, using r as a source
// of randomness.
func (d *Dense) Shuffle(r *rand.Rand) {
	r.Shuffle(d.len, d.swap)
}

func (d *Dense) swap(i, j int) {
	if d.Get(i) == d.Get(j) {
		return
	}
	d.Flip(i)
	d.Flip(j)
}

// And computes the bitwise AND of d and other. The result has the length
// of the shorter operand.
func (d Dense) And(other Dense) Dense {
	short := other
	if d.len < other.len {
		short = d
	}
	r := Dense{bits: make([]byte, short.ByteSize()), len: short.len}
	for i := range r.bits {
		r.bits[i] = d.bits[i] & other.bits[i]
	}
	r.maskTail()
	return r
}

// XOr computes the bitwise XOR of d and other. The shorter operand is
// implicitly zero-extended to the length of the longer.
func (d Dense) XOr(other Dense) Dense {
	short, long := other, d
	if d.len < other.len {
		short, long = d, other
	}
	r := Dense{bits: make([]byte, long.ByteSize()), len: long.len}
	copy(r.bits, long.bits)
	for i := range short.bits {
		r.bits[i] ^= short.bits[i]
	}
	return r
}

// XNor computes the bitwise equality of d and other. The shorter operand
// is implicitly zero-extended to the length of the longer.
func (d Dense) XNor(other Dense) Dense {
	r := d.XOr(other)
	for i := range r.bits {
		r.bits[i] = ^r.bits[i]
	}
	r.maskTail()
	return r
}

// CountOnes returns the number of set bits in d.
func (d Dense) CountOnes() int {
	var sum int
	for _, b := range d.bits {
		sum += bits.OnesCount8(b)
	}
	return sum
}

// Parity returns the overall parity of d, with true corresponding to 1.
func (d Dense) Parity() bool {
	return d.CountOnes()%2 == 1
}

// Select returns the bits of d at positions where mask is set, in
// ascending position order.
func (d Dense) Select(mask Dense) Dense {
	var r Dense
	for i := 0; i < d.len; i++ {
		if mask.Get(i) {
			r.AppendBit(d.Get(i))
		}
	}
	return r
}

// Slice returns a copy of bits [start, end) of d.
func (d Dense) Slice(start, end int) (Dense, error) {
	if start < 0 {
		return Dense{}, fmt.Errorf("slicing bitarray with negative start: %d", start)
	}
	if end < start {
		return Dense{}, fmt.Errorf("slicing bitarray to negative length: %d", end-start)
	}
	if end > d.len {
		return Dense{}, fmt.Errorf("slicing bitarray of len %d up to %d", d.len, end)
	}
	var r Dense
	for i := start; i < end; i++ {
		r.AppendBit(d.Get(i))
	}
	return r, nil
}

// Equal reports whether a and b have identical lengths and contents.
func Equal(a, b Dense) bool {
	if a.len != b.len {
		return false
	}
	for i := range a.bits {
		if a.bits[i] != b.bits[i] {
			return false
		}
	}
	return true
}

// String renders d as a string of '0's and '1's, lowest index first.
func (d Dense) String() string {
	buf := make([]byte, d.len)
	for i := 0; i < d.len; i++ {
		if d.Get(i) {
			buf[i] = '1'
		} else {
			buf[i] = '0'
		}
	}
	return string(buf)
}

// BytesFor returns the number of bytes necessary to hold the given
// number of bits.
func BytesFor(bits int) int {
	return (bits + blockSize - 1) / blockSize
}

// maskTail zeroes the storage bits past the logical end of d, an
// invariant CountOnes and Parity rely on.
func (d *Dense) maskTail() {
	if d.len%blockSize == 0 || len(d.bits) == 0 {
		return
	}
	d.bits[len(d.bits)-1] &= 0xFF >> (blockSize - d.len%blockSize)
}
