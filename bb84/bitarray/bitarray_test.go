package bitarray

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestAnd(t *testing.T) {
	tcs := []struct {
		name string
		a    Dense
		b    Dense
		eout Dense
	}{
		{
			name: "aligned",
			a:    NewDense([]byte{0b101}, 8),
			b:    NewDense([]byte{0b110}, 8),
			eout: NewDense([]byte{0b100}, 8),
		}, {
			name: "short a",
			a:    NewDense([]byte{0b101}, 8),
			b:    NewDense([]byte{0b110, 0b1}, 9),
			eout: NewDense([]byte{0b100}, 8),
		}, {
			name: "short b",
			a:    NewDense([]byte{0b101, 0b1}, 9),
			b:    NewDense([]byte{0b110}, 8),
			eout: NewDense([]byte{0b100}, 8),
		}, {
			name: "empty a",
			b:    NewDense([]byte{0b110}, 8),
		}, {
			name: "empty b",
			a:    NewDense([]byte{0b110}, 8),
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			out := tc.a.And(tc.b)
			if out.Size() != tc.eout.Size() {
				t.Errorf("got bitarray of len %d, want %d", out.Size(), tc.eout.Size())
			}
			if !bytes.Equal(out.Data(), tc.eout.Data()) {
				t.Errorf("and(%v, %v) == %v, want %v", tc.a.Data(), tc.b.Data(), out.Data(), tc.eout.Data())
			}
		})
	}
}

func TestXOr(t *testing.T) {
	tcs := []struct {
		name string
		a    Dense
		b    Dense
		eout Dense
	}{
		{
			name: "aligned",
			a:    NewDense([]byte{0b101}, 8),
			b:    NewDense([]byte{0b110}, 8),
			eout: NewDense([]byte{0b011}, 8),
		}, {
			name: "short a",
			a:    NewDense([]byte{0b101}, 8),
			b:    NewDense([]byte{0b110, 0b1}, 9),
			eout: NewDense([]byte{0b011, 0b1}, 9),
		}, {
			name: "short b",
			a:    NewDense([]byte{0b101, 0b1}, 9),
			b:    NewDense([]byte{0b110}, 8),
			eout: NewDense([]byte{0b011, 0b1}, 9),
		}, {
			name: "empty a",
			b:    NewDense([]byte{0b110}, 8),
			eout: NewDense([]byte{0b110}, 8),
		}, {
			name: "empty b",
			a:    NewDense([]byte{0b110}, 8),
			eout: NewDense([]byte{0b110}, 8),
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			out := tc.a.XOr(tc.b)
			if out.Size() != tc.eout.Size() {
				t.Errorf("got bitarray of len %d, want %d", out.Size(), tc.eout.Size())
			}
			if !bytes.Equal(out.Data(), tc.eout.Data()) {
				t.Errorf("xor(%v, %v) == %v, want %v", tc.a.Data(), tc.b.Data(), out.Data(), tc.eout.Data())
			}
		})
	}
}

func TestXNor(t *testing.T) {
	tcs := []struct {
		name string
		a    Dense
		b    Dense
		eout Dense
	}{
		{
			name: "aligned",
			a:    NewDense([]byte{0b00000101}, 8),
			b:    NewDense([]byte{0b00000110}, 8),
			eout: NewDense([]byte{0b11111100}, 8),
		}, {
			name: "unaligned",
			a:    NewDense([]byte{0b0101}, 4),
			b:    NewDense([]byte{0b0110}, 4),
			eout: NewDense([]byte{0b1100}, 4),
		}, {
			name: "short a",
			a:    NewDense([]byte{0b00000101}, 8),
			b:    NewDense([]byte{0b00000110, 0b10}, 10),
			eout: NewDense([]byte{0b11111100, 0b01}, 10),
		}, {
			name: "short b",
			a:    NewDense([]byte{0b00000110, 0b10}, 10),
			b:    NewDense([]byte{0b00000101}, 8),
			eout: NewDense([]byte{0b11111100, 0b01}, 10),
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			out := tc.a.XNor(tc.b)
			if out.Size() != tc.eout.Size() {
				t.Errorf("got bitarray of len %d, want %d", out.Size(), tc.eout.Size())
			}
			if !bytes.Equal(out.Data(), tc.eout.Data()) {
				t.Errorf("xnor(%v, %v) == %v, want %v", tc.a.Data(), tc.b.Data(), out.Data(), tc.eout.Data())
			}
		})
	}
}

func TestSelect(t *testing.T) {
	tcs := []struct {
		name string
		bits Dense
		mask Dense
		eout Dense
	}{
		{
			name: "all",
			bits: NewDense([]byte{0b11101101}, 8),
			mask: NewDense([]byte{0b11111111}, 8),
			eout: NewDense([]byte{0b11101101}, 8),
		}, {
			name: "none",
			bits: NewDense([]byte{0b1101101}, 8),
		}, {
			name: "some",
			bits: NewDense([]byte{0b11101101}, 8),
			mask: NewDense([]byte{0b10001011}, 8),
			eout: NewDense([]byte{0b1101}, 4),
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			out := tc.bits.Select(tc.mask)
			if out.Size() != tc.eout.Size() {
				t.Errorf("got bitarray of len %d, want %d", out.Size(), tc.eout.Size())
			}
			if !bytes.Equal(out.Data(), tc.eout.Data()) {
				t.Errorf("select(%v, %v) == %v, want %v", tc.bits.Data(), tc.mask.Data(), out.Data(), tc.eout.Data())
			}
		})
	}
}

func TestSlice(t *testing.T) {
	tcs := []struct {
		name  string
		bits  Dense
		start int
		end   int
		eout  Dense
		eErr  bool
	}{
		{
			name: "full slice",
			bits: NewDense([]byte{0b11101101}, 8),
			end:  8,
			eout: NewDense([]byte{0b11101101}, 8),
		}, {
			name: "empty slice",
			bits: NewDense([]byte{0b11101101}, 8),
		}, {
			name:  "unaligned middle",
			bits:  NewDense([]byte{0b11110010}, 8),
			start: 4,
			end:   8,
			eout:  NewDense([]byte{0b1111}, 4),
		}, {
			name:  "crossing bytes",
			bits:  NewDense([]byte{1, 2, 3}, 24),
			start: 8,
			end:   24,
			eout:  NewDense([]byte{2, 3}, 16),
		}, {
			name: "past the end",
			bits: NewDense([]byte{0b11101101}, 8),
			end:  9,
			eErr: true,
		}, {
			name:  "negative start",
			bits:  NewDense([]byte{0b11101101}, 8),
			start: -1,
			eErr:  true,
		}, {
			name:  "inverted range",
			bits:  NewDense([]byte{0b11101101}, 8),
			start: 5,
			end:   2,
			eErr:  true,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			out, err := tc.bits.Slice(tc.start, tc.end)
			if tc.eErr {
				if err == nil {
					t.Fatalf("slice(%d, %d): expected error, got nil", tc.start, tc.end)
				}
				return
			}
			if err != nil {
				t.Fatalf("slice(%d, %d) = %v, want nil error", tc.start, tc.end, err)
			}
			if out.Size() != tc.eout.Size() {
				t.Errorf("got bitarray of len %d, want %d", out.Size(), tc.eout.Size())
			}
			if !bytes.Equal(out.Data(), tc.eout.Data()) {
				t.Errorf("slice(%v, %d, %d) == %v, want %v", tc.bits.Data(), tc.start, tc.end, out.Data(), tc.eout.Data())
			}
		})
	}
}

func TestAppendAndGet(t *testing.T) {
	var d Dense
	pattern := []bool{true, false, false, true, true, true, false, true, false, true}
	for _, b := range pattern {
		d.AppendBit(b)
	}
	if d.Size() != len(pattern) {
		t.Fatalf("got bitarray of len %d, want %d", d.Size(), len(pattern))
	}
	for i, want := range pattern {
		if got := d.Get(i); got != want {
			t.Errorf("bit %d == %v, want %v", i, got, want)
		}
	}

	var e Dense
	e.Append(d)
	e.Append(d)
	if e.Size() != 2*d.Size() {
		t.Fatalf("after double append, len %d, want %d", e.Size(), 2*d.Size())
	}
	for i := 0; i < e.Size(); i++ {
		if e.Get(i) != d.Get(i%d.Size()) {
			t.Errorf("appended bit %d disagrees with source", i)
		}
	}
}

func TestCountOnesIgnoresTail(t *testing.T) {
	// The constructor must mask storage bits beyond the logical length.
	d := NewDense([]byte{0xFF}, 3)
	if got := d.CountOnes(); got != 3 {
		t.Errorf("CountOnes() == %d, want 3", got)
	}
	if !d.Parity() {
		t.Errorf("Parity() == false, want true")
	}
}

func TestFromStringRoundTrip(t *testing.T) {
	const s = "010001011111000101"
	d, err := FromString(s)
	if err != nil {
		t.Fatalf("FromString(%q): %v", s, err)
	}
	if d.Size() != len(s) {
		t.Fatalf("got bitarray of len %d, want %d", d.Size(), len(s))
	}
	if got := d.String(); got != s {
		t.Errorf("String() == %q, want %q", got, s)
	}
	if _, err := FromString("01x1"); err == nil {
		t.Errorf("FromString with bad rune: expected error, got nil")
	}
}

func TestShufflePreservesPopulation(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	d := Random(r, 1000)
	ones := d.CountOnes()
	d.Shuffle(r)
	if got := d.CountOnes(); got != ones {
		t.Errorf("shuffle changed population: %d != %d", got, ones)
	}
	if d.Size() != 1000 {
		t.Errorf("shuffle changed length: %d", d.Size())
	}
}

func TestWireRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	d := Random(r, 13)
	data, err := d.ToWire().MarshalBinary()
	if err != nil {
		t.Fatalf("marshalling: %v", err)
	}
	m := d.ToWire()
	if err := m.UnmarshalBinary(data); err != nil {
		t.Fatalf("unmarshalling: %v", err)
	}
	if got := FromWire(m); !Equal(got, d) {
		t.Errorf("wire round trip mangled bits: %v != %v", got, d)
	}
	if got := FromWire(nil); got.Size() != 0 {
		t.Errorf("FromWire(nil) has %d bits, want 0", got.Size())
	}
}
