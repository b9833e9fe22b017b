// Package qubit models single-qubit states as prepared and measured by
// the BB84 protocol. The model is the idealized closed-form one: a
// measurement in the preparation basis reproduces the encoded bit
// exactly, and a measurement in the conjugate basis yields a uniformly
// random outcome. A state is consumed by its first measurement and can
// never be measured again.
package qubit

import (
	"errors"
	"math/rand"

	"github.com/qkdlab/qkdsim/bb84/bitarray"
)

// A Basis identifies one of the two conjugate encoding/measurement
// frames used by BB84.
type Basis bool

const (
	// Rectilinear is the computational basis {|0⟩, |1⟩}.
	Rectilinear Basis = false
	// Diagonal is the Hadamard basis {|+⟩, |−⟩}.
	Diagonal Basis = true
)

// String implements fmt.Stringer.
func (b Basis) String() string {
	if b == Diagonal {
		return "diagonal"
	}
	return "rectilinear"
}

// ErrStateConsumed is returned when a state that has already been
// measured is measured again. Quantum states cannot be cloned or reused;
// a second measurement is always a bug in the caller.
var ErrStateConsumed = errors.New("qubit state already measured")

// A State is one of the four BB84 pure states, addressed by the basis it
// was prepared in and the bit it encodes. The zero value is not
// meaningful; obtain States from Encode.
type State struct {
	basis    Basis
	bit      bool
	consumed bool
}

// Encode prepares a fresh state encoding bit in basis:
//
//	(0, rectilinear) → |0⟩    (1, rectilinear) → |1⟩
//	(0, diagonal)    → |+⟩    (1, diagonal)    → |−⟩
func Encode(bit bool, basis Basis) *State {
	return &State{basis: basis, bit: bit}
}

// Measure collapses s in the given basis and returns the outcome. If the
// measurement basis matches the preparation basis the encoded bit is
// returned; otherwise the outcome is a fair coin drawn from r. The state
// is consumed either way.
func (s *State) Measure(basis Basis, r *rand.Rand) (bool, error) {
	if s.consumed {
		return false, ErrStateConsumed
	}
	s.consumed = true
	if s.basis == basis {
		return s.bit, nil
	}
	return r.Intn(2) == 1, nil
}

// Flip applies a bit flip to s in its own preparation basis, modeling a
// channel error. The state remains unmeasured.
func (s *State) Flip() error {
	if s.consumed {
		return ErrStateConsumed
	}
	s.bit = !s.bit
	return nil
}

// Ket renders the state in Dirac notation. Handy for traces and demos;
// peeking at the label does not consume the state, since only the
// simulator, not a protocol participant, can call it.
func (s *State) Ket() string {
	switch {
	case s.basis == Rectilinear && !s.bit:
		return "|0⟩"
	case s.basis == Rectilinear && s.bit:
		return "|1⟩"
	case s.basis == Diagonal && !s.bit:
		return "|+⟩"
	default:
		return "|−⟩"
	}
}

// EncodeAll prepares one state per bit of bits, using the matching
// element of bases. The two arrays must have equal length.
func EncodeAll(bits, bases bitarray.Dense) ([]*State, error) {
	if bits.Size() != bases.Size() {
		return nil, errors.New("bit and basis arrays must have equal length")
	}
	states := make([]*State, bits.Size())
	for i := range states {
		states[i] = Encode(bits.Get(i), Basis(bases.Get(i)))
	}
	return states, nil
}
