package photon

import (
	"math/rand"

	"github.com/qkdlab/qkdsim/bb84/bitarray"
	"github.com/qkdlab/qkdsim/bb84/qubit"
)

// An Eavesdropper implements the intercept-resend attack as a channel
// stage: each intercepted state is measured in a freshly chosen random
// basis and replaced by a new state encoding the observed outcome in
// that basis. Whenever the chosen basis disagrees with the sender's, the
// forwarded state yields the wrong bit half the time even under a
// correct downstream measurement, which is what makes the attack
// statistically visible in the sifted key.
type Eavesdropper struct {
	// Rand drives basis choices and mismatched measurements. Must be
	// non-nil.
	Rand *rand.Rand

	// Fraction is the probability of intercepting any given state.
	// Values outside (0, 1) mean every state is intercepted.
	Fraction float64

	// Bits and Bases record the outcomes and bases of every intercepted
	// measurement, in channel order. They are what the attacker "knows".
	Bits  bitarray.Dense
	Bases bitarray.Dense

	// Intercepted counts states acted upon.
	Intercepted int
}

// Relay implements the Stage interface.
func (e *Eavesdropper) Relay(states []*qubit.State) ([]*qubit.State, error) {
	out := make([]*qubit.State, len(states))
	for i, st := range states {
		if st == nil {
			continue
		}
		if e.Fraction > 0 && e.Fraction < 1 && e.Rand.Float64() >= e.Fraction {
			out[i] = st
			continue
		}
		basis := qubit.Basis(e.Rand.Intn(2) == 1)
		bit, err := st.Measure(basis, e.Rand)
		if err != nil {
			return nil, err
		}
		e.Bits.AppendBit(bit)
		e.Bases.AppendBit(bool(basis))
		e.Intercepted++
		out[i] = qubit.Encode(bit, basis)
	}
	return out, nil
}
