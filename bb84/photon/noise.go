package photon

import (
	exprand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/qkdlab/qkdsim/bb84/qubit"
)

// A Noise stage models an imperfect link: each state independently
// suffers a bit flip in its own preparation basis with probability
// FlipProb and is lost outright with probability LossProb. Lost states
// surface as unset positions in the receiver's detected mask.
type Noise struct {
	flip distuv.Bernoulli
	loss distuv.Bernoulli

	// Flipped and Lost count the errors introduced so far.
	Flipped int
	Lost    int
}

// NewNoise returns a Noise stage with the given flip and loss
// probabilities, drawing from a source seeded with seed.
func NewNoise(flipProb, lossProb float64, seed uint64) *Noise {
	src := exprand.NewSource(seed)
	return &Noise{
		flip: distuv.Bernoulli{P: flipProb, Src: src},
		loss: distuv.Bernoulli{P: lossProb, Src: src},
	}
}

// Relay implements the Stage interface.
func (n *Noise) Relay(states []*qubit.State) ([]*qubit.State, error) {
	out := make([]*qubit.State, len(states))
	for i, st := range states {
		if st == nil {
			continue
		}
		if n.loss.Rand() == 1 {
			n.Lost++
			continue
		}
		if n.flip.Rand() == 1 {
			if err := st.Flip(); err != nil {
				return nil, err
			}
			n.Flipped++
		}
		out[i] = st
	}
	return out, nil
}
