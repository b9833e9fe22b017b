package photon

import (
	"fmt"
	"math/rand"

	"github.com/qkdlab/qkdsim/bb84/bitarray"
	"github.com/qkdlab/qkdsim/bb84/qubit"
)

// NewSimulated creates a (Sender, Receiver) pair joined by an in-memory
// FIFO. Each call to Send must be mirrored by a call to Receive; Send
// blocks once more than bufSize unreceived batches are in flight. The
// given stages are applied to every batch, in order, at send time, so
// that a batch observed by the receiver has already suffered any
// eavesdropping or noise. rng drives the receiver's measurements.
func NewSimulated(bufSize int, rng *rand.Rand, stages ...Stage) (*SimulatedSender, *SimulatedReceiver) {
	ch := make(chan []*qubit.State, bufSize)
	ss := &SimulatedSender{stages: stages, ch: ch}
	sr := &SimulatedReceiver{rng: rng, ch: ch}
	return ss, sr
}

// A SimulatedSender is the sending end of an in-memory quantum link.
type SimulatedSender struct {
	stages []Stage
	ch     chan<- []*qubit.State
}

// A SimulatedReceiver is the receiving end of an in-memory quantum link.
type SimulatedReceiver struct {
	rng *rand.Rand
	ch  <-chan []*qubit.State
}

// Send implements the Sender interface.
func (s *SimulatedSender) Send(states []*qubit.State) error {
	var err error
	n := len(states)
	for _, stage := range s.stages {
		states, err = stage.Relay(states)
		if err != nil {
			return fmt.Errorf("relaying states: %w", err)
		}
		if len(states) != n {
			return fmt.Errorf("channel stage changed batch length: %d != %d", len(states), n)
		}
	}
	s.ch <- states
	return nil
}

// Receive implements the Receiver interface.
func (r *SimulatedReceiver) Receive(bases bitarray.Dense) (bits, detected bitarray.Dense, err error) {
	states := <-r.ch
	if len(states) != bases.Size() {
		return bitarray.Empty(), bitarray.Empty(), fmt.Errorf(
			"batch length must match basis length: %d != %d", len(states), bases.Size())
	}
	for i, st := range states {
		if st == nil {
			bits.AppendBit(false)
			detected.AppendBit(false)
			continue
		}
		bit, err := st.Measure(qubit.Basis(bases.Get(i)), r.rng)
		if err != nil {
			return bitarray.Empty(), bitarray.Empty(), fmt.Errorf("measuring state %d: %w", i, err)
		}
		bits.AppendBit(bit)
		detected.AppendBit(true)
	}
	return bits, detected, nil
}
