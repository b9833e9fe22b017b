// Package photon simulates the quantum link over which BB84 qubit
// states travel. A simulated channel is a FIFO pipe of state batches
// with optional stages (eavesdroppers, noise) applied in order between
// the sender and the receiver.
package photon

import (
	"github.com/qkdlab/qkdsim/bb84/bitarray"
	"github.com/qkdlab/qkdsim/bb84/qubit"
)

// A Sender transmits batches of qubit states to a Receiver. Ownership of
// every state transfers to the channel on Send; the sender must not
// retain references.
type Sender interface {
	// Send transmits states in order. Entries may be nil, representing
	// pulses that were never prepared.
	Send(states []*qubit.State) error
}

// A Receiver accepts batches of qubit states and measures each in the
// corresponding basis from bases.
type Receiver interface {
	// Receive measures the next batch. It returns the measured bits and a
	// detected mask; positions where the mask is unset carry no
	// information (the pulse was lost in transit) and hold a zero bit.
	// The basis array length must match the batch length.
	Receive(bases bitarray.Dense) (bits, detected bitarray.Dense, err error)
}

// A Stage sits on the channel between sender and receiver and transforms
// each batch in flight. Stages must preserve batch length and order;
// a lost state is represented by a nil entry, not a shorter batch.
type Stage interface {
	Relay(states []*qubit.State) ([]*qubit.State, error)
}
