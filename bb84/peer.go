package bb84

import (
	"fmt"
	"math/rand"

	"github.com/qkdlab/qkdsim/bb84/bitarray"
	"github.com/qkdlab/qkdsim/bb84/photon"
	"github.com/qkdlab/qkdsim/bb84/qubit"
	"github.com/qkdlab/qkdsim/bb84/wire"
)

// An alice represents the first BB84 participant: she chooses bits and
// bases, encodes, and sends.
type alice struct {
	sender      photon.Sender
	sideChannel *framer
	rand        *rand.Rand
	keyBits     int
	sampleProp  float64
	threshold   float64
	trace       *Trace
}

// A bob represents the second BB84 participant: he chooses measurement
// bases and measures what arrives.
type bob struct {
	receiver    photon.Receiver
	sideChannel *framer
	rand        *rand.Rand
	keyBits     int
	sampleProp  float64
	threshold   float64
	trace       *Trace
}

// NegotiateKey implements the Peer interface.
func (a *alice) NegotiateKey() (key bitarray.Dense, stats Stats, err error) {
	bits, bases, err := a.sendQBits()
	if err != nil {
		return
	}
	sifted, err := a.sift(bits, bases, &stats)
	if err != nil {
		return
	}
	key, err = a.estimateQBER(sifted, &stats)
	if err != nil {
		return
	}
	stats.KeyBits = key.Size()
	logStep("alice", StepKeysReady, a.trace)
	return
}

// NegotiateKey implements the Peer interface.
func (b *bob) NegotiateKey() (key bitarray.Dense, stats Stats, err error) {
	bits, bases, detected, err := b.receiveQBits()
	if err != nil {
		return
	}
	sifted, err := b.sift(bits, bases, detected, &stats)
	if err != nil {
		return
	}
	key, err = b.estimateQBER(sifted, &stats)
	if err != nil {
		return
	}
	stats.KeyBits = key.Size()
	logStep("bob", StepKeysReady, b.trace)
	return
}

func (a *alice) sendQBits() (bits, bases bitarray.Dense, err error) {
	logStep("alice", StepSelectEncoding, a.trace)
	bits = bitarray.Random(a.rand, a.keyBits)
	bases = bitarray.Random(a.rand, a.keyBits)
	if a.trace != nil {
		a.trace.Bits = bits
		a.trace.Bases = bases
	}
	logStep("alice", StepEncode, a.trace)
	states, err := qubit.EncodeAll(bits, bases)
	if err != nil {
		return bitarray.Empty(), bitarray.Empty(), fmt.Errorf("%w: encoding qubits: %v", ErrLengthMismatch, err)
	}
	logStep("alice", StepSend, a.trace)
	if err := a.sender.Send(states); err != nil {
		return bitarray.Empty(), bitarray.Empty(), fmt.Errorf("sending qubits: %w", err)
	}
	return bits, bases, nil
}

func (b *bob) receiveQBits() (bits, bases, detected bitarray.Dense, err error) {
	logStep("bob", StepSelectMeasurement, b.trace)
	bases = bitarray.Random(b.rand, b.keyBits)
	logStep("bob", StepMeasure, b.trace)
	bits, detected, err = b.receiver.Receive(bases)
	if err != nil {
		return bitarray.Empty(), bitarray.Empty(), bitarray.Empty(), fmt.Errorf("receiving qubits: %w", err)
	}
	if b.trace != nil {
		b.trace.Bits = bits
		b.trace.Bases = bases
		b.trace.Detected = detected
	}
	return bits, bases, detected, nil
}

func (a *alice) sift(bits, bases bitarray.Dense, s *Stats) (sifted bitarray.Dense, err error) {
	logStep("alice", StepSendBases, a.trace)
	bba := new(wire.BasisAnnouncement)
	if err := a.sideChannel.Read(bba, s); err != nil {
		return bitarray.Empty(), fmt.Errorf("receiving basis announcement: %w", err)
	}
	aba := &wire.BasisAnnouncement{Bases: bases.ToWire()}
	if err := a.sideChannel.Write(aba, s); err != nil {
		return bitarray.Empty(), fmt.Errorf("announcing bases: %w", err)
	}
	bBases := bitarray.FromWire(bba.Bases)
	bDetected := bitarray.FromWire(bba.Detected)
	if bBases.Size() != bases.Size() {
		return bitarray.Empty(), fmt.Errorf(
			"%w: peer announced %d bases, expected %d", ErrLengthMismatch, bBases.Size(), bases.Size())
	}
	logStep("alice", StepSift, a.trace)
	sifted = sift(bits, bases, bBases, bDetected)
	if a.trace != nil {
		a.trace.Detected = bDetected
		a.trace.Sifted = sifted
	}
	s.SiftedBits = sifted.Size()
	return sifted, nil
}

func (b *bob) sift(bits, bases, detected bitarray.Dense, s *Stats) (sifted bitarray.Dense, err error) {
	logStep("bob", StepSendBases, b.trace)
	bba := &wire.BasisAnnouncement{
		Bases:    bases.ToWire(),
		Detected: detected.ToWire(),
	}
	if err := b.sideChannel.Write(bba, s); err != nil {
		return bitarray.Empty(), fmt.Errorf("sending basis announcement: %w", err)
	}
	aba := new(wire.BasisAnnouncement)
	if err := b.sideChannel.Read(aba, s); err != nil {
		return bitarray.Empty(), fmt.Errorf("receiving bases: %w", err)
	}
	aBases := bitarray.FromWire(aba.Bases)
	if aBases.Size() != bases.Size() {
		return bitarray.Empty(), fmt.Errorf(
			"%w: peer announced %d bases, expected %d", ErrLengthMismatch, aBases.Size(), bases.Size())
	}
	logStep("bob", StepSift, b.trace)
	sifted = sift(bits, bases, aBases, detected)
	if b.trace != nil {
		b.trace.Sifted = sifted
	}
	s.SiftedBits = sifted.Size()
	return sifted, nil
}

func (a *alice) estimateQBER(sifted bitarray.Dense, s *Stats) (key bitarray.Dense, err error) {
	seed := a.rand.Int63()
	kept, sampled, err := sample(sifted, a.sampleProp, seed)
	if err != nil {
		return bitarray.Empty(), err
	}
	s.SampledBits = sampled.Size()
	announce := &wire.SampleAnnouncement{
		Bits: sampled.ToWire(),
		Seed: seed,
	}
	if err := a.sideChannel.Write(announce, s); err != nil {
		return bitarray.Empty(), fmt.Errorf("announcing sampled bits: %w", err)
	}
	qa := new(wire.QberAnnouncement)
	if err := a.sideChannel.Read(qa, s); err != nil {
		return bitarray.Empty(), fmt.Errorf("receiving QBER announcement: %w", err)
	}
	s.QBER = qa.Qber
	if s.QBER > a.threshold {
		return bitarray.Empty(), fmt.Errorf("%w: QBER %.4f > %.4f", ErrKeyCompromised, s.QBER, a.threshold)
	}
	return kept, nil
}

func (b *bob) estimateQBER(sifted bitarray.Dense, s *Stats) (key bitarray.Dense, err error) {
	announce := new(wire.SampleAnnouncement)
	if err := b.sideChannel.Read(announce, s); err != nil {
		return bitarray.Empty(), fmt.Errorf("receiving sampled bits: %w", err)
	}
	aSampled := bitarray.FromWire(announce.Bits)
	kept, bSampled, err := sample(sifted, b.sampleProp, announce.Seed)
	if err != nil {
		return bitarray.Empty(), fmt.Errorf("sampling bits: %w", err)
	}
	if aSampled.Size() != bSampled.Size() {
		return bitarray.Empty(), fmt.Errorf(
			"%w: peer sampled %d bits, we sampled %d", ErrLengthMismatch, aSampled.Size(), bSampled.Size())
	}
	s.SampledBits = bSampled.Size()
	s.QBER = qber(aSampled, bSampled)
	qa := &wire.QberAnnouncement{Qber: s.QBER}
	if err := b.sideChannel.Write(qa, s); err != nil {
		return bitarray.Empty(), fmt.Errorf("sending QBER announcement: %w", err)
	}
	if s.QBER > b.threshold {
		return bitarray.Empty(), fmt.Errorf("%w: QBER %.4f > %.4f", ErrKeyCompromised, s.QBER, b.threshold)
	}
	return kept, nil
}
