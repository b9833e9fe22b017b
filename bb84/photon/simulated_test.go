package photon

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qkdlab/qkdsim/bb84/bitarray"
	"github.com/qkdlab/qkdsim/bb84/qubit"
)

func TestCleanChannelMatchedBases(t *testing.T) {
	r := rand.New(rand.NewSource(21))
	bits := bitarray.Random(r, 512)
	bases := bitarray.Random(r, 512)
	states, err := qubit.EncodeAll(bits, bases)
	require.NoError(t, err)

	sender, receiver := NewSimulated(1, rand.New(rand.NewSource(22)))
	require.NoError(t, sender.Send(states))
	got, detected, err := receiver.Receive(bases)
	require.NoError(t, err)

	assert.True(t, bitarray.Equal(bits, got), "matched-basis measurement must be noiseless")
	assert.Equal(t, 512, detected.CountOnes(), "no pulse is lost on a clean channel")
}

func TestCleanChannelMismatchedBases(t *testing.T) {
	const n = 10000
	r := rand.New(rand.NewSource(31))
	bits := bitarray.Random(r, n)
	bases := bitarray.Random(r, n)
	states, err := qubit.EncodeAll(bits, bases)
	require.NoError(t, err)

	sender, receiver := NewSimulated(1, rand.New(rand.NewSource(32)))
	require.NoError(t, sender.Send(states))
	// Measure everything in the complement of the preparation basis.
	wrong := bases.XNor(bitarray.Empty())
	got, _, err := receiver.Receive(wrong)
	require.NoError(t, err)

	agree := float64(n-bits.XOr(got).CountOnes()) / n
	assert.InDelta(t, 0.5, agree, 0.05, "mismatched-basis outcomes must be uniform")
}

func TestBatchLengthMismatch(t *testing.T) {
	r := rand.New(rand.NewSource(41))
	states, err := qubit.EncodeAll(bitarray.Random(r, 8), bitarray.Random(r, 8))
	require.NoError(t, err)

	sender, receiver := NewSimulated(1, r)
	require.NoError(t, sender.Send(states))
	_, _, err = receiver.Receive(bitarray.Random(r, 9))
	assert.Error(t, err)
}

func TestEavesdropperDisturbance(t *testing.T) {
	const n = 10000
	r := rand.New(rand.NewSource(51))
	bits := bitarray.Random(r, n)
	bases := bitarray.Random(r, n)
	states, err := qubit.EncodeAll(bits, bases)
	require.NoError(t, err)

	eve := &Eavesdropper{Rand: rand.New(rand.NewSource(52))}
	sender, receiver := NewSimulated(1, rand.New(rand.NewSource(53)), eve)
	require.NoError(t, sender.Send(states))
	got, _, err := receiver.Receive(bases)
	require.NoError(t, err)

	assert.Equal(t, n, eve.Intercepted)
	assert.Equal(t, n, eve.Bits.Size())

	// Even though Bob measures in Alice's own bases, the intercept-resend
	// attack disturbs a quarter of the outcomes in expectation.
	qber := float64(bits.XOr(got).CountOnes()) / n
	assert.InDelta(t, 0.25, qber, 0.05)
}

func TestEavesdropperFraction(t *testing.T) {
	const n = 10000
	r := rand.New(rand.NewSource(61))
	states, err := qubit.EncodeAll(bitarray.Random(r, n), bitarray.Random(r, n))
	require.NoError(t, err)

	eve := &Eavesdropper{Rand: rand.New(rand.NewSource(62)), Fraction: 0.3}
	sender, receiver := NewSimulated(1, rand.New(rand.NewSource(63)), eve)
	require.NoError(t, sender.Send(states))
	_, _, err = receiver.Receive(bitarray.Random(r, n))
	require.NoError(t, err)

	assert.InDelta(t, 0.3, float64(eve.Intercepted)/n, 0.05)
}

func TestNoiseFlips(t *testing.T) {
	const n = 10000
	r := rand.New(rand.NewSource(71))
	bits := bitarray.Random(r, n)
	bases := bitarray.Random(r, n)
	states, err := qubit.EncodeAll(bits, bases)
	require.NoError(t, err)

	noise := NewNoise(0.1, 0, 72)
	sender, receiver := NewSimulated(1, rand.New(rand.NewSource(73)), noise)
	require.NoError(t, sender.Send(states))
	got, detected, err := receiver.Receive(bases)
	require.NoError(t, err)

	flipRate := float64(bits.XOr(got).CountOnes()) / n
	assert.InDelta(t, 0.1, flipRate, 0.03)
	assert.Equal(t, n, detected.CountOnes(), "flips must not drop pulses")
	assert.Equal(t, noise.Flipped, bits.XOr(got).CountOnes())
}

func TestNoiseLoss(t *testing.T) {
	const n = 10000
	r := rand.New(rand.NewSource(81))
	bases := bitarray.Random(r, n)
	states, err := qubit.EncodeAll(bitarray.Random(r, n), bases)
	require.NoError(t, err)

	noise := NewNoise(0, 0.2, 82)
	sender, receiver := NewSimulated(1, rand.New(rand.NewSource(83)), noise)
	require.NoError(t, sender.Send(states))
	_, detected, err := receiver.Receive(bases)
	require.NoError(t, err)

	lossRate := 1 - float64(detected.CountOnes())/n
	assert.InDelta(t, 0.2, lossRate, 0.03)
	assert.Equal(t, n-detected.CountOnes(), noise.Lost)
}

func TestEmptyBatch(t *testing.T) {
	sender, receiver := NewSimulated(1, rand.New(rand.NewSource(91)))
	require.NoError(t, sender.Send(nil))
	bits, detected, err := receiver.Receive(bitarray.Empty())
	require.NoError(t, err)
	assert.Zero(t, bits.Size())
	assert.Zero(t, detected.Size())
}
