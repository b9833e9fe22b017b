package bb84

import (
	"errors"
	"math/rand"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/qkdlab/qkdsim/bb84/bitarray"
	"github.com/qkdlab/qkdsim/bb84/photon"
)

// A Config parameterizes a single orchestrated protocol run.
type Config struct {
	// KeyBits is the raw key length N. Zero selects DefaultKeyBits;
	// negative requests an empty run, as in PeerOpts.
	KeyBits int

	// SampleProportion and QBERThreshold are forwarded to both peers.
	SampleProportion float64
	QBERThreshold    float64

	// Eavesdropper, when non-nil, is installed as a channel stage
	// between the two peers. Its Rand is populated if unset.
	Eavesdropper *photon.Eavesdropper

	// Noise, when non-nil, is installed as a channel stage downstream of
	// any eavesdropper.
	Noise *photon.Noise

	// Rand seeds the per-party and per-channel randomness. Defaults to a
	// time-seeded source.
	Rand *rand.Rand
}

// A Result packages both parties' views of a finished (or aborted) run.
type Result struct {
	AliceKey bitarray.Dense
	BobKey   bitarray.Dense

	AliceStats Stats
	BobStats   Stats

	AliceTrace Trace
	BobTrace   Trace

	// Match reports whether the two final keys are bit-for-bit
	// identical. Under a clean channel it is always true.
	Match bool
}

// Run executes one end-to-end BB84 exchange between two in-process
// peers joined by an in-memory quantum link and classical pipe. On
// ErrKeyCompromised the returned Result still carries stats and traces;
// the keys are empty. Both parties independently observe the identical
// sampled error rate, so they always agree on whether a run aborted.
func Run(cfg Config) (*Result, error) {
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	aliceRand := rand.New(rand.NewSource(rng.Int63()))
	bobRand := rand.New(rand.NewSource(rng.Int63()))
	chanRand := rand.New(rand.NewSource(rng.Int63()))

	var stages []photon.Stage
	if cfg.Eavesdropper != nil {
		if cfg.Eavesdropper.Rand == nil {
			cfg.Eavesdropper.Rand = rand.New(rand.NewSource(rng.Int63()))
		}
		stages = append(stages, cfg.Eavesdropper)
	}
	if cfg.Noise != nil {
		stages = append(stages, cfg.Noise)
	}
	sender, receiver := photon.NewSimulated(1, chanRand, stages...)
	l, r := net.Pipe()
	defer l.Close()
	defer r.Close()

	res := new(Result)
	a, err := NewPeer(PeerOpts{
		Sender:           sender,
		ClassicalChannel: l,
		Rand:             aliceRand,
		KeyBits:          cfg.KeyBits,
		SampleProportion: cfg.SampleProportion,
		QBERThreshold:    cfg.QBERThreshold,
		Trace:            &res.AliceTrace,
	})
	if err != nil {
		return nil, err
	}
	b, err := NewPeer(PeerOpts{
		Receiver:         receiver,
		ClassicalChannel: r,
		Rand:             bobRand,
		KeyBits:          cfg.KeyBits,
		SampleProportion: cfg.SampleProportion,
		QBERThreshold:    cfg.QBERThreshold,
		Trace:            &res.BobTrace,
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"key_bits":     cfg.KeyBits,
		"eavesdropped": cfg.Eavesdropper != nil,
		"noisy":        cfg.Noise != nil,
	}).Debug("starting BB84 run")

	type outcome struct {
		key   bitarray.Dense
		stats Stats
		err   error
	}
	aCh := make(chan outcome, 1)
	bCh := make(chan outcome, 1)
	go func() {
		k, s, err := a.NegotiateKey()
		aCh <- outcome{k, s, err}
	}()
	go func() {
		k, s, err := b.NegotiateKey()
		bCh <- outcome{k, s, err}
	}()

	// If one side fails mid-protocol the other may be blocked on the
	// classical pipe; closing both ends unblocks it.
	var aOut, bOut outcome
	select {
	case aOut = <-aCh:
		if aOut.err != nil {
			l.Close()
			r.Close()
		}
		bOut = <-bCh
	case bOut = <-bCh:
		if bOut.err != nil {
			l.Close()
			r.Close()
		}
		aOut = <-aCh
	}

	res.AliceKey, res.AliceStats = aOut.key, aOut.stats
	res.BobKey, res.BobStats = bOut.key, bOut.stats
	err = runError(aOut.err, bOut.err)
	res.Match = err == nil && bitarray.Equal(res.AliceKey, res.BobKey)
	return res, err
}

// runError selects the most informative of the two peers' errors. A
// threshold abort is a designed outcome and takes precedence over any
// secondary transport error the closing of the pipes may have caused.
func runError(aErr, bErr error) error {
	if errors.Is(aErr, ErrKeyCompromised) {
		return aErr
	}
	if errors.Is(bErr, ErrKeyCompromised) {
		return bErr
	}
	if aErr != nil {
		return aErr
	}
	return bErr
}
