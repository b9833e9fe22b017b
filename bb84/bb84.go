// Package bb84 negotiates a shared secret bitstring between two
// simulated parties using the BB84 protocol: random bit and basis
// selection, qubit encoding, transmission over a (possibly tapped)
// quantum channel, basis-matched measurement, sifting, and error-rate
// estimation for eavesdropper detection.
package bb84

import (
	"errors"
	"fmt"
	"io"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/qkdlab/qkdsim/bb84/bitarray"
	"github.com/qkdlab/qkdsim/bb84/photon"
)

var (
	DefaultKeyBits          = 1 << 10
	DefaultSampleProportion = 0.5

	// DefaultQBERThreshold is the error rate above which a run is treated
	// as compromised. 11% is the usual BB84 security bound; a clean
	// simulated channel sits at 0 and a fully intercepted one near 25%.
	DefaultQBERThreshold = 0.11
)

var (
	// ErrLengthMismatch indicates that sequences which the protocol
	// requires to be of equal length disagreed. This is a configuration
	// or caller bug, not a runtime condition to retry.
	ErrLengthMismatch = errors.New("sequence lengths disagree")

	// ErrKeyCompromised indicates that the observed QBER exceeded the
	// configured threshold. The run produced no usable key; the caller
	// may restart negotiation from scratch.
	ErrKeyCompromised = errors.New("QBER above threshold, discarding key")
)

// Stats packages together a collection of potentially interesting
// metrics pertaining to a BB84 key negotiation.
type Stats struct {
	QBER             float64
	SiftedBits       int
	SampledBits      int
	KeyBits          int
	MessagesSent     int
	MessagesReceived int
	BytesRead        int
	BytesSent        int
}

// A Step names one stage of the linear protocol state machine. Steps
// are reported through traces and debug logs only; the machine itself
// never branches or backtracks.
type Step int

const (
	StepSelectEncoding Step = iota
	StepSelectMeasurement
	StepEncode
	StepSend
	StepMeasure
	StepSendBases
	StepSift
	StepKeysReady
)

var stepNames = map[Step]string{
	StepSelectEncoding:    "select_encoding",
	StepSelectMeasurement: "select_measurement",
	StepEncode:            "encode",
	StepSend:              "send",
	StepMeasure:           "measure",
	StepSendBases:         "send_bases",
	StepSift:              "sift",
	StepKeysReady:         "keys_ready",
}

// String implements fmt.Stringer.
func (s Step) String() string {
	if n, ok := stepNames[s]; ok {
		return n
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// A Trace records a participant's view of a run for external display.
// Its fields are read-only observations and play no part in the
// protocol itself.
type Trace struct {
	// Bits and Bases are the participant's raw bitstring and basis
	// string: chosen at encode time for Alice, measured for Bob.
	Bits  bitarray.Dense
	Bases bitarray.Dense

	// Detected masks the positions that survived transmission.
	Detected bitarray.Dense

	// Sifted is the key after basis matching, before sampling.
	Sifted bitarray.Dense

	// Steps lists the state-machine transitions in execution order.
	Steps []Step
}

// A Peer represents one of the two legitimate participants in a BB84
// key exchange.
type Peer interface {
	// NegotiateKey performs one full protocol run and returns the final
	// key. A run whose estimated error rate crosses the configured
	// threshold fails with ErrKeyCompromised.
	NegotiateKey() (bitarray.Dense, Stats, error)
}

// A PeerOpts packages together the arguments necessary to construct a
// new Peer. Fields without documented defaults must be populated.
type PeerOpts struct {
	// Sender/Receiver attaches the peer to the quantum link. Exactly one
	// must be non-nil; it determines whether the peer plays Alice or Bob.
	Sender   photon.Sender
	Receiver photon.Receiver

	// ClassicalChannel carries basis and sample announcements. Must be
	// non-nil. The channel is assumed reliable and ordered; transport
	// authentication is out of scope.
	ClassicalChannel io.ReadWriter

	// Rand provides this peer's private randomness. Must be non-nil.
	Rand *rand.Rand

	// KeyBits is the number of qubits exchanged per negotiation, i.e.
	// the raw key length N. Defaults to DefaultKeyBits. Zero-length runs
	// are legal and produce empty keys; request one by setting KeyBits
	// negative.
	KeyBits int

	// SampleProportion is the fraction of sifted bits publicly compared
	// during error estimation. Defaults to DefaultSampleProportion.
	SampleProportion float64

	// QBERThreshold is the error rate above which the negotiated key is
	// discarded. Defaults to DefaultQBERThreshold.
	QBERThreshold float64

	// Trace, when non-nil, is filled with the peer's observations as the
	// run progresses.
	Trace *Trace
}

// NewPeer returns a new Peer, configured in accordance with opts, or an
// error if the options are nonsensical.
func NewPeer(opts PeerOpts) (Peer, error) {
	if (opts.Sender == nil) == (opts.Receiver == nil) {
		return nil, errors.New("exactly one of {Sender, Receiver} must be specified")
	}
	if opts.ClassicalChannel == nil {
		return nil, errors.New("must provide ClassicalChannel")
	}
	if opts.Rand == nil {
		return nil, errors.New("must provide Rand")
	}
	keyBits := opts.KeyBits
	if keyBits == 0 {
		keyBits = DefaultKeyBits
	} else if keyBits < 0 {
		keyBits = 0
	}
	sampleProp := opts.SampleProportion
	if sampleProp == 0 {
		sampleProp = DefaultSampleProportion
	}
	if sampleProp < 0 || sampleProp >= 1 {
		return nil, fmt.Errorf("SampleProportion must lie in [0, 1): %v", sampleProp)
	}
	threshold := opts.QBERThreshold
	if threshold == 0 {
		threshold = DefaultQBERThreshold
	}
	pf := &framer{rw: opts.ClassicalChannel}
	if opts.Sender != nil {
		return &alice{
			sender:      opts.Sender,
			sideChannel: pf,
			rand:        opts.Rand,
			keyBits:     keyBits,
			sampleProp:  sampleProp,
			threshold:   threshold,
			trace:       opts.Trace,
		}, nil
	}
	return &bob{
		receiver:    opts.Receiver,
		sideChannel: pf,
		rand:        opts.Rand,
		keyBits:     keyBits,
		sampleProp:  sampleProp,
		threshold:   threshold,
		trace:       opts.Trace,
	}, nil
}

func logStep(role string, st Step, trace *Trace) {
	if trace != nil {
		trace.Steps = append(trace.Steps, st)
	}
	logrus.WithFields(logrus.Fields{
		"role": role,
		"step": st,
	}).Debug("protocol step")
}
