package bb84

import (
	"math/rand"

	"github.com/qkdlab/qkdsim/bb84/bitarray"
)

// sift extracts the positions of bits where both parties used the same
// basis and, when a detection mask is present, the pulse was actually
// detected. Both parties compute the same mask from the public basis
// announcements, so the extraction order is identical on both sides.
func sift(bits, sendBases, receiveBases, detected bitarray.Dense) bitarray.Dense {
	siftMask := sendBases.XNor(receiveBases)
	if detected.Size() > 0 {
		siftMask = siftMask.And(detected)
	}
	return bits.Select(siftMask)
}

// sample splits bits into an unsampled remainder and a publicly
// comparable sample of proportion*len(bits) bits, chosen by shuffling
// with the given shared seed. Both parties call this with the same seed
// and therefore agree on which positions were sacrificed.
func sample(bits bitarray.Dense, proportion float64, seed int64) (kept, sampled bitarray.Dense, err error) {
	shuffled := bitarray.NewDense(bits.Data(), bits.Size())
	shuffled.Shuffle(rand.New(rand.NewSource(seed)))
	n := shuffled.Size()
	k := int(proportion * float64(n))
	kept, err = shuffled.Slice(0, n-k)
	if err != nil {
		return bitarray.Empty(), bitarray.Empty(), err
	}
	sampled, err = shuffled.Slice(n-k, n)
	if err != nil {
		return bitarray.Empty(), bitarray.Empty(), err
	}
	return kept, sampled, nil
}

// qber computes the quantum bit error rate between two equal-length
// samples. An empty sample reports a zero error rate.
func qber(a, b bitarray.Dense) float64 {
	if a.Size() == 0 {
		return 0
	}
	return float64(a.XOr(b).CountOnes()) / float64(a.Size())
}
