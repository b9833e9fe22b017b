// Package otp applies a one-time-pad XOR cipher over bit arrays,
// typically keyed with the output of a BB84 negotiation. XOR is its own
// inverse, so Decrypt is Encrypt under another name. The usual one-time
// pad caveats apply: the key must be at least message length, secret,
// and never reused.
package otp

import (
	"errors"
	"fmt"

	"github.com/qkdlab/qkdsim/bb84/bitarray"
)

// ErrKeyTooShort indicates a message longer than the keying material.
// No partial ciphertext is ever produced.
var ErrKeyTooShort = errors.New("key shorter than message")

// Encrypt XORs message with the leading bits of key. The unused tail of
// the key remains usable for later messages.
func Encrypt(message, key bitarray.Dense) (bitarray.Dense, error) {
	if message.Size() > key.Size() {
		return bitarray.Empty(), fmt.Errorf(
			"%w: %d-bit message, %d-bit key", ErrKeyTooShort, message.Size(), key.Size())
	}
	pad, err := key.Slice(0, message.Size())
	if err != nil {
		return bitarray.Empty(), err
	}
	return message.XOr(pad), nil
}

// Decrypt recovers a message encrypted with the same key.
func Decrypt(ciphertext, key bitarray.Dense) (bitarray.Dense, error) {
	return Encrypt(ciphertext, key)
}
