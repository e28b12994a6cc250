package jubjub

import (
	"crypto/rand"
	"io"
)

// RandomFs draws a uniformly random Jubjub scalar from a
// cryptographically secure source. This is the one piece of impurity
// threaded through the builder (spec.md §5): per-output rcm and
// per-encryptor esk both come from here.
func RandomFs() (Fs, error) {
	return RandomFsFromReader(rand.Reader)
}

// RandomFsFromReader is RandomFs against an injected reader, so
// callers (and tests) can supply a seeded RNG instead of the process
// CSPRNG (spec.md §5: "Callers supply or the builder constructs one").
func RandomFsFromReader(r io.Reader) (Fs, error) {
	n, err := rand.Int(r, fsModulus)
	if err != nil {
		return Fs{}, err
	}
	return NewFsFromBigInt(n), nil
}
