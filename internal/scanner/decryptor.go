package scanner

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"

	"github.com/shielded-labs/sapling-go/internal/jubjub"
)

// SaplingDecryptor is the non-mock Decryptor: it recomputes the shared
// secret pk_d^esk == epk^ivk and derives the same BLAKE2b keystream
// internal/builder's noteEncryptor uses, recovering the leading
// version/diversifier/value fields of the note plaintext from the
// compact ciphertext's first 52 bytes. The full ChaChaPoly AEAD framing
// is out of scope (spec.md §1 Non-goals), so this only recovers what a
// compact output carries.
type SaplingDecryptor struct {
	Params *jubjub.Params
}

// TrialDecrypt implements Decryptor.
func (d *SaplingDecryptor) TrialDecrypt(cmu jubjub.Fr, epk jubjub.Point, encCiphertext [52]byte, ivk jubjub.Fs) (uint64, bool) {
	if !epk.IsPrimeOrder() {
		return 0, false
	}
	shared := epk.ScalarMul(ivk)
	ks := keystream(shared, "Zcash_SaplingEncCiphertext", 52)

	var plaintext [52]byte
	for i := range plaintext {
		plaintext[i] = encCiphertext[i] ^ ks[i]
	}

	if plaintext[0] != 0x02 {
		return 0, false
	}
	value := binary.LittleEndian.Uint64(plaintext[12:20])
	return value, true
}

// keystream mirrors internal/builder's noteEncryptor.keystream
// construction: a counter-mode BLAKE2b-512 expansion of (label, shared
// secret).
func keystream(shared jubjub.Point, label string, length int) []byte {
	secret := shared.Encode()
	out := make([]byte, 0, length)
	counter := uint32(0)
	for len(out) < length {
		var ctr [4]byte
		binary.LittleEndian.PutUint32(ctr[:], counter)
		block, err := blake2b.New512(nil)
		if err != nil {
			panic("scanner: blake2b init: " + err.Error())
		}
		_, _ = block.Write([]byte(label))
		_, _ = block.Write(secret[:])
		_, _ = block.Write(ctr[:])
		out = append(out, block.Sum(nil)...)
		counter++
	}
	return out[:length]
}

var _ Decryptor = (*SaplingDecryptor)(nil)
