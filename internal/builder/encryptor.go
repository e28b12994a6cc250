package builder

import (
	"encoding/binary"
	"io"

	"golang.org/x/crypto/blake2b"

	"github.com/shielded-labs/sapling-go/internal/jubjub"
	"github.com/shielded-labs/sapling-go/internal/sapling"
	"github.com/shielded-labs/sapling-go/internal/zip32"
)

// noteEncryptor is the default NoteEncryptor: it derives epk from a
// freshly sampled esk and the note's diversified base point, matching
// the Sapling protocol's shared-secret construction (ivk*epk ==
// esk*pk_d). The ChaChaPoly ciphertext layout itself is out of scope
// (spec.md §1 Non-goals); EncryptNotePlaintext/EncryptOutgoingPlaintext
// here derive a BLAKE2b keystream from the shared secret instead, which
// gives every downstream consumer (sighash, wire assembly) fixed-size,
// deterministic-given-esk ciphertext bytes without committing to the
// real AEAD framing.
type noteEncryptor struct {
	ovk  zip32.OutgoingViewingKey
	note sapling.Note
	to   sapling.PaymentAddress
	memo [512]byte

	esk jubjub.Fs
	epk jubjub.Point
}

// NewNoteEncryptor constructs a NoteEncryptor bound to (ovk, note, to,
// memo), sampling esk from rand (spec.md §4.C step 6: "it internally
// generates esk").
func NewNoteEncryptor(rand io.Reader, ovk zip32.OutgoingViewingKey, note sapling.Note, to sapling.PaymentAddress, memo []byte) (NoteEncryptor, error) {
	esk, err := jubjub.RandomFsFromReader(rand)
	if err != nil {
		return nil, err
	}
	enc := &noteEncryptor{ovk: ovk, note: note, to: to, esk: esk}
	copy(enc.memo[:], memo)
	enc.epk = note.GD.ScalarMul(esk)
	return enc, nil
}

func (e *noteEncryptor) Esk() jubjub.Fs    { return e.esk }
func (e *noteEncryptor) Epk() jubjub.Point { return e.epk }

// sharedSecret computes the Diffie-Hellman shared point esk*pk_d, the
// basis for both the note and outgoing ciphertexts.
func (e *noteEncryptor) sharedSecret() jubjub.Point {
	return e.to.PkD.ScalarMul(e.esk)
}

func (e *noteEncryptor) keystream(label string, length int) []byte {
	secret := e.sharedSecret().Encode()
	h, err := blake2b.New512(nil)
	if err != nil {
		panic("builder: blake2b init: " + err.Error())
	}
	_, _ = h.Write([]byte(label))
	_, _ = h.Write(secret[:])

	out := make([]byte, 0, length)
	counter := uint32(0)
	for len(out) < length {
		var ctr [4]byte
		binary.LittleEndian.PutUint32(ctr[:], counter)
		block, err := blake2b.New512(nil)
		if err != nil {
			panic("builder: blake2b init: " + err.Error())
		}
		_, _ = block.Write([]byte(label))
		_, _ = block.Write(secret[:])
		_, _ = block.Write(ctr[:])
		out = append(out, block.Sum(nil)...)
		counter++
	}
	return out[:length]
}

// EncryptNotePlaintext produces the 580-byte note ciphertext fragment
// (spec.md §6 exact output size).
func (e *noteEncryptor) EncryptNotePlaintext() [580]byte {
	var valueBytes [8]byte
	binary.LittleEndian.PutUint64(valueBytes[:], e.note.Value)

	plaintext := make([]byte, 0, 580)
	plaintext = append(plaintext, 0x02) // note plaintext leading byte, per protocol version tag
	plaintext = append(plaintext, e.to.Diversifier[:]...)
	plaintext = append(plaintext, valueBytes[:]...)
	rBytes := e.note.R.Bytes()
	plaintext = append(plaintext, rBytes[:]...)
	plaintext = append(plaintext, e.memo[:]...)
	for len(plaintext) < 564 {
		plaintext = append(plaintext, 0)
	}

	ks := e.keystream("Zcash_SaplingEncCiphertext", 580)
	var out [580]byte
	for i := range out {
		if i < len(plaintext) {
			out[i] = plaintext[i] ^ ks[i]
		} else {
			out[i] = ks[i]
		}
	}
	return out
}

// EncryptOutgoingPlaintext produces the 80-byte outgoing ciphertext
// fragment, letting the sender later recognize their own output via
// ovk (spec.md §6, GLOSSARY "ovk").
func (e *noteEncryptor) EncryptOutgoingPlaintext(cv jubjub.Point, cmu jubjub.Fr) [80]byte {
	pkdEnc := e.to.PkD.Encode()
	eskEnc := e.esk.Bytes()
	cvEnc := cv.Encode()
	cmuBE := cmu.Bytes()
	var cmuLE [32]byte
	for i, c := range cmuBE {
		cmuLE[31-i] = c
	}

	plaintext := make([]byte, 0, 96)
	plaintext = append(plaintext, pkdEnc[:]...)
	plaintext = append(plaintext, eskEnc[:]...)
	plaintext = append(plaintext, cvEnc[:16]...)
	plaintext = append(plaintext, cmuLE[:16]...)

	mac, err := blake2b.New(32, e.ovk[:])
	if err != nil {
		panic("builder: blake2b keyed init: " + err.Error())
	}
	_, _ = mac.Write(cvEnc[:])
	_, _ = mac.Write(cmuLE[:])
	ovkKs := mac.Sum(nil)

	var out [80]byte
	for i := 0; i < len(plaintext) && i < 80; i++ {
		out[i] = plaintext[i] ^ ovkKs[i%len(ovkKs)]
	}
	return out
}
