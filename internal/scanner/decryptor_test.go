package scanner

import (
	"crypto/rand"
	"testing"

	"github.com/shielded-labs/sapling-go/internal/builder"
	"github.com/shielded-labs/sapling-go/internal/jubjub"
	"github.com/shielded-labs/sapling-go/internal/zip32"
)

// TestSaplingDecryptorRoundTripsRealEncryptor checks SaplingDecryptor
// against internal/builder's actual NoteEncryptor output, not just the
// test fake.
func TestSaplingDecryptorRoundTripsRealEncryptor(t *testing.T) {
	params := jubjub.NewParams()
	master := zip32.Master(nil)
	fvk := zip32.FromExtendedSpendingKey(master, params)
	_, addr, err := fvk.DefaultAddress(params)
	if err != nil {
		t.Fatalf("DefaultAddress: %v", err)
	}

	r, err := jubjub.RandomFs()
	if err != nil {
		t.Fatalf("RandomFs: %v", err)
	}
	note, err := addr.CreateNote(42000, r, params)
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}

	var ovk zip32.OutgoingViewingKey
	enc, err := builder.NewNoteEncryptor(rand.Reader, ovk, note, addr, nil)
	if err != nil {
		t.Fatalf("NewNoteEncryptor: %v", err)
	}
	full := enc.EncryptNotePlaintext()

	var compact [52]byte
	copy(compact[:], full[:52])

	epkEnc := enc.Epk().Encode()
	var cmu [32]byte // unused by SaplingDecryptor, kept as the interface shape
	_ = cmu

	dec := &SaplingDecryptor{Params: params}
	var cmuFr jubjub.Fr
	value, ok := dec.TrialDecrypt(cmuFr, enc.Epk(), compact, fvk.IVK())
	if !ok {
		t.Fatalf("expected successful trial decryption, epk=%x", epkEnc)
	}
	if value != 42000 {
		t.Fatalf("value = %d, want 42000", value)
	}

	wrongIVK, err := jubjub.RandomFs()
	if err != nil {
		t.Fatalf("RandomFs: %v", err)
	}
	if _, ok := dec.TrialDecrypt(cmuFr, enc.Epk(), compact, wrongIVK); ok {
		t.Fatal("expected a mismatched ivk to fail to decrypt")
	}
}
