package scanner

import (
	"testing"

	"github.com/shielded-labs/sapling-go/internal/jubjub"
)

// fakeDecryptor mimics a real note-decryption oracle for tests: a
// ciphertext "belongs" to an ivk if the ciphertext's first 32 bytes
// equal that ivk's encoding, and the recovered value is stored in the
// remaining bytes.
type fakeDecryptor struct{}

func (fakeDecryptor) TrialDecrypt(cmu jubjub.Fr, epk jubjub.Point, ct [52]byte, ivk jubjub.Fs) (uint64, bool) {
	enc := ivk.Bytes()
	if [32]byte(ct[:32]) != enc {
		return 0, false
	}
	var value uint64
	for i := 0; i < 8; i++ {
		value |= uint64(ct[32+i]) << (8 * uint(i))
	}
	return value, true
}

func ciphertextFor(ivk jubjub.Fs, value uint64) [52]byte {
	var ct [52]byte
	enc := ivk.Bytes()
	copy(ct[:32], enc[:])
	for i := 0; i < 8; i++ {
		ct[32+i] = byte(value >> (8 * uint(i)))
	}
	return ct
}

type staticFVK struct{ ivk jubjub.Fs }

func (s staticFVK) IVK() jubjub.Fs { return s.ivk }

func validEpk(params *jubjub.Params) [32]byte {
	return params.Generator(jubjub.ValueCommitmentValue).Encode()
}

func TestScanOutputMatchesOwnIVK(t *testing.T) {
	params := jubjub.NewParams()
	ivk, err := jubjub.RandomFs()
	if err != nil {
		t.Fatalf("RandomFs: %v", err)
	}

	out := CompactOutput{
		Epk:        validEpk(params),
		Ciphertext: ciphertextFor(ivk, 12345),
	}

	s := New(fakeDecryptor{})
	wso, ok := s.ScanOutput(0, out, []AccountIVK{{Account: 0, IVK: ivk}})
	if !ok {
		t.Fatal("expected ScanOutput to match")
	}
	if wso.Value != 12345 {
		t.Fatalf("got value %d, want 12345", wso.Value)
	}
	if wso.Account != 0 {
		t.Fatalf("got account %d, want 0", wso.Account)
	}
}

func TestScanOutputFirstMatchWins(t *testing.T) {
	params := jubjub.NewParams()
	ivkA, _ := jubjub.RandomFs()
	ivkB, _ := jubjub.RandomFs()

	out := CompactOutput{
		Epk:        validEpk(params),
		Ciphertext: ciphertextFor(ivkA, 111),
	}

	s := New(fakeDecryptor{})
	wso, ok := s.ScanOutput(0, out, []AccountIVK{
		{Account: 0, IVK: ivkA},
		{Account: 1, IVK: ivkB},
	})
	if !ok || wso.Account != 0 {
		t.Fatalf("expected first account to match, got ok=%v account=%d", ok, wso.Account)
	}
}

func TestScanOutputRejectsNonPrimeOrderEpk(t *testing.T) {
	ivk, _ := jubjub.RandomFs()
	var badEpk [32]byte // all-zero decodes to a small-order point (y = 0), outside the prime-order subgroup
	out := CompactOutput{
		Epk:        badEpk,
		Ciphertext: ciphertextFor(ivk, 99),
	}

	s := New(fakeDecryptor{})
	_, ok := s.ScanOutput(0, out, []AccountIVK{{Account: 0, IVK: ivk}})
	if ok {
		t.Fatal("expected malformed epk to be silently skipped")
	}
}

func TestScanBlockScenarioS6(t *testing.T) {
	params := jubjub.NewParams()
	ivk, _ := jubjub.RandomFs()
	fvk := staticFVK{ivk: ivk}

	block := CompactBlock{
		Vtx: []CompactTx{
			{
				TxHash: [32]byte{1, 2, 3},
				Outputs: []CompactOutput{
					{Epk: validEpk(params), Ciphertext: ciphertextFor(ivk, 12345)},
				},
			},
		},
	}

	s := New(fakeDecryptor{})
	results := s.ScanBlock(block, []ExtendedFullViewingKey{fvk})
	if len(results) != 1 {
		t.Fatalf("expected 1 WalletTx, got %d", len(results))
	}
	wtx := results[0]
	if len(wtx.ShieldedOutputs) != 1 {
		t.Fatalf("expected 1 shielded output, got %d", len(wtx.ShieldedOutputs))
	}
	if wtx.ShieldedOutputs[0].Account != 0 {
		t.Fatalf("got account %d, want 0", wtx.ShieldedOutputs[0].Account)
	}
	if wtx.ShieldedOutputs[0].Value != 12345 {
		t.Fatalf("got value %d, want 12345", wtx.ShieldedOutputs[0].Value)
	}
}

func TestScanBlockIdempotent(t *testing.T) {
	params := jubjub.NewParams()
	ivk, _ := jubjub.RandomFs()
	fvk := staticFVK{ivk: ivk}

	block := CompactBlock{
		Vtx: []CompactTx{
			{TxHash: [32]byte{9}, Outputs: []CompactOutput{
				{Epk: validEpk(params), Ciphertext: ciphertextFor(ivk, 7)},
			}},
		},
	}

	s := New(fakeDecryptor{})
	first := s.ScanBlock(block, []ExtendedFullViewingKey{fvk})
	second := s.ScanBlock(block, []ExtendedFullViewingKey{fvk})

	if len(first) != len(second) {
		t.Fatalf("scan_block not idempotent: lengths %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].TxID != second[i].TxID {
			t.Fatalf("scan_block not idempotent: txid mismatch at %d", i)
		}
	}
}

func TestScanTxNoMatchReturnsNothing(t *testing.T) {
	params := jubjub.NewParams()
	ivkOwned, _ := jubjub.RandomFs()
	ivkOther, _ := jubjub.RandomFs()
	fvk := staticFVK{ivk: ivkOwned}

	tx := CompactTx{
		TxHash: [32]byte{5},
		Outputs: []CompactOutput{
			{Epk: validEpk(params), Ciphertext: ciphertextFor(ivkOther, 1)},
		},
	}

	s := New(fakeDecryptor{})
	_, ok := s.ScanTx(tx, []ExtendedFullViewingKey{fvk})
	if ok {
		t.Fatal("expected no match when no ivk decrypts any output")
	}
}

func TestScanBlockFromBytesRejectsMalformed(t *testing.T) {
	_, err := ScanBlockFromBytes([]byte{1, 2, 3}, New(fakeDecryptor{}), nil)
	if err != ErrMalformedCompactBlock {
		t.Fatalf("expected ErrMalformedCompactBlock, got %v", err)
	}
}
