// Package scanner implements the welding rig: trial-decryption of
// compact outputs against a set of incoming viewing keys (spec.md
// §4.B). Every operation here is pure over its inputs and holds no
// shared mutable state, matching §5's "each scan_block call is pure";
// malformed input is tolerated by skipping, not propagating.
package scanner

import (
	"encoding/binary"

	"github.com/shielded-labs/sapling-go/internal/jubjub"
)

// Decryptor is the injected compact-note decryption oracle (spec.md
// §6, §4.B: "invokes the external compact-note decryption oracle").
// A real implementation attempts ChaChaPoly decryption of enc_ct under
// a key derived from ivk and epk; that construction is out of scope
// here (spec.md §1 Non-goals: "Note-encryption ciphertext packing").
type Decryptor interface {
	TrialDecrypt(cmu jubjub.Fr, epk jubjub.Point, encCiphertext [52]byte, ivk jubjub.Fs) (value uint64, ok bool)
}

// CompactOutput is the wire shape of one shielded output inside a
// compact transaction (spec.md §6: "CompactOutput { cmu: [u8;32] LE,
// epk: [u8;32], ciphertext: [u8;52] }").
type CompactOutput struct {
	Cmu        [32]byte
	Epk        [32]byte
	Ciphertext [52]byte
}

// CompactTx is one transaction's worth of compact outputs (spends are
// opaque to scanning and omitted per spec.md §1 Non-goals on
// transparent flows / consensus validation).
type CompactTx struct {
	TxHash  [32]byte
	Outputs []CompactOutput
}

// CompactBlock is a sequence of compact transactions in block order.
type CompactBlock struct {
	Vtx []CompactTx
}

// AccountIVK pairs an account identifier with its incoming viewing
// key, in caller-supplied priority order (spec.md §4.B: "the caller's
// ordering of viewing keys defines tie-breaks").
type AccountIVK struct {
	Account uint32
	IVK     jubjub.Fs
}

// WalletShieldedOutput is a compact output matched to one of the
// caller's viewing keys.
type WalletShieldedOutput struct {
	Index      int
	Account    uint32
	Value      uint64
	Ciphertext [52]byte
}

// WalletTx is the per-transaction result of scanning: zero or more
// matched outputs, plus counts for the caller's bookkeeping.
type WalletTx struct {
	TxID            [32]byte
	NumSpends       int
	NumOutputs      int
	ShieldedOutputs []WalletShieldedOutput
}

// Scanner holds the single injected dependency scanning needs: the
// note-decryption oracle. It carries no other state (spec.md §5).
type Scanner struct {
	decryptor Decryptor
}

// New constructs a Scanner bound to a decryption oracle.
func New(decryptor Decryptor) *Scanner {
	return &Scanner{decryptor: decryptor}
}

// TrialDecrypt attempts to recover a note's value by trial-decrypting
// enc_ct under ivk. Any decryption failure is reported as !ok, never
// as an error (spec.md §4.B).
func (s *Scanner) TrialDecrypt(cmu jubjub.Fr, epk jubjub.Point, encCiphertext [52]byte, ivk jubjub.Fs) (uint64, bool) {
	return s.decryptor.TrialDecrypt(cmu, epk, encCiphertext, ivk)
}

// parseCmu decodes a little-endian 32-byte cmu into Fr. Unlike point
// decoding this cannot fail on malformed input (any 32 LE bytes are a
// valid Fr representative modulo the field order), so this always
// succeeds; kept as a named step to mirror the spec's operation list.
func parseCmu(enc [32]byte) jubjub.Fr {
	var le [32]byte
	for i, c := range enc {
		le[31-i] = c
	}
	var f jubjub.Fr
	f.SetBytes(le[:])
	return f
}

// ScanOutput implements spec.md §4.B scan_output: parse cmu and epk,
// reject an epk outside the prime-order subgroup, then try each
// account's ivk in order until one decrypts. Returns (result, true) on
// a match, (zero, false) on any parse failure or if no ivk decrypts
// it — both cases are silently skipped by the caller, never an error
// (spec.md §7: MalformedCompactOutput is "silently skipped, not
// propagated").
func (s *Scanner) ScanOutput(index int, output CompactOutput, ivks []AccountIVK) (WalletShieldedOutput, bool) {
	cmu := parseCmu(output.Cmu)

	epk, err := jubjub.DecodePrimeOrder(output.Epk)
	if err != nil {
		return WalletShieldedOutput{}, false
	}

	for _, acct := range ivks {
		value, ok := s.TrialDecrypt(cmu, epk, output.Ciphertext, acct.IVK)
		if ok {
			return WalletShieldedOutput{
				Index:      index,
				Account:    acct.Account,
				Value:      value,
				Ciphertext: output.Ciphertext,
			}, true
		}
	}
	return WalletShieldedOutput{}, false
}

// ExtendedFullViewingKey is the minimal surface scan_tx/scan_block
// need from internal/zip32.ExtendedFullViewingKey, kept narrow so this
// package does not import the builder's key-derivation dependency
// directly. A viewing key's account is its position in the caller's
// slice (spec.md §8 S6: "account == 0" for the sole extfvk supplied).
type ExtendedFullViewingKey interface {
	IVK() jubjub.Fs
}

// ScanTx implements spec.md §4.B scan_tx: precompute ivk per viewing
// key, filter-map outputs through ScanOutput, and return nothing if no
// output matched.
func (s *Scanner) ScanTx(tx CompactTx, extfvks []ExtendedFullViewingKey) (*WalletTx, bool) {
	ivks := make([]AccountIVK, len(extfvks))
	for i, fvk := range extfvks {
		ivks[i] = AccountIVK{Account: uint32(i), IVK: fvk.IVK()}
	}

	var matched []WalletShieldedOutput
	for i, out := range tx.Outputs {
		if wso, ok := s.ScanOutput(i, out, ivks); ok {
			matched = append(matched, wso)
		}
	}
	if len(matched) == 0 {
		return nil, false
	}
	return &WalletTx{
		TxID:            tx.TxHash,
		NumSpends:       0,
		NumOutputs:      len(tx.Outputs),
		ShieldedOutputs: matched,
	}, true
}

// ScanBlock implements spec.md §4.B scan_block: apply ScanTx to every
// transaction in block order.
func (s *Scanner) ScanBlock(block CompactBlock, extfvks []ExtendedFullViewingKey) []WalletTx {
	var results []WalletTx
	for _, tx := range block.Vtx {
		if wtx, ok := s.ScanTx(tx, extfvks); ok {
			results = append(results, *wtx)
		}
	}
	return results
}

// ErrMalformedCompactBlock is returned by ScanBlockFromBytes when the
// input cannot be parsed as a compact block at all (spec.md §6:
// "scan_block_from_bytes treats parse failure as fatal").
var ErrMalformedCompactBlock = malformedBlockError{}

type malformedBlockError struct{}

func (malformedBlockError) Error() string { return "scanner: malformed compact block bytes" }

// ScanBlockFromBytes parses a compact block from its protobuf-style
// wire encoding and scans it. Protobuf framing itself is out of scope
// (spec.md §1 Non-goals); this decodes the minimal fixed-size layout
// CompactBlock/CompactTx/CompactOutput already describe, enough to
// exercise the fatal-on-malformed-input contract.
func ScanBlockFromBytes(data []byte, s *Scanner, extfvks []ExtendedFullViewingKey) ([]WalletTx, error) {
	block, err := decodeCompactBlock(data)
	if err != nil {
		return nil, ErrMalformedCompactBlock
	}
	return s.ScanBlock(block, extfvks), nil
}

// decodeCompactBlock parses the fixed layout:
// uint32 LE tx count, then per tx: 32-byte hash, uint32 LE output
// count, then per output: 32-byte cmu, 32-byte epk, 52-byte ciphertext.
func decodeCompactBlock(data []byte) (CompactBlock, error) {
	const outputSize = 32 + 32 + 52

	if len(data) < 4 {
		return CompactBlock{}, ErrMalformedCompactBlock
	}
	txCount := binary.LittleEndian.Uint32(data[0:4])
	offset := 4

	block := CompactBlock{Vtx: make([]CompactTx, 0, txCount)}
	for i := uint32(0); i < txCount; i++ {
		if len(data) < offset+32+4 {
			return CompactBlock{}, ErrMalformedCompactBlock
		}
		var tx CompactTx
		copy(tx.TxHash[:], data[offset:offset+32])
		offset += 32

		outCount := binary.LittleEndian.Uint32(data[offset : offset+4])
		offset += 4

		tx.Outputs = make([]CompactOutput, 0, outCount)
		for j := uint32(0); j < outCount; j++ {
			if len(data) < offset+outputSize {
				return CompactBlock{}, ErrMalformedCompactBlock
			}
			var out CompactOutput
			copy(out.Cmu[:], data[offset:offset+32])
			copy(out.Epk[:], data[offset+32:offset+64])
			copy(out.Ciphertext[:], data[offset+64:offset+64+52])
			offset += outputSize
			tx.Outputs = append(tx.Outputs, out)
		}
		block.Vtx = append(block.Vtx, tx)
	}
	return block, nil
}
