package sapling

import (
	"math/big"

	"golang.org/x/crypto/blake2s"
)

func uint64ToBigInt(v uint64) *big.Int {
	return new(big.Int).SetUint64(v)
}

// blake2sIVK computes BLAKE2s-256 with personalization "Zcashivk" and
// an empty key (spec.md §4.A ViewingKey.ivk).
func blake2sIVK(preimage []byte) [32]byte {
	h, err := blake2s.New256WithPersonalization([]byte("Zcashivk"))
	if err != nil {
		panic("sapling: blake2s ivk init: " + err.Error())
	}
	_, _ = h.Write(preimage)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// blake2sNF computes BLAKE2s-256 with personalization "Zcash_nf" and an
// empty key (spec.md §3 Nullifier).
func blake2sNF(preimage []byte) [32]byte {
	h, err := blake2s.New256WithPersonalization([]byte("Zcash_nf"))
	if err != nil {
		panic("sapling: blake2s nf init: " + err.Error())
	}
	_, _ = h.Write(preimage)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
