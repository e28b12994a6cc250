package builder

import "fmt"

// Error taxonomy (spec.md §7): each kind is a typed struct carrying
// enough data to diagnose, mirroring the teacher's structured-error
// pattern (e.g. internal/zkp.NullifierInfo-style errors) rather than
// bare sentinel values, because callers here need field access.

// AnchorMismatchError is returned by AddSaplingSpend when a later
// witness's root disagrees with the first spend's anchor.
type AnchorMismatchError struct {
	Expected [32]byte
	Got      [32]byte
}

func (e *AnchorMismatchError) Error() string {
	return fmt.Sprintf("builder: anchor mismatch: expected %x, got %x", e.Expected, e.Got)
}

// InvalidTargetAddressError is returned by AddSaplingOutput when the
// target address's diversifier does not yield a curve point.
type InvalidTargetAddressError struct{}

func (e *InvalidTargetAddressError) Error() string {
	return "builder: invalid target address: g_d does not exist"
}

// WitnessMaterializationError wraps a failure recomputing the anchor
// from a merkletree.Witness.
type WitnessMaterializationError struct {
	Err error
}

func (e *WitnessMaterializationError) Error() string {
	return fmt.Sprintf("builder: witness materialization failed: %v", e.Err)
}

func (e *WitnessMaterializationError) Unwrap() error { return e.Err }

// ChangeNegativeError is returned by Build when value_balance - fee < 0.
type ChangeNegativeError struct {
	Change int64
}

func (e *ChangeNegativeError) Error() string {
	return fmt.Sprintf("Change is negative: %d", e.Change)
}

// NoChangeAddressError is returned by Build when change is positive but
// there is no spend and no explicit change address to source one from.
type NoChangeAddressError struct{}

func (e *NoChangeAddressError) Error() string {
	return "builder: positive change but no source for a change address"
}

// ProverFailureError wraps a spend or output proof generation failure.
type ProverFailureError struct {
	Err error
}

func (e *ProverFailureError) Error() string {
	return fmt.Sprintf("builder: prover failure: %v", e.Err)
}

func (e *ProverFailureError) Unwrap() error { return e.Err }

// BindingSigFailedError is returned by Build when the proving context
// rejects the value-balance attestation.
type BindingSigFailedError struct{}

func (e *BindingSigFailedError) Error() string {
	return "Failed to create bindingSig"
}
