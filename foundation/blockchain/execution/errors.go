// Package execution implements the transaction and block processor
// (component I): intrinsic gas and balance/nonce validation, transaction
// application over the virtual machine (H) and state manager (D), base
// fee update, and whole-block processing.
package execution

// ValidationKind is the closed set of reasons a transaction or block can
// fail validation (§7) — a sum type, not a magic sentinel.
type ValidationKind int

const (
	// ValidationNone means validation passed.
	ValidationNone ValidationKind = iota
	// ValidationBadNonce means tx.Nonce does not equal the sender's current nonce.
	ValidationBadNonce
	// ValidationInsufficientBalance means the sender cannot cover value + gas_limit*max_fee.
	ValidationInsufficientBalance
	// ValidationGasBelowIntrinsic means gas_limit is below the fixed intrinsic cost.
	ValidationGasBelowIntrinsic
	// ValidationFeeBelowBase means max_fee_per_gas is below the block's base fee.
	ValidationFeeBelowBase
	// ValidationBadParent means a block's parent_hash does not match the head.
	ValidationBadParent
	// ValidationBadRoot means the post-execution state root does not match the header.
	ValidationBadRoot
	// ValidationBadSequencer means the block's sequencer is not the slot's leader.
	ValidationBadSequencer
	// ValidationGasOverLimit means cumulative gas used exceeds the block's gas limit.
	ValidationGasOverLimit
)

// String renders the validation kind for logs and error messages.
func (k ValidationKind) String() string {
	switch k {
	case ValidationNone:
		return "none"
	case ValidationBadNonce:
		return "bad nonce"
	case ValidationInsufficientBalance:
		return "insufficient balance"
	case ValidationGasBelowIntrinsic:
		return "gas below intrinsic"
	case ValidationFeeBelowBase:
		return "fee below base"
	case ValidationBadParent:
		return "bad parent"
	case ValidationBadRoot:
		return "bad root"
	case ValidationBadSequencer:
		return "bad sequencer"
	case ValidationGasOverLimit:
		return "gas over limit"
	default:
		return "unknown"
	}
}

// ValidationError pairs a ValidationKind with the context that triggered
// it. Transactions failing validation are skipped (the block stays
// valid); blocks failing validation are rejected outright (§7).
type ValidationError struct {
	Kind ValidationKind
	Msg  string
}

func (e *ValidationError) Error() string {
	return "execution: " + e.Kind.String() + ": " + e.Msg
}

func validationErr(kind ValidationKind, msg string) error {
	return &ValidationError{Kind: kind, Msg: msg}
}

// AsValidationKind unwraps err into its ValidationKind, or ValidationNone
// if err is not a *ValidationError.
func AsValidationKind(err error) ValidationKind {
	ve, ok := err.(*ValidationError)
	if !ok {
		return ValidationNone
	}
	return ve.Kind
}
