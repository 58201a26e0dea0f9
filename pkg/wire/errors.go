package wire

import "errors"

// Sentinel error kinds per spec §4.1 and §7. Wrapped with fmt.Errorf("%w: ...")
// so callers can both log a precise message and classify with errors.Is.
var (
	ErrTruncatedFrame      = errors.New("truncated frame")
	ErrTrailingGarbage     = errors.New("trailing garbage after end-of-message")
	ErrBadLength           = errors.New("tlv length does not match type rules")
	ErrUnknownMandatory    = errors.New("unknown mandatory field")
	ErrReservedValueUsed   = errors.New("reserved value used")
	ErrNotA1905Frame       = errors.New("ethernet frame is not a 1905 cmdu frame")
	ErrNoEndOfMessage      = errors.New("cmdu missing end-of-message tlv")
	ErrFragmentOutOfRange  = errors.New("fragment id out of range")
	ErrTooManyFragments    = errors.New("cmdu requires more than the maximum fragment count")
)

// BadLengthError reports the type, expected and actual length for a
// malformed TLV, matching spec.md's BadLength(tlv_type, expected, got).
type BadLengthError struct {
	Type     TLVType
	Expected int
	Got      int
}

func (e *BadLengthError) Error() string {
	return "tlv " + e.Type.String() + ": bad length"
}

func (e *BadLengthError) Unwrap() error { return ErrBadLength }
