package value

import "errors"

// Type represents the variant of a heap value.
type Type byte

// This block defines all known value variants.
const (
	ScalarT   Type = 0x10
	SequenceT Type = 0x20
	MappingT  Type = 0x28
	CallableT Type = 0x40
	StreamT   Type = 0x60
	InvalidT  Type = 0xFF
)

// String implements fmt.Stringer interface.
func (t Type) String() string {
	switch t {
	case ScalarT:
		return "Scalar"
	case SequenceT:
		return "Sequence"
	case MappingT:
		return "Mapping"
	case CallableT:
		return "Callable"
	case StreamT:
		return "Stream"
	default:
		return "INVALID"
	}
}

// IsValid checks if t is a well defined value variant.
func (t Type) IsValid() bool {
	switch t {
	case ScalarT, SequenceT, MappingT, CallableT, StreamT:
		return true
	default:
		return false
	}
}

// FromString returns a value variant from its string representation.
func FromString(s string) (Type, error) {
	switch s {
	case "Scalar":
		return ScalarT, nil
	case "Sequence":
		return SequenceT, nil
	case "Mapping":
		return MappingT, nil
	case "Callable":
		return CallableT, nil
	case "Stream":
		return StreamT, nil
	default:
		return InvalidT, errors.New("invalid type")
	}
}
