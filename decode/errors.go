package decode

import (
	"errors"
	"fmt"
)

// ErrMalformedPayload is matched by every *DecodeError.
var ErrMalformedPayload = errors.New("decode: malformed payload")

// Kind classifies a decode failure.
type Kind int

const (
	// KindMalformedPayload means every repair was exhausted without a parse.
	KindMalformedPayload Kind = iota + 1
)

func (k Kind) String() string {
	switch k {
	case KindMalformedPayload:
		return "malformed_payload"
	default:
		return "unknown"
	}
}

// DecodeError reports a payload that could not be recovered.
type DecodeError struct {
	Kind Kind
	// Raw is a bounded prefix of the input, for diagnostics.
	Raw string
	// Err is the last parse error seen.
	Err error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return ErrMalformedPayload.Error()
	}
	return fmt.Sprintf("%s: %v", ErrMalformedPayload.Error(), e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is reports whether target is ErrMalformedPayload for malformed payload errors.
func (e *DecodeError) Is(target error) bool {
	return target == ErrMalformedPayload && e.Kind == KindMalformedPayload
}
