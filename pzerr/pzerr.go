// Package pzerr defines the error-kind vocabulary surfaced by the session
// core, as opposed to ad-hoc errors.New calls scattered across packages.
package pzerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind enumerates the error kinds a caller of the session core may need to
// switch on. Most internal failures (parse errors, transform errors,
// per-record rejects) are logged and swallowed well before they would ever
// become one of these - these are the kinds that escape to a caller of
// session_search or equivalent.
type Kind int

const (
	// KindNone is the zero value; never attached to a real error.
	KindNone Kind = iota
	KindNoTargets
	KindMalformedParameterValue
	KindUnsupportedLocaleOrAction
	KindConversionError
	KindBufferOverflow
)

func (k Kind) String() string {
	switch k {
	case KindNoTargets:
		return "NoTargets"
	case KindMalformedParameterValue:
		return "MalformedParameterValue"
	case KindUnsupportedLocaleOrAction:
		return "UnsupportedLocaleOrAction"
	case KindConversionError:
		return "ConversionError"
	case KindBufferOverflow:
		return "BufferOverflow"
	default:
		return "None"
	}
}

// kindError carries a Kind plus the addinfo string spec.md calls for
// (e.g. "query" or "limit" for MalformedParameterValue).
type kindError struct {
	kind    Kind
	addinfo string
}

func (e *kindError) Error() string {
	if e.addinfo == "" {
		return e.kind.String()
	}
	return fmt.Sprintf("%s: %s", e.kind, e.addinfo)
}

// New builds a Kind-carrying error, wrapped with a stack via pkg/errors so
// callers that care can still errors.Cause() down to it.
func New(kind Kind, addinfo string) error {
	return errors.WithStack(&kindError{kind: kind, addinfo: addinfo})
}

// KindOf extracts the Kind from err, or KindNone if err does not carry one.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var ke *kindError
	for {
		if k, ok := err.(*kindError); ok {
			ke = k
			break
		}
		cause := errors.Unwrap(err)
		if cause == nil {
			break
		}
		err = cause
	}
	if ke == nil {
		return KindNone
	}
	return ke.kind
}

// AddInfo extracts the addinfo string, if any.
func AddInfo(err error) string {
	var ke *kindError
	for {
		if k, ok := err.(*kindError); ok {
			ke = k
			break
		}
		cause := errors.Unwrap(err)
		if cause == nil {
			break
		}
		err = cause
	}
	if ke == nil {
		return ""
	}
	return ke.addinfo
}
