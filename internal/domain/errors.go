package domain

import (
	"errors"
	"fmt"
)

var (
	ErrProviderTimeout     = errors.New("provider timeout")
	ErrProviderRejected    = errors.New("provider rejected request")
	ErrValidationAmbiguous = errors.New("ambiguous menu item")
	ErrValidationUnmatched = errors.New("unknown menu item")
	ErrStoreFault          = errors.New("session store fault")
	ErrMalformedInput      = errors.New("malformed input")
)

// RejectedError carries the reason a provider gave for refusing a request.
type RejectedError struct {
	Provider string
	Reason   string
}

func (e *RejectedError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("rejected: %s", e.Reason)
	}
	return fmt.Sprintf("%s rejected: %s", e.Provider, e.Reason)
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrProviderRejected
}

// FailureKind names the taxonomy bucket of err for analytics records.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrProviderTimeout):
		return "ProviderTimeout"
	case errors.Is(err, ErrProviderRejected):
		return "ProviderRejected"
	case errors.Is(err, ErrValidationAmbiguous):
		return "ValidationAmbiguous"
	case errors.Is(err, ErrValidationUnmatched):
		return "ValidationUnmatched"
	case errors.Is(err, ErrStoreFault):
		return "StoreFault"
	case errors.Is(err, ErrMalformedInput):
		return "MalformedInput"
	default:
		return "Internal"
	}
}
