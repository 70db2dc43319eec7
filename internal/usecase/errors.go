package usecase

import (
	stderrors "errors"
	"fmt"
	"net/http"

	crerr "github.com/cockroachdb/errors"
)

var (
	ErrInvalidInput          = crerr.New("invalid input")
	ErrNotFound              = crerr.New("resource not found")
	ErrDependencyUnavailable = crerr.New("dependency unavailable")

	// ErrFetchFailure marks any failure to obtain a decoded provider payload.
	ErrFetchFailure = crerr.New("fetch failure")
	// ErrSchemaConflict means the live schema disagrees with the column contract. Fatal.
	ErrSchemaConflict = crerr.New("schema conflict")
	// ErrStoreUnavailable means the store could not be opened or reached. Fatal.
	ErrStoreUnavailable = crerr.New("store unavailable")
	// ErrWriteFailure means a batch write was rolled back. The match is skipped.
	ErrWriteFailure = crerr.New("write failure")
	// ErrInconsistentScorecard means child rows reference innings the scorecard does not list.
	ErrInconsistentScorecard = crerr.New("inconsistent scorecard")
	// ErrReadOnlyQuery rejects statements other than a single SELECT.
	ErrReadOnlyQuery = crerr.New("only read-only queries are allowed")
)

type FetchKind string

const (
	FetchKindNetwork     FetchKind = "network"
	FetchKindStatus      FetchKind = "status"
	FetchKindDecode      FetchKind = "decode"
	FetchKindCircuitOpen FetchKind = "circuit_open"
)

// FetchFailure describes one failed provider call.
type FetchFailure struct {
	Endpoint   string
	Kind       FetchKind
	StatusCode int
	Err        error
}

func (f *FetchFailure) Error() string {
	switch f.Kind {
	case FetchKindStatus:
		return fmt.Sprintf("fetch %s: provider status=%d: %v", f.Endpoint, f.StatusCode, f.Err)
	default:
		return fmt.Sprintf("fetch %s: %s: %v", f.Endpoint, f.Kind, f.Err)
	}
}

func (f *FetchFailure) Unwrap() error { return f.Err }

func (f *FetchFailure) Is(target error) bool { return target == ErrFetchFailure }

// Transient reports whether repeating the same call may succeed.
func (f *FetchFailure) Transient() bool {
	switch f.Kind {
	case FetchKindNetwork:
		return true
	case FetchKindStatus:
		return f.StatusCode == http.StatusTooManyRequests || f.StatusCode >= http.StatusInternalServerError
	default:
		return false
	}
}

// IsTransientFetch reports whether err carries a transient FetchFailure.
func IsTransientFetch(err error) bool {
	var failure *FetchFailure
	if !stderrors.As(err, &failure) {
		return false
	}
	return failure.Transient()
}

// IsFatal reports errors that must abort the whole run.
func IsFatal(err error) bool {
	return crerr.Is(err, ErrSchemaConflict) || crerr.Is(err, ErrStoreUnavailable)
}
