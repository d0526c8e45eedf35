// Package source holds the catalog adapters. Each adapter talks to one
// external API (Bangumi, VNDB, YMGal) and maps its wire format into the
// normalized models.SourceRecord; all failures surface as typed *Error values
// so callers can decide between folding them into "no data" and showing them.
package source

import (
	"context"
	"errors"
	"fmt"

	"galhub/pkg/models"
)

// Adapter is implemented by each catalog client.
type Adapter interface {
	Name() string
	FetchByID(ctx context.Context, id string) (*models.SourceRecord, error)
	FetchByName(ctx context.Context, name string, limit int) ([]models.SourceRecord, error)
}

// ErrorKind classifies adapter failures.
type ErrorKind int

const (
	// KindNotFound: the source answered but holds no such entry.
	KindNotFound ErrorKind = iota + 1
	// KindMissingCredential: the source requires a token and none is
	// configured; no request was attempted.
	KindMissingCredential
	// KindRemoteStatus: the source answered with a non-success status.
	KindRemoteStatus
	// KindDecode: the response body did not parse.
	KindDecode
	// KindNetwork: the request never completed.
	KindNetwork
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindMissingCredential:
		return "missing_credential"
	case KindRemoteStatus:
		return "remote_status"
	case KindDecode:
		return "decode"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// Error is the tagged failure every adapter returns.
type Error struct {
	Source  string
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Source, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Source, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Source, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(source string, kind ErrorKind, msg string, cause error) *Error {
	return &Error{Source: source, Kind: kind, Message: msg, Err: cause}
}

// IsNotFound reports whether err is an adapter not-found failure.
func IsNotFound(err error) bool { return hasKind(err, KindNotFound) }

// IsMissingCredential reports whether err means a required token is absent.
func IsMissingCredential(err error) bool { return hasKind(err, KindMissingCredential) }

func hasKind(err error, kind ErrorKind) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == kind
}
