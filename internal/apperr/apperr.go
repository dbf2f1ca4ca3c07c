// Package apperr defines the error kinds surfaced to users of the generator.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure by the component that produced it.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfig
	KindAuth
	KindLookup
	KindNetwork
	KindData
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config error"
	case KindAuth:
		return "auth error"
	case KindLookup:
		return "lookup error"
	case KindNetwork:
		return "network error"
	case KindData:
		return "data error"
	default:
		return "error"
	}
}

// ExitCode is the process exit status the CLI uses for this kind.
func (k Kind) ExitCode() int {
	switch k {
	case KindConfig:
		return 2
	case KindAuth:
		return 3
	case KindLookup:
		return 4
	case KindNetwork:
		return 5
	case KindData:
		return 6
	default:
		return 1
	}
}

// Error carries a Kind alongside the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error

	// StatusCode is the HTTP status for network errors, 0 otherwise.
	StatusCode int
	// Recoverable reports whether retrying the operation may succeed.
	Recoverable bool
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.StatusCode > 0:
		return fmt.Sprintf("%s: %s: HTTP %d: %v", e.Kind, e.Op, e.StatusCode, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Config wraps err as a configuration failure.
func Config(op string, err error) error {
	return &Error{Kind: KindConfig, Op: op, Err: err}
}

// Auth wraps err as an authentication failure.
func Auth(op string, err error) error {
	return &Error{Kind: KindAuth, Op: op, Err: err}
}

// Lookup wraps err as an unknown emirate or city.
func Lookup(op string, err error) error {
	return &Error{Kind: KindLookup, Op: op, Err: err}
}

// Data wraps err as a malformed or incomplete payload.
func Data(op string, err error) error {
	return &Error{Kind: KindData, Op: op, Err: err}
}

// Network wraps a transport-level failure. Transport failures are always
// recoverable.
func Network(op string, err error) error {
	return &Error{Kind: KindNetwork, Op: op, Err: err, Recoverable: true}
}

// HTTPStatus classifies a non-2xx response. 401 and 403 are auth failures;
// 408, 429 and 5xx are recoverable network failures; any other status is an
// irrecoverable network failure.
func HTTPStatus(op string, status int, body string) error {
	err := fmt.Errorf("unexpected response: %s", truncate(body, 200))
	switch {
	case status == 401 || status == 403:
		return &Error{Kind: KindAuth, Op: op, Err: err, StatusCode: status}
	case status == 408 || status == 429 || status >= 500:
		return &Error{Kind: KindNetwork, Op: op, Err: err, StatusCode: status, Recoverable: true}
	default:
		return &Error{Kind: KindNetwork, Op: op, Err: err, StatusCode: status}
	}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsRecoverable reports whether err is worth retrying.
func IsRecoverable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Recoverable
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
