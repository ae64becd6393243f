package hub

import (
	"errors"
	"fmt"
)

// ErrNotFound is wrapped by every KindNotFound fault.
var ErrNotFound = errors.New("not found")

type FaultKind int

const (
	// KindTransport: the request never produced a response (DNS, TLS, timeout, retries exhausted).
	KindTransport FaultKind = iota
	// KindStatus: the server answered with an unexpected HTTP status or refused the update.
	KindStatus
	// KindDecode: the response body did not have the shape we need.
	KindDecode
	// KindNotFound: the looked-up entity does not exist.
	KindNotFound
)

func (k FaultKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindDecode:
		return "decode"
	case KindNotFound:
		return "not-found"
	}
	return "unknown"
}

// Fault is the error type returned by every Client operation.
type Fault struct {
	Op         string
	Kind       FaultKind
	StatusCode int
	Err        error
}

func (f *Fault) Error() string {
	if f.StatusCode != 0 {
		return fmt.Sprintf("hub %s: %s fault (HTTP %d): %v", f.Op, f.Kind, f.StatusCode, f.Err)
	}
	return fmt.Sprintf("hub %s: %s fault: %v", f.Op, f.Kind, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// KindOf returns the fault kind carried by err, and false when err is not a Fault.
func KindOf(err error) (FaultKind, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind, true
	}
	return 0, false
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func notFound(op, what string) *Fault {
	return &Fault{Op: op, Kind: KindNotFound, Err: fmt.Errorf("%s: %w", what, ErrNotFound)}
}
