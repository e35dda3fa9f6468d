package service

import (
	"errors"

	"github.com/i-melnichenko/kvchan/internal/kv"
)

// ReasonSessionNotFound is the wire reason for ErrSessionNotFound.
const ReasonSessionNotFound = "SESSION_NOT_FOUND"

// Reason returns the wire reason transports attach to err, or "" if err has
// no stable kind.
func Reason(err error) string {
	if errors.Is(err, ErrSessionNotFound) {
		return ReasonSessionNotFound
	}
	return kv.Reason(err)
}

// RemoteError rebuilds an error received from a peer. The result matches the
// sentinel for reason under errors.Is and prints msg. Unknown reasons yield nil.
func RemoteError(reason, msg string) error {
	if reason == ReasonSessionNotFound {
		return &remoteError{kind: ErrSessionNotFound, msg: msg}
	}
	if kind, ok := kv.ErrorForReason(reason); ok {
		return &remoteError{kind: kind, msg: msg}
	}
	return nil
}

type remoteError struct {
	kind error
	msg  string
}

func (e *remoteError) Error() string { return e.msg }
func (e *remoteError) Unwrap() error { return e.kind }
