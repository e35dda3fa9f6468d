package kv

import "errors"

// ErrorDomain is the domain attached to error reasons sent over the wire.
const ErrorDomain = "kvchan"

// Error kinds reported by the parser, the store and the channel.
var (
	ErrUnrecognizedCommand = errors.New("kv: unrecognized command")
	ErrMalformedPut        = errors.New("kv: malformed put")
	ErrInvalidKey          = errors.New("kv: invalid key")
	ErrValueTooLong        = errors.New("kv: value too long")
	ErrChannelTransport    = errors.New("kv: channel transport failure")
)

// Wire reasons for the error kinds.
const (
	ReasonUnrecognizedCommand = "UNRECOGNIZED_COMMAND"
	ReasonMalformedPut        = "MALFORMED_PUT"
	ReasonInvalidKey          = "INVALID_KEY"
	ReasonValueTooLong        = "VALUE_TOO_LONG"
	ReasonChannelTransport    = "CHANNEL_TRANSPORT_FAILURE"
)

var reasons = []struct {
	err    error
	reason string
}{
	{ErrUnrecognizedCommand, ReasonUnrecognizedCommand},
	{ErrMalformedPut, ReasonMalformedPut},
	{ErrInvalidKey, ReasonInvalidKey},
	{ErrValueTooLong, ReasonValueTooLong},
	{ErrChannelTransport, ReasonChannelTransport},
}

// Reason returns the wire reason for err, or "" if err is not one of the
// kv error kinds.
func Reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return ""
}

// ErrorForReason maps a wire reason back to its sentinel error.
func ErrorForReason(reason string) (error, bool) {
	for _, r := range reasons {
		if r.reason == reason {
			return r.err, true
		}
	}
	return nil, false
}

// IsParseError reports whether err was produced while validating a command.
func IsParseError(err error) bool {
	return errors.Is(err, ErrUnrecognizedCommand) ||
		errors.Is(err, ErrMalformedPut) ||
		errors.Is(err, ErrInvalidKey) ||
		errors.Is(err, ErrValueTooLong)
}
