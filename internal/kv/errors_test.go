package kv

import (
	"errors"
	"fmt"
	"testing"
)

func TestReasonRoundTrip(t *testing.T) {
	for _, sentinel := range []error{
		ErrUnrecognizedCommand,
		ErrMalformedPut,
		ErrInvalidKey,
		ErrValueTooLong,
		ErrChannelTransport,
	} {
		wrapped := fmt.Errorf("%w: detail", sentinel)
		reason := Reason(wrapped)
		if reason == "" {
			t.Fatalf("no reason for %v", sentinel)
		}
		got, ok := ErrorForReason(reason)
		if !ok || !errors.Is(got, sentinel) {
			t.Fatalf("reason %q mapped to %v, want %v", reason, got, sentinel)
		}
	}

	if r := Reason(errors.New("other")); r != "" {
		t.Fatalf("expected empty reason, got %q", r)
	}
	if _, ok := ErrorForReason("NOPE"); ok {
		t.Fatal("expected unknown reason")
	}
}

func TestIsParseError(t *testing.T) {
	if !IsParseError(fmt.Errorf("%w: x", ErrInvalidKey)) {
		t.Fatal("expected invalid key to be a parse error")
	}
	if IsParseError(ErrChannelTransport) {
		t.Fatal("transport failure is not a parse error")
	}
}
