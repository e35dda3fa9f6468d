// Package kv implements the integer-keyed in-memory store and the text command
// protocol used to reach it.
package kv

import (
	"bytes"
	"fmt"
	"strconv"
)

// CommandType identifies a protocol verb.
type CommandType string

// Supported commands. Verbs are matched case-sensitively on the first three bytes.
const (
	PutCmd CommandType = "Put"
	GetCmd CommandType = "Get"
)

// DefaultMaxValueLen bounds a stored value when no limit is configured.
const DefaultMaxValueLen = 255

const (
	verbLen   = 3
	argOffset = verbLen + 1
)

// Command is a decoded request.
type Command struct {
	Type  CommandType
	Key   uint64
	Value string
}

// Parse decodes a request buffer. Only len(raw) bytes are examined; a NUL byte
// ends the data early. maxValueLen <= 0 selects DefaultMaxValueLen.
func Parse(raw []byte, maxValueLen int) (Command, error) {
	if maxValueLen <= 0 {
		maxValueLen = DefaultMaxValueLen
	}
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	if len(raw) < verbLen {
		return Command{}, fmt.Errorf("%w: %d byte request", ErrUnrecognizedCommand, len(raw))
	}

	switch CommandType(raw[:verbLen]) {
	case GetCmd:
		return parseGet(raw)
	case PutCmd:
		return parsePut(raw, maxValueLen)
	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnrecognizedCommand, raw[:verbLen])
	}
}

func parseGet(raw []byte) (Command, error) {
	if len(raw) < argOffset || raw[verbLen] != ' ' {
		return Command{}, fmt.Errorf("%w: missing separator after verb", ErrInvalidKey)
	}
	key, err := parseKey(raw[argOffset:])
	if err != nil {
		return Command{}, err
	}
	return Command{Type: GetCmd, Key: key}, nil
}

func parsePut(raw []byte, maxValueLen int) (Command, error) {
	if len(raw) < argOffset || raw[verbLen] != ' ' {
		return Command{}, fmt.Errorf("%w: missing separator after verb", ErrMalformedPut)
	}
	rest := raw[argOffset:]
	sep := bytes.IndexByte(rest, ' ')
	if sep < 0 {
		return Command{}, fmt.Errorf("%w: no space between key and value", ErrMalformedPut)
	}
	key, err := parseKey(rest[:sep])
	if err != nil {
		return Command{}, err
	}
	value := rest[sep+1:]
	if len(value) > maxValueLen {
		return Command{}, fmt.Errorf("%w: %d bytes, limit %d", ErrValueTooLong, len(value), maxValueLen)
	}
	return Command{Type: PutCmd, Key: key, Value: string(value)}, nil
}

func parseKey(seg []byte) (uint64, error) {
	if len(seg) == 0 {
		return 0, fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	for _, c := range seg {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidKey, seg)
		}
	}
	key, err := strconv.ParseUint(string(seg), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidKey, seg)
	}
	return key, nil
}
