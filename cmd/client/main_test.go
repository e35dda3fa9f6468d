package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/i-melnichenko/kvchan/internal/kv"
)

// fakeSession applies commands to a map and stages Get results like the server.
type fakeSession struct {
	data   map[uint64]string
	staged []byte
	writes []string
}

func newFakeSession() *fakeSession {
	return &fakeSession{data: make(map[uint64]string)}
}

func (f *fakeSession) Write(_ context.Context, p []byte) (int, error) {
	f.writes = append(f.writes, string(p))
	cmd, err := kv.Parse(p, 8)
	if err != nil {
		return 0, err
	}
	switch cmd.Type {
	case kv.PutCmd:
		f.data[cmd.Key] = cmd.Value
		f.staged = nil
	case kv.GetCmd:
		f.staged = []byte(f.data[cmd.Key])
	}
	return len(p), nil
}

func (f *fakeSession) Read(_ context.Context, _ int) ([]byte, error) {
	out := f.staged
	f.staged = nil
	return out, nil
}

func (f *fakeSession) Close(context.Context) error { return nil }

func TestCmdShell(t *testing.T) {
	sess := newFakeSession()
	in := strings.NewReader("Put 7 apple\n\nGet 7\nGet 8\nPxt 1 a\n")
	var out bytes.Buffer

	if err := cmdShell(sess, in, &out, time.Second, 256); err != nil {
		t.Fatalf("cmdShell: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	want := []string{
		"To Put: Put <key> <value>",
		"To Get: Get <key>",
		"ok",
		"[apple]",
		"[]",
	}
	if len(lines) != len(want)+1 {
		t.Fatalf("expected %d lines, got %d: %q", len(want)+1, len(lines), lines)
	}
	for i, w := range want {
		if lines[i] != w {
			t.Fatalf("line %d: expected %q, got %q", i, w, lines[i])
		}
	}
	if !strings.HasPrefix(lines[len(lines)-1], "error: ") {
		t.Fatalf("expected error line for bad command, got %q", lines[len(lines)-1])
	}
	if len(sess.writes) != 4 {
		t.Fatalf("expected 4 writes (blank line skipped), got %d", len(sess.writes))
	}
}

func TestCmdPutBatchAndGetBatch(t *testing.T) {
	sess := newFakeSession()
	var out bytes.Buffer

	puts := "1\tone\n2\ttwo\nbroken-line\nx\tvalue\n3\twaytoolongvalue\n"
	if err := cmdPutBatch(sess, strings.NewReader(puts), &out, time.Second); err != nil {
		t.Fatalf("cmdPutBatch: %v", err)
	}
	got := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(got) != 5 {
		t.Fatalf("expected 5 result lines, got %d: %q", len(got), got)
	}
	prefixes := []string{"ok\t1\t", "ok\t2\t", "err\t3\t0\t\tinvalid_tsv_line", "err\t4\t", "err\t5\t"}
	for i, p := range prefixes {
		if !strings.HasPrefix(got[i], p) {
			t.Fatalf("line %d: expected prefix %q, got %q", i, p, got[i])
		}
	}
	if !strings.Contains(got[3], kv.ReasonInvalidKey) {
		t.Fatalf("expected %s in %q", kv.ReasonInvalidKey, got[3])
	}
	if !strings.Contains(got[4], kv.ReasonValueTooLong) {
		t.Fatalf("expected %s in %q", kv.ReasonValueTooLong, got[4])
	}

	out.Reset()
	if err := cmdGetBatch(sess, strings.NewReader("1\n9\n\n2\n"), &out, time.Second, 0); err != nil {
		t.Fatalf("cmdGetBatch: %v", err)
	}
	got = strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(got) != 3 {
		t.Fatalf("expected 3 result lines, got %d: %q", len(got), got)
	}
	if !strings.HasPrefix(got[0], "ok\t1\t") || !strings.HasSuffix(got[0], "\t1\t3") {
		t.Fatalf("unexpected line for key 1: %q", got[0])
	}
	if !strings.HasPrefix(got[1], "empty\t2\t") {
		t.Fatalf("unexpected line for key 9: %q", got[1])
	}
	if !strings.HasSuffix(got[2], "\t2\t3") {
		t.Fatalf("unexpected line for key 2: %q", got[2])
	}
}

func TestCommandBuilders(t *testing.T) {
	if got := putCommand("42", "hello world"); got != "Put 42 hello world" {
		t.Fatalf("putCommand: %q", got)
	}
	if got := getCommand("42"); got != "Get 42" {
		t.Fatalf("getCommand: %q", got)
	}
}

func TestBaseURL(t *testing.T) {
	tests := map[string]string{
		"localhost:8081":        "http://localhost:8081",
		"http://example:80":     "http://example:80",
		"https://example.local": "https://example.local",
	}
	for in, want := range tests {
		if got := baseURL(in); got != want {
			t.Fatalf("baseURL(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestSplitAddrs(t *testing.T) {
	got := splitAddrs(" a:1, ,b:2,")
	if len(got) != 2 || got[0] != "a:1" || got[1] != "b:2" {
		t.Fatalf("unexpected addrs: %q", got)
	}
}
