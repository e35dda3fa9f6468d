// Package main implements the CLI client for the KV session channel.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"connectrpc.com/connect"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/i-melnichenko/kvchan/internal/kv"
	"github.com/i-melnichenko/kvchan/internal/service"
)

const usage = `Usage:
  client [flags] put <key> <value...>
  client [flags] get <key>
  client [flags] shell
  client [flags] put-batch [--in <file|->]
  client [flags] get-batch [--in <file|->]
  client [flags] stats
  client [--addr host:port[,host:port,...]] admin

Modes:
 - put       writes "Put <key> <value>" on a fresh session
 - get       writes "Get <key>" and reads the staged value
 - shell     reads raw commands from stdin on one session; lines starting with
             Put are written only, anything else is written and then read back
 - put-batch writes many key/value pairs on one session (TSV: key<TAB>value)
 - get-batch reads many keys on one session (one key per line)
 - stats     prints node statistics from the admin service
 - admin     polls each admin gRPC endpoint and renders a live table

Flags:
  --addr       Server address; comma-separated list for admin (default localhost:8080)
  --transport  grpc | connect (default grpc)
  --timeout    Request timeout (default 5s)
  --buffer     Read buffer size in bytes, 0 = unlimited (default 256)
`

const defaultReadBuffer = 256

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "localhost:8080", "server address (comma-separated for admin)")
	transport := flag.String("transport", transportGRPC, "transport: grpc | connect")
	timeout := flag.Duration("timeout", 5*time.Second, "request timeout")
	buffer := flag.Int("buffer", defaultReadBuffer, "read buffer size in bytes, 0 = unlimited")
	flag.Usage = func() { _, _ = fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		return fmt.Errorf("subcommand required: put | get | shell | put-batch | get-batch | stats | admin")
	}

	addrs := splitAddrs(*addr)
	if len(addrs) == 0 {
		return fmt.Errorf("no addresses provided")
	}

	switch args[0] {
	case "put":
		if len(args) < 3 {
			return fmt.Errorf("usage: put <key> <value...>")
		}
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		defer cancel()
		sess, closeFn, err := openSession(ctx, *transport, addrs[0])
		if err != nil {
			return err
		}
		defer closeFn()
		return cmdPut(ctx, sess, args[1], strings.Join(args[2:], " "))

	case "get":
		if len(args) != 2 {
			return fmt.Errorf("usage: get <key>")
		}
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		defer cancel()
		sess, closeFn, err := openSession(ctx, *transport, addrs[0])
		if err != nil {
			return err
		}
		defer closeFn()
		return cmdGet(ctx, sess, args[1], *buffer)

	case "shell":
		if len(args) != 1 {
			return fmt.Errorf("usage: shell")
		}
		sess, closeFn, err := openSessionWithTimeout(*transport, addrs[0], *timeout)
		if err != nil {
			return err
		}
		defer closeFn()
		return cmdShell(sess, os.Stdin, os.Stdout, *timeout, *buffer)

	case "put-batch":
		inPath, err := parseBatchFlags("put-batch", "TSV input path (key<TAB>value), use - for stdin", args[1:])
		if err != nil {
			return err
		}
		sess, closeFn, err := openSessionWithTimeout(*transport, addrs[0], *timeout)
		if err != nil {
			return err
		}
		defer closeFn()
		return withInput(inPath, func(r io.Reader) error {
			return cmdPutBatch(sess, r, os.Stdout, *timeout)
		})

	case "get-batch":
		inPath, err := parseBatchFlags("get-batch", "input path (one key per line), use - for stdin", args[1:])
		if err != nil {
			return err
		}
		sess, closeFn, err := openSessionWithTimeout(*transport, addrs[0], *timeout)
		if err != nil {
			return err
		}
		defer closeFn()
		return withInput(inPath, func(r io.Reader) error {
			return cmdGetBatch(sess, r, os.Stdout, *timeout, *buffer)
		})

	case "stats":
		if len(args) != 1 {
			return fmt.Errorf("usage: stats")
		}
		return cmdStats(addrs[0], *timeout)

	case "admin":
		if len(args) != 1 {
			return fmt.Errorf("usage: admin")
		}
		return cmdAdmin(addrs, *timeout)

	default:
		flag.Usage()
		return fmt.Errorf("unknown subcommand %q", args[0])
	}
}

func cmdPut(ctx context.Context, s session, key, value string) error {
	if _, err := s.Write(ctx, []byte(putCommand(key, value))); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}

func cmdGet(ctx context.Context, s session, key string, buffer int) error {
	if _, err := s.Write(ctx, []byte(getCommand(key))); err != nil {
		return err
	}
	value, err := s.Read(ctx, buffer)
	if err != nil {
		return err
	}
	if len(value) == 0 {
		fmt.Printf("(empty) %s\n", key)
		return nil
	}
	fmt.Printf("%s = %s\n", key, value)
	return nil
}

// cmdShell sends each input line as a raw command. Errors are reported and
// the loop continues on the same session.
func cmdShell(s session, in io.Reader, out io.Writer, timeout time.Duration, buffer int) error {
	_, _ = fmt.Fprintln(out, "To Put: Put <key> <value>")
	_, _ = fmt.Fprintln(out, "To Get: Get <key>")

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		value, err := shellExchange(ctx, s, line, buffer)
		cancel()
		switch {
		case err != nil:
			_, _ = fmt.Fprintf(out, "error: %s\n", oneLineErr(err))
		case strings.HasPrefix(line, string(kv.PutCmd)):
			_, _ = fmt.Fprintln(out, "ok")
		default:
			_, _ = fmt.Fprintf(out, "[%s]\n", value)
		}
	}
	return scanner.Err()
}

func shellExchange(ctx context.Context, s session, line string, buffer int) ([]byte, error) {
	if _, err := s.Write(ctx, []byte(line)); err != nil {
		return nil, err
	}
	if strings.HasPrefix(line, string(kv.PutCmd)) {
		return nil, nil
	}
	return s.Read(ctx, buffer)
}

func cmdPutBatch(s session, in io.Reader, out io.Writer, timeout time.Duration) error {
	scanner := bufio.NewScanner(in)
	seq := 0
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		seq++
		key, value, ok := strings.Cut(line, "\t")
		if !ok {
			_, _ = fmt.Fprintf(out, "err\t%d\t0\t\tinvalid_tsv_line\n", seq)
			continue
		}
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		_, putErr := s.Write(ctx, []byte(putCommand(key, value)))
		cancel()
		us := time.Since(start).Microseconds()

		switch {
		case putErr == nil:
			_, _ = fmt.Fprintf(out, "ok\t%d\t%d\t%s\n", seq, us, key)
		case isTimeout(putErr):
			_, _ = fmt.Fprintf(out, "timeout\t%d\t%d\t%s\t%s\n", seq, us, key, oneLineErr(putErr))
		default:
			_, _ = fmt.Fprintf(out, "err\t%d\t%d\t%s\t%s\t%s\n", seq, us, key, errReason(putErr), oneLineErr(putErr))
		}
	}
	return scanner.Err()
}

func cmdGetBatch(s session, in io.Reader, out io.Writer, timeout time.Duration, buffer int) error {
	scanner := bufio.NewScanner(in)
	seq := 0
	for scanner.Scan() {
		key := strings.TrimSpace(scanner.Text())
		if key == "" {
			continue
		}
		seq++
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		value, getErr := shellExchange(ctx, s, getCommand(key), buffer)
		cancel()
		us := time.Since(start).Microseconds()

		switch {
		case getErr == nil && len(value) > 0:
			_, _ = fmt.Fprintf(out, "ok\t%d\t%d\t%s\t%d\n", seq, us, key, len(value))
		case getErr == nil:
			_, _ = fmt.Fprintf(out, "empty\t%d\t%d\t%s\t0\n", seq, us, key)
		case isTimeout(getErr):
			_, _ = fmt.Fprintf(out, "timeout\t%d\t%d\t%s\t%s\n", seq, us, key, oneLineErr(getErr))
		default:
			_, _ = fmt.Fprintf(out, "err\t%d\t%d\t%s\t%s\t%s\n", seq, us, key, errReason(getErr), oneLineErr(getErr))
		}
	}
	return scanner.Err()
}

func putCommand(key, value string) string {
	return string(kv.PutCmd) + " " + key + " " + value
}

func getCommand(key string) string {
	return string(kv.GetCmd) + " " + key
}

func parseBatchFlags(name, help string, args []string) (string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	inPath := fs.String("in", "-", help)
	if err := fs.Parse(args); err != nil || fs.NArg() != 0 {
		return "", fmt.Errorf("usage: %s [--in <file|->]", name)
	}
	return *inPath, nil
}

func withInput(inPath string, fn func(io.Reader) error) error {
	if inPath == "-" {
		return fn(os.Stdin)
	}
	// #nosec G304 -- CLI intentionally reads a user-provided local input file.
	f, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return fn(f)
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) ||
		status.Code(err) == codes.DeadlineExceeded ||
		connect.CodeOf(err) == connect.CodeDeadlineExceeded
}

func errReason(err error) string {
	if r := service.Reason(err); r != "" {
		return r
	}
	return "UNKNOWN"
}

func oneLineErr(err error) string {
	if err == nil {
		return ""
	}
	return strings.ReplaceAll(err.Error(), "\n", " ")
}

func splitAddrs(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
