//go:build ignore

// Command mock-lean simulates a Lean 3 server for integration tests.
//
// `--version` prints a version banner. `--server` speaks the line-delimited
// JSON server protocol on stdin/stdout: sync, info, complete and roi.
//
// MOCK_LEAN_MODE selects behavior:
//
//	bad-version    print a banner without a version
//	version-fail   exit 3 on --version
//	stderr         write a line to stderr at startup
//	echo-args      write the command-line arguments to stderr at startup
//	unrelated      send an error response without seq_num at startup
//	crash-on-sync  exit 2 on the first sync without responding
//	ignore-term    ignore SIGTERM (exercises SIGKILL escalation)
//
// MOCK_LEAN_VERSION overrides the reported version (default 3.4.2).
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

type request struct {
	SeqNum   int64  `json:"seq_num"`
	Command  string `json:"command"`
	FileName string `json:"file_name"`
	Content  string `json:"content"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
}

var (
	enc  = json.NewEncoder(os.Stdout)
	mode = os.Getenv("MOCK_LEAN_MODE")
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersion()
		return
	}
	if len(os.Args) < 2 || os.Args[1] != "--server" {
		fmt.Fprintln(os.Stderr, "usage: mock-lean --server | --version")
		os.Exit(1)
	}
	serve()
}

func printVersion() {
	switch mode {
	case "bad-version":
		fmt.Println("Lean (development build)")
	case "version-fail":
		fmt.Fprintln(os.Stderr, "cannot determine version")
		os.Exit(3)
	default:
		v := os.Getenv("MOCK_LEAN_VERSION")
		if v == "" {
			v = "3.4.2"
		}
		fmt.Printf("Lean (version %s, commit 0000000000, Release)\n", v)
	}
}

func serve() {
	switch mode {
	case "stderr":
		fmt.Fprintln(os.Stderr, "mock-lean: warming up")
	case "echo-args":
		fmt.Fprintln(os.Stderr, strings.Join(os.Args[1:], " "))
	case "unrelated":
		send(map[string]any{"response": "error", "message": "stray failure"})
	case "ignore-term":
		signal.Ignore(syscall.SIGTERM)
	}

	fmt.Println("mock-lean server ready") // non-JSON banner

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		var req request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			send(map[string]any{"response": "error", "message": "malformed request"})
			continue
		}
		handle(&req)
	}
	if mode == "ignore-term" {
		time.Sleep(time.Hour) // wait for SIGKILL
	}
}

func handle(req *request) {
	switch req.Command {
	case "sync":
		if mode == "crash-on-sync" {
			os.Exit(2)
		}
		ok(req.SeqNum, map[string]any{"message": "file invalidated"})
		task := map[string]any{
			"file_name": req.FileName, "pos_line": 1, "pos_col": 0,
			"end_pos_line": 1, "end_pos_col": 10, "desc": "elaborating",
		}
		send(map[string]any{"response": "current_tasks", "is_running": true, "tasks": []any{task}})
		severity := "information"
		if strings.Contains(req.Content, "sorry") {
			severity = "warning"
		}
		send(map[string]any{"response": "all_messages", "msgs": []any{map[string]any{
			"file_name": req.FileName, "pos_line": 1, "pos_col": 0,
			"severity": severity, "caption": "", "text": "checked " + req.FileName,
		}}})
		send(map[string]any{"response": "current_tasks", "is_running": false, "tasks": []any{}})
	case "info":
		ok(req.SeqNum, map[string]any{"record": map[string]any{
			"full-id": "nat.add",
			"type":    "ℕ → ℕ → ℕ",
			"source":  map[string]any{"file": req.FileName, "line": req.Line, "column": req.Column},
		}})
	case "complete":
		ok(req.SeqNum, map[string]any{
			"prefix": "nat.a",
			"completions": []any{
				map[string]any{"text": "nat.add", "type": "ℕ → ℕ → ℕ"},
				map[string]any{"text": "nat.add_comm"},
			},
		})
	case "roi":
		ok(req.SeqNum, nil)
	default:
		send(map[string]any{"response": "error", "seq_num": req.SeqNum, "message": "unknown command " + req.Command})
	}
}

func ok(seq int64, fields map[string]any) {
	msg := map[string]any{"response": "ok", "seq_num": seq}
	for k, v := range fields {
		msg[k] = v
	}
	send(msg)
}

func send(v any) {
	_ = enc.Encode(v)
}
