package lean

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/dmora/enginesup"
)

// Conn multiplexes Lean server requests over newline-delimited JSON.
//
// Outbound requests are serialized by a mutex-protected encoder and tagged
// with a fresh seq_num. ReadLoop routes `ok` and `error` responses to the
// waiting Call by seq_num and hands unsolicited responses to the
// registered handlers. On ReadLoop exit every pending Call is released with
// ErrTerminated.
type Conn struct {
	mu  sync.Mutex
	enc *json.Encoder

	nextSeq atomic.Int64
	pending map[int64]chan reply

	handlers connHandlers
	scanner  *bufio.Scanner

	done    chan struct{}
	readErr atomic.Value // stores error (nil = no error)
}

// connHandlers receive unsolicited server output. Handlers run on the
// ReadLoop goroutine; nil handlers drop their events.
type connHandlers struct {
	onMessages   func(enginesup.MessageList)
	onTasks      func(enginesup.TaskSnapshot)
	onUnrelated  func(message string)
	onParseError func(line []byte, err error)
}

// reply is a response delivered to a pending Call.
type reply struct {
	failed  bool
	message string
	raw     []byte
}

// newConn creates a connection reading from r and writing to w.
// Call ReadLoop in a goroutine to start processing responses.
func newConn(r io.Reader, w io.Writer, maxMessageSize int, h connHandlers) *Conn {
	if maxMessageSize <= 0 {
		maxMessageSize = defaultMaxMessageSize
	}
	c := &Conn{
		enc:      json.NewEncoder(w),
		pending:  make(map[int64]chan reply),
		handlers: h,
		done:     make(chan struct{}),
	}
	c.scanner = bufio.NewScanner(r)
	c.scanner.Buffer(make([]byte, 0, min(4096, maxMessageSize)), maxMessageSize)
	return c
}

// Call sends req and blocks until its response arrives or ctx expires.
// The response body is decoded into result when result is non-nil.
func (c *Conn) Call(ctx context.Context, req request, result any) error {
	h := req.header()
	h.SeqNum = c.nextSeq.Add(1)
	seq := h.SeqNum

	ch := make(chan reply, 1)
	c.mu.Lock()
	c.pending[seq] = ch
	err := c.enc.Encode(req)
	if err != nil {
		delete(c.pending, seq)
	}
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("lean: send %s: %w", h.Command, err)
	}

	select {
	case r, ok := <-ch:
		return handleReply(r, ok, h.Command, result)
	case <-ctx.Done():
		c.forget(seq)
		// The response may have raced ctx cancellation.
		select {
		case r, ok := <-ch:
			return handleReply(r, ok, h.Command, result)
		default:
			return ctx.Err()
		}
	case <-c.done:
		// Requests registered after the reader drained pending calls
		// would otherwise wait for ctx.
		c.forget(seq)
		select {
		case r, ok := <-ch:
			return handleReply(r, ok, h.Command, result)
		default:
			return handleReply(reply{}, false, h.Command, result)
		}
	}
}

func (c *Conn) forget(seq int64) {
	c.mu.Lock()
	delete(c.pending, seq)
	c.mu.Unlock()
}

func handleReply(r reply, ok bool, command string, result any) error {
	if !ok {
		return fmt.Errorf("lean: %s: %w", command, enginesup.ErrTerminated)
	}
	if r.failed {
		return &ResponseError{Command: command, Message: r.message}
	}
	if result != nil {
		if err := json.Unmarshal(r.raw, result); err != nil {
			return fmt.Errorf("lean: unmarshal %s response: %w", command, err)
		}
	}
	return nil
}

// ReadLoop reads and dispatches server output until the reader closes.
// Must be called exactly once.
func (c *Conn) ReadLoop() {
	defer close(c.done)
	defer c.drainPending()

	for c.scanner.Scan() {
		line := c.scanner.Bytes()
		if len(line) == 0 || line[0] != '{' {
			continue // server banners and blank lines
		}
		c.dispatch(line)
	}
	if err := c.scanner.Err(); err != nil {
		c.readErr.Store(err)
	}
}

// Err returns the ReadLoop error after it exits, or nil.
func (c *Conn) Err() error {
	if v := c.readErr.Load(); v != nil {
		return v.(error)
	}
	return nil
}

// Done returns a channel that is closed when ReadLoop exits.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) dispatch(line []byte) {
	var in inbound
	if err := json.Unmarshal(line, &in); err != nil {
		c.parseError(line, err)
		return
	}

	switch in.Response {
	case responseOK:
		if in.SeqNum != nil {
			c.deliver(*in.SeqNum, reply{raw: append([]byte(nil), line...)})
		}
	case responseError:
		if in.SeqNum != nil && c.deliver(*in.SeqNum, reply{failed: true, message: in.Message}) {
			return
		}
		if c.handlers.onUnrelated != nil {
			c.handlers.onUnrelated(in.Message)
		}
	case responseAllMessages:
		var l enginesup.MessageList
		if err := json.Unmarshal(line, &l); err != nil {
			c.parseError(line, err)
			return
		}
		if c.handlers.onMessages != nil {
			c.handlers.onMessages(l)
		}
	case responseCurrentTasks:
		var s enginesup.TaskSnapshot
		if err := json.Unmarshal(line, &s); err != nil {
			c.parseError(line, err)
			return
		}
		if c.handlers.onTasks != nil {
			c.handlers.onTasks(s)
		}
	}
}

// deliver hands r to the Call waiting on seq. Reports whether one was.
func (c *Conn) deliver(seq int64, r reply) bool {
	c.mu.Lock()
	ch, ok := c.pending[seq]
	if ok {
		delete(c.pending, seq)
	}
	c.mu.Unlock()
	if ok {
		ch <- r
	}
	return ok
}

func (c *Conn) parseError(line []byte, err error) {
	if c.handlers.onParseError != nil {
		c.handlers.onParseError(append([]byte(nil), line...), err)
	}
}

// drainPending closes all pending Call channels so blocked callers unblock.
func (c *Conn) drainPending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for seq, ch := range c.pending {
		close(ch)
		delete(c.pending, seq)
	}
}
