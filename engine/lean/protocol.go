package lean

import (
	"fmt"

	"github.com/dmora/enginesup"
)

// Server commands.
const (
	CommandSync     = "sync"
	CommandInfo     = "info"
	CommandComplete = "complete"
	CommandROI      = "roi"
)

// Response kinds.
const (
	responseOK           = "ok"
	responseError        = "error"
	responseAllMessages  = "all_messages"
	responseCurrentTasks = "current_tasks"
)

// serverFlag puts the executable into server mode.
const serverFlag = "--server"

// --- Requests ---

// commandHeader is embedded in every request. SeqNum is assigned by Conn.
type commandHeader struct {
	SeqNum  int64  `json:"seq_num"`
	Command string `json:"command"`
}

func (h *commandHeader) header() *commandHeader { return h }

// request is any outbound command.
type request interface {
	header() *commandHeader
}

type syncRequest struct {
	commandHeader
	FileName string `json:"file_name"`
	Content  string `json:"content"`
}

type infoRequest struct {
	commandHeader
	FileName string `json:"file_name"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
}

type completeRequest struct {
	commandHeader
	FileName        string `json:"file_name"`
	Line            int    `json:"line"`
	Column          int    `json:"column"`
	SkipCompletions bool   `json:"skip_completions,omitempty"`
}

type roiRequest struct {
	commandHeader
	Mode  enginesup.RegionMode   `json:"mode"`
	Files []enginesup.FileRegion `json:"files"`
}

// --- Responses ---

// inbound is the envelope common to every server line.
type inbound struct {
	Response string `json:"response"`
	SeqNum   *int64 `json:"seq_num,omitempty"`
	Message  string `json:"message,omitempty"`
}

// SourceLocation points at a declaration.
type SourceLocation struct {
	File   string `json:"file,omitempty"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// InfoRecord is the server's answer to an info query.
type InfoRecord struct {
	FullID string          `json:"full-id,omitempty"`
	Type   string          `json:"type,omitempty"`
	Doc    string          `json:"doc,omitempty"`
	Source *SourceLocation `json:"source,omitempty"`
	State  string          `json:"state,omitempty"`
	Text   string          `json:"text,omitempty"`
}

type infoResponse struct {
	Record *InfoRecord `json:"record"`
}

// Completion is one auto-completion candidate.
type Completion struct {
	Text   string          `json:"text"`
	Type   string          `json:"type,omitempty"`
	Doc    string          `json:"doc,omitempty"`
	Source *SourceLocation `json:"source,omitempty"`
}

// CompleteResult is the server's answer to a complete query.
type CompleteResult struct {
	Prefix      string       `json:"prefix"`
	Completions []Completion `json:"completions"`
}

// ResponseError is an error response matched to a request.
type ResponseError struct {
	Command string
	Message string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("lean: %s: %s", e.Command, e.Message)
}
