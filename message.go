package enginesup

// Task is a unit of in-flight engine work, identified by its source range.
// The supervisor treats it as an opaque payload.
type Task struct {
	FileName   string `json:"file_name"`
	PosLine    int    `json:"pos_line"`
	PosCol     int    `json:"pos_col"`
	EndPosLine int    `json:"end_pos_line"`
	EndPosCol  int    `json:"end_pos_col"`
	Desc       string `json:"desc"`
}

// TaskSnapshot is the engine's raw report of its in-flight work.
// Snapshots may arrive in rapid bursts while the engine is busy.
type TaskSnapshot struct {
	IsRunning bool   `json:"is_running"`
	Tasks     []Task `json:"tasks"`
}

// Severity classifies a diagnostic message.
type Severity string

const (
	// SeverityInformation is an informational message (e.g. #eval output).
	SeverityInformation Severity = "information"

	// SeverityWarning is a warning diagnostic.
	SeverityWarning Severity = "warning"

	// SeverityError is an error diagnostic.
	SeverityError Severity = "error"
)

// Message is a diagnostic record produced by the engine.
type Message struct {
	FileName   string   `json:"file_name"`
	PosLine    int      `json:"pos_line"`
	PosCol     int      `json:"pos_col"`
	EndPosLine int      `json:"end_pos_line,omitempty"`
	EndPosCol  int      `json:"end_pos_col,omitempty"`
	Severity   Severity `json:"severity"`
	Caption    string   `json:"caption"`
	Text       string   `json:"text"`
}

// MessageList is a full snapshot of the engine's diagnostics.
// It replaces any previously delivered list; there is no merging.
type MessageList struct {
	Msgs []Message `json:"msgs"`
}

// ErrorKind is the engine-provided classification of an error notification.
type ErrorKind string

const (
	// ErrorStderr carries a chunk of the subprocess's stderr output.
	ErrorStderr ErrorKind = "stderr"

	// ErrorConnect reports that the connection to the engine failed or
	// was lost (spawn failure, unexpected exit).
	ErrorConnect ErrorKind = "connect"

	// ErrorUnrelated reports an error response that cannot be matched to
	// an outstanding request.
	ErrorUnrelated ErrorKind = "unrelated"
)

// ErrorNotification is an error event raised by the engine.
type ErrorNotification struct {
	Kind    ErrorKind `json:"error"`
	Payload string    `json:"message"`
}

// RegionMode selects which parts of the open files the engine checks.
type RegionMode string

const (
	RegionNothing      RegionMode = "nothing"
	RegionVisibleLines RegionMode = "visible-lines"
	RegionVisibleFiles RegionMode = "visible-files"
	RegionOpenFiles    RegionMode = "open-files"
	RegionProjectFiles RegionMode = "project-files"
)

// LineRange is an inclusive range of 1-based source lines.
type LineRange struct {
	BeginLine int `json:"begin_line"`
	EndLine   int `json:"end_line"`
}

// FileRegion lists the ranges of one file that are of interest.
type FileRegion struct {
	FileName string      `json:"file_name"`
	Ranges   []LineRange `json:"ranges"`
}

// RegionOfInterest restricts engine analysis to a subset of the input.
type RegionOfInterest struct {
	Mode  RegionMode   `json:"mode"`
	Files []FileRegion `json:"files"`
}
