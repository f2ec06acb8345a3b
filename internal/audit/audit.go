// Package audit records security-relevant events as structured JSON.
// Emission is a required side effect of authorization denials, not
// optional logging.
package audit

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Event is one audit record.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	User      string    `json:"user,omitempty"`
	Path      string    `json:"path,omitempty"`
	Method    string    `json:"method,omitempty"`
	Details   string    `json:"details,omitempty"`
	Success   bool      `json:"success"`
}

// Recorder writes audit events to a dedicated sink. It is constructed
// at process start and injected into the components that must emit.
type Recorder struct {
	logger zerolog.Logger
}

// NewRecorder creates a Recorder writing to w; a nil w defaults to
// stdout.
func NewRecorder(w io.Writer) *Recorder {
	if w == nil {
		w = os.Stdout
	}
	return &Recorder{logger: zerolog.New(w).With().Timestamp().Logger()}
}

// Record emits one audit event.
func (r *Recorder) Record(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	r.logger.Log().
		Str("action", e.Action).
		Str("user", e.User).
		Str("path", e.Path).
		Str("method", e.Method).
		Str("details", e.Details).
		Bool("success", e.Success).
		Time("audit_time", e.Timestamp).
		Msg("audit")
}
