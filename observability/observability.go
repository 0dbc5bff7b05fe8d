// Package observability carries structured logging and the diagnostics
// channel for non-fatal extraction and assembly events. Row extraction,
// phrase location and pack assembly all degrade gracefully; the events
// they swallow are reported here instead of interrupting the run.
package observability

import (
	"fmt"
	"io"
	"sync"
)

type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
}

type Field interface {
	Key() string
	Value() interface{}
}

type stringField struct{ key, val string }

func (f stringField) Key() string        { return f.key }
func (f stringField) Value() interface{} { return f.val }

type intField struct {
	key string
	val int
}

func (f intField) Key() string        { return f.key }
func (f intField) Value() interface{} { return f.val }

type errorField struct {
	key string
	err error
}

func (f errorField) Key() string        { return f.key }
func (f errorField) Value() interface{} { return f.err }

func String(key, value string) Field    { return stringField{key, value} }
func Int(key string, value int) Field   { return intField{key, value} }
func Error(key string, err error) Field { return errorField{key, err} }

type NopLogger struct{}

func (NopLogger) Debug(string, ...Field) {}
func (NopLogger) Info(string, ...Field)  {}
func (NopLogger) Warn(string, ...Field)  {}
func (NopLogger) Error(string, ...Field) {}
func (NopLogger) With(...Field) Logger   { return NopLogger{} }

// writerLogger is a minimal line-oriented Logger for CLI use.
type writerLogger struct {
	w      io.Writer
	debug  bool
	prefix []Field
}

// NewWriterLogger returns a Logger that writes one line per event to w.
// Debug events are emitted only when debug is set.
func NewWriterLogger(w io.Writer, debug bool) Logger {
	return &writerLogger{w: w, debug: debug}
}

func (l *writerLogger) log(level, msg string, fields []Field) {
	fmt.Fprintf(l.w, "%-5s %s", level, msg)
	for _, f := range append(append([]Field(nil), l.prefix...), fields...) {
		fmt.Fprintf(l.w, " %s=%v", f.Key(), f.Value())
	}
	fmt.Fprintln(l.w)
}

func (l *writerLogger) Debug(msg string, fields ...Field) {
	if l.debug {
		l.log("DEBUG", msg, fields)
	}
}
func (l *writerLogger) Info(msg string, fields ...Field)  { l.log("INFO", msg, fields) }
func (l *writerLogger) Warn(msg string, fields ...Field)  { l.log("WARN", msg, fields) }
func (l *writerLogger) Error(msg string, fields ...Field) { l.log("ERROR", msg, fields) }

func (l *writerLogger) With(fields ...Field) Logger {
	return &writerLogger{w: l.w, debug: l.debug, prefix: append(append([]Field(nil), l.prefix...), fields...)}
}

// Kind classifies a non-fatal diagnostic event.
type Kind string

const (
	// KindCorrectionDropped marks a report row that could not become a
	// correction (no usable context, unparseable id, non-gating status).
	KindCorrectionDropped Kind = "correction_dropped"
	// KindPhraseNotLocated marks a correction whose context phrase was not
	// found on its page or its neighbors; the correction is still listed.
	KindPhraseNotLocated Kind = "phrase_not_located"
	// KindPageOutOfRange marks a correction whose resolved page does not
	// exist in the script document.
	KindPageOutOfRange Kind = "page_out_of_range"
)

// Diagnostic is a single degraded-but-not-fatal event.
type Diagnostic struct {
	Kind    Kind
	Message string
	Fields  []Field
}

// Collector accumulates diagnostics and mirrors them to a Logger. A nil
// *Collector is safe to report to and records nothing.
type Collector struct {
	mu     sync.Mutex
	Logger Logger
	events []Diagnostic
}

// Report records d and logs it at warn level.
func (c *Collector) Report(d Diagnostic) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.events = append(c.events, d)
	log := c.Logger
	c.mu.Unlock()
	if log != nil {
		log.Warn(string(d.Kind)+": "+d.Message, d.Fields...)
	}
}

// Events returns a copy of everything reported so far.
func (c *Collector) Events() []Diagnostic {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Diagnostic(nil), c.events...)
}

// Count returns the number of events of the given kind.
func (c *Collector) Count(kind Kind) int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, d := range c.events {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

// Standard metric names emitted by the pipeline.
const (
	MetricRowsScanned      = "qcpack.rows.scanned"
	MetricCorrections      = "qcpack.corrections.count"
	MetricPagesIncluded    = "qcpack.pages.included"
	MetricLocateStrictHits = "qcpack.locate.strict.hits"
	MetricLocateFuzzyHits  = "qcpack.locate.fuzzy.hits"
	MetricLocateMisses     = "qcpack.locate.misses"
)
