// Package diag is the ambient logging and progress-reporting surface for
// the import pipeline.
//
// The legacy tool this was ported from used an ad-hoc bitmask of log
// classes (logSHOUT, logTOPOLOGY, logANCESTRY, ...) gating a single
// process-wide writer. The class list is preserved here — it is still the
// right granularity for "turn on just the ancestry trace while debugging a
// tag" — but the writer is a logrus.Logger instead of a raw io.Writer, so
// callers get leveled, field-structured output for free.
package diag

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Class is one bit of the log-class mask.
type Class uint

const (
	ClassShout    Class = 1 << iota // errors and urgent messages
	ClassWarn                       // exceptional condition, probably not a bug
	ClassTopology                   // commit-aggregation and filter logic
	ClassAncestry                   // branch-stream and ancestry computation
	ClassTagfix                     // label resolver reorder/split decisions
	ClassMerge                      // merge resolver decisions
	ClassPlayback                   // playback ordering
	ClassBaton                      // progress-meter messages
)

var classNames = map[string]Class{
	"shout":    ClassShout,
	"warn":     ClassWarn,
	"topology": ClassTopology,
	"ancestry": ClassAncestry,
	"tagfix":   ClassTagfix,
	"merge":    ClassMerge,
	"playback": ClassPlayback,
	"baton":    ClassBaton,
}

// ClassByName resolves a CLI-supplied log-class name, reporting ok=false
// for an unrecognized name.
func ClassByName(name string) (Class, bool) {
	c, ok := classNames[name]
	return c, ok
}

// Logger gates logrus output by Class, mirroring the legacy logmask/logit
// pair but with structured fields instead of a formatted string.
type Logger struct {
	mask   Class
	logrus *logrus.Logger
}

// New builds a Logger writing to stderr at info level; enabled selects
// which Classes are active.
func New(enabled Class) *Logger {
	l := logrus.New()
	l.Out = os.Stderr
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &Logger{mask: enabled, logrus: l}
}

// Enable reports whether a Class is currently active.
func (d *Logger) Enable(c Class) bool {
	return d.mask&c != 0
}

// SetMask replaces the active class mask.
func (d *Logger) SetMask(mask Class) {
	d.mask = mask
}

// Logf emits msg under class c if enabled.
func (d *Logger) Logf(c Class, msg string, args ...interface{}) {
	if !d.Enable(c) {
		return
	}
	entry := d.logrus.WithField("class", classString(c))
	if c&(ClassShout|ClassWarn) != 0 {
		entry.Warnf(msg, args...)
	} else {
		entry.Infof(msg, args...)
	}
}

// Shout always logs regardless of mask — for fatal or user-facing errors.
func (d *Logger) Shout(msg string, args ...interface{}) {
	d.logrus.Errorf(msg, args...)
}

func classString(c Class) string {
	for name, bit := range classNames {
		if bit == c {
			return name
		}
	}
	return "mixed"
}
