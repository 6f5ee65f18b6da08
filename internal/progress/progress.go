// Package progress reports pipeline-stage progress to the user (spec
// §4.17), mirroring the legacy tool's baton/progress-meter concept but as
// a small interface so a batch run can swap in a silent implementation.
package progress

import (
	"github.com/esr-cvsgit/cvsgitimport/internal/diag"
)

// Reporter receives stage-level progress updates.
type Reporter interface {
	// StartStage announces a new pipeline stage beginning, with an
	// estimated total unit count (0 if unknown).
	StartStage(name string, total int)
	// Step advances the current stage by one unit, optionally with a
	// short detail string.
	Step(detail string)
	// EndStage closes out the current stage.
	EndStage()
}

// LogReporter reports progress through a diag.Logger under ClassBaton,
// logging every nth step to avoid flooding the output on large repositories.
type LogReporter struct {
	log       *diag.Logger
	every     int
	stage     string
	total     int
	completed int
}

// NewLogReporter builds a LogReporter logging one line per every steps
// (minimum 1).
func NewLogReporter(log *diag.Logger, every int) *LogReporter {
	if every < 1 {
		every = 1
	}
	return &LogReporter{log: log, every: every}
}

func (r *LogReporter) StartStage(name string, total int) {
	r.stage, r.total, r.completed = name, total, 0
	r.log.Logf(diag.ClassBaton, "%s: starting (%d units)", name, total)
}

func (r *LogReporter) Step(detail string) {
	r.completed++
	if r.completed%r.every != 0 {
		return
	}
	if r.total > 0 {
		r.log.Logf(diag.ClassBaton, "%s: %d/%d %s", r.stage, r.completed, r.total, detail)
	} else {
		r.log.Logf(diag.ClassBaton, "%s: %d %s", r.stage, r.completed, detail)
	}
}

func (r *LogReporter) EndStage() {
	r.log.Logf(diag.ClassBaton, "%s: done (%d units)", r.stage, r.completed)
}

// NoOp discards every progress update; used for non-interactive or
// test runs that don't want baton output.
type NoOp struct{}

func (NoOp) StartStage(string, int) {}
func (NoOp) Step(string)            {}
func (NoOp) EndStage()              {}

var _ Reporter = (*LogReporter)(nil)
var _ Reporter = NoOp{}
