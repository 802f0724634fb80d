// Package progress reports how far a run has come. The orchestrator reports
// fixed milestones; sinks forward them to the log and optionally to Kafka.
package progress

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
)

// Milestones are the percentages a run passes through, one per phase.
var Milestones = []int{25, 33, 50, 66, 75, 100}

type Event struct {
	RunID     string    `json:"run_id"`
	Direction string    `json:"direction"`
	Percent   int       `json:"percent"`
	Message   string    `json:"message"`
	At        time.Time `json:"at"`
}

type Sink interface {
	Report(ctx context.Context, event Event) error
	Close() error
}

// Tracker reports the milestones of one run. Sink failures are logged and
// never fail the run.
type Tracker struct {
	sink      Sink
	runID     string
	direction string
	logger    ectologger.Logger
	next      int
	last      int
	closed    bool
}

func NewTracker(sink Sink, runID, direction string, logger ectologger.Logger) *Tracker {
	return &Tracker{sink: sink, runID: runID, direction: direction, logger: logger}
}

// Next reports the next milestone.
func (t *Tracker) Next(ctx context.Context, message string) {
	if t.next >= len(Milestones) {
		return
	}
	percent := Milestones[t.next]
	t.next++
	t.Step(ctx, percent, message)
}

// Step reports percent. Milestones lower than the last one are dropped.
func (t *Tracker) Step(ctx context.Context, percent int, message string) {
	if t.closed || percent < t.last {
		return
	}
	t.last = percent

	err := t.sink.Report(ctx, Event{
		RunID:     t.runID,
		Direction: t.direction,
		Percent:   percent,
		Message:   message,
		At:        time.Now().UTC(),
	})
	if err != nil {
		t.logger.WithContext(ctx).WithError(err).Warnf("failed to report progress %d%%", percent)
	}
}

// Percent returns the last reported milestone.
func (t *Tracker) Percent() int {
	return t.last
}

// Close closes the sink once.
func (t *Tracker) Close() {
	if t.closed {
		return
	}
	t.closed = true
	if err := t.sink.Close(); err != nil {
		t.logger.WithError(err).Warn("failed to close progress sink")
	}
}

// LogSink writes events to the run logger.
type LogSink struct {
	logger ectologger.Logger
}

func NewLogSink(logger ectologger.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Report(ctx context.Context, event Event) error {
	s.logger.WithContext(ctx).WithFields(map[string]any{
		"run_id":    event.RunID,
		"direction": event.Direction,
		"percent":   event.Percent,
	}).Info(event.Message)
	return nil
}

func (s *LogSink) Close() error {
	return nil
}

// Multi fans events out to every sink and returns the first error.
type Multi []Sink

func (m Multi) Report(ctx context.Context, event Event) error {
	var first error
	for _, s := range m {
		if err := s.Report(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) Close() error {
	var first error
	for _, s := range m {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Recorder keeps events in memory.
type Recorder struct {
	Events []Event
	Closed bool
}

func (r *Recorder) Report(_ context.Context, event Event) error {
	r.Events = append(r.Events, event)
	return nil
}

func (r *Recorder) Close() error {
	r.Closed = true
	return nil
}

// Percents returns the reported milestones in order.
func (r *Recorder) Percents() []int {
	out := make([]int, 0, len(r.Events))
	for _, e := range r.Events {
		out = append(out, e.Percent)
	}
	return out
}

// NoClose wraps a sink shared by several runs so that closing one run's
// tracker leaves it open.
func NoClose(s Sink) Sink {
	return keepOpen{s}
}

type keepOpen struct {
	Sink
}

func (keepOpen) Close() error {
	return nil
}
