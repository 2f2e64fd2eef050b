package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hupe1980/assetpipe/internal/logging"
	"github.com/hupe1980/assetpipe/internal/plugin"
)

// State is shared by the stages of one pipeline run.
type State struct {
	outputs []string
	seen    map[string]struct{}
}

// Written records files written by a stage. A file rewritten by a later
// stage is recorded once, at its first position.
func (s *State) Written(paths ...string) {
	if s.seen == nil {
		s.seen = make(map[string]struct{}, len(paths))
	}

	for _, p := range paths {
		if _, ok := s.seen[p]; ok {
			continue
		}

		s.seen[p] = struct{}{}
		s.outputs = append(s.outputs, p)
	}
}

// Outputs returns the files written so far.
func (s *State) Outputs() []string {
	return s.outputs
}

// Stage is one atomic step of a pipeline.
type Stage struct {
	Name string
	Run  func(ctx context.Context, st *State) error
}

// Pipeline runs its stages in order and then notifies. The first failing
// stage aborts the run; later stages do not start.
type Pipeline struct {
	name        Name
	description string

	// label names the task in notifications, e.g. "CSS".
	label   string
	success string

	stages   []Stage
	notifier plugin.Notifier
	title    string
}

// Name implements Task.
func (p *Pipeline) Name() Name { return p.name }

// Description implements Task.
func (p *Pipeline) Description() string { return p.description }

// Stages returns the stage names in run order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name
	}

	return names
}

// Run implements Task.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	ctx, logger := logging.With(ctx, slog.String("task", string(p.name)))

	start := time.Now()
	st := &State{}

	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return p.result(st, start), err
		}

		logger.Debug("running stage", slog.String("stage", stage.Name))

		if err := stage.Run(ctx, st); err != nil {
			p.notify(ctx, plugin.LevelFailure, fmt.Sprintf("%s failed: %v", p.label, err))

			return p.result(st, start), fmt.Errorf("%s: %s: %w", p.name, stage.Name, err)
		}
	}

	p.notify(ctx, plugin.LevelSuccess, p.success)

	res := p.result(st, start)
	logger.Info("task finished",
		slog.Int("outputs", len(res.Outputs)),
		slog.Duration("duration", res.Duration))

	return res, nil
}

func (p *Pipeline) result(st *State, start time.Time) *Result {
	return &Result{Task: p.name, Outputs: st.Outputs(), Duration: time.Since(start)}
}

// notify never fails the task; delivery problems are logged.
func (p *Pipeline) notify(ctx context.Context, level plugin.Level, msg string) {
	if p.notifier == nil {
		return
	}

	n := plugin.Notification{Title: p.title, Message: msg, Level: level}
	if err := p.notifier.Notify(ctx, n); err != nil {
		logging.FromContext(ctx).Warn("notification failed", slog.String("error", err.Error()))
	}
}
