package agent

import (
	"context"

	"go.uber.org/zap"
)

// Hook observes pipeline execution. All methods are synchronous and must
// not block for long.
type Hook interface {
	OnStageStart(ctx context.Context, task *Task, stage Stage)
	OnStageResult(ctx context.Context, task *Task, res StageResult)
	OnModelCall(ctx context.Context, task *Task, stage Stage)
	OnRetryAttempt(ctx context.Context, task *Task, stage Stage, attempt int, err error)
	OnSideEffect(ctx context.Context, task *Task, description string)
	OnDone(ctx context.Context, task *Task, report *Report)
}

// Hooks fans out to multiple observers.
type Hooks []Hook

func (hs Hooks) OnStageStart(ctx context.Context, task *Task, stage Stage) {
	for _, h := range hs {
		h.OnStageStart(ctx, task, stage)
	}
}

func (hs Hooks) OnStageResult(ctx context.Context, task *Task, res StageResult) {
	for _, h := range hs {
		h.OnStageResult(ctx, task, res)
	}
}

func (hs Hooks) OnModelCall(ctx context.Context, task *Task, stage Stage) {
	for _, h := range hs {
		h.OnModelCall(ctx, task, stage)
	}
}

func (hs Hooks) OnRetryAttempt(ctx context.Context, task *Task, stage Stage, attempt int, err error) {
	for _, h := range hs {
		h.OnRetryAttempt(ctx, task, stage, attempt, err)
	}
}

func (hs Hooks) OnSideEffect(ctx context.Context, task *Task, description string) {
	for _, h := range hs {
		h.OnSideEffect(ctx, task, description)
	}
}

func (hs Hooks) OnDone(ctx context.Context, task *Task, report *Report) {
	for _, h := range hs {
		h.OnDone(ctx, task, report)
	}
}

// NopHook lets you implement only the hooks you need.
type NopHook struct{}

func (NopHook) OnStageStart(context.Context, *Task, Stage)               {}
func (NopHook) OnStageResult(context.Context, *Task, StageResult)        {}
func (NopHook) OnModelCall(context.Context, *Task, Stage)                {}
func (NopHook) OnRetryAttempt(context.Context, *Task, Stage, int, error) {}
func (NopHook) OnSideEffect(context.Context, *Task, string)              {}
func (NopHook) OnDone(context.Context, *Task, *Report)                   {}

// ZapHook logs pipeline progress through a zap logger.
type ZapHook struct {
	Log *zap.Logger
}

func (h ZapHook) OnStageStart(_ context.Context, task *Task, stage Stage) {
	h.Log.Debug("stage start",
		zap.String("task", task.ID),
		zap.String("stage", string(stage)),
		zap.Int("consumed", task.Budget.Consumed()),
		zap.Int("ceiling", task.Budget.Ceiling()))
}

func (h ZapHook) OnStageResult(_ context.Context, task *Task, res StageResult) {
	h.Log.Debug("stage result",
		zap.String("task", task.ID),
		zap.String("tag", res.Tag),
		zap.Bool("needs_more", res.NeedsMore))
}

func (h ZapHook) OnModelCall(_ context.Context, task *Task, stage Stage) {
	h.Log.Debug("model call",
		zap.String("task", task.ID),
		zap.String("stage", string(stage)))
}

func (h ZapHook) OnRetryAttempt(_ context.Context, task *Task, stage Stage, attempt int, err error) {
	// The retry hook fires from inside the adapter; the task may not be
	// attached.
	fields := []zap.Field{
		zap.String("stage", string(stage)),
		zap.Int("attempt", attempt),
		zap.Error(err),
	}
	if task != nil {
		fields = append(fields, zap.String("task", task.ID))
	}
	h.Log.Warn("model call retry", fields...)
}

func (h ZapHook) OnSideEffect(_ context.Context, task *Task, description string) {
	h.Log.Info("side effect",
		zap.String("task", task.ID),
		zap.String("effect", description))
}

func (h ZapHook) OnDone(_ context.Context, task *Task, report *Report) {
	h.Log.Info("task finished",
		zap.String("task", task.ID),
		zap.String("status", string(report.Status)),
		zap.String("reason", string(report.Reason)),
		zap.Int("consumed", report.Consumed),
		zap.Int("ceiling", report.Ceiling))
}
