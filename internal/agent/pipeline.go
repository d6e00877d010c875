// This file contains the pipeline controller: the state machine that
// sequences IntentAnalysis -> ContextGathering -> TaskExecution ->
// Validation -> (Refinement -> TaskExecution | Done) | Failed. The
// refinement bound and the budget bound are enforced structurally, not
// by inspection.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"shellm/internal/prompts"
	"shellm/internal/schema"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Stage names one phase of the pipeline.
type Stage string

const (
	StageIntent     Stage = "intent_analysis"
	StageContext    Stage = "context_gathering"
	StageExecution  Stage = "task_execution"
	StageValidation Stage = "validation"
	StageRefinement Stage = "refinement"
)

// StageResult is the output of one pipeline stage. It is owned by the
// controller for the duration of the stage and never retained across
// tasks.
type StageResult struct {
	Tag       string // intent | context-spec | execution-output | validation-verdict | refinement-delta
	Content   string
	NeedsMore bool
}

// Task is one end-to-end invocation of the pipeline for a single
// instruction. The instruction is immutable; the budget is owned by this
// task alone.
type Task struct {
	ID          string
	Instruction string
	Budget      *Budget
	Stage       Stage

	contextParts []string
}

// TaskContext returns the append-only context accumulated so far.
func (t *Task) TaskContext() string {
	return strings.Join(t.contextParts, "\n\n")
}

func (t *Task) appendContext(part string) {
	if strings.TrimSpace(part) != "" {
		t.contextParts = append(t.contextParts, part)
	}
}

// Artifact is the deliverable of a finished task.
type Artifact struct {
	Kind    OutputKind
	Path    string
	Content string
	Command *CommandExecution
}

// Report is the terminal outcome of a task. Every task ends with one;
// the pipeline never leaves a task in an ambiguous state.
type Report struct {
	TaskID   string
	Status   TaskStatus
	Reason   FailReason
	Stage    Stage // stage at which a failure or decline occurred
	Err      error
	Artifact *Artifact
	Stages   []StageResult
	Consumed int
	Ceiling  int
}

// Summary renders the report for the terminal.
func (r *Report) Summary() string {
	var b strings.Builder
	switch r.Status {
	case StatusDone:
		fmt.Fprintf(&b, "done (%d/%d calls)", r.Consumed, r.Ceiling)
	case StatusDeclined:
		fmt.Fprintf(&b, "declined at %s (%d/%d calls)", r.Stage, r.Consumed, r.Ceiling)
	case StatusAborted:
		fmt.Fprintf(&b, "aborted at %s (%d/%d calls)", r.Stage, r.Consumed, r.Ceiling)
	default:
		fmt.Fprintf(&b, "failed at %s: %s (%d/%d calls)", r.Stage, r.Reason, r.Consumed, r.Ceiling)
		if r.Err != nil {
			fmt.Fprintf(&b, ": %v", r.Err)
		}
	}
	return b.String()
}

// ContextSource supplies workspace knowledge to the context-gathering
// stage. It is optional.
type ContextSource interface {
	// Shortlist returns up to n workspace files relevant to the
	// instruction.
	Shortlist(instruction string, n int) []string
	// Language is the workspace's dominant language hint, or "".
	Language() string
}

// ErrTaskActive is returned when /agent is invoked while a task is
// already running; concurrent tasks are rejected, not queued.
var ErrTaskActive = errors.New("an agent task is already active")

// ControllerOptions wires the controller's collaborators.
type ControllerOptions struct {
	Completer   Completer
	FS          FS
	Runner      ProcessRunner
	Confirmer   Confirmer
	Source      ContextSource // optional
	Hooks       Hooks
	CallLimit   int
	CallTimeout time.Duration
}

// Controller is the pipeline controller. One instance serves a session;
// it admits one task at a time.
type Controller struct {
	adapter   *Adapter
	fs        FS
	confirmer Confirmer
	resolver  *FileResolver
	selector  *ExecSelector
	source    ContextSource
	hooks     Hooks
	callLimit int
	tracer    trace.Tracer
	active    atomic.Bool
}

// NewController builds a controller from its collaborators.
func NewController(opts ControllerOptions) *Controller {
	lang := ""
	if opts.Source != nil {
		lang = opts.Source.Language()
	}
	c := &Controller{
		adapter:   NewAdapter(opts.Completer, opts.CallTimeout),
		fs:        opts.FS,
		confirmer: opts.Confirmer,
		resolver:  NewFileResolver(opts.FS, lang),
		selector:  NewExecSelector(opts.Runner),
		source:    opts.Source,
		hooks:     opts.Hooks,
		callLimit: opts.CallLimit,
		tracer:    otel.Tracer("shellm/agent"),
	}
	c.adapter.SetRetryHook(func(stage Stage, attempt int, err error) {
		c.hooks.OnRetryAttempt(context.Background(), nil, stage, attempt, err)
	})
	return c
}

// Run executes the full pipeline for one instruction. It returns
// ErrTaskActive when another task is running; every admitted task yields
// a terminal report.
func (c *Controller) Run(ctx context.Context, instruction string) (*Report, error) {
	if !c.active.CompareAndSwap(false, true) {
		return nil, ErrTaskActive
	}
	defer c.active.Store(false)

	task := &Task{
		ID:          uuid.NewString(),
		Instruction: instruction,
		Budget:      NewBudget(c.callLimit),
	}

	ctx, span := c.tracer.Start(ctx, "agent.task",
		trace.WithAttributes(attribute.String("task.id", task.ID)))
	report := c.runStages(ctx, task)
	report.TaskID = task.ID
	report.Consumed = task.Budget.Consumed()
	report.Ceiling = task.Budget.Ceiling()
	span.SetAttributes(
		attribute.String("task.status", string(report.Status)),
		attribute.Int("task.calls_consumed", report.Consumed),
		attribute.Int("task.calls_ceiling", report.Ceiling))
	span.End()

	c.hooks.OnDone(ctx, task, report)
	return report, nil
}

// runStages walks the state machine. Each stage helper returns a
// terminal report to stop, or nil to continue.
func (c *Controller) runStages(ctx context.Context, task *Task) *Report {
	var stages []StageResult
	record := func(res StageResult) {
		stages = append(stages, res)
		c.hooks.OnStageResult(ctx, task, res)
	}
	terminal := func(r *Report) *Report {
		r.Stages = stages
		return r
	}

	intent, rep := c.stageIntent(ctx, task, record)
	if rep != nil {
		return terminal(rep)
	}

	op, rep := c.stageContext(ctx, task, intent, record)
	if rep != nil {
		return terminal(rep)
	}

	refineNote := ""
	refined := false
	var artifact *Artifact
	for {
		artifact, rep = c.stageExecution(ctx, task, intent, op, refineNote, record)
		if rep != nil {
			return terminal(rep)
		}

		if artifact.Kind == KindIncompleteCode {
			// Never accepted as final content. One refinement attempt,
			// then the task fails as a model failure.
			if refined {
				return terminal(c.fail(task, StageExecution, ReasonModelFailure,
					NewModelError(ModelMalformed, errors.New("artifact still incomplete after refinement"))))
			}
			refined = true
			refineNote = "the previous output was truncated or contained placeholders; produce the complete artifact"
			record(StageResult{Tag: "refinement-delta", Content: refineNote, NeedsMore: true})
			task.appendContext("Refinement note: " + refineNote)
			continue
		}

		verdict, rep := c.stageValidation(ctx, task, artifact, record)
		if rep != nil {
			return terminal(rep)
		}

		if verdict.Verdict == schema.VerdictAcceptable || refined {
			// The refinement loop is bounded to one cycle; an unresolved
			// verdict after that ends the task with the last artifact.
			break
		}

		refined = true
		refineNote = verdict.Reason
		task.Stage = StageRefinement
		record(StageResult{Tag: "refinement-delta", Content: refineNote, NeedsMore: true})
		task.appendContext("Refinement note: " + refineNote)
	}

	return terminal(&Report{Status: StatusDone, Stage: task.Stage, Artifact: artifact})
}

func (c *Controller) stageIntent(ctx context.Context, task *Task, record func(StageResult)) (*schema.Intent, *Report) {
	task.Stage = StageIntent
	if rep := c.admitStage(ctx, task); rep != nil {
		return nil, rep
	}

	// A reply that fails the schema is a malformed model response; the
	// adapter retries it once with the same prompt before the stage
	// fails.
	var intent *schema.Intent
	_, err := c.invokeChecked(ctx, task, prompts.Intent(task.Instruction), func(text string) error {
		parsed, perr := schema.ParseIntent(text)
		if perr != nil {
			return perr
		}
		intent = parsed
		return nil
	})
	if err != nil {
		return nil, c.fail(task, StageIntent, ReasonIntentUnclear, err)
	}

	record(StageResult{Tag: "intent", Content: intent.TaskType, NeedsMore: true})
	return intent, nil
}

// stageContext resolves the file operation and, when the intent calls
// for it, spends one model call identifying files to read. A task whose
// intent needs no context consumes zero calls here.
func (c *Controller) stageContext(ctx context.Context, task *Task, intent *schema.Intent, record func(StageResult)) (*FileOperation, *Report) {
	task.Stage = StageContext
	if rep := c.checkAbort(ctx, task); rep != nil {
		return nil, rep
	}
	c.hooks.OnStageStart(ctx, task, StageContext)

	// Resolution happens before any generation so an edit carries its
	// prior snapshot into the model call.
	probe := task.Instruction
	if intent.Target != "" {
		probe += " " + intent.Target
	}
	op, _ := c.resolver.Resolve(probe)
	if op != nil && op.Kind == OpEdit {
		task.appendContext(op.PriorContext())
	}

	if !intent.NeedsContext {
		record(StageResult{Tag: "context-spec", Content: "no context required", NeedsMore: true})
		return op, nil
	}

	if err := task.Budget.Reserve(); err != nil {
		return nil, c.fail(task, StageContext, ReasonBudgetExceeded, err)
	}

	var candidates []string
	if c.source != nil {
		candidates = c.source.Shortlist(task.Instruction, 10)
	}

	var spec *schema.ContextSpec
	_, err := c.invokeChecked(ctx, task, prompts.Context(task.Instruction, candidates), func(text string) error {
		parsed, perr := schema.ParseContextSpec(text)
		if perr != nil {
			return perr
		}
		spec = parsed
		return nil
	})
	if err != nil {
		return nil, c.fail(task, StageContext, ReasonModelFailure, err)
	}

	for _, path := range spec.Files {
		if op != nil && path == op.Path {
			continue // snapshot already captured above
		}
		data, err := c.fs.ReadFile(path)
		if err != nil {
			return nil, c.fail(task, StageContext, ReasonContextMissing,
				fmt.Errorf("required file %s: %w", path, err))
		}
		task.appendContext("Content of " + path + ":\n```\n" + clip(string(data), 32768) + "\n```")
	}

	record(StageResult{Tag: "context-spec", Content: strings.Join(spec.Files, ", "), NeedsMore: true})
	return op, nil
}

func (c *Controller) stageExecution(ctx context.Context, task *Task, intent *schema.Intent, op *FileOperation, refineNote string, record func(StageResult)) (*Artifact, *Report) {
	task.Stage = StageExecution
	if rep := c.admitStage(ctx, task); rep != nil {
		return nil, rep
	}

	params := prompts.ExecutionParams{
		Instruction: task.Instruction,
		TaskType:    intent.TaskType,
		RefineNote:  refineNote,
	}
	if op != nil {
		params.Target = op.Path
		params.Language = op.Language
		params.Op = string(op.Kind)
	}

	raw, err := c.invoke(ctx, task, prompts.Execution(params))
	if err != nil {
		return nil, c.fail(task, StageExecution, ReasonModelFailure, err)
	}

	langHint := ""
	if op != nil {
		langHint = op.Language
	} else if c.source != nil {
		langHint = c.source.Language()
	}
	output := Classify(raw, langHint)

	artifact := &Artifact{Kind: output.Kind, Content: output.Content}

	switch output.Kind {
	case KindCompleteFile:
		if op == nil {
			// No resolvable target: deliver the content as text rather
			// than guessing a path.
			artifact.Kind = KindConversational
			break
		}
		if rep := c.commitFile(ctx, task, op, output); rep != nil {
			return nil, rep
		}
		artifact.Path = op.Path

	case KindShellCommand:
		ce := c.selector.Select(output.Content, task.Instruction)
		if !c.confirmer.Confirm(fmt.Sprintf("Run command (%s mode)?\n  %s", ce.Mode, ce.Command)) {
			return nil, c.decline(task)
		}
		c.hooks.OnSideEffect(ctx, task, "run: "+ce.Command)
		execErr := c.selector.Execute(ctx, &ce)
		artifact.Command = &ce
		if execErr != nil {
			if intent.TaskType == "execute" {
				// The command was the task's sole deliverable.
				return nil, c.fail(task, StageExecution, ReasonExecutionFailed, execErr)
			}
			task.appendContext("Command failed: " + execErr.Error())
		}
	}

	record(StageResult{Tag: "execution-output", Content: summarizeArtifact(artifact), NeedsMore: artifact.Kind != KindIncompleteCode})
	return artifact, nil
}

// commitFile performs the confirmed write. Declines are terminal
// non-errors; nothing touches disk.
func (c *Controller) commitFile(ctx context.Context, task *Task, op *FileOperation, output Output) *Report {
	verb := string(op.Kind)
	if op.Kind == OpCreate && op.Exists {
		verb = "overwrite existing"
	}
	if !c.confirmer.Confirm(fmt.Sprintf("Write file (%s)?\n  %s", verb, op.Path)) {
		return c.decline(task)
	}

	c.hooks.OnSideEffect(ctx, task, verb+": "+op.Path)
	if err := c.fs.WriteFile(op.Path, []byte(output.Content)); err != nil {
		return c.fail(task, StageExecution, ReasonWriteFailed, err)
	}
	return nil
}

func (c *Controller) stageValidation(ctx context.Context, task *Task, artifact *Artifact, record func(StageResult)) (*schema.Verdict, *Report) {
	task.Stage = StageValidation
	if rep := c.admitStage(ctx, task); rep != nil {
		return nil, rep
	}

	raw, err := c.invoke(ctx, task, prompts.Validation(task.Instruction, summarizeArtifact(artifact)))
	if err != nil {
		return nil, c.fail(task, StageValidation, ReasonModelFailure, err)
	}

	verdict, err := schema.ParseVerdict(raw)
	if err != nil {
		// An unreadable verdict triggers at most one bounded refinement
		// rather than failing a task whose artifact may be fine.
		verdict = &schema.Verdict{Verdict: schema.VerdictNeedsRefinement, Reason: "validation verdict was unclear"}
	}

	record(StageResult{
		Tag:       "validation-verdict",
		Content:   verdict.Verdict + ": " + verdict.Reason,
		NeedsMore: verdict.Verdict == schema.VerdictNeedsRefinement,
	})
	return verdict, nil
}

// RunOnce is the simplified single-pass flow used for ordinary requests
// outside /agent: one model call, one classification, one optional
// confirmed side effect.
func (c *Controller) RunOnce(ctx context.Context, input string) (*Report, error) {
	if !c.active.CompareAndSwap(false, true) {
		return nil, ErrTaskActive
	}
	defer c.active.Store(false)

	task := &Task{
		ID:          uuid.NewString(),
		Instruction: input,
		Budget:      NewBudget(c.callLimit),
	}

	report := c.runOnce(ctx, task)
	report.TaskID = task.ID
	report.Consumed = task.Budget.Consumed()
	report.Ceiling = task.Budget.Ceiling()
	c.hooks.OnDone(ctx, task, report)
	return report, nil
}

func (c *Controller) runOnce(ctx context.Context, task *Task) *Report {
	task.Stage = StageExecution
	if rep := c.admitStage(ctx, task); rep != nil {
		return rep
	}

	op, _ := c.resolver.Resolve(task.Instruction)
	if op != nil && op.Kind == OpEdit {
		task.appendContext(op.PriorContext())
	}

	raw, err := c.invoke(ctx, task, prompts.Chat(task.Instruction))
	if err != nil {
		return c.fail(task, StageExecution, ReasonModelFailure, err)
	}

	langHint := ""
	if op != nil {
		langHint = op.Language
	}
	output := Classify(raw, langHint)
	artifact := &Artifact{Kind: output.Kind, Content: output.Content}

	switch output.Kind {
	case KindCompleteFile:
		if op == nil {
			artifact.Kind = KindConversational
			break
		}
		if rep := c.commitFile(ctx, task, op, output); rep != nil {
			return rep
		}
		artifact.Path = op.Path
	case KindShellCommand:
		ce := c.selector.Select(output.Content, task.Instruction)
		if !c.confirmer.Confirm(fmt.Sprintf("Run command (%s mode)?\n  %s", ce.Mode, ce.Command)) {
			return c.decline(task)
		}
		c.hooks.OnSideEffect(ctx, task, "run: "+ce.Command)
		if execErr := c.selector.Execute(ctx, &ce); execErr != nil {
			artifact.Command = &ce
			return c.fail(task, StageExecution, ReasonExecutionFailed, execErr)
		}
		artifact.Command = &ce
	case KindIncompleteCode:
		// Single-pass mode has no refinement; the raw text is shown but
		// never written.
		artifact.Kind = KindConversational
		artifact.Content = raw
	}

	return &Report{Status: StatusDone, Stage: StageExecution, Artifact: artifact}
}

// admitStage runs the per-stage gate: abort check, stage hook, budget
// reservation.
func (c *Controller) admitStage(ctx context.Context, task *Task) *Report {
	if rep := c.checkAbort(ctx, task); rep != nil {
		return rep
	}
	c.hooks.OnStageStart(ctx, task, task.Stage)
	if err := task.Budget.Reserve(); err != nil {
		return c.fail(task, task.Stage, ReasonBudgetExceeded, err)
	}
	return nil
}

// checkAbort honors operator cancellation between stages. Committed
// writes are not undone.
func (c *Controller) checkAbort(ctx context.Context, task *Task) *Report {
	select {
	case <-ctx.Done():
		return &Report{Status: StatusAborted, Stage: task.Stage}
	default:
		return nil
	}
}

func (c *Controller) invoke(ctx context.Context, task *Task, prompt string) (string, error) {
	return c.invokeChecked(ctx, task, prompt, nil)
}

func (c *Controller) invokeChecked(ctx context.Context, task *Task, prompt string, check func(string) error) (string, error) {
	c.hooks.OnModelCall(ctx, task, task.Stage)
	sctx, span := c.tracer.Start(ctx, "agent.stage."+string(task.Stage))
	defer span.End()
	return c.adapter.InvokeChecked(sctx, task.Stage, prompt, task.TaskContext(), check)
}

func (c *Controller) fail(task *Task, stage Stage, reason FailReason, err error) *Report {
	// A cancellation that lands mid-call is still the user stopping the
	// task, not a model failure.
	if errors.Is(err, context.Canceled) {
		return &Report{Status: StatusAborted, Stage: stage}
	}
	return &Report{Status: StatusFailed, Reason: reason, Stage: stage, Err: err}
}

func (c *Controller) decline(task *Task) *Report {
	return &Report{Status: StatusDeclined, Stage: task.Stage}
}

func summarizeArtifact(a *Artifact) string {
	switch a.Kind {
	case KindCompleteFile:
		return fmt.Sprintf("file %s:\n```\n%s\n```", a.Path, clip(a.Content, 4000))
	case KindShellCommand:
		if a.Command != nil {
			return fmt.Sprintf("command `%s` exited %d\nstdout:\n%s\nstderr:\n%s",
				a.Command.Command, a.Command.ExitCode, clip(a.Command.Stdout, 2000), clip(a.Command.Stderr, 1000))
		}
		return "command " + a.Content
	default:
		return clip(a.Content, 4000)
	}
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n[truncated]"
}
