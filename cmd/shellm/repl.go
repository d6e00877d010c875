package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"shellm/internal/agent"
	"shellm/internal/review"
	"shellm/internal/session"

	"go.uber.org/zap"
)

type repl struct {
	controller *agent.Controller
	reviewer   *review.Reviewer
	store      *session.Store
	log        *zap.Logger
	model      string
	workDir    string
}

func (r *repl) loop(ctx context.Context) error {
	fmt.Printf("shellm %s — model %s — %s\n", version, r.model, r.workDir)
	fmt.Println(`type a request, or /help for commands`)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			fmt.Println()
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/exit" || line == "/quit":
			return nil
		case line == "/help":
			r.printHelp()
		case line == "/history":
			r.printHistory()
		case line == "/review":
			r.runReview(ctx)
		case strings.HasPrefix(line, "/agent"):
			instruction := strings.TrimSpace(strings.TrimPrefix(line, "/agent"))
			if instruction == "" {
				fmt.Println("usage: /agent <instruction>")
				continue
			}
			r.runAgent(ctx, instruction)
		case strings.HasPrefix(line, "/"):
			fmt.Printf("unknown command %q, try /help\n", strings.Fields(line)[0])
		default:
			r.runOnce(ctx, line)
		}
	}
}

func (r *repl) printHelp() {
	fmt.Println(`commands:
  /agent <instruction>  run the full pipeline: intent, context, execution, validation
  /review               review uncommitted changes in the workspace
  /history              show this session's requests
  /help                 this message
  /exit                 quit

anything else is answered in a single pass`)
}

func (r *repl) printHistory() {
	exchanges, err := r.store.List(50)
	if err != nil {
		fmt.Printf("history unavailable: %v\n", err)
		return
	}
	if len(exchanges) == 0 {
		fmt.Println("no history yet")
		return
	}
	for i := len(exchanges) - 1; i >= 0; i-- {
		e := exchanges[i]
		fmt.Printf("%s  [%s] %s — %s\n",
			e.CreatedAt.Local().Format("15:04:05"), e.Kind, e.Instruction, e.Outcome)
	}
}

// taskContext cancels the task on Ctrl-C; the pipeline honors the
// cancellation between stages.
func taskContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt)
}

func (r *repl) runAgent(ctx context.Context, instruction string) {
	tctx, cancel := taskContext(ctx)
	defer cancel()

	report, err := r.controller.Run(tctx, instruction)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}

	r.render(report)
	r.record(session.KindAgent, instruction, report.Summary())
}

func (r *repl) runOnce(ctx context.Context, input string) {
	tctx, cancel := taskContext(ctx)
	defer cancel()

	report, err := r.controller.RunOnce(tctx, input)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}

	r.render(report)
	r.record(session.KindChat, input, report.Summary())
}

func (r *repl) runReview(ctx context.Context) {
	tctx, cancel := taskContext(ctx)
	defer cancel()

	critique, err := r.reviewer.Review(tctx)
	if err != nil {
		if errors.Is(err, review.ErrNoChanges) {
			fmt.Println("working tree is clean")
		} else {
			fmt.Printf("review failed: %v\n", err)
		}
		return
	}

	fmt.Println(critique)
	r.record(session.KindReview, "/review", "reviewed")
}

func (r *repl) render(report *agent.Report) {
	if a := report.Artifact; a != nil && report.Status == agent.StatusDone {
		switch a.Kind {
		case agent.KindCompleteFile:
			fmt.Printf("wrote %s\n", a.Path)
		case agent.KindShellCommand:
			if a.Command != nil && a.Command.Mode == agent.ModeCaptured {
				if out := strings.TrimSpace(a.Command.Stdout); out != "" {
					fmt.Println(out)
				}
				if a.Command.ExitCode != 0 {
					fmt.Printf("exit %d\n", a.Command.ExitCode)
					if errOut := strings.TrimSpace(a.Command.Stderr); errOut != "" {
						fmt.Println(errOut)
					}
				}
			}
		default:
			fmt.Println(strings.TrimSpace(a.Content))
		}
	}

	fmt.Printf("[%s]\n", report.Summary())
}

func (r *repl) record(kind session.Kind, instruction, outcome string) {
	if err := r.store.Add(kind, instruction, outcome); err != nil {
		r.log.Debug("history write failed", zap.Error(err))
	}
}
