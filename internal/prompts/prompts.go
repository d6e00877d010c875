// Package prompts holds the stage prompt templates. Each template
// instructs the model on the exact reply shape the pipeline expects.
package prompts

import (
	"strings"
	"text/template"
)

// Prompt is a named, rendered prompt.
type Prompt struct {
	Name    string
	Content string
}

var registry = template.Must(template.New("prompts").Parse(`
{{define "intent"}}You are the intent analyzer of a terminal assistant.
Classify the user's request and reply with ONLY a JSON object, no prose:
{"task_type": "<create|edit|execute|explain|fix|refactor>", "needs_context": <true|false>, "target": "<filename or empty>"}

needs_context is true when the task requires reading existing files or
project information before acting.

Request: {{.Instruction}}{{end}}

{{define "context"}}You are the context gatherer of a terminal assistant.
Decide which files are needed to carry out the request. Reply with ONLY a
JSON object, no prose:
{"files": ["<path>", ...], "notes": "<short note or empty>"}

List only files that must be read. An empty list is a valid answer.
{{if .Candidates}}
Files present in the workspace that look relevant:
{{range .Candidates}}- {{.}}
{{end}}{{end}}
Request: {{.Instruction}}{{end}}

{{define "execution"}}You are a terminal assistant running against a local model.
{{if eq .TaskType "execute"}}Produce the single shell command that accomplishes the request.
Reply with the command alone on one line, no explanation, no code fence.
{{else if .Target}}Produce the COMPLETE content of {{.Target}}{{if .Language}} ({{.Language}}){{end}}.
Reply with exactly one fenced code block containing the ENTIRE file.
Never elide code with placeholders like "..." or "rest of the code".
{{if eq .Op "edit"}}The current file content is provided in the context; output the full updated file, not a diff.{{end}}
{{else}}Answer the request. If the answer is a file, reply with exactly one
fenced code block containing the entire file. If it is a command, reply
with the command alone on one line. Otherwise answer in plain text.
{{end}}{{if .RefineNote}}
A previous attempt was rejected: {{.RefineNote}}
Address this in your output.{{end}}
Request: {{.Instruction}}{{end}}

{{define "validation"}}You are the validator of a terminal assistant.
Judge whether the produced artifact satisfies the request. Reply with
ONLY a JSON object, no prose:
{"verdict": "<acceptable|needs_refinement>", "reason": "<why, when refinement is needed>"}

Request: {{.Instruction}}

Artifact:
{{.Artifact}}{{end}}

{{define "review"}}You are reviewing uncommitted changes in a repository.
Point out bugs, risks and improvements, briefly and concretely.

Diff:
{{.Diff}}{{end}}

{{define "chat"}}You are a concise terminal assistant. If the request asks
for a file, reply with exactly one fenced code block containing the
complete file. If it asks for a command, reply with the command alone on
one line. Otherwise answer in plain text.

Request: {{.Instruction}}{{end}}
`))

func render(name string, data any) string {
	var b strings.Builder
	if err := registry.ExecuteTemplate(&b, name, data); err != nil {
		// Templates are compile-time constants; an execution error is a
		// programming bug.
		panic(err)
	}
	return strings.TrimSpace(b.String())
}

// Intent builds the intent-analysis prompt.
func Intent(instruction string) string {
	return render("intent", struct{ Instruction string }{instruction})
}

// Context builds the context-gathering prompt. candidates are workspace
// files shortlisted for relevance.
func Context(instruction string, candidates []string) string {
	return render("context", struct {
		Instruction string
		Candidates  []string
	}{instruction, candidates})
}

// ExecutionParams parameterizes the task-execution prompt.
type ExecutionParams struct {
	Instruction string
	TaskType    string
	Target      string
	Language    string
	Op          string
	RefineNote  string
}

// Execution builds the task-execution prompt.
func Execution(p ExecutionParams) string {
	return render("execution", p)
}

// Validation builds the validation prompt over a short artifact summary.
func Validation(instruction, artifact string) string {
	return render("validation", struct {
		Instruction string
		Artifact    string
	}{instruction, artifact})
}

// Review builds the diff-review prompt.
func Review(diff string) string {
	return render("review", struct{ Diff string }{diff})
}

// Chat builds the single-pass prompt for ordinary requests.
func Chat(instruction string) string {
	return render("chat", struct{ Instruction string }{instruction})
}
