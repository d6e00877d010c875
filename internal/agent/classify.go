// This file contains the output classifier. It is the single place that
// decides what a model response is; every downstream side effect is
// gated on its verdict. When in doubt it degrades to IncompleteCode or
// Conversational, never toward a write or an execution.
package agent

import (
	"regexp"
	"strings"
)

// OutputKind tags a classified model response.
type OutputKind string

const (
	KindConversational OutputKind = "conversational"
	KindCompleteFile   OutputKind = "complete_file"
	KindShellCommand   OutputKind = "shell_command"
	KindIncompleteCode OutputKind = "incomplete_code"
)

// Output is the classifier's verdict. Content holds the file body for
// CompleteFile, the command line for ShellCommand, and the raw response
// otherwise.
type Output struct {
	Kind     OutputKind
	Language string
	Content  string
}

var fenceRe = regexp.MustCompile("(?s)```([a-zA-Z0-9_+-]*)[ \t]*\n(.*?)```")

// placeholderRe matches markers that betray truncated or elided code:
// bare ellipsis lines, "rest of the code", "your code here" and friends.
var placeholderRe = regexp.MustCompile(`(?mi)^\s*(\.\.\.|…)\s*$|rest of (the )?(code|file|script)|your (code|implementation) here|code goes here|implementation omitted|// \.\.\.|# \.\.\.`)

var shellLangs = map[string]bool{"sh": true, "bash": true, "shell": true, "zsh": true, "console": true}

// knownCommands is the allow-list for bare single-line commands. An
// unrecognized first token stays Conversational rather than risking an
// unwanted execution.
var knownCommands = map[string]bool{
	"ls": true, "cat": true, "grep": true, "find": true, "echo": true,
	"mkdir": true, "rm": true, "cp": true, "mv": true, "touch": true,
	"chmod": true, "chown": true, "head": true, "tail": true, "wc": true,
	"sed": true, "awk": true, "sort": true, "uniq": true, "tar": true,
	"curl": true, "wget": true, "git": true, "go": true, "python": true,
	"python3": true, "pip": true, "pip3": true, "node": true, "npm": true,
	"npx": true, "make": true, "docker": true, "cargo": true, "rustc": true,
	"gcc": true, "javac": true, "java": true, "ruby": true, "sh": true,
	"bash": true, "ps": true, "kill": true, "df": true, "du": true,
	"pwd": true, "which": true, "env": true, "date": true, "uname": true,
}

// Classify inspects a model response and decides whether it is
// conversational text, a complete file, a single shell command, or
// incomplete code. langHint biases complete-file detection when the
// fence carries no language tag.
func Classify(response, langHint string) Output {
	text := strings.TrimSpace(response)
	if text == "" {
		return Output{Kind: KindConversational, Content: response}
	}

	fenceCount := strings.Count(text, "```")
	blocks := fenceRe.FindAllStringSubmatch(text, -1)

	// An unterminated fence means the response was cut off mid-block.
	if fenceCount%2 != 0 {
		return Output{Kind: KindIncompleteCode, Content: text}
	}

	if len(blocks) == 1 {
		lang := strings.ToLower(blocks[0][1])
		body := blocks[0][2]

		if placeholderRe.MatchString(body) {
			return Output{Kind: KindIncompleteCode, Language: lang, Content: text}
		}

		// A one-line sh/bash block is the model's way of proposing a
		// command, not a script file.
		trimmedBody := strings.TrimSpace(body)
		if shellLangs[lang] && !strings.Contains(trimmedBody, "\n") && trimmedBody != "" {
			if isCommandLine(trimmedBody) {
				return Output{Kind: KindShellCommand, Content: trimmedBody}
			}
			return Output{Kind: KindConversational, Content: text}
		}

		if lang == "" {
			lang = strings.ToLower(langHint)
		}
		if isCompleteFile(text, blocks[0][0], trimmedBody, lang) {
			return Output{Kind: KindCompleteFile, Language: lang, Content: body}
		}
		if trimmedBody != "" {
			// Code markers present but content did not pass the
			// completeness bar.
			return Output{Kind: KindIncompleteCode, Language: lang, Content: text}
		}
		return Output{Kind: KindConversational, Content: text}
	}

	if len(blocks) > 1 {
		// Multiple blocks never form a single writable artifact.
		return Output{Kind: KindConversational, Content: text}
	}

	// No fenced code. A single line matching known command syntax with
	// no surrounding prose is a shell command.
	if !strings.Contains(text, "\n") && isCommandLine(text) {
		return Output{Kind: KindShellCommand, Content: text}
	}

	if placeholderRe.MatchString(text) && looksLikeCode(text) {
		return Output{Kind: KindIncompleteCode, Content: text}
	}

	return Output{Kind: KindConversational, Content: text}
}

// isCompleteFile requires the single fence to span essentially the whole
// response (at most two short prose lines outside it) and the body to
// show recognizable top-level structure for the language.
func isCompleteFile(full, fenced, body, lang string) bool {
	if body == "" {
		return false
	}

	outside := strings.Replace(full, fenced, "", 1)
	var proseLines int
	for _, line := range strings.Split(outside, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		proseLines++
		if len(line) > 160 {
			return false
		}
	}
	if proseLines > 2 {
		return false
	}

	return hasTopLevelStructure(body, lang)
}

// hasTopLevelStructure checks for language-specific module/script
// openings. Unknown languages fail the check: the open question on
// detection heuristics is resolved conservatively.
func hasTopLevelStructure(body, lang string) bool {
	if strings.HasPrefix(body, "#!") {
		return true
	}
	first := firstCodeLine(body)

	switch lang {
	case "python", "py":
		return hasAnyPrefix(first, "import ", "from ", "def ", "class ", "#", "\"\"\"") ||
			strings.Contains(body, "def ") || strings.Contains(body, "print(")
	case "go", "golang":
		return strings.HasPrefix(first, "package ")
	case "javascript", "js", "typescript", "ts":
		return hasAnyPrefix(first, "import ", "const ", "let ", "var ", "function ", "class ", "//", "export ") ||
			strings.Contains(body, "function ") || strings.Contains(body, "=>")
	case "rust", "rs":
		return hasAnyPrefix(first, "use ", "fn ", "pub ", "mod ", "//", "#[")
	case "ruby", "rb":
		return hasAnyPrefix(first, "require ", "def ", "class ", "module ", "#")
	case "java":
		return hasAnyPrefix(first, "package ", "import ", "public ", "class ", "//")
	case "c", "cpp", "c++", "h":
		return hasAnyPrefix(first, "#include", "#define", "//", "/*", "int ", "void ")
	case "html":
		return hasAnyPrefix(strings.ToLower(first), "<!doctype", "<html")
	case "css", "json", "yaml", "yml", "toml", "sql", "markdown", "md", "text", "txt":
		return true
	case "sh", "bash", "shell", "zsh":
		// Multi-line shell content without a shebang is a script only if
		// it looks like one.
		return strings.Contains(body, "\n")
	}
	return false
}

func firstCodeLine(body string) string {
	for _, line := range strings.Split(body, "\n") {
		if strings.TrimSpace(line) != "" {
			return strings.TrimSpace(line)
		}
	}
	return ""
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// isCommandLine decides whether a single line is a runnable command: a
// known executable (or explicit path) followed by shell-ish arguments,
// with no natural-language tells.
func isCommandLine(line string) bool {
	line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "$ "))
	if line == "" || len(line) > 300 {
		return false
	}
	if strings.HasSuffix(line, ".") && !strings.HasSuffix(line, "..") {
		return false
	}
	lower := " " + strings.ToLower(line) + " "
	for _, tell := range []string{" the ", " you ", " this ", " should ", " would ", " here is ", " use "} {
		if strings.Contains(lower, tell) {
			return false
		}
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	head := fields[0]
	if strings.HasPrefix(head, "./") || strings.HasPrefix(head, "/") {
		return true
	}
	if head == "sudo" && len(fields) > 1 {
		head = fields[1]
	}
	return knownCommands[head]
}

// looksLikeCode is a weak signal used only to distinguish truncated code
// from plain prose when no fence is present.
func looksLikeCode(text string) bool {
	markers := []string{"def ", "func ", "class ", "import ", "#include", "return ", "{", "};"}
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}
