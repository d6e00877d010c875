// This file contains the file operation resolver: given a user
// instruction it determines the target filename, whether the operation
// is a create or an edit, and captures the prior content snapshot that
// an edit must carry into the model call.
package agent

import (
	"errors"
	"regexp"
	"strings"
)

// OpKind distinguishes creating a new file from editing an existing one.
type OpKind string

const (
	OpCreate OpKind = "create"
	OpEdit   OpKind = "edit"
)

// FileOperation is a resolved target for a file-producing task.
// Invariant: Kind == OpEdit implies Prior is the file content read
// before any generation; Kind == OpCreate with Exists set requires an
// explicit overwrite confirmation before writing.
type FileOperation struct {
	Path     string
	Kind     OpKind
	Language string
	Prior    []byte
	Exists   bool
}

// PriorContext returns the snapshot to prepend to the model context so
// an edit reproduces the full updated file, never a diff fragment.
func (op *FileOperation) PriorContext() string {
	if op.Kind != OpEdit || len(op.Prior) == 0 {
		return ""
	}
	return "Current content of " + op.Path + ":\n```\n" + string(op.Prior) + "\n```"
}

var filenameRe = regexp.MustCompile(`\b([\w./-]+\.(?:py|go|js|ts|jsx|tsx|sh|rb|rs|java|c|cpp|h|hpp|html|css|json|yaml|yml|toml|md|txt|sql|csv))\b`)

var createVerbs = []string{"create", "make", "generate", "write", "new "}

// languageDefaults maps a language mentioned in the instruction to a
// conservative default filename.
var languageDefaults = []struct {
	keyword string
	path    string
	lang    string
}{
	{"python", "script.py", "python"},
	{"golang", "main.go", "go"},
	{" go ", "main.go", "go"},
	{"javascript", "script.js", "javascript"},
	{"typescript", "script.ts", "typescript"},
	{"bash", "script.sh", "sh"},
	{"shell script", "script.sh", "sh"},
	{"ruby", "script.rb", "ruby"},
	{"rust", "main.rs", "rust"},
	{"html", "index.html", "html"},
}

var extLanguages = map[string]string{
	".py": "python", ".go": "go", ".js": "javascript", ".ts": "typescript",
	".jsx": "javascript", ".tsx": "typescript", ".sh": "sh", ".rb": "ruby",
	".rs": "rust", ".java": "java", ".c": "c", ".cpp": "cpp", ".h": "c",
	".hpp": "cpp", ".html": "html", ".css": "css", ".json": "json",
	".yaml": "yaml", ".yml": "yaml", ".toml": "toml", ".md": "markdown",
	".txt": "text", ".sql": "sql", ".csv": "text",
}

// FileResolver turns instructions into file operations using the FS
// collaborator to decide create vs. edit.
type FileResolver struct {
	fs          FS
	defaultLang string
}

// NewFileResolver creates a resolver. defaultLang is the workspace
// language hint used when the instruction names neither a file nor a
// language; it may be empty.
func NewFileResolver(fs FS, defaultLang string) *FileResolver {
	return &FileResolver{fs: fs, defaultLang: defaultLang}
}

// Resolve extracts a target file from the instruction. It returns false
// when the instruction names no resolvable file, which is not an error:
// the task simply produces no file operation.
func (r *FileResolver) Resolve(instruction string) (*FileOperation, bool) {
	lower := strings.ToLower(instruction)

	path, lang := extractFilename(instruction)
	if path == "" {
		path, lang = inferFromLanguage(lower)
	}
	if path == "" {
		return nil, false
	}
	if lang == "" {
		lang = r.defaultLang
	}

	op := &FileOperation{Path: path, Language: lang}

	prior, err := r.fs.ReadFile(path)
	switch {
	case err == nil:
		op.Exists = true
		if wantsCreate(lower) {
			// Explicit create over an existing file: an overwrite, which
			// the controller must confirm as such.
			op.Kind = OpCreate
		} else {
			op.Kind = OpEdit
			op.Prior = prior
		}
	case errors.Is(err, ErrNotFound):
		op.Kind = OpCreate
	default:
		// Unreadable existing file: do not risk a blind overwrite.
		return nil, false
	}

	return op, true
}

func extractFilename(instruction string) (path, lang string) {
	m := filenameRe.FindStringSubmatch(instruction)
	if m == nil {
		return "", ""
	}
	path = m[1]
	if i := strings.LastIndex(path, "."); i >= 0 {
		lang = extLanguages[path[i:]]
	}
	return path, lang
}

func inferFromLanguage(lower string) (path, lang string) {
	for _, d := range languageDefaults {
		if strings.Contains(lower, d.keyword) {
			return d.path, d.lang
		}
	}
	return "", ""
}

func wantsCreate(lower string) bool {
	for _, v := range createVerbs {
		if strings.Contains(lower, v) {
			return true
		}
	}
	return false
}
