package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestDetectLanguageManifest(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "go.mod", "module example\n")
	writeFile(t, root, "whatever.py", "print(1)\n")

	if got := DetectLanguage(root); got != "go" {
		t.Errorf("DetectLanguage = %q, want go (manifest wins)", got)
	}
}

func TestDetectLanguageByExtension(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a.py", "b.py", "c.py"} {
		writeFile(t, root, name, "print(1)\n")
	}
	writeFile(t, root, "notes.md", "# notes\n")

	if got := DetectLanguage(root); got != "python" {
		t.Errorf("DetectLanguage = %q, want python", got)
	}
}

func TestDetectLanguageInconclusive(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "print(1)\n")

	if got := DetectLanguage(root); got != "" {
		t.Errorf("DetectLanguage = %q, want empty for a single file", got)
	}
}

func TestListFilesHonorsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "secret.py\n")
	writeFile(t, root, "main.py", "print(1)\n")
	writeFile(t, root, "secret.py", "token = 'x'\n")
	writeFile(t, root, "node_modules/dep/index.js", "x\n")
	writeFile(t, root, "README.bin", "binary-ish\n")

	files := listFiles(root, newIgnoreMatcher(root))

	paths := make(map[string]bool)
	for _, f := range files {
		paths[f.Path] = true
	}
	if !paths["main.py"] {
		t.Error("main.py missing from listing")
	}
	if paths["secret.py"] {
		t.Error("gitignored file listed")
	}
	for p := range paths {
		if strings.HasPrefix(p, "node_modules") {
			t.Errorf("default-ignored path listed: %s", p)
		}
	}
	if paths["README.bin"] {
		t.Error("unrecognized extension listed")
	}
}

func TestShortlistFindsRelevantFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "sum.py", "def add(a, b):\n    return a + b\n")
	writeFile(t, root, "fetch.py", "import requests\n\ndef fetch(url):\n    return requests.get(url)\n")
	writeFile(t, root, "notes.md", "# grocery list\n")

	ws, err := Open(root, zap.NewNop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer ws.Close()

	hits := ws.Shortlist("fix the add function in sum.py", 5)
	if len(hits) == 0 {
		t.Fatal("Shortlist returned nothing")
	}

	found := false
	for _, h := range hits {
		if h == "sum.py" {
			found = true
		}
	}
	if !found {
		t.Errorf("sum.py not in shortlist: %v", hits)
	}
}

func TestShortlistZero(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "print(1)\n")

	ws, err := Open(root, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Close()

	if hits := ws.Shortlist("anything", 0); hits != nil {
		t.Errorf("Shortlist(_, 0) = %v, want nil", hits)
	}
}
