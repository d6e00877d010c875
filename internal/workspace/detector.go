// Package workspace knows the directory the assistant operates in: its
// dominant language, its files, which of them match a request, and
// which changed recently.
package workspace

import (
	"os"
	"path/filepath"
	"strings"
)

// extLanguages maps source extensions to language names.
var extLanguages = map[string]string{
	".go":   "go",
	".py":   "python",
	".js":   "javascript",
	".jsx":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".rs":   "rust",
	".rb":   "ruby",
	".java": "java",
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
	".cc":   "cpp",
	".hpp":  "cpp",
	".sh":   "shell",
	".sql":  "sql",
	".html": "html",
	".css":  "css",
	".md":   "markdown",
	".json": "json",
	".yaml": "yaml",
	".yml":  "yaml",
	".toml": "toml",
}

// LanguageOf returns the language of a file by extension, or "".
func LanguageOf(path string) string {
	return extLanguages[strings.ToLower(filepath.Ext(path))]
}

// DetectLanguage returns the dominant language of the directory.
// Manifests are checked first; otherwise root file extensions are
// counted and the plurality wins when at least three files agree.
func DetectLanguage(root string) string {
	manifests := []struct {
		file string
		lang string
	}{
		{"go.mod", "go"},
		{"package.json", "javascript"},
		{"pyproject.toml", "python"},
		{"requirements.txt", "python"},
		{"Cargo.toml", "rust"},
		{"Gemfile", "ruby"},
	}
	for _, m := range manifests {
		if _, err := os.Stat(filepath.Join(root, m.file)); err == nil {
			return m.lang
		}
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return ""
	}

	counts := make(map[string]int)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		lang := LanguageOf(entry.Name())
		switch lang {
		case "", "markdown", "json", "yaml", "toml":
			// Config and prose files say nothing about the code language.
		default:
			counts[lang]++
		}
	}

	best, bestCount := "", 0
	for lang, n := range counts {
		if n > bestCount {
			best, bestCount = lang, n
		}
	}
	if bestCount >= 3 {
		return best
	}
	return ""
}
