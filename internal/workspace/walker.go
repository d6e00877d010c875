package workspace

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// maxFileSize caps what gets indexed; larger files are almost never the
// target of a terminal request.
const maxFileSize = 1 << 20

// defaultIgnores are skipped even without a .gitignore.
var defaultIgnores = []string{
	".git",
	"node_modules",
	"dist",
	"build",
	"vendor",
	"__pycache__",
	"coverage",
	".next",
	".cache",
	"target",
	".idea",
	".vscode",
	".DS_Store",
}

// File is one indexable workspace file.
type File struct {
	Path     string // relative to the workspace root
	Language string
	Size     int64
}

// newIgnoreMatcher compiles the default ignores plus every .gitignore
// found under root into one matcher.
func newIgnoreMatcher(root string) gitignore.IgnoreParser {
	patterns := make([]string, 0, len(defaultIgnores)+16)
	patterns = append(patterns, defaultIgnores...)

	filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || d.Name() != ".gitignore" {
			return nil
		}
		patterns = append(patterns, readIgnoreLines(path)...)
		return nil
	})

	return gitignore.CompileIgnoreLines(patterns...)
}

func readIgnoreLines(path string) []string {
	file, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// listFiles walks root and returns every indexable file: recognized
// language, not ignored, under the size cap.
func listFiles(root string, matcher gitignore.IgnoreParser) []File {
	var files []File

	filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." {
			return nil
		}

		if matcher.MatchesPath(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		lang := LanguageOf(path)
		if lang == "" {
			return nil
		}

		info, err := d.Info()
		if err != nil || info.Size() > maxFileSize {
			return nil
		}

		files = append(files, File{Path: rel, Language: lang, Size: info.Size()})
		return nil
	})

	return files
}
