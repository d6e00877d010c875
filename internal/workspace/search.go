package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
)

// fileIndex is a full-text index over workspace files. It lives in
// memory only; nothing about the workspace is persisted.
type fileIndex struct {
	index bleve.Index
	root  string
}

func buildFileMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	pathField := bleve.NewTextFieldMapping()
	pathField.Analyzer = keyword.Name
	pathField.Store = true
	docMapping.AddFieldMappingsAt("path", pathField)

	langField := bleve.NewTextFieldMapping()
	langField.Analyzer = keyword.Name
	langField.Store = true
	docMapping.AddFieldMappingsAt("language", langField)

	// The basename tokenized separately so "sum.py" style mentions in
	// an instruction match strongly.
	nameField := bleve.NewTextFieldMapping()
	nameField.Analyzer = standard.Name
	nameField.Store = false
	docMapping.AddFieldMappingsAt("name", nameField)

	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = standard.Name
	textField.Store = false
	docMapping.AddFieldMappingsAt("text", textField)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// newFileIndex indexes the given files into a fresh in-memory index.
func newFileIndex(root string, files []File) (*fileIndex, error) {
	index, err := bleve.NewMemOnly(buildFileMapping())
	if err != nil {
		return nil, fmt.Errorf("create file index: %w", err)
	}

	fi := &fileIndex{index: index, root: root}

	batch := index.NewBatch()
	for _, f := range files {
		doc, err := fi.document(f.Path, f.Language)
		if err != nil {
			continue
		}
		if err := batch.Index(f.Path, doc); err != nil {
			return nil, fmt.Errorf("index %s: %w", f.Path, err)
		}
	}
	if err := index.Batch(batch); err != nil {
		return nil, fmt.Errorf("commit index batch: %w", err)
	}

	return fi, nil
}

func (fi *fileIndex) document(relPath, language string) (map[string]interface{}, error) {
	data, err := os.ReadFile(filepath.Join(fi.root, relPath))
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(relPath), filepath.Ext(relPath))
	return map[string]interface{}{
		"path":     relPath,
		"language": language,
		"name":     name + " " + filepath.Base(relPath),
		"text":     string(data),
	}, nil
}

// update reindexes one file, or removes it when it no longer exists.
func (fi *fileIndex) update(relPath string) error {
	lang := LanguageOf(relPath)
	if lang == "" {
		return nil
	}
	doc, err := fi.document(relPath, lang)
	if err != nil {
		if os.IsNotExist(err) {
			return fi.index.Delete(relPath)
		}
		return err
	}
	return fi.index.Index(relPath, doc)
}

// search returns the paths of the top k files matching the query.
func (fi *fileIndex) search(query string, k int) ([]string, error) {
	q := bleve.NewMatchQuery(query)

	req := bleve.NewSearchRequest(q)
	req.Size = k
	req.Fields = []string{"path"}

	result, err := fi.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("workspace search: %w", err)
	}

	paths := make([]string, 0, len(result.Hits))
	for _, hit := range result.Hits {
		if p, ok := hit.Fields["path"].(string); ok {
			paths = append(paths, p)
		} else {
			paths = append(paths, hit.ID)
		}
	}
	return paths, nil
}

func (fi *fileIndex) close() error {
	return fi.index.Close()
}
