package agent

import (
	"errors"
	"testing"
)

// mapFS is an in-memory FS for tests.
type mapFS struct {
	files  map[string][]byte
	failOn map[string]error
	writes map[string][]byte
}

func newMapFS() *mapFS {
	return &mapFS{
		files:  make(map[string][]byte),
		failOn: make(map[string]error),
		writes: make(map[string][]byte),
	}
}

func (m *mapFS) ReadFile(path string) ([]byte, error) {
	if err, ok := m.failOn[path]; ok {
		return nil, err
	}
	data, ok := m.files[path]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func (m *mapFS) WriteFile(path string, data []byte) error {
	m.files[path] = data
	m.writes[path] = data
	return nil
}

func TestResolveCreate(t *testing.T) {
	fs := newMapFS()
	r := NewFileResolver(fs, "")

	op, ok := r.Resolve("create a python script named sum.py that adds two numbers")
	if !ok {
		t.Fatal("Resolve() returned false, want an operation")
	}
	if op.Path != "sum.py" {
		t.Errorf("Path = %q, want sum.py", op.Path)
	}
	if op.Kind != OpCreate {
		t.Errorf("Kind = %s, want %s", op.Kind, OpCreate)
	}
	if op.Language != "python" {
		t.Errorf("Language = %q, want python", op.Language)
	}
	if op.Exists {
		t.Error("Exists = true for a file that is not there")
	}
}

func TestResolveEditCapturesPrior(t *testing.T) {
	fs := newMapFS()
	fs.files["sum.py"] = []byte("print('old')\n")
	r := NewFileResolver(fs, "")

	op, ok := r.Resolve("fix the bug in sum.py")
	if !ok {
		t.Fatal("Resolve() returned false")
	}
	if op.Kind != OpEdit {
		t.Fatalf("Kind = %s, want %s", op.Kind, OpEdit)
	}
	if string(op.Prior) != "print('old')\n" {
		t.Errorf("Prior = %q, snapshot not captured before generation", op.Prior)
	}

	pc := op.PriorContext()
	if pc == "" {
		t.Fatal("PriorContext() empty for an edit with prior content")
	}
	if want := "Current content of sum.py"; len(pc) < len(want) || pc[:len(want)] != want {
		t.Errorf("PriorContext() = %q, want prefix %q", pc, want)
	}
}

func TestResolveCreateOverExisting(t *testing.T) {
	fs := newMapFS()
	fs.files["sum.py"] = []byte("old")
	r := NewFileResolver(fs, "")

	op, ok := r.Resolve("create sum.py with a fresh implementation")
	if !ok {
		t.Fatal("Resolve() returned false")
	}
	if op.Kind != OpCreate {
		t.Errorf("Kind = %s, want %s (explicit create verb)", op.Kind, OpCreate)
	}
	if !op.Exists {
		t.Error("Exists = false, overwrite confirmation would be skipped")
	}
}

func TestResolveLanguageDefault(t *testing.T) {
	fs := newMapFS()
	r := NewFileResolver(fs, "")

	op, ok := r.Resolve("write a python script that prints the date")
	if !ok {
		t.Fatal("Resolve() returned false")
	}
	if op.Path != "script.py" || op.Language != "python" {
		t.Errorf("got %q/%q, want script.py/python", op.Path, op.Language)
	}
}

func TestResolveNoTarget(t *testing.T) {
	fs := newMapFS()
	r := NewFileResolver(fs, "")

	if op, ok := r.Resolve("what does chmod 755 mean"); ok {
		t.Errorf("Resolve() = %+v, want no operation for a pure question", op)
	}
}

func TestResolveUnreadableFile(t *testing.T) {
	fs := newMapFS()
	fs.failOn["sum.py"] = errors.New("permission denied")
	r := NewFileResolver(fs, "")

	if op, ok := r.Resolve("edit sum.py"); ok {
		t.Errorf("Resolve() = %+v, want refusal when the prior cannot be read", op)
	}
}
