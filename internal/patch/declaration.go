package patch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
)

var ErrAmbiguousTarget = errors.New("declaration marker matches more than one line")

// TargetNotFoundError is returned when the source has no line carrying the marker.
type TargetNotFoundError struct {
	Path   string
	Marker string
}

func (e *TargetNotFoundError) Error() string {
	return fmt.Sprintf("no line containing %q found in %s", e.Marker, e.Path)
}

type Result struct {
	Path string
	// Line is 1-based.
	Line int
	Old  string
	New  string
	// Diff is a unified diff of the change.
	Diff string
}

// Declaration rewrites the single line of path that contains marker into
// `<indent><prefix><marker>("<newID>");`, leaving every other byte of the file untouched. Text after
// the closing `);`, such as a trailing comment, is kept. Commented-out lines are ignored.
func Declaration(path, marker, newID string) (*Result, error) {
	if marker == "" {
		return nil, errors.New("marker is required")
	}
	if _, err := solana.PublicKeyFromBase58(newID); err != nil {
		return nil, fmt.Errorf("invalid program id %q: %w", newID, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat source: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read source: %w", err)
	}
	original := string(data)
	lines := strings.Split(original, "\n")

	target := -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "//") || !strings.Contains(line, marker) {
			continue
		}
		if target >= 0 {
			return nil, fmt.Errorf("%w: %s lines %d and %d", ErrAmbiguousTarget, path, target+1, i+1)
		}
		target = i
	}
	if target < 0 {
		return nil, &TargetNotFoundError{Path: path, Marker: marker}
	}

	old := lines[target]
	body := strings.TrimSuffix(old, "\r")
	eol := old[len(body):]
	at := strings.Index(body, marker)
	head := body[:at]
	var tail string
	if end := strings.Index(body[at+len(marker):], ");"); end >= 0 {
		tail = body[at+len(marker)+end+len(");"):]
	}
	lines[target] = fmt.Sprintf("%s%s(%q);%s%s", head, marker, newID, tail, eol)
	updated := strings.Join(lines, "\n")

	if err := writeFileAtomic(path, []byte(updated), info.Mode().Perm()); err != nil {
		return nil, err
	}

	edits := myers.ComputeEdits(span.URIFromPath(path), original, updated)
	return &Result{
		Path: path,
		Line: target + 1,
		Old:  body,
		New:  strings.TrimSuffix(lines[target], "\r"),
		Diff: fmt.Sprint(gotextdiff.ToUnified("a/"+filepath.Base(path), "b/"+filepath.Base(path), original, edits)),
	}, nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace source: %w", err)
	}
	return nil
}
