package file

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// jsonStore keeps one JSON document per record under root/dir/<id>.json.
type jsonStore[T any] struct {
	dir string
}

func newJSONStore[T any](root, dir string) jsonStore[T] {
	return jsonStore[T]{dir: filepath.Join(root, dir)}
}

// validateID validates that the ID is safe for file operations.
func validateID(id string) error {
	if id == "" {
		return errors.New("id cannot be empty")
	}

	// Check for path traversal attempts
	if strings.Contains(id, "..") || strings.ContainsAny(id, `/\`) {
		return errors.New("id contains invalid characters")
	}

	return nil
}

func (s jsonStore[T]) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// read returns (nil, nil) when the record does not exist.
func (s jsonStore[T]) read(id string) (*T, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	body, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read %s: %w", id, err)
	}

	var record T
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", id, err)
	}

	return &record, nil
}

// write replaces the record atomically through a rename.
func (s jsonStore[T]) write(id string, record *T) error {
	if err := validateID(id); err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", s.dir, err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", id, err)
	}

	tmp, err := os.CreateTemp(s.dir, id+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", id, err)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to write %s: %w", id, err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to close %s: %w", id, err)
	}

	return os.Rename(tmp.Name(), s.path(id))
}

func (s jsonStore[T]) remove(id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	err := os.Remove(s.path(id))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", id, err)
	}

	return nil
}

// list loads every record, keeping those accepted by keep.
func (s jsonStore[T]) list(keep func(*T) bool) ([]*T, error) {
	jsonFiles, err := fs.Glob(os.DirFS(s.dir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list files in %s: %w", s.dir, err)
	}

	records := make([]*T, 0, len(jsonFiles))

	for _, name := range jsonFiles {
		record, err := s.read(strings.TrimSuffix(name, ".json"))
		if err != nil {
			return nil, err
		}

		if record != nil && (keep == nil || keep(record)) {
			records = append(records, record)
		}
	}

	return records, nil
}
