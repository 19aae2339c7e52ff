package action

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// formatVersion is stamped into saved sequences.
const formatVersion = "1.0"

// Store persists action sequences as JSON files in one directory.
type Store struct {
	dir    string
	logger *zap.Logger
	now    func() time.Time
}

// NewStore creates the actions directory if needed.
func NewStore(dir string, logger *zap.Logger) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("actions directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating actions directory %s: %w", dir, err)
	}
	return &Store{
		dir:    dir,
		logger: logger.Named("action_store"),
		now:    time.Now,
	}, nil
}

// Save validates, stamps, and writes a sequence. The filename is derived from
// the sequence name when name is empty.
func (s *Store) Save(seq *Sequence, name string) (string, error) {
	stamped := *seq
	if stamped.Metadata.CreatedAt.IsZero() {
		stamped.Metadata.CreatedAt = s.now().UTC()
	}
	if stamped.Metadata.Version == "" {
		stamped.Metadata.Version = formatVersion
	}
	if err := stamped.Validate(); err != nil {
		return "", fmt.Errorf("refusing to save invalid sequence: %w", err)
	}

	if name == "" {
		name = slugify(stamped.Metadata.Name)
	}
	if !strings.HasSuffix(name, ".json") {
		name += ".json"
	}
	path := filepath.Join(s.dir, name)

	data, err := Marshal(&stamped)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}

	s.logger.Info("Saved action sequence",
		zap.String("path", path),
		zap.Int("steps", len(stamped.Steps)))
	return path, nil
}

// Load reads one sequence by filename.
func (s *Store) Load(name string) (*Sequence, error) {
	if !strings.HasSuffix(name, ".json") {
		name += ".json"
	}
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading action file %s: %w", path, err)
	}
	seq, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("action file %s: %w", path, err)
	}
	s.logger.Debug("Loaded action sequence",
		zap.String("path", path),
		zap.Int("steps", len(seq.Steps)))
	return seq, nil
}

// List returns the available action filenames, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing actions directory %s: %w", s.dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// slugify turns a display name into a safe filename stem.
func slugify(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_', r == '.':
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "sequence"
	}
	return b.String()
}
