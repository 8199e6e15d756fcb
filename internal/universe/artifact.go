package universe

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Artifact is the local JSON copy of the symbol universe
type Artifact struct {
	Path string
}

type artifactFile struct {
	Source    string    `json:"source"`
	Symbols   []string  `json:"symbols"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Read returns the stored symbols. A missing file returns os.ErrNotExist.
func (a *Artifact) Read() ([]string, time.Time, error) {
	data, err := os.ReadFile(a.Path)
	if err != nil {
		return nil, time.Time{}, err
	}

	var file artifactFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to decode universe artifact %s: %w", a.Path, err)
	}
	if len(file.Symbols) == 0 {
		return nil, time.Time{}, fmt.Errorf("universe artifact %s: %w", a.Path, ErrNoSymbols)
	}
	return file.Symbols, file.UpdatedAt, nil
}

// Write replaces the stored symbols. The file is written to a temporary name and
// renamed so readers never see a partial artifact.
func (a *Artifact) Write(source string, symbols []string) error {
	if err := os.MkdirAll(filepath.Dir(a.Path), 0o755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	data, err := json.MarshalIndent(artifactFile{Source: source, Symbols: symbols, UpdatedAt: time.Now().UTC()}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode universe artifact: %w", err)
	}

	tmp := a.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write universe artifact: %w", err)
	}
	if err := os.Rename(tmp, a.Path); err != nil {
		return fmt.Errorf("failed to replace universe artifact: %w", err)
	}
	return nil
}

func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
