package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/estimatelens/estimatelens/pkg/types"
)

// fileSource reads a JSON export from disk on every fetch.
type fileSource struct {
	id   string
	path string
}

// NewFile returns a Source reading path. Used by the offline report command.
func NewFile(id, path string) Source {
	return &fileSource{id: id, path: path}
}

func (s *fileSource) ID() string { return s.id }

func (s *fileSource) Fetch(ctx context.Context) ([]types.RawIssue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("source %q: read file: %w", s.id, err)
	}
	issues, err := DecodeIssues(data)
	if err != nil {
		return nil, fmt.Errorf("source %q: %s: %w", s.id, s.path, err)
	}
	return issues, nil
}

// DecodeIssues accepts either a JSON array of issues or an object carrying
// an "issues" array.
func DecodeIssues(data []byte) ([]types.RawIssue, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty document")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	if trimmed[0] == '[' {
		var issues []types.RawIssue
		if err := dec.Decode(&issues); err != nil {
			return nil, fmt.Errorf("decode issue array: %w", err)
		}
		return issues, nil
	}

	var wrapped struct {
		Issues *[]types.RawIssue `json:"issues"`
	}
	if err := dec.Decode(&wrapped); err != nil {
		return nil, fmt.Errorf("decode issue object: %w", err)
	}
	if wrapped.Issues == nil {
		return nil, fmt.Errorf(`object has no "issues" array`)
	}
	return *wrapped.Issues, nil
}
