package patient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Source produces the raw patient records for a snapshot.
type Source interface {
	Name() string
	Load(ctx context.Context) ([]*Record, error)
}

// Decode reads a JSON array of records.
func Decode(r io.Reader) ([]*Record, error) {
	var records []*Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode patient records: %w", err)
	}
	return records, nil
}

// FileSource reads the fixture from the local filesystem.
type FileSource struct {
	Path string
}

// NewFileSource creates a FileSource.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (s *FileSource) Name() string { return "file" }

func (s *FileSource) Load(ctx context.Context) ([]*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.Path, err)
	}
	defer f.Close()
	return Decode(f)
}
