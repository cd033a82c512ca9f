package persistence

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// FileSource stores one recording in one file.
type FileSource struct {
	Fs    afero.Fs
	Path  string
	Codec Codec
}

// NewFileSource returns a source for path, encoded with codec.
func NewFileSource(fsys afero.Fs, path string, codec Codec) *FileSource {
	return &FileSource{Fs: fsys, Path: path, Codec: codec}
}

// Save writes the recording, replacing any previous one. The file is written to a temporary
// sibling first and renamed into place.
func (s *FileSource) Save(_ context.Context, model Model) error {
	data, err := s.Codec.Marshal(model)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.Path)
	if err := s.Fs.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := afero.TempFile(s.Fs, dir, "."+filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	tmpName := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()

	if err := errors.Join(writeErr, closeErr); err != nil {
		_ = s.Fs.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}

	if err := s.Fs.Chmod(tmpName, filePerm); err != nil {
		_ = s.Fs.Remove(tmpName)
		return fmt.Errorf("failed to set permissions on %s: %w", tmpName, err)
	}

	if err := s.Fs.Rename(tmpName, s.Path); err != nil {
		_ = s.Fs.Remove(tmpName)
		return fmt.Errorf("failed to move recording into place: %w", err)
	}

	return nil
}

// Load reads the recording. A missing file is ErrSourceNotFound.
func (s *FileSource) Load(_ context.Context) (Model, error) {
	data, err := afero.ReadFile(s.Fs, s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return Model{}, fmt.Errorf("%w: %s", ErrSourceNotFound, s.Path)
	}

	if err != nil {
		return Model{}, fmt.Errorf("failed to read %s: %w", s.Path, err)
	}

	model, err := s.Codec.Unmarshal(data)
	if err != nil {
		return Model{}, fmt.Errorf("%s: %w", s.Path, err)
	}

	return model, nil
}

func (s *FileSource) String() string {
	return "file:" + s.Path
}
