package calibration

import (
	"os"
	"path/filepath"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Store persists a single Record.
type Store interface {
	// Load reads the persisted record. Any failure wraps ErrNotFound.
	Load() (Record, error)
	// Save replaces the persisted record. Any failure wraps ErrWrite.
	Save(Record) error
}

var _ Store = &FileStore{}

// FileStore keeps the record in a small text file at a fixed path.
type FileStore struct {
	filepath string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{filepath: path}
}

func (f *FileStore) Path() string {
	return f.filepath
}

func (f *FileStore) Load() (Record, error) {
	b, err := os.ReadFile(f.filepath)
	if err != nil {
		return Record{}, pkgerrors.Wrapf(ErrNotFound, "failed to read file %s: %v", f.filepath, err)
	}

	r, err := Unmarshal(b)
	if err != nil {
		return Record{}, pkgerrors.Wrapf(ErrNotFound, "failed to parse file %s: %v", f.filepath, err)
	}

	logrus.WithFields(r.LogrusFields()).Info("calibration loaded")

	return r, nil
}

// Save writes r to a temporary file next to the target and renames it into
// place, so a reader sees either the old record or the new one.
func (f *FileStore) Save(r Record) error {
	err := f.write(Marshal(r))
	if err != nil {
		return pkgerrors.Wrapf(ErrWrite, "%s: %v", f.filepath, err)
	}

	logrus.WithFields(r.LogrusFields()).Info("calibration saved")

	return nil
}

func (f *FileStore) write(b []byte) error {
	dir := filepath.Dir(f.filepath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return pkgerrors.Wrapf(err, "failed to create directory %s", dir)
	}

	fp, err := os.CreateTemp(dir, "."+filepath.Base(f.filepath)+".*")
	if err != nil {
		return pkgerrors.Wrap(err, "failed to create temp file")
	}
	tmpPath := fp.Name()
	defer func() {
		// No-op once the rename succeeded.
		_ = os.Remove(tmpPath)
	}()

	if _, err := fp.Write(b); err != nil {
		_ = fp.Close()
		return pkgerrors.Wrapf(err, "failed to write temp file %s", tmpPath)
	}
	if err := fp.Sync(); err != nil {
		_ = fp.Close()
		return pkgerrors.Wrapf(err, "failed to sync temp file %s", tmpPath)
	}
	if err := fp.Close(); err != nil {
		return pkgerrors.Wrapf(err, "failed to close temp file %s", tmpPath)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return pkgerrors.Wrapf(err, "failed to chmod temp file %s", tmpPath)
	}

	if err := os.Rename(tmpPath, f.filepath); err != nil {
		return pkgerrors.Wrapf(err, "failed to rename %s to %s", tmpPath, f.filepath)
	}

	return nil
}

// Remove deletes the persisted record so the next boot falls back to
// defaults. Removing a record that does not exist is not an error.
func (f *FileStore) Remove() error {
	err := os.Remove(f.filepath)
	if err != nil && !os.IsNotExist(err) {
		return pkgerrors.Wrapf(err, "failed to remove file %s", f.filepath)
	}
	return nil
}

// LoadOrDefault applies the boot-time fallback policy: a record that cannot
// be loaded is replaced by fallback. The second return value reports whether
// the record came from the store.
func LoadOrDefault(s Store, fallback Record) (Record, bool) {
	r, err := s.Load()
	if err != nil {
		logrus.WithError(err).WithFields(fallback.LogrusFields()).Warn("no calibration found, using defaults")
		return fallback, false
	}
	return r, true
}
