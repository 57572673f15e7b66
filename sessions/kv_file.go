package sessions

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// FileKV stores all keys in one JSON object on disk. Writes go to a temporary file
// that is renamed over the original, so a crash never leaves a half-written file.
type FileKV struct {
	path string
	mu   sync.Mutex
}

var _ KV = (*FileKV)(nil)

func NewFileKV(path string) *FileKV {
	return &FileKV{path: path}
}

func (f *FileKV) Get(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.read()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (f *FileKV) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.read()
	if err != nil {
		return err
	}
	values[key] = value
	return f.write(values)
}

func (f *FileKV) Remove(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.read()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return f.write(values)
}

// read returns an empty map for a missing file. A file that is not valid JSON is
// treated as empty and overwritten on the next write.
func (f *FileKV) read() (map[string]string, error) {
	values := make(map[string]string)
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return values, nil
		}
		return nil, errors.Wrap(err, "[FileKV.read]")
	}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		log.Warn().Err(err).Str("path", f.path).Msg("[FileKV.read] unreadable session file, ignoring")
		return make(map[string]string), nil
	}
	return values, nil
}

func (f *FileKV) write(values map[string]string) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrap(err, "[FileKV.write] mkdir")
	}
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return errors.Wrap(err, "[FileKV.write] marshal")
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "[FileKV.write] create temp")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "[FileKV.write] write temp")
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return errors.Wrap(err, "[FileKV.write] chmod")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "[FileKV.write] close temp")
	}
	return errors.Wrap(os.Rename(tmp.Name(), f.path), "[FileKV.write] rename")
}
