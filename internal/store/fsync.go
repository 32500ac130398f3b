package store

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const (
	dirPerm  os.FileMode = 0755
	filePerm os.FileMode = 0644
)

// syncDir fsyncs a directory so new entries in it are durable.
func syncDir(path string) error {
	d, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "fsync dir open %s", path)
	}
	if err := d.Sync(); err != nil {
		d.Close()
		return errors.Wrapf(err, "fsync dir sync %s", path)
	}
	return errors.Wrapf(d.Close(), "fsync dir close %s", path)
}

// atomicWriteFile writes data to a temp file next to finalPath, fsyncs it,
// renames it over finalPath and fsyncs the parent directory.
func atomicWriteFile(finalPath string, data []byte) error {
	dir := filepath.Dir(finalPath)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return errors.Wrapf(err, "atomic write create temp in %s", dir)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "atomic write data")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "atomic write fsync")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "atomic write close")
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return errors.Wrapf(err, "atomic write rename %s → %s", tmpPath, finalPath)
	}
	if err := syncDir(dir); err != nil {
		return errors.Wrap(err, "atomic write fsync parent dir")
	}

	success = true
	return nil
}

// appendSync appends data to path, creating it if needed, and fsyncs the
// file before returning.
func appendSync(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, filePerm)
	if err != nil {
		return errors.Wrapf(err, "append open %s", path)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return errors.Wrapf(err, "append data %s", path)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return errors.Wrapf(err, "append sync %s", path)
	}
	return errors.Wrapf(f.Close(), "append close %s", path)
}
