package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
)

// FS is a filesystem-backed storage provider. Every document lives at
// <base>/<name>.<ext>, per the system's storage filesystem layout
// convention.
type FS struct {
	base string
}

// NewFS creates a filesystem provider rooted at base, creating the
// directory if it does not already exist.
func NewFS(base string) (*FS, error) {
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, err
	}
	return &FS{base: abs}, nil
}

// ID implements Provider.
func (f *FS) ID() string { return "fs" }

// Path implements Provider.
func (f *FS) Path(name, ext string) string {
	return filepath.Join(f.base, name+"."+ext)
}

func (f *FS) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(f.base, path)
}

// Get implements Provider.
func (f *FS) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	file, err := os.Open(f.resolve(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return file, nil
}

// Put implements Provider.
func (f *FS) Put(ctx context.Context, path string, data io.Reader) error {
	full := f.resolve(path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}

	file, err := os.Create(full)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = io.Copy(file, data)
	return err
}

// Delete implements Provider.
func (f *FS) Delete(ctx context.Context, path string) error {
	err := os.Remove(f.resolve(path))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// List implements Provider.
func (f *FS) List(ctx context.Context) ([]Object, error) {
	var out []Object
	err := filepath.WalkDir(f.base, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(f.base, path)
		if err != nil {
			return err
		}
		out = append(out, Object{
			Path:         filepath.ToSlash(rel),
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
