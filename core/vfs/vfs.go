// Package vfs is the virtual filesystem the shell reads and redirects into.
package vfs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"

	"github.com/spf13/afero"
	"github.com/watercolor-games/redteam/core/console"
)

// Error is a filesystem failure with a message suitable for showing to the
// player.
type Error struct {
	Msg string
	Err error
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// describe turns an afero error into a terminal style message.
func describe(err error) string {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "No such file or directory"
	case errors.Is(err, fs.ErrPermission):
		return "Permission denied"
	case errors.Is(err, fs.ErrExist):
		return "File exists"
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Err.Error()
	}
	return err.Error()
}

// FileSystem exposes the operations the shell needs on top of an afero.Fs.
// Paths are expected to be absolute and already resolved.
type FileSystem struct {
	Fs afero.Fs
}

// New wraps an afero filesystem.
func New(base afero.Fs) *FileSystem {
	return &FileSystem{Fs: base}
}

// DirectoryExists reports whether name is an existing directory.
func (f *FileSystem) DirectoryExists(name string) bool {
	ok, err := afero.DirExists(f.Fs, name)
	return err == nil && ok
}

// FileExists reports whether name exists and is not a directory.
func (f *FileSystem) FileExists(name string) bool {
	info, err := f.Fs.Stat(name)
	return err == nil && !info.IsDir()
}

func (f *FileSystem) list(name string, dirs bool) []string {
	infos, err := afero.ReadDir(f.Fs, name)
	if err != nil {
		return nil
	}

	var out []string
	for _, info := range infos {
		if info.IsDir() == dirs {
			out = append(out, info.Name())
		}
	}
	return out
}

// ListDirectories returns the sorted names of the directories directly under
// name. Unreadable directories have no entries.
func (f *FileSystem) ListDirectories(name string) []string {
	return f.list(name, true)
}

// ListFiles returns the sorted names of the non-directory entries directly
// under name.
func (f *FileSystem) ListFiles(name string) []string {
	return f.list(name, false)
}

// ReadAllText returns the full contents of a file.
func (f *FileSystem) ReadAllText(name string) (string, error) {
	if f.DirectoryExists(name) {
		return "", &Error{Msg: "Is a directory"}
	}

	contents, err := afero.ReadFile(f.Fs, name)
	if err != nil {
		return "", &Error{Msg: describe(err), Err: err}
	}
	return string(contents), nil
}

// WriteAllText replaces the contents of a file, creating it if needed.
func (f *FileSystem) WriteAllText(name, text string) error {
	if err := afero.WriteFile(f.Fs, name, []byte(text), 0644); err != nil {
		return &Error{Msg: fmt.Sprintf("%s: %s", name, describe(err)), Err: err}
	}
	return nil
}

// CreateOutput opens name for writing as a *FileOutput. With appendTo the
// existing contents are kept, otherwise the file is truncated or created.
func (f *FileSystem) CreateOutput(name string, appendTo bool) (console.Output, error) {
	if f.DirectoryExists(name) {
		return nil, &Error{Msg: fmt.Sprintf("%s: Is a directory", name)}
	}
	if dir := path.Dir(name); !f.DirectoryExists(dir) {
		return nil, &Error{Msg: fmt.Sprintf("%s: No such file or directory", dir), Err: fs.ErrNotExist}
	}

	flags := os.O_WRONLY | os.O_CREATE
	if appendTo {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	fd, err := f.Fs.OpenFile(name, flags, 0644)
	if err != nil {
		return nil, &Error{Msg: fmt.Sprintf("%s: %s", name, describe(err)), Err: err}
	}
	return &FileOutput{file: fd}, nil
}

// FileOutput is a console output backed by a file.
type FileOutput struct {
	file afero.File
}

var _ console.Output = (*FileOutput)(nil)
var _ io.Closer = (*FileOutput)(nil)

// Name returns the path of the underlying file.
func (o *FileOutput) Name() string {
	return o.file.Name()
}

func (o *FileOutput) Write(b []byte) (int, error) {
	return o.file.Write(b)
}

// Clear truncates the file.
func (o *FileOutput) Clear() error {
	if err := o.file.Truncate(0); err != nil {
		return err
	}
	_, err := o.file.Seek(0, io.SeekStart)
	return err
}

func (o *FileOutput) Close() error {
	return o.file.Close()
}
