package vfs

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"

	"github.com/spf13/afero"
	"github.com/watercolor-games/redteam/core/config"
)

// NewVFSFromConfig builds the in-memory world filesystem: the optional root
// image, then the configured directories, files and user homes.
func NewVFSFromConfig(configuration *config.Configuration) (afero.Fs, error) {
	memFs := afero.NewMemMapFs()

	fd, err := configuration.OpenRootFsTarGz()
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// No image, start from an empty tree.
	case err != nil:
		return nil, err
	default:
		defer fd.Close()
		gr, err := gzip.NewReader(fd)
		if err != nil {
			return nil, err
		}
		if err := ExtractTarToVFS(memFs, tar.NewReader(gr)); err != nil {
			return nil, err
		}
	}

	if err := Seed(memFs, configuration); err != nil {
		return nil, err
	}
	return memFs, nil
}

// Seed creates the directories, files and home directories named in the
// configuration.
func Seed(vfs afero.Fs, configuration *config.Configuration) error {
	for _, dir := range configuration.Directories {
		if err := vfs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %q: %v", dir, err)
		}
	}

	for _, user := range configuration.Users {
		if err := vfs.MkdirAll(user.Home, 0755); err != nil {
			return fmt.Errorf("creating home %q: %v", user.Home, err)
		}
	}

	// Sort so failures are reproducible.
	var names []string
	for name := range configuration.Files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := vfs.MkdirAll(path.Dir(name), 0755); err != nil {
			return fmt.Errorf("creating %q: %v", path.Dir(name), err)
		}
		if err := afero.WriteFile(vfs, name, []byte(configuration.Files[name]), 0644); err != nil {
			return fmt.Errorf("writing %q: %v", name, err)
		}
	}

	return nil
}

// ExtractTarToVFS copies directories and regular files from a tar stream.
// Other entry types are skipped.
func ExtractTarToVFS(vfs afero.Fs, t *tar.Reader) error {
	for {
		hdr, err := t.Next()
		switch {
		case err == io.EOF:
			return nil
		case err != nil:
			return err
		}

		if err := extractEntry(vfs, path.Clean("/"+hdr.Name), hdr, t); err != nil {
			return fmt.Errorf("extracting %q: %v", hdr.Name, err)
		}
	}
}

func extractEntry(vfs afero.Fs, name string, hdr *tar.Header, r io.Reader) error {
	// Make parents
	if err := vfs.MkdirAll(path.Dir(name), 0755); err != nil {
		return err
	}

	mode := hdr.FileInfo().Mode()
	switch {
	case mode.IsDir():
		if err := vfs.MkdirAll(name, mode.Perm()); err != nil && !os.IsExist(err) {
			return err
		}
	case mode.IsRegular():
		fd, err := vfs.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, mode.Perm())
		if err != nil {
			return err
		}
		// Don't defer the close because it'll update the modification time.
		if _, err := io.CopyN(fd, r, hdr.Size); err != nil {
			fd.Close()
			return err
		}
		fd.Close()
	default:
		return nil
	}

	return vfs.Chtimes(name, hdr.ModTime, hdr.ModTime)
}

// NewSessionFs layers a private writable filesystem over a shared base so a
// session's changes never reach other sessions.
func NewSessionFs(base afero.Fs) afero.Fs {
	return afero.NewCopyOnWriteFs(afero.NewReadOnlyFs(base), afero.NewMemMapFs())
}
