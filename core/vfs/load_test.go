package vfs

import (
	"archive/tar"
	"bytes"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/watercolor-games/redteam/core/config"
)

func TestExtractTarToVFS(t *testing.T) {
	buf := &bytes.Buffer{}
	tw := tar.NewWriter(buf)
	modTime := time.Date(2006, 1, 2, 3, 4, 5, 0, time.UTC)
	entries := []struct {
		hdr  tar.Header
		body string
	}{
		{tar.Header{Name: "etc/", Typeflag: tar.TypeDir, Mode: 0755, ModTime: modTime}, ""},
		{tar.Header{Name: "etc/passwd", Typeflag: tar.TypeReg, Mode: 0644, ModTime: modTime}, "root:x:0:0::/root:/bin/sh\n"},
		{tar.Header{Name: "usr/share/doc/readme", Typeflag: tar.TypeReg, Mode: 0644, ModTime: modTime}, "docs"},
		{tar.Header{Name: "bin/sh", Typeflag: tar.TypeSymlink, Linkname: "/bin/bash", ModTime: modTime}, ""},
	}
	for _, e := range entries {
		hdr := e.hdr
		hdr.Size = int64(len(e.body))
		assert.Nil(t, tw.WriteHeader(&hdr))
		_, err := tw.Write([]byte(e.body))
		assert.Nil(t, err)
	}
	assert.Nil(t, tw.Close())

	memFs := afero.NewMemMapFs()
	assert.Nil(t, ExtractTarToVFS(memFs, tar.NewReader(buf)))

	vfs := New(memFs)
	passwd, err := vfs.ReadAllText("/etc/passwd")
	assert.Nil(t, err)
	assert.Equal(t, "root:x:0:0::/root:/bin/sh\n", passwd)

	readme, err := vfs.ReadAllText("/usr/share/doc/readme")
	assert.Nil(t, err)
	assert.Equal(t, "docs", readme)

	info, err := memFs.Stat("/etc/passwd")
	assert.Nil(t, err)
	assert.True(t, modTime.Equal(info.ModTime()))

	// Symlinks are skipped.
	assert.Empty(t, vfs.ListFiles("/bin"))
}

func TestNewVFSFromConfig(t *testing.T) {
	cfg := config.Default()

	memFs, err := NewVFSFromConfig(cfg)
	assert.Nil(t, err)

	vfs := New(memFs)
	for _, dir := range []string{"/bin", "/etc", "/tmp", "/var/log", "/root", "/home/player"} {
		assert.True(t, vfs.DirectoryExists(dir), dir)
	}

	readme, err := vfs.ReadAllText("/home/player/readme.txt")
	assert.Nil(t, err)
	assert.Equal(t, "Your first target is somewhere on this network.\n", readme)
}

func TestNewSessionFs(t *testing.T) {
	base := afero.NewMemMapFs()
	assert.Nil(t, afero.WriteFile(base, "/etc/motd", []byte("shared"), 0644))

	first := New(NewSessionFs(base))
	second := New(NewSessionFs(base))

	assert.Nil(t, first.WriteAllText("/etc/motd", "changed"))

	text, _ := first.ReadAllText("/etc/motd")
	assert.Equal(t, "changed", text)

	text, _ = second.ReadAllText("/etc/motd")
	assert.Equal(t, "shared", text)

	original, _ := afero.ReadFile(base, "/etc/motd")
	assert.Equal(t, "shared", string(original))
}
