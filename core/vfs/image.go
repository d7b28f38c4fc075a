package vfs

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/spf13/afero"
)

const (
	// WhiteoutPrefix prefix means file is a whiteout.
	WhiteoutPrefix = ".wh."
	// WhiteoutOpaque hides every entry a lower layer put in its directory.
	WhiteoutOpaque = WhiteoutPrefix + WhiteoutPrefix + ".opq"
)

// ApplyImageLayers flattens container image layers into vfs, oldest first.
// Whiteouts remove what earlier layers created.
func ApplyImageLayers(vfs afero.Fs, layers []v1.Layer) error {
	for layerIdx, layer := range layers {
		ul, err := layer.Uncompressed()
		if err != nil {
			return fmt.Errorf("couldn't decompress layer[%d]: %v", layerIdx, err)
		}

		err = applyLayer(vfs, tar.NewReader(ul))
		ul.Close()
		if err != nil {
			return fmt.Errorf("layer[%d]: %v", layerIdx, err)
		}
	}

	return nil
}

func applyLayer(vfs afero.Fs, t *tar.Reader) error {
	for {
		hdr, err := t.Next()
		switch {
		case err == io.EOF:
			return nil
		case err != nil:
			return err
		}

		name := path.Clean("/" + hdr.Name)
		dir, base := path.Split(name)

		switch {
		case base == WhiteoutOpaque:
			infos, err := afero.ReadDir(vfs, dir)
			if err != nil && !os.IsNotExist(err) {
				return err
			}
			for _, info := range infos {
				if err := vfs.RemoveAll(path.Join(dir, info.Name())); err != nil {
					return err
				}
			}

		case strings.HasPrefix(base, WhiteoutPrefix):
			if err := vfs.RemoveAll(path.Join(dir, strings.TrimPrefix(base, WhiteoutPrefix))); err != nil {
				return err
			}

		default:
			if err := extractEntry(vfs, name, hdr, t); err != nil {
				return fmt.Errorf("extracting %q: %v", hdr.Name, err)
			}
		}
	}
}

// WriteTarGz writes the directories and regular files of vfs as a gzipped
// tar, the format of the root filesystem image.
func WriteTarGz(vfs afero.Fs, w io.Writer) error {
	gw := gzip.NewWriter(w)
	tw := tar.NewWriter(gw)

	err := afero.Walk(vfs, "/", func(name string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if name == "/" || !(info.IsDir() || info.Mode().IsRegular()) {
			return nil
		}

		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = strings.TrimPrefix(name, "/")
		if info.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}

		if !info.Mode().IsRegular() {
			return nil
		}
		fd, err := vfs.Open(name)
		if err != nil {
			return err
		}
		defer fd.Close()
		_, err = io.Copy(tw, fd)
		return err
	})
	if err != nil {
		return err
	}

	if err := tw.Close(); err != nil {
		return err
	}
	return gw.Close()
}
