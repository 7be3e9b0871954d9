// Package archive packs directory trees into gzip-compressed tar
// archives, used to snapshot the result tree after a successful run.
package archive

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"qproject/internal/services"
)

// Client defines archive packing behaviour.
type Client interface {
	Pack(ctx context.Context, sources []string, dest string) error
}

// TarGz packs sources into a .tar.gz file.
type TarGz struct{}

// NewTarGz constructs the tar.gz packer.
func NewTarGz() *TarGz {
	return &TarGz{}
}

// Pack writes every source tree into a fresh archive at dest. Each
// source's basename becomes a top-level entry. Symlinks are stored as
// links, never followed. dest must not already exist.
func (t *TarGz) Pack(ctx context.Context, sources []string, dest string) error {
	if len(sources) == 0 {
		return services.Wrap(services.ErrValidation, "archive", "pack", "no sources given", nil)
	}

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return services.Wrap(services.ErrIO, "archive", "create "+dest, "", err)
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	for _, source := range sources {
		if err := packTree(ctx, tw, source); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return services.Wrap(services.ErrIO, "archive", "finalize tar", dest, err)
	}
	if err := gz.Close(); err != nil {
		return services.Wrap(services.ErrIO, "archive", "finalize gzip", dest, err)
	}
	return out.Close()
}

func packTree(ctx context.Context, tw *tar.Writer, source string) error {
	base := filepath.Base(source)
	return filepath.WalkDir(source, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return services.Wrap(services.ErrIO, "archive", "walk", path, err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, err := filepath.Rel(source, path)
		if err != nil {
			return services.Wrap(services.ErrIO, "archive", "relativize", path, err)
		}
		name := base
		if rel != "." {
			name = filepath.Join(base, rel)
		}

		info, err := entry.Info()
		if err != nil {
			return services.Wrap(services.ErrIO, "archive", "stat", path, err)
		}

		var link string
		if info.Mode()&fs.ModeSymlink != 0 {
			if link, err = os.Readlink(path); err != nil {
				return services.Wrap(services.ErrIO, "archive", "readlink", path, err)
			}
		}

		header, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return services.Wrap(services.ErrIO, "archive", "header", path, err)
		}
		header.Name = filepath.ToSlash(name)
		if info.IsDir() && !strings.HasSuffix(header.Name, "/") {
			header.Name += "/"
		}

		if err := tw.WriteHeader(header); err != nil {
			return services.Wrap(services.ErrIO, "archive", "write header", path, err)
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		file, err := os.Open(path)
		if err != nil {
			return services.Wrap(services.ErrIO, "archive", "open", path, err)
		}
		defer file.Close()
		if _, err := io.Copy(tw, file); err != nil {
			return services.Wrap(services.ErrIO, "archive", "copy", path, err)
		}
		return nil
	})
}

// ArchiveName builds the archive file name for a workflow run.
func ArchiveName(workflow string) string {
	return fmt.Sprintf("%s-result.tar.gz", workflow)
}

var _ Client = (*TarGz)(nil)
