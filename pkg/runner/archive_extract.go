package runner

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/mholt/archiver/v4"
)

const (
	whiteoutPrefix = ".wh."
	whiteoutOpaque = ".wh..wh..opq"
)

// extractArchiveFile extracts the (optionally compressed) archive at
// archivePath into outputDir. With layer set, entries are treated as an
// image layer: whiteout markers delete what lower layers put in place.
func extractArchiveFile(ctx context.Context, archivePath, outputDir string, layer bool) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	format, input, err := archiver.Identify(filepath.Base(archivePath), f)
	if err != nil {
		return fmt.Errorf("failed to identify archive %s: %w", filepath.Base(archivePath), err)
	}
	extractor, ok := format.(archiver.Extractor)
	if !ok {
		return fmt.Errorf("unsupported archive format %s", format.Name())
	}

	return extractor.Extract(ctx, input, nil, func(ctx context.Context, f archiver.File) error {
		return extractEntry(ctx, f, outputDir, layer)
	})
}

func extractEntry(ctx context.Context, f archiver.File, outputDir string, layer bool) error {
	outputPath, err := securePath(outputDir, f.NameInArchive)
	if err != nil {
		return err
	}

	// Never write or delete through a symlink placed by an earlier entry; it may
	// point outside outputDir.
	if linked, err := hasSymlinkParent(outputDir, outputPath); err != nil {
		return err
	} else if linked {
		slog.DebugContext(ctx, "skipping entry below symlink", "name", f.NameInArchive)
		return nil
	}

	if layer {
		base := path.Base(f.NameInArchive)
		if base == whiteoutOpaque {
			return clearDir(filepath.Dir(outputPath))
		}
		if strings.HasPrefix(base, whiteoutPrefix) {
			target, err := whiteoutTarget(outputDir, f.NameInArchive)
			if err != nil {
				return err
			}
			return os.RemoveAll(target)
		}
	}

	hdr, _ := f.Header.(*tar.Header)

	switch {
	case f.IsDir():
		if err := os.MkdirAll(outputPath, f.Mode().Perm()|0o700); err != nil {
			return fmt.Errorf("mkdir failed: %w", err)
		}
		return nil

	case hdr != nil && hdr.Typeflag == tar.TypeLink:
		target, err := securePath(outputDir, hdr.Linkname)
		if err != nil {
			return err
		}
		// os.Link resolves symlinks in the target path.
		if linked, err := isSymlinked(outputDir, target); err != nil {
			return err
		} else if linked {
			slog.DebugContext(ctx, "skipping hard link through symlink", "name", f.NameInArchive, "target", hdr.Linkname)
			return nil
		}
		if err := replaceWith(outputPath, func() error { return os.Link(target, outputPath) }); err != nil {
			return fmt.Errorf("hard link failed: %w", err)
		}
		return nil

	case f.Mode()&fs.ModeSymlink != 0:
		if err := replaceWith(outputPath, func() error { return os.Symlink(f.LinkTarget, outputPath) }); err != nil {
			return fmt.Errorf("symlink failed: %w", err)
		}
		return nil

	case f.Mode().IsRegular():
		return replaceWith(outputPath, func() error { return writeEntry(f, outputPath) })

	default:
		// devices, fifos and sockets carry no package metadata
		slog.DebugContext(ctx, "skipping special file", "name", f.NameInArchive, "mode", f.Mode().String())
		return nil
	}
}

// replaceWith removes whatever is at p, makes sure its parent exists, then
// runs create.
func replaceWith(p string, create func() error) error {
	// ensure containing directories exist; some archives don't include an explicit entry
	// for parent directories
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create parent dirs for %s failed: %w", p, err)
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		if err := os.RemoveAll(p); err != nil {
			return err
		}
	}
	return create()
}

func writeEntry(f archiver.File, outputPath string) error {
	openFlags := os.O_RDWR | os.O_CREATE | os.O_TRUNC // copied from os.Create()
	extractedFile, err := os.OpenFile(outputPath, openFlags, f.Mode().Perm()|0o600)
	if err != nil {
		return fmt.Errorf("create file failed: %w", err)
	}

	reader, err := f.Open()
	if err != nil {
		_ = extractedFile.Close()
		return fmt.Errorf("archive content open failed: %w", err)
	}
	defer reader.Close()

	if _, err = io.Copy(extractedFile, reader); err != nil {
		if closeErr := extractedFile.Close(); closeErr != nil {
			return fmt.Errorf("copy failed: %w; close also failed: %v", err, closeErr)
		}
		return fmt.Errorf("copy failed: %w", err)
	}
	if err = extractedFile.Close(); err != nil {
		return fmt.Errorf("close failed: %w", err)
	}
	return nil
}

// hasSymlinkParent reports whether any directory between root and p is a
// symlink. Missing components are not symlinks.
func hasSymlinkParent(root, p string) (bool, error) {
	rel, err := filepath.Rel(root, filepath.Dir(p))
	if err != nil {
		return false, err
	}
	if rel == "." {
		return false, nil
	}

	current := root
	for _, part := range strings.Split(rel, string(os.PathSeparator)) {
		current = filepath.Join(current, part)
		info, err := os.Lstat(current)
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if info.Mode()&fs.ModeSymlink != 0 {
			return true, nil
		}
	}
	return false, nil
}

// whiteoutTarget returns the path a whiteout entry deletes. The target must
// be a single name strictly below outputDir.
func whiteoutTarget(outputDir, name string) (string, error) {
	deleted := strings.TrimPrefix(path.Base(name), whiteoutPrefix)
	if deleted == "" || deleted == "." || deleted == ".." || strings.ContainsAny(deleted, `/\`) {
		return "", fmt.Errorf("invalid whiteout entry: %s", name)
	}
	target, err := securePath(outputDir, path.Join(path.Dir(name), deleted))
	if err != nil {
		return "", err
	}
	if target == filepath.Clean(outputDir) {
		return "", fmt.Errorf("invalid whiteout entry: %s", name)
	}
	return target, nil
}

// isSymlinked reports whether p itself or any directory between root and p
// is a symlink.
func isSymlinked(root, p string) (bool, error) {
	if info, err := os.Lstat(p); err == nil && info.Mode()&fs.ModeSymlink != 0 {
		return true, nil
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	return hasSymlinkParent(root, p)
}

// clearDir removes the contents of dir, keeping dir itself.
func clearDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}
