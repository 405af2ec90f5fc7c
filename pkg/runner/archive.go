package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/northcutted/pkgextract/pkg/types"
)

// ArchiveMounter exposes an image by saving it with the container runtime
// ('docker save' or 'podman save') and unpacking its layers into a
// temporary directory. It needs no mount privileges.
type ArchiveMounter struct {
	exec    Executor
	runtime string
}

// NewArchiveMounter returns a mounter saving images with runtime. An empty
// runtime is resolved with DetectRuntime on first use.
func NewArchiveMounter(exec Executor, runtime string) *ArchiveMounter {
	return &ArchiveMounter{exec: exec, runtime: runtime}
}

// Name returns the display name for this mounter.
func (m *ArchiveMounter) Name() string { return "archive" }

// Mount saves image to a temporary archive and unpacks its layers, in order,
// into a fresh directory. The archive is removed before Mount returns.
func (m *ArchiveMounter) Mount(ctx context.Context, image string) (dir string, err error) {
	if m.runtime == "" {
		if m.runtime, err = DetectRuntime(); err != nil {
			return "", err
		}
	}

	archive, err := os.CreateTemp("", "pkgextract-image-*.tar")
	if err != nil {
		return "", fmt.Errorf("failed to create archive file: %w", err)
	}
	archivePath := archive.Name()
	// the runtime writes the file itself
	_ = archive.Close()
	defer func() {
		slog.DebugContext(ctx, "removing image archive", "path", archivePath)
		if rmErr := os.Remove(archivePath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			slog.WarnContext(ctx, "failed to remove image archive", "path", archivePath, "error", rmErr)
		}
	}()

	slog.DebugContext(ctx, "saving image", "image", image, "archive", archivePath)
	if _, err := m.exec.Run(ctx, Command{
		Path: m.runtime,
		Args: []string{"save", "--output", archivePath, image},
	}); err != nil {
		return "", err
	}

	dir, err = mkdirTemp("", "pkgextract-rootfs-")
	if err != nil {
		return "", fmt.Errorf("failed to create rootfs directory: %w", err)
	}

	slog.DebugContext(ctx, "unpacking image", "image", image, "dir", dir)
	if err := extractImageArchive(ctx, archivePath, dir); err != nil {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			slog.WarnContext(ctx, "failed to remove rootfs directory", "dir", dir, "error", rmErr)
		}
		return "", fmt.Errorf("failed to unpack image %s: %w", image, err)
	}
	return dir, nil
}

// Unmount deletes the unpacked filesystem.
func (m *ArchiveMounter) Unmount(ctx context.Context, dir string) error {
	slog.DebugContext(ctx, "removing rootfs directory", "dir", dir)
	if err := os.RemoveAll(dir); err != nil {
		slog.ErrorContext(ctx, "failed to remove rootfs directory", "dir", dir, "error", err)
		return err
	}
	return nil
}

// extractImageArchive unpacks a 'docker save' archive and applies the layers
// listed in its manifest.json onto rootfs.
func extractImageArchive(ctx context.Context, archivePath, rootfs string) error {
	staging, err := mkdirTemp("", "pkgextract-layers-")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(staging); rmErr != nil {
			slog.WarnContext(ctx, "failed to remove staging directory", "dir", staging, "error", rmErr)
		}
	}()

	if err := extractArchiveFile(ctx, archivePath, staging, false); err != nil {
		return err
	}

	layers, err := readSaveManifest(staging)
	if err != nil {
		return err
	}

	for i, layer := range layers {
		layerPath, err := securePath(staging, layer)
		if err != nil {
			return err
		}
		slog.DebugContext(ctx, "applying layer", "index", i, "layer", layer)
		if err := extractArchiveFile(ctx, layerPath, rootfs, true); err != nil {
			return fmt.Errorf("layer %s: %w", layer, err)
		}
	}
	return nil
}

// readSaveManifest returns the layer paths of the first image described by
// manifest.json, bottom layer first.
func readSaveManifest(dir string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read image manifest: %w", err)
	}

	var manifest []struct {
		Layers []string `json:"Layers"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, &types.MalformedOutputError{Tool: "image archive manifest", Err: err}
	}
	if len(manifest) == 0 {
		return nil, &types.MalformedOutputError{Tool: "image archive manifest", Err: errors.New("no image in manifest")}
	}
	return manifest[0].Layers, nil
}

// securePath joins name onto root and rejects results outside root.
func securePath(root, name string) (string, error) {
	root = filepath.Clean(root)
	p := filepath.Join(root, filepath.FromSlash(name))
	if p != root && !strings.HasPrefix(p, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive path escapes output dir: %s", name)
	}
	return p, nil
}
