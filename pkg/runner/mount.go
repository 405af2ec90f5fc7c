package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// releaseTimeout bounds the release of a mount. Release runs on a context
// detached from the caller's so an interrupted run still unmounts.
const releaseTimeout = 2 * time.Minute

var mkdirTemp = os.MkdirTemp

// Mounter exposes the filesystem of an image at a local directory.
type Mounter interface {
	Name() string
	// Mount returns a directory holding the image filesystem. On error
	// nothing is left behind.
	Mount(ctx context.Context, image string) (string, error)
	// Unmount releases a directory returned by Mount.
	Unmount(ctx context.Context, dir string) error
}

// WithMountedImage mounts image, calls fn with the mount directory and
// releases the mount afterwards, whether fn succeeded or not.
//
// A failed release fails the call: the release error is returned, joined
// with the error from fn if there was one.
func WithMountedImage(ctx context.Context, m Mounter, image string, fn func(dir string) error) (err error) {
	dir, err := m.Mount(ctx, image)
	if err != nil {
		return fmt.Errorf("failed to mount image %s: %w", image, err)
	}

	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if releaseErr := m.Unmount(releaseCtx, dir); releaseErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to release image mount %s: %w", dir, releaseErr))
		}
	}()

	return fn(dir)
}

// AtomicMounter runs 'atomic mount <image> <dir>' and 'atomic umount <dir>'.
type AtomicMounter struct {
	exec   Executor
	binary string
}

// NewAtomicMounter returns a mounter running the atomic binary.
func NewAtomicMounter(exec Executor, binary string) *AtomicMounter {
	return &AtomicMounter{exec: exec, binary: binary}
}

// Name returns the display name for this mounter.
func (m *AtomicMounter) Name() string { return "atomic" }

// Mount mounts image on a fresh temporary directory. The directory is
// removed again if the mount fails.
func (m *AtomicMounter) Mount(ctx context.Context, image string) (string, error) {
	dir, err := mkdirTemp("", "pkgextract-mount-")
	if err != nil {
		return "", fmt.Errorf("failed to create mount directory: %w", err)
	}

	slog.DebugContext(ctx, "mounting image", "image", image, "dir", dir)
	if _, err := m.exec.Run(ctx, Command{Path: m.binary, Args: []string{"mount", image, dir}}); err != nil {
		if rmErr := os.Remove(dir); rmErr != nil {
			slog.WarnContext(ctx, "failed to remove mount directory", "dir", dir, "error", rmErr)
		}
		return "", err
	}
	return dir, nil
}

// Unmount runs 'atomic umount'. The directory itself is left in place.
func (m *AtomicMounter) Unmount(ctx context.Context, dir string) error {
	slog.DebugContext(ctx, "unmounting image", "dir", dir)
	if _, err := m.exec.Run(ctx, Command{Path: m.binary, Args: []string{"umount", dir}}); err != nil {
		slog.ErrorContext(ctx, "failed to unmount image", "dir", dir, "error", err)
		return err
	}
	return nil
}
