// Package output delivers a rendered document to standard output, a local
// file, or a blob bucket.
package output

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"
)

// Write delivers data to dest. An empty dest (or "-") writes to stdout, a
// URL such as s3://bucket/key.json or file:///dir/key.json goes to a blob
// bucket, and anything else is a local file path.
func Write(ctx context.Context, dest string, stdout io.Writer, data []byte) error {
	switch {
	case dest == "" || dest == "-":
		if _, err := stdout.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil

	case IsBucketURL(dest):
		return writeBlob(ctx, dest, data)

	default:
		if err := os.WriteFile(dest, data, 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		slog.InfoContext(ctx, "wrote output file", "path", dest)
		return nil
	}
}

// IsBucketURL reports whether dest names a blob object rather than a path.
func IsBucketURL(dest string) bool {
	return strings.Contains(dest, "://")
}

// splitBucketURL splits an object URL into a bucket URL that blob.OpenBucket
// accepts and the object key. For file:// the directory becomes the bucket;
// for other schemes the host is the bucket and the directory part of the
// path becomes a key prefix.
func splitBucketURL(raw string) (bucketURL, key string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid output URL %q: %w", raw, err)
	}

	dir, key := path.Split(u.Path)
	if key == "" {
		return "", "", fmt.Errorf("output URL %q has no object name", raw)
	}

	if u.Scheme == "file" {
		u.Path = strings.TrimSuffix(dir, "/")
		if u.Path == "" {
			u.Path = "/"
		}
		return u.String(), key, nil
	}

	u.Path = ""
	if prefix := strings.TrimPrefix(dir, "/"); prefix != "" {
		q := u.Query()
		q.Set("prefix", prefix)
		u.RawQuery = q.Encode()
	}
	return u.String(), key, nil
}

func writeBlob(ctx context.Context, dest string, data []byte) error {
	bucketURL, key, err := splitBucketURL(dest)
	if err != nil {
		return err
	}

	if u, _ := url.Parse(bucketURL); u != nil && u.Scheme == "file" {
		// fileblob requires the bucket directory to exist
		if err := os.MkdirAll(u.Path, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	bkt, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return fmt.Errorf("failed to open bucket %s: %w", bucketURL, err)
	}
	defer bkt.Close()

	slog.InfoContext(ctx, "uploading results", "bucket", bucketURL, "key", key)
	if err := bkt.WriteAll(ctx, key, data, &blob.WriterOptions{ContentType: "application/json"}); err != nil {
		return fmt.Errorf("failed to upload results to %s: %w", dest, err)
	}
	return nil
}
