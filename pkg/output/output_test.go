package output

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

var doc = []byte("{\n  \"image_name\": \"fedora\"\n}\n")

func TestWrite_Stdout(t *testing.T) {
	for _, dest := range []string{"", "-"} {
		var buf bytes.Buffer
		if err := Write(context.Background(), dest, &buf, doc); err != nil {
			t.Fatalf("Write(%q) error = %v", dest, err)
		}
		if !bytes.Equal(buf.Bytes(), doc) {
			t.Errorf("Write(%q) wrote %q", dest, buf.String())
		}
	}
}

func TestWrite_LocalFile(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "result.json")
	var stdout bytes.Buffer

	if err := Write(context.Background(), dest, &stdout, doc); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if !bytes.Equal(got, doc) {
		t.Errorf("file content = %q, want %q", got, doc)
	}
	if stdout.Len() != 0 {
		t.Errorf("expected nothing on stdout, got %q", stdout.String())
	}
}

func TestWrite_LocalFileMissingDir(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "missing", "result.json")
	if err := Write(context.Background(), dest, &bytes.Buffer{}, doc); err == nil {
		t.Fatal("expected error writing into a missing directory")
	}
}

func TestWrite_FileBucket(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports", "nightly")
	dest := "file://" + dir + "/result.json"

	if err := Write(context.Background(), dest, &bytes.Buffer{}, doc); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "result.json"))
	if err != nil {
		t.Fatalf("failed to read uploaded object: %v", err)
	}
	if !bytes.Equal(got, doc) {
		t.Errorf("object content = %q, want %q", got, doc)
	}
}

func TestSplitBucketURL(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantBucket string
		wantKey    string
		wantErr    bool
	}{
		{"s3 nested key", "s3://reports/images/fedora.json", "s3://reports?prefix=images%2F", "fedora.json", false},
		{"s3 keeps query", "s3://reports/a/b/x.json?region=us-east-1", "s3://reports?prefix=a%2Fb%2F&region=us-east-1", "x.json", false},
		{"gs top level key", "gs://bucket/x.json", "gs://bucket", "x.json", false},
		{"file directory bucket", "file:///var/tmp/out/x.json", "file:///var/tmp/out", "x.json", false},
		{"file at root", "file:///x.json", "file:///", "x.json", false},
		{"no object name", "s3://bucket/dir/", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, key, err := splitBucketURL(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got bucket=%q key=%q", bucket, key)
				}
				return
			}
			if err != nil {
				t.Fatalf("splitBucketURL(%q) error = %v", tt.raw, err)
			}
			if bucket != tt.wantBucket || key != tt.wantKey {
				t.Errorf("splitBucketURL(%q) = (%q, %q), want (%q, %q)", tt.raw, bucket, key, tt.wantBucket, tt.wantKey)
			}
		})
	}
}

func TestIsBucketURL(t *testing.T) {
	if !IsBucketURL("s3://b/k.json") {
		t.Error("expected s3 URL to be a bucket URL")
	}
	if IsBucketURL("/tmp/out.json") || IsBucketURL("out.json") {
		t.Error("expected paths not to be bucket URLs")
	}
}
