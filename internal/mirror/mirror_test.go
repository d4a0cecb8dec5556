package mirror

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, body := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
}

func TestPackUnpackRoundTrip(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src")
	files := map[string]string{
		"content/en/audio1.a18":     "audio",
		"categories.xml":            "<categories/>",
		"languages/dga/prompts.txt": "hello",
	}
	writeTree(t, src, files)

	var buf bytes.Buffer
	if err := Pack(src, &buf); err != nil {
		t.Fatalf("Pack: %v", err)
	}

	dst := filepath.Join(t.TempDir(), "mirror")
	writeTree(t, dst, map[string]string{"stale.txt": "old"})
	if err := Unpack(bytes.NewReader(buf.Bytes()), dst); err != nil {
		t.Fatalf("Unpack: %v", err)
	}

	for rel, body := range files {
		data, err := os.ReadFile(filepath.Join(dst, filepath.FromSlash(rel)))
		if err != nil {
			t.Fatalf("read %s: %v", rel, err)
		}
		if string(data) != body {
			t.Fatalf("%s: got %q want %q", rel, data, body)
		}
	}
	if _, err := os.Stat(filepath.Join(dst, "stale.txt")); !os.IsNotExist(err) {
		t.Fatal("expected unpack to rebuild the mirror from scratch")
	}
}

func TestUnpackRejectsEscapingEntries(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("../evil.txt")
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	_, _ = w.Write([]byte("x"))
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	dst := filepath.Join(t.TempDir(), "mirror")
	err = Unpack(bytes.NewReader(buf.Bytes()), dst)
	if !errors.Is(err, ErrUnsafePath) {
		t.Fatalf("expected ErrUnsafePath, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(filepath.Dir(dst), "evil.txt")); !os.IsNotExist(statErr) {
		t.Fatal("entry escaped the mirror")
	}
}

func TestSeedAndRemove(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ACM-NEW")
	if err := Seed(dir); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if !Exists(dir) {
		t.Fatal("expected seeded mirror")
	}
	if err := Remove(dir); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if Exists(dir) {
		t.Fatal("expected mirror removed")
	}
}
