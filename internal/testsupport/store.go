package testsupport

import (
	"bytes"
	"context"
	"testing"

	"acmsync/internal/mirror"
	"acmsync/internal/revision"
)

// PutRevision packs files into a revision zip and stores it under name.
func PutRevision(t testing.TB, store revision.Store, acm, name string, files map[string]string) {
	t.Helper()

	dir := t.TempDir()
	WriteTree(t, dir, files)
	var buf bytes.Buffer
	if err := mirror.Pack(dir, &buf); err != nil {
		t.Fatalf("mirror.Pack: %v", err)
	}
	if err := store.Put(context.Background(), acm, name, &buf); err != nil {
		t.Fatalf("store.Put %s/%s: %v", acm, name, err)
	}
}
