package main

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"acmsync/internal/checkoutapi"
	"acmsync/internal/testsupport"
)

func TestOpenCommitRoundTrip(t *testing.T) {
	env := setupCLITestEnv(t)
	ana := env.workstation(t, "ana", "laptop")

	out, _, err := ana.run(t, "open", testACM)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	requireContains(t, out, "Created ACM-TEST")
	requireContains(t, out, "db1.zip")

	testsupport.WriteTree(t, ana.mirrorDir(testACM), map[string]string{"content.txt": "first"})

	out, _, err = ana.run(t, "commit", "test")
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	requireContains(t, out, "Checked in ACM-TEST as db1.zip")

	out, _, err = ana.run(t, "revisions", testACM)
	if err != nil {
		t.Fatalf("revisions: %v", err)
	}
	requireContains(t, out, "db1.zip")

	out, _, err = ana.run(t, "status", testACM, "--json")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var report statusReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode status: %v\n%s", err, out)
	}
	if report.Status != "available" || report.Current != "db1.zip" {
		t.Fatalf("unexpected status report: %+v", report)
	}
	if report.Server == nil || report.Server.LastInName != "ana" {
		t.Fatalf("expected server state with last check-in by ana, got %+v", report.Server)
	}
}

func TestOpenFromRevisionAndCommitNext(t *testing.T) {
	env := setupCLITestEnv(t)
	ana := env.workstation(t, "ana", "laptop")

	if _, _, err := ana.run(t, "open", testACM); err != nil {
		t.Fatalf("first open: %v", err)
	}
	testsupport.WriteTree(t, ana.mirrorDir(testACM), map[string]string{"content.txt": "v1"})
	if _, _, err := ana.run(t, "commit", testACM); err != nil {
		t.Fatalf("first commit: %v", err)
	}

	out, _, err := ana.run(t, "open", testACM)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	requireContains(t, out, "Checked out ACM-TEST (db1.zip)")
	got := testsupport.ReadTree(t, ana.mirrorDir(testACM))
	if got["content.txt"] != "v1" {
		t.Fatalf("mirror not unpacked from db1.zip: %v", got)
	}

	testsupport.WriteTree(t, ana.mirrorDir(testACM), map[string]string{"content.txt": "v2"})
	out, _, err = ana.run(t, "commit", testACM)
	if err != nil {
		t.Fatalf("second commit: %v", err)
	}
	requireContains(t, out, "as db2.zip")
}

func TestSecondHolderGetsSandboxOnly(t *testing.T) {
	env := setupCLITestEnv(t)
	ana := env.workstation(t, "ana", "laptop")
	bo := env.workstation(t, "bo", "desk")
	testsupport.PutRevision(t, storeFor(t, ana), testACM, "db1.zip", map[string]string{"content.txt": "shared"})

	if _, _, err := ana.run(t, "open", testACM); err != nil {
		t.Fatalf("ana open: %v", err)
	}

	_, stderr, err := bo.run(t, "open", testACM)
	if err == nil {
		t.Fatal("expected bo's read-write open to fail while ana holds the checkout")
	}
	requireContains(t, stderr, "--sandbox")

	out, _, err := bo.run(t, "status", testACM)
	if err != nil {
		t.Fatalf("bo status: %v", err)
	}
	requireContains(t, out, "checked out by someone else")
	requireContains(t, out, "ana")

	out, _, err = bo.run(t, "open", testACM, "--sandbox", "--exec", "cat content.txt")
	if err != nil {
		t.Fatalf("bo sandbox: %v", err)
	}
	requireContains(t, out, "Opened sandbox of ACM-TEST (db1.zip)")
	requireContains(t, out, "shared")

	out, _, err = bo.run(t, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "ana@laptop")
}

func TestOpenExecCommit(t *testing.T) {
	env := setupCLITestEnv(t)
	ana := env.workstation(t, "ana", "laptop")

	out, _, err := ana.run(t, "open", testACM, "--exec", "echo edited > content.txt", "--commit")
	if err != nil {
		t.Fatalf("open --exec --commit: %v", err)
	}
	requireContains(t, out, "Checked in ACM-TEST as db1.zip")

	out, _, err = ana.run(t, "open", testACM, "--sandbox", "--exec", "cat content.txt")
	if err != nil {
		t.Fatalf("sandbox: %v", err)
	}
	requireContains(t, out, "edited")
}

func TestDiscardReleasesCheckout(t *testing.T) {
	env := setupCLITestEnv(t)
	ana := env.workstation(t, "ana", "laptop")
	bo := env.workstation(t, "bo", "desk")
	testsupport.PutRevision(t, storeFor(t, ana), testACM, "db1.zip", map[string]string{"content.txt": "v1"})

	if _, _, err := ana.run(t, "open", testACM); err != nil {
		t.Fatalf("open: %v", err)
	}
	out, _, err := ana.run(t, "discard", testACM)
	if err != nil {
		t.Fatalf("discard: %v", err)
	}
	requireContains(t, out, "Discarded local changes")

	if _, _, err := bo.run(t, "open", testACM); err != nil {
		t.Fatalf("bo open after discard: %v", err)
	}
}

func TestCommitWithoutCheckout(t *testing.T) {
	env := setupCLITestEnv(t)
	ana := env.workstation(t, "ana", "laptop")

	_, _, err := ana.run(t, "commit", testACM)
	if err == nil || !strings.Contains(err.Error(), "not checked out") {
		t.Fatalf("expected not checked out error, got %v", err)
	}
}

func TestRevokeRequiresForce(t *testing.T) {
	env := setupCLITestEnv(t)
	ana := env.workstation(t, "ana", "laptop")
	admin := env.workstation(t, "admin", "server")

	if _, _, err := ana.run(t, "open", testACM); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, _, err := admin.run(t, "revoke", testACM); err == nil {
		t.Fatal("expected revoke without --force to fail")
	}
	out, _, err := admin.run(t, "revoke", testACM, "--force")
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}
	requireContains(t, out, "Revoked checkout of ACM-TEST")

	out, _, err = admin.run(t, "list", "--checked-out")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "No ACMs")
}

func TestOpenRejectsBadFlagCombination(t *testing.T) {
	env := setupCLITestEnv(t)
	ana := env.workstation(t, "ana", "laptop")

	if _, _, err := ana.run(t, "open", testACM, "--commit"); err == nil {
		t.Fatal("expected --commit without --exec to fail")
	}
	if _, _, err := ana.run(t, "open", testACM, "--sandbox", "--exec", "true", "--commit"); err == nil {
		t.Fatal("expected --commit with --sandbox to fail")
	}
	markers, err := filepath.Glob(filepath.Join(ana.cfg.Paths.LocalDir, "*.checkout.json"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(markers) != 0 {
		t.Fatalf("rejected flags must not check anything out, found %v", markers)
	}
}

func TestReadOnlyUserCannotCheckOut(t *testing.T) {
	env := setupCLITestEnv(t)
	viewer := env.workstation(t, "viewer", "kiosk", testsupport.WithReadOnly())
	testsupport.PutRevision(t, storeFor(t, viewer), testACM, "db1.zip", map[string]string{"content.txt": "v1"})

	out, _, err := viewer.run(t, "status", testACM)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "read-only")

	if _, _, err := viewer.run(t, "open", testACM); err == nil {
		t.Fatal("expected read-only user to be refused a checkout")
	}
	out, _, err = viewer.run(t, "open", testACM, "--sandbox", "--exec", "cat content.txt")
	if err != nil {
		t.Fatalf("sandbox: %v", err)
	}
	requireContains(t, out, "v1")
}

func TestServerTokenIsRequired(t *testing.T) {
	env := setupCLITestEnvWithToken(t, "sekrit")
	authed := env.workstation(t, "ana", "laptop", testsupport.WithAPIToken("sekrit"))
	anon := env.workstation(t, "bo", "desk")

	if _, _, err := authed.run(t, "list"); err != nil {
		t.Fatalf("list with token: %v", err)
	}
	_, _, err := anon.run(t, "list")
	if !errors.Is(err, checkoutapi.ErrUnauthorized) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}
