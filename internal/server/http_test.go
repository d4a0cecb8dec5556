package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acmsync/internal/access"
	"acmsync/internal/checkoutapi"
	"acmsync/internal/revision"
)

func newTestAPI(t *testing.T, token string) (*httptest.Server, *Store) {
	t.Helper()
	store := newSQLiteStore(t)
	svc := NewService(store, 1, nil)
	srv := httptest.NewServer(NewHandler(svc, store, token, nil))
	t.Cleanup(srv.Close)
	return srv, store
}

func TestHTTPRequiresToken(t *testing.T) {
	srv, _ := newTestAPI(t, "sekrit")

	anon, err := checkoutapi.NewClient(srv.URL, "", time.Second)
	require.NoError(t, err)
	_, err = anon.StatusCheck(context.Background(), "ACM-TEST", ana)
	assert.True(t, errors.Is(err, checkoutapi.ErrUnauthorized), "got %v", err)

	authed, err := checkoutapi.NewClient(srv.URL, "sekrit", time.Second)
	require.NoError(t, err)
	resp, err := authed.StatusCheck(context.Background(), "ACM-TEST", ana)
	require.NoError(t, err)
	assert.True(t, resp.NoDB())

	require.NoError(t, anon.Ping(context.Background()), "health endpoint is unauthenticated")
}

func TestHTTPBadRequest(t *testing.T) {
	srv, _ := newTestAPI(t, "")

	res, err := http.Get(srv.URL + "/checkOut/ACM-TEST?name=ana&version=nope")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	missing, err := http.Get(srv.URL + "/unknownAction/ACM-TEST")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestHTTPListAndReserve(t *testing.T) {
	srv, _ := newTestAPI(t, "")
	client, err := checkoutapi.NewClient(srv.URL, "", time.Second)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = client.Create(ctx, "ACM-ONE", ana)
	require.NoError(t, err)
	_, err = client.Create(ctx, "acm-two", bo)
	require.NoError(t, err)

	states, err := client.List(ctx)
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, "ACM-ONE", states[0].ACMName)
	assert.Equal(t, "ACM-TWO", states[1].ACMName)
	assert.Equal(t, "bo", states[1].NowOutName)

	block, err := client.ReserveSRN(ctx, ana, 16)
	require.NoError(t, err)
	assert.Equal(t, checkoutapi.StatusOK, block.Status)
	assert.Equal(t, 16, block.End-block.Begin)
}

// TestProtocolEndToEnd drives two workstations through the real server.
func TestProtocolEndToEnd(t *testing.T) {
	srv, _ := newTestAPI(t, "")
	root := t.TempDir()
	shared := revision.NewDirStore(filepath.Join(root, "shared"))
	ctx := context.Background()

	workstation := func(id checkoutapi.Identity) *access.Controller {
		client, err := checkoutapi.NewClient(srv.URL, "", time.Second)
		require.NoError(t, err)
		c, err := access.New(access.Options{
			ACM:      "demo",
			Store:    shared,
			Service:  client,
			Identity: id,
			LocalDir: filepath.Join(root, id.Name),
		})
		require.NoError(t, err)
		t.Cleanup(func() { _ = c.Close() })
		return c
	}

	// ana creates the database.
	anaCtl := workstation(ana)
	status, err := anaCtl.Init(ctx)
	require.NoError(t, err)
	require.Equal(t, access.StatusNewDatabase, status)
	open, err := anaCtl.Open(ctx, false)
	require.NoError(t, err)
	require.Equal(t, access.OpenNewDB, open)
	require.NoError(t, os.WriteFile(filepath.Join(anaCtl.Handle().Dir, "categories.txt"), []byte("health"), 0o644))

	// bo sees it as unavailable while ana holds it.
	boCtl := workstation(bo)
	status, err = boCtl.Init(ctx)
	require.NoError(t, err)
	assert.Equal(t, access.StatusNotAvailable, status)

	update, err := anaCtl.Commit(ctx)
	require.NoError(t, err)
	require.Equal(t, access.UpdateOK, update)

	// bo checks out, ana is refused.
	status, err = boCtl.Init(ctx)
	require.NoError(t, err)
	require.Equal(t, access.StatusAvailable, status)
	open, err = boCtl.Open(ctx, false)
	require.NoError(t, err)
	require.Equal(t, access.OpenOpened, open)
	data, err := os.ReadFile(filepath.Join(boCtl.Handle().Dir, "categories.txt"))
	require.NoError(t, err)
	assert.Equal(t, "health", string(data))

	status, err = anaCtl.Init(ctx)
	require.NoError(t, err)
	assert.Equal(t, access.StatusNotAvailable, status)
	open, err = anaCtl.Open(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, access.OpenSandboxed, open)
	require.NoError(t, anaCtl.Close())

	update, err = boCtl.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, access.UpdateOK, update)

	names, err := shared.List(ctx, "ACM-DEMO")
	require.NoError(t, err)
	assert.Equal(t, []string{"db1.zip", "db2.zip"}, names)
}
