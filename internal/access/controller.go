package access

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"acmsync/internal/acmlock"
	"acmsync/internal/checkoutapi"
	"acmsync/internal/config"
	"acmsync/internal/logging"
	"acmsync/internal/mirror"
	"acmsync/internal/revision"
)

var (
	// ErrNotInitialized is returned by Open before Init has run.
	ErrNotInitialized = errors.New("access status has not been determined")
	// ErrAlreadyOpen is returned when a session is already open.
	ErrAlreadyOpen = errors.New("acm is already open")
	// ErrNotOpen is returned by Commit and Discard without an open session.
	ErrNotOpen = errors.New("acm is not open")
)

// Service is the checkout server as seen by the protocol. *checkoutapi.Client
// satisfies it.
type Service interface {
	StatusCheck(ctx context.Context, acm string, id checkoutapi.Identity) (checkoutapi.Response, error)
	CheckOut(ctx context.Context, acm string, id checkoutapi.Identity) (checkoutapi.Response, error)
	Create(ctx context.Context, acm string, id checkoutapi.Identity) (checkoutapi.Response, error)
	CheckIn(ctx context.Context, acm string, id checkoutapi.Identity, key, filename string) (checkoutapi.Response, error)
	Discard(ctx context.Context, acm string, id checkoutapi.Identity, key, filename string) (checkoutapi.Response, error)
}

// Options configures a Controller.
type Options struct {
	ACM           string
	Store         revision.Store
	Service       Service
	Identity      checkoutapi.Identity
	LocalDir      string
	ReadOnly      bool
	KeepRevisions int
	Logger        *slog.Logger
	Now           func() time.Time
}

// Handle describes an open ACM.
type Handle struct {
	ACM string
	// Current is the revision the mirror was unpacked from; empty for a new
	// database.
	Current string
	// Next is the revision a commit will write. Empty for sandboxes.
	Next    string
	Sandbox bool
	Dir     string
}

// Controller runs the checkout protocol for one ACM.
type Controller struct {
	opts   Options
	logger *slog.Logger
	now    func() time.Time
	lock   *acmlock.Locker

	status    AccessStatus
	register  bool
	revisions []string
	current   string
	server    *checkoutapi.State
	marker    *Marker
	handle    *Handle
}

// New validates opts and returns a Controller. Nothing is read until Init.
func New(opts Options) (*Controller, error) {
	acm, err := revision.CanonicalACM(opts.ACM)
	if err != nil {
		return nil, err
	}
	if opts.Store == nil {
		return nil, errors.New("revision store is required")
	}
	if opts.Service == nil {
		return nil, errors.New("checkout service is required")
	}
	if strings.TrimSpace(opts.LocalDir) == "" {
		return nil, errors.New("local directory is required")
	}
	opts.ACM = acm
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := logging.NewComponentLogger(opts.Logger, "access").With(logging.String(logging.FieldACM, acm))
	return &Controller{
		opts:   opts,
		logger: logger,
		now:    now,
		lock:   acmlock.ForACM(opts.LocalDir, acm),
	}, nil
}

// NewFromConfig builds a Controller for acm using the workstation settings.
func NewFromConfig(cfg *config.Config, acm string, store revision.Store, service Service, logger *slog.Logger) (*Controller, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	return New(Options{
		ACM:           acm,
		Store:         store,
		Service:       service,
		Identity:      checkoutapi.IdentityFromConfig(cfg),
		LocalDir:      cfg.Paths.LocalDir,
		ReadOnly:      cfg.Identity.ReadOnly,
		KeepRevisions: cfg.Storage.KeepRevisions,
		Logger:        logger,
	})
}

// ACM returns the canonical ACM name.
func (c *Controller) ACM() string { return c.opts.ACM }

// Status returns the status settled on by the last Init.
func (c *Controller) Status() AccessStatus { return c.status }

// Current returns the latest revision in the store as of the last Init.
func (c *Controller) Current() string { return c.current }

// Revisions returns the store's revisions as of the last Init, oldest first.
func (c *Controller) Revisions() []string {
	return append([]string(nil), c.revisions...)
}

// ServerState returns the last state reported by the server, if any.
func (c *Controller) ServerState() *checkoutapi.State {
	if c.server == nil {
		return nil
	}
	state := *c.server
	return &state
}

// Marker returns the local checkout marker, if this workstation holds one.
func (c *Controller) Marker() *Marker {
	if c.marker == nil {
		return nil
	}
	m := *c.marker
	return &m
}

// Handle returns the open session, or nil.
func (c *Controller) Handle() *Handle {
	if c.handle == nil {
		return nil
	}
	h := *c.handle
	return &h
}

// MirrorDir is where a read-write session keeps the unpacked database.
func (c *Controller) MirrorDir() string {
	return filepath.Join(c.opts.LocalDir, c.opts.ACM)
}

// SandboxDir is where a sandbox session unpacks its throwaway copy.
func (c *Controller) SandboxDir() string {
	return filepath.Join(c.opts.LocalDir, c.opts.ACM+".sandbox")
}

// Init determines the access status. It reads the store, the local marker and
// the server's statusCheck; it never changes anything on the server.
func (c *Controller) Init(ctx context.Context) (AccessStatus, error) {
	if c.handle != nil {
		return c.status, ErrAlreadyOpen
	}
	c.register = false
	c.server = nil

	names, err := c.opts.Store.List(ctx, c.opts.ACM)
	if err != nil {
		c.decide(StatusNoDB, "revision store unavailable")
		return StatusNoDB, fmt.Errorf("list revisions: %w", err)
	}
	c.revisions = revision.Sorted(names)
	c.current, _ = revision.Latest(c.revisions)

	marker, err := ReadMarker(c.opts.LocalDir, c.opts.ACM)
	if err != nil {
		logging.WarnWithContext(c.logger, "ignoring unreadable checkout marker", "marker_unreadable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "delete "+MarkerPath(c.opts.LocalDir, c.opts.ACM)+" if the problem persists"),
		)
		marker = nil
	}
	c.marker = marker

	resp, callErr := c.opts.Service.StatusCheck(ctx, c.opts.ACM, c.opts.Identity)
	reachable := callErr == nil
	if reachable {
		c.server = resp.State
	}

	if c.marker != nil && reachable && checkInLanded(c.marker, resp) {
		c.logger.Info("earlier check-in completed on server",
			logging.Args(append(logging.DecisionAttrs("pending_checkin", "landed", "server last_in matches pending upload"),
				logging.String(logging.FieldRevision, c.marker.Pending))...)...)
		if err := RemoveMarker(c.opts.LocalDir, c.opts.ACM); err != nil {
			return c.status, err
		}
		c.marker = nil
	}

	if c.marker != nil {
		if reachable && (resp.OK() || resp.NoDB()) && !markerHeld(c.marker, resp) {
			c.dropUnaccepted(ctx, c.marker.Pending, resp.State)
			logging.WarnWithContext(c.logger, "removing stale checkout marker", "marker_stale",
				logging.String(logging.FieldHolder, holderOf(resp.State)),
				logging.String(logging.FieldImpact, "local lease no longer valid; unsaved local changes cannot be committed"),
			)
			if err := RemoveMarker(c.opts.LocalDir, c.opts.ACM); err != nil {
				return c.status, err
			}
			c.marker = nil
		} else {
			return c.decide(StatusCheckedOut, "local checkout marker present"), nil
		}
	}

	if !reachable {
		logging.WarnWithContext(c.logger, "checkout server unavailable", "server_unreachable",
			logging.Error(callErr),
			logging.String(logging.FieldErrorHint, "check network connectivity and server.url"),
			logging.String(logging.FieldImpact, "only sandbox access is possible"),
		)
		if len(c.revisions) > 0 {
			return c.decide(StatusNoNetwork, "server unreachable; store has revisions"), nil
		}
		return c.decide(StatusNoDB, "server unreachable; store is empty"), nil
	}

	if c.opts.ReadOnly {
		return c.decide(StatusUserReadOnly, "user configured read-only"), nil
	}

	if resp.NoDB() {
		if len(c.revisions) == 0 {
			return c.decide(StatusNewDatabase, "unknown to server and store"), nil
		}
		c.register = true
		return c.decide(StatusAvailable, "store has revisions the server has not registered"), nil
	}

	if resp.Denied() {
		return c.decide(StatusNotAvailable, "status check denied: "+resp.Message), nil
	}

	var state checkoutapi.State
	if resp.State != nil {
		state = *resp.State
	}
	if revision.Newer(state.LastInFileName, c.current) {
		return c.decide(StatusOutdatedDB, fmt.Sprintf("server has %s, store has %q", state.LastInFileName, c.current)), nil
	}
	if state.CheckedOut() && !state.HeldBy(c.opts.Identity) {
		return c.decide(StatusNotAvailable, "checked out by "+state.NowOutName), nil
	}
	if len(c.revisions) == 0 {
		return c.decide(StatusNoDB, "server knows the acm but the store is empty"), nil
	}
	return c.decide(StatusAvailable, "no conflicting checkout"), nil
}

func (c *Controller) decide(status AccessStatus, reason string) AccessStatus {
	c.status = status
	c.logger.Info("access status determined", logging.Args(logging.DecisionAttrs("access_status", status.String(), reason)...)...)
	return status
}

// Open opens the ACM in sandbox or read-write mode.
func (c *Controller) Open(ctx context.Context, useSandbox bool) (OpenStatus, error) {
	if c.status == StatusUnknown {
		return OpenFailed, ErrNotInitialized
	}
	if c.handle != nil {
		return OpenFailed, ErrAlreadyOpen
	}
	if useSandbox && !c.status.CanSandbox() {
		return OpenNotAllowed, fmt.Errorf("sandbox open not allowed: %s", c.status.Describe())
	}
	if !useSandbox && !c.status.CanReadWrite() {
		return OpenNotAllowed, fmt.Errorf("read-write open not allowed: %s", c.status.Describe())
	}
	if err := c.lock.TryLock(); err != nil {
		if errors.Is(err, acmlock.ErrLocked) {
			return OpenLocked, err
		}
		return OpenFailed, err
	}

	var (
		status OpenStatus
		err    error
	)
	if useSandbox {
		status, err = c.openSandbox(ctx)
	} else {
		status, err = c.openReadWrite(ctx)
	}
	if !status.Success() {
		_ = c.lock.Unlock()
	}
	c.logger.Info("open finished",
		logging.String("mode", modeLabel(useSandbox)),
		logging.String("result", status.String()),
	)
	return status, err
}

func (c *Controller) openSandbox(ctx context.Context) (OpenStatus, error) {
	if c.current == "" {
		return OpenNoDB, fmt.Errorf("no revision of %s to open", c.opts.ACM)
	}
	dir := c.SandboxDir()
	if err := c.unpack(ctx, c.current, dir); err != nil {
		return OpenFailed, err
	}
	c.handle = &Handle{ACM: c.opts.ACM, Current: c.current, Sandbox: true, Dir: dir}
	return OpenSandboxed, nil
}

func (c *Controller) openReadWrite(ctx context.Context) (OpenStatus, error) {
	if c.status == StatusCheckedOut && c.marker != nil {
		return c.resume(ctx)
	}

	create := c.status == StatusNewDatabase || c.register
	var (
		resp checkoutapi.Response
		err  error
	)
	if create {
		resp, err = c.opts.Service.Create(ctx, c.opts.ACM, c.opts.Identity)
	} else {
		resp, err = c.opts.Service.CheckOut(ctx, c.opts.ACM, c.opts.Identity)
		if err == nil && resp.NoDB() {
			resp, err = c.opts.Service.Create(ctx, c.opts.ACM, c.opts.Identity)
		}
	}
	if err != nil {
		return OpenNetworkError, fmt.Errorf("check out %s: %w", c.opts.ACM, err)
	}
	if resp.State != nil {
		c.server = resp.State
	}
	if !resp.OK() {
		return OpenDenied, fmt.Errorf("checkout of %s denied: %s", c.opts.ACM, denialReason(resp))
	}
	if resp.Key == "" {
		return OpenFailed, fmt.Errorf("checkout of %s returned no key", c.opts.ACM)
	}

	known := append(c.Revisions(), resp.Filename)
	if c.server != nil {
		known = append(known, c.server.LastInFileName)
	}
	marker := &Marker{
		ACM:          c.opts.ACM,
		Key:          resp.Key,
		Base:         c.current,
		Next:         revision.NextName(known...),
		Holder:       c.opts.Identity.Name,
		ComputerName: c.opts.Identity.ComputerName,
		CheckedOutAt: c.now().UTC(),
		NewDatabase:  c.current == "",
	}
	if err := WriteMarker(c.opts.LocalDir, marker); err != nil {
		c.release(ctx, marker)
		return OpenFailed, err
	}

	dir := c.MirrorDir()
	if c.current == "" {
		err = mirror.Seed(dir)
	} else {
		err = c.unpack(ctx, c.current, dir)
	}
	if err != nil {
		c.release(ctx, marker)
		return OpenFailed, err
	}

	c.marker = marker
	c.status = StatusCheckedOut
	c.handle = &Handle{ACM: c.opts.ACM, Current: c.current, Next: marker.Next, Dir: dir}
	c.logger.Info("checked out",
		logging.String(logging.FieldRevision, c.current),
		logging.String("next_revision", marker.Next),
	)
	if c.current == "" {
		return OpenNewDB, nil
	}
	return OpenOpened, nil
}

// resume reopens a checkout recorded by an earlier process. The mirror is kept
// as is so uncommitted work survives.
func (c *Controller) resume(ctx context.Context) (OpenStatus, error) {
	dir := c.MirrorDir()
	if !mirror.Exists(dir) {
		base := c.marker.Base
		if !c.hasRevision(base) {
			base = c.current
		}
		var err error
		if base == "" {
			err = mirror.Seed(dir)
		} else {
			err = c.unpack(ctx, base, dir)
		}
		if err != nil {
			return OpenFailed, err
		}
	}
	c.handle = &Handle{ACM: c.opts.ACM, Current: c.marker.Base, Next: c.marker.Next, Dir: dir}
	c.logger.Info("resumed local checkout", logging.String("next_revision", c.marker.Next))
	if c.marker.NewDatabase && c.marker.Base == "" {
		return OpenNewDB, nil
	}
	return OpenOpened, nil
}

// Commit publishes the mirror as the next revision and checks the ACM in.
func (c *Controller) Commit(ctx context.Context) (UpdateStatus, error) {
	h := c.handle
	if h == nil {
		return UpdateNotOpen, ErrNotOpen
	}
	if h.Sandbox {
		return UpdateNotAllowed, errors.New("sandbox sessions cannot be committed")
	}

	if c.marker.Pending != "" {
		if status, settled, err := c.settlePending(ctx); settled {
			return status, err
		}
	}

	name, status, err := c.upload(ctx, h)
	if err != nil {
		return status, err
	}

	resp, err := c.opts.Service.CheckIn(ctx, c.opts.ACM, c.opts.Identity, c.marker.Key, name)
	if err != nil {
		// The server may have applied the check-in before the reply was lost,
		// so the upload stays until a later status check settles it.
		c.marker.Pending = name
		if werr := WriteMarker(c.opts.LocalDir, c.marker); werr != nil {
			c.logger.Warn("record pending check-in failed", logging.Error(werr))
		}
		logging.WarnWithContext(c.logger, "check-in failed; local checkout kept", "checkin_unreachable",
			logging.Error(err),
			logging.String(logging.FieldRevision, name),
			logging.String(logging.FieldImpact, "changes remain local; retry commit when the server is reachable"),
		)
		return UpdateNetworkError, fmt.Errorf("check in %s: %w", name, err)
	}
	if !resp.OK() {
		c.deleteUpload(ctx, name)
		return c.denyCheckIn(resp, name)
	}
	return c.finishCheckIn(ctx, name), nil
}

// settlePending resolves a check-in whose reply was lost before uploading
// again. It reports false when the lease is still ours and Commit should
// publish a fresh revision.
func (c *Controller) settlePending(ctx context.Context) (UpdateStatus, bool, error) {
	pending := c.marker.Pending
	resp, err := c.opts.Service.StatusCheck(ctx, c.opts.ACM, c.opts.Identity)
	if err != nil {
		return UpdateNetworkError, true, fmt.Errorf("status check %s: %w", c.opts.ACM, err)
	}
	if resp.State != nil {
		c.server = resp.State
	}
	switch {
	case checkInLanded(c.marker, resp):
		c.logger.Info("earlier check-in completed on server", logging.String(logging.FieldRevision, pending))
		return c.finishCheckIn(ctx, pending), true, nil
	case markerHeld(c.marker, resp):
		c.deleteUpload(ctx, pending)
		c.marker.Pending = ""
		if err := WriteMarker(c.opts.LocalDir, c.marker); err != nil {
			return UpdateNetworkError, true, err
		}
		return UpdateOK, false, nil
	default:
		c.dropUnaccepted(ctx, pending, resp.State)
		status, err := c.denyCheckIn(resp, pending)
		return status, true, err
	}
}

func (c *Controller) denyCheckIn(resp checkoutapi.Response, name string) (UpdateStatus, error) {
	if resp.State != nil {
		c.server = resp.State
	}
	if err := RemoveMarker(c.opts.LocalDir, c.opts.ACM); err != nil {
		c.logger.Warn("remove checkout marker failed", logging.Error(err))
	}
	c.marker = nil
	c.closeSession()
	c.status = StatusNotAvailable
	return UpdateDenied, fmt.Errorf("check-in of %s denied: %s", name, denialReason(resp))
}

func (c *Controller) finishCheckIn(ctx context.Context, name string) UpdateStatus {
	if err := RemoveMarker(c.opts.LocalDir, c.opts.ACM); err != nil {
		c.logger.Warn("remove checkout marker failed", logging.Error(err))
	}
	if !c.hasRevision(name) {
		c.revisions = append(c.revisions, name)
	}
	c.current = name
	c.marker = nil
	c.closeSession()
	c.status = StatusAvailable
	c.logger.Info("checked in", logging.String(logging.FieldRevision, name))

	if _, err := revision.Prune(ctx, c.opts.Store, c.opts.ACM, c.opts.KeepRevisions, c.logger); err != nil {
		logging.WarnWithContext(c.logger, "pruning old revisions failed", "prune_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "old revisions remain in the store"),
		)
	}
	return UpdateOK
}

// dropUnaccepted deletes a pending upload the server provably never accepted:
// its last check-in is older than the upload. A newer last check-in leaves the
// upload alone since it may have landed before someone else checked in.
func (c *Controller) dropUnaccepted(ctx context.Context, pending string, state *checkoutapi.State) {
	if pending == "" || state == nil || !revision.Newer(pending, state.LastInFileName) {
		return
	}
	c.deleteUpload(ctx, pending)
	c.revisions = slices.DeleteFunc(c.revisions, func(n string) bool { return n == pending })
	c.current, _ = revision.Latest(c.revisions)
}

// upload writes the mirror to the store under the next free revision name.
func (c *Controller) upload(ctx context.Context, h *Handle) (string, UpdateStatus, error) {
	name := h.Next
	for attempt := 0; ; attempt++ {
		packErr, putErr := c.putMirror(ctx, h.Dir, name)
		if putErr == nil && packErr == nil {
			return name, UpdateOK, nil
		}
		if putErr == nil || (packErr != nil && !errors.Is(packErr, io.ErrClosedPipe)) {
			return "", UpdateZipError, fmt.Errorf("zip mirror: %w", packErr)
		}
		if errors.Is(putErr, revision.ErrExists) && attempt == 0 {
			names, err := c.opts.Store.List(ctx, c.opts.ACM)
			if err != nil {
				return "", UpdateNetworkError, fmt.Errorf("list revisions: %w", err)
			}
			name = revision.NextName(append(names, name)...)
			c.marker.Next = name
			h.Next = name
			c.handle.Next = name
			if err := WriteMarker(c.opts.LocalDir, c.marker); err != nil {
				return "", UpdateNetworkError, err
			}
			continue
		}
		return "", UpdateNetworkError, fmt.Errorf("upload %s: %w", name, putErr)
	}
}

func (c *Controller) putMirror(ctx context.Context, dir, name string) (packErr, putErr error) {
	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		err := mirror.Pack(dir, pw)
		_ = pw.CloseWithError(err)
		done <- err
	}()
	putErr = c.opts.Store.Put(ctx, c.opts.ACM, name, pr)
	_ = pr.Close()
	packErr = <-done
	return packErr, putErr
}

func (c *Controller) deleteUpload(ctx context.Context, name string) {
	if err := c.opts.Store.Delete(ctx, c.opts.ACM, name); err != nil {
		logging.WarnWithContext(c.logger, "could not remove rejected revision", "revision_cleanup_failed",
			logging.Error(err),
			logging.String(logging.FieldRevision, name),
			logging.String(logging.FieldErrorHint, "delete the revision from the shared store by hand"),
		)
	}
}

// Discard abandons the session. Read-write sessions release the server lease.
func (c *Controller) Discard(ctx context.Context) (UpdateStatus, error) {
	h := c.handle
	if h == nil {
		return UpdateNotOpen, ErrNotOpen
	}
	if h.Sandbox {
		c.closeSession()
		return UpdateOK, nil
	}

	resp, err := c.opts.Service.Discard(ctx, c.opts.ACM, c.opts.Identity, c.marker.Key, c.marker.Base)
	if err != nil {
		return UpdateNetworkError, fmt.Errorf("discard %s: %w", c.opts.ACM, err)
	}
	if err := RemoveMarker(c.opts.LocalDir, c.opts.ACM); err != nil {
		c.logger.Warn("remove checkout marker failed", logging.Error(err))
	}
	if err := mirror.Remove(h.Dir); err != nil {
		c.logger.Warn("remove mirror failed", logging.Error(err))
	}
	c.marker = nil
	c.closeSession()
	if !resp.OK() {
		c.status = StatusNotAvailable
		return UpdateDenied, fmt.Errorf("discard of %s denied: %s", c.opts.ACM, denialReason(resp))
	}
	c.status = StatusAvailable
	c.logger.Info("checkout discarded")
	return UpdateOK, nil
}

// Close ends the session and releases the local lock. A read-write checkout
// stays recorded in the marker and can be resumed later.
func (c *Controller) Close() error {
	c.closeSession()
	return c.lock.Unlock()
}

func (c *Controller) closeSession() {
	if c.handle != nil && c.handle.Sandbox {
		if err := mirror.Remove(c.handle.Dir); err != nil {
			c.logger.Warn("remove sandbox failed", logging.Error(err))
		}
	}
	c.handle = nil
	if err := c.lock.Unlock(); err != nil {
		c.logger.Warn("release local lock failed", logging.Error(err))
	}
}

// release gives the lease back after a failed open.
func (c *Controller) release(ctx context.Context, marker *Marker) {
	if _, err := c.opts.Service.Discard(ctx, c.opts.ACM, c.opts.Identity, marker.Key, marker.Base); err != nil {
		c.logger.Warn("release checkout after failed open", logging.Error(err))
	}
	_ = RemoveMarker(c.opts.LocalDir, c.opts.ACM)
}

func (c *Controller) unpack(ctx context.Context, name, dir string) error {
	rc, err := c.opts.Store.Open(ctx, c.opts.ACM, name)
	if err != nil {
		return fmt.Errorf("open revision %s: %w", name, err)
	}
	defer rc.Close()
	if err := mirror.Unpack(rc, dir); err != nil {
		return fmt.Errorf("unpack %s: %w", name, err)
	}
	return nil
}

func (c *Controller) hasRevision(name string) bool {
	for _, r := range c.revisions {
		if r == name {
			return true
		}
	}
	return false
}

func markerHeld(m *Marker, resp checkoutapi.Response) bool {
	if !resp.OK() || resp.State == nil {
		return false
	}
	return resp.State.HeldBy(checkoutapi.Identity{Name: m.Holder, ComputerName: m.ComputerName})
}

// checkInLanded reports whether the server recorded the marker's pending
// upload as its last check-in and no longer lists the marker as holder.
func checkInLanded(m *Marker, resp checkoutapi.Response) bool {
	if m.Pending == "" || !resp.OK() || resp.State == nil {
		return false
	}
	return resp.State.LastInFileName == m.Pending && !markerHeld(m, resp)
}

func holderOf(state *checkoutapi.State) string {
	if state == nil || !state.CheckedOut() {
		return ""
	}
	return state.NowOutName
}

func denialReason(resp checkoutapi.Response) string {
	if resp.Message != "" {
		return resp.Message
	}
	if holder := holderOf(resp.State); holder != "" {
		return "checked out by " + holder
	}
	return resp.Status
}

func modeLabel(sandbox bool) string {
	if sandbox {
		return "sandbox"
	}
	return "read_write"
}
