package srn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"acmsync/internal/logging"
)

// BlockSource reserves serial blocks, normally from the checkout server.
type BlockSource interface {
	ReserveBlock(ctx context.Context, n int) (Block, error)
}

// Allocator hands out serial numbers from a primary block and promotes the
// backup block when the primary is spent.
type Allocator struct {
	mu        sync.Mutex
	state     State
	store     StateStore
	source    BlockSource
	blockSize int
	logger    *slog.Logger
}

// NewAllocator loads persisted state from store. source may be nil when only
// local allocation is wanted.
func NewAllocator(store StateStore, source BlockSource, blockSize int, logger *slog.Logger) (*Allocator, error) {
	if store == nil {
		return nil, errors.New("srn state store is required")
	}
	if blockSize <= 0 || blockSize > MaxSerial {
		return nil, fmt.Errorf("invalid srn block size %d", blockSize)
	}
	st, err := store.Load()
	if err != nil {
		return nil, err
	}
	a := &Allocator{
		state:     normalize(st),
		store:     store,
		source:    source,
		blockSize: blockSize,
		logger:    logging.NewComponentLogger(logger, "srn"),
	}
	return a, nil
}

// normalize repairs a cursor that drifted outside the primary range, which
// only happens with a hand-edited or very old state file.
func normalize(st State) State {
	if !st.Primary.Empty() && st.Next < st.Primary.Begin {
		st.Next = st.Primary.Begin
	}
	if !st.Primary.Contains(st.Next) && !st.Backup.Empty() {
		st = promote(st)
	}
	return st
}

func promote(st State) State {
	st.Primary = st.Backup
	st.Next = st.Backup.Begin
	st.Backup = Range{}
	return st
}

// State returns a copy of the current state.
func (a *Allocator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// DeviceID returns the device id serials are issued for.
func (a *Allocator) DeviceID() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.DeviceID
}

// HasNext reports whether AllocateNext can succeed without the server.
func (a *Allocator) HasNext() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return hasNext(a.state)
}

// HasBackup reports whether a backup block is held.
func (a *Allocator) HasBackup() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.state.Backup.Empty()
}

// Available returns how many serials remain across both blocks.
func (a *Allocator) Available() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return available(a.state)
}

func hasNext(st State) bool {
	return st.DeviceID > 0 && st.Primary.Contains(st.Next)
}

func available(st State) int {
	n := st.Backup.Len()
	if hasNext(st) {
		n += st.Primary.End - st.Next
	}
	return n
}

// AllocateNext returns the next serial. The advanced cursor is saved before
// the value is returned.
func (a *Allocator) AllocateNext() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !hasNext(a.state) {
		return 0, ErrExhausted
	}
	value := a.state.Next
	next := a.state
	next.Next++
	promoted := false
	if next.Next >= next.Primary.End && !next.Backup.Empty() {
		next = promote(next)
		promoted = true
	}
	if err := a.store.Save(next); err != nil {
		return 0, err
	}
	a.state = next
	if promoted {
		a.logger.Info("promoted backup serial block",
			logging.String("primary", next.Primary.String()),
		)
	}
	return value, nil
}

// Next allocates a serial and formats it with prefix.
func (a *Allocator) Next(prefix string) (string, error) {
	serial, err := a.AllocateNext()
	if err != nil {
		return "", err
	}
	return Format(prefix, a.DeviceID(), serial), nil
}

// PrepareForAllocation fetches blocks for whichever of primary and backup is
// empty, primary first. Server failures are tolerated while the primary still
// has serials. It reports whether AllocateNext can succeed.
func (a *Allocator) PrepareForAllocation(ctx context.Context) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for !hasNext(a.state) || a.state.Backup.Empty() {
		if a.source == nil {
			if hasNext(a.state) {
				return true, nil
			}
			return false, ErrExhausted
		}
		block, err := a.reserve(ctx)
		if err != nil {
			if hasNext(a.state) {
				logging.WarnWithContext(a.logger, "could not prefetch backup serial block", "srn_prefetch_failed",
					logging.Error(err),
					logging.Int("available", available(a.state)),
					logging.String(logging.FieldImpact, "allocation continues from the primary block"),
				)
				return true, nil
			}
			return false, err
		}

		next := a.state
		next.DeviceID = block.DeviceID
		if !hasNext(next) {
			next.Primary = block.Range
			next.Next = block.Begin
		} else {
			next.Backup = block.Range
		}
		if err := a.store.Save(next); err != nil {
			return hasNext(a.state), err
		}
		a.state = next
		a.logger.Info("reserved serial block",
			logging.Int("device_id", block.DeviceID),
			logging.String("range", block.Range.String()),
			logging.Int("available", available(next)),
		)
	}
	return true, nil
}

func (a *Allocator) reserve(ctx context.Context) (Block, error) {
	block, err := a.source.ReserveBlock(ctx, a.blockSize)
	if err != nil {
		return Block{}, err
	}
	if err := block.Validate(); err != nil {
		return Block{}, err
	}
	if a.state.DeviceID != 0 && block.DeviceID != a.state.DeviceID {
		return Block{}, fmt.Errorf("%w: have %d, server sent %d", ErrDeviceMismatch, a.state.DeviceID, block.DeviceID)
	}
	return block, nil
}
