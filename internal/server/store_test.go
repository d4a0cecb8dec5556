package server

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	forEachDriver(t, func(t *testing.T, newStore func(t *testing.T) *Store) {
		var (
			newCtx = func() context.Context {
				return context.Background()
			}
			newCheckout = func(acm, holder, computer, key string) CheckoutRecord {
				return CheckoutRecord{
					ACM:          acm,
					HolderName:   holder,
					Contact:      holder + "@example.org",
					ComputerName: computer,
					Key:          key,
					CheckedOutAt: time.Now().UTC(),
				}
			}
		)

		t.Run("should apply migrations once", func(t *testing.T) {
			// Arrange
			var (
				sut = newStore(t)
				ctx = newCtx()
			)

			// Act
			err := sut.applyMigrations(ctx)
			version, versionErr := sut.SchemaVersion(ctx)

			// Assert
			require.NoError(t, err)
			require.NoError(t, versionErr)
			assert.Equal(t, "0002_srn_devices", version)
		})

		t.Run("should create acm once", func(t *testing.T) {
			// Arrange
			var (
				sut = newStore(t)
				ctx = newCtx()
				now = time.Now().UTC()
			)

			// Act
			first, err := sut.CreateACM(ctx, "ACM-TEST", now)
			require.NoError(t, err)
			second, err := sut.CreateACM(ctx, "ACM-TEST", now)
			require.NoError(t, err)
			rec, getErr := sut.GetACM(ctx, "ACM-TEST")

			// Assert
			require.NoError(t, getErr)
			assert.True(t, first)
			assert.False(t, second)
			require.NotNil(t, rec)
			assert.Equal(t, "ACM-TEST", rec.Name)
			assert.WithinDuration(t, now, rec.CreatedAt, time.Second)
		})

		t.Run("should return nil for unknown acm", func(t *testing.T) {
			sut := newStore(t)

			rec, err := sut.GetACM(newCtx(), "ACM-NONE")

			require.NoError(t, err)
			assert.Nil(t, rec)
		})

		t.Run("should allow only one checkout per acm", func(t *testing.T) {
			// Arrange
			var (
				sut = newStore(t)
				ctx = newCtx()
			)
			_, err := sut.CreateACM(ctx, "ACM-TEST", time.Now())
			require.NoError(t, err)

			// Act
			first, err := sut.InsertCheckout(ctx, newCheckout("ACM-TEST", "ana", "laptop", "k1"))
			require.NoError(t, err)
			second, err := sut.InsertCheckout(ctx, newCheckout("ACM-TEST", "bo", "desk", "k2"))
			require.NoError(t, err)
			co, getErr := sut.GetCheckout(ctx, "ACM-TEST")

			// Assert
			require.NoError(t, getErr)
			assert.True(t, first)
			assert.False(t, second)
			require.NotNil(t, co)
			assert.Equal(t, "ana", co.HolderName)
			assert.Equal(t, "k1", co.Key)
		})

		t.Run("should check in only with matching key", func(t *testing.T) {
			// Arrange
			var (
				sut = newStore(t)
				ctx = newCtx()
				now = time.Now().UTC()
			)
			_, err := sut.CreateACM(ctx, "ACM-TEST", now)
			require.NoError(t, err)
			_, err = sut.InsertCheckout(ctx, newCheckout("ACM-TEST", "ana", "laptop", "k1"))
			require.NoError(t, err)

			// Act
			wrong, err := sut.CheckIn(ctx, "ACM-TEST", "stale", "db2.zip", "ana", "", now)
			require.NoError(t, err)
			right, err := sut.CheckIn(ctx, "ACM-TEST", "k1", "db2.zip", "ana", "ana@example.org", now)
			require.NoError(t, err)
			rec, _ := sut.GetACM(ctx, "ACM-TEST")
			co, _ := sut.GetCheckout(ctx, "ACM-TEST")

			// Assert
			assert.False(t, wrong)
			assert.True(t, right)
			assert.Nil(t, co)
			require.NotNil(t, rec)
			assert.Equal(t, "db2.zip", rec.LastInFileName)
			assert.Equal(t, "ana", rec.LastInName)
			assert.Equal(t, "ana@example.org", rec.LastInContact)
		})

		t.Run("should delete checkout by key or unconditionally", func(t *testing.T) {
			// Arrange
			var (
				sut = newStore(t)
				ctx = newCtx()
			)
			_, err := sut.CreateACM(ctx, "ACM-TEST", time.Now())
			require.NoError(t, err)
			_, err = sut.InsertCheckout(ctx, newCheckout("ACM-TEST", "ana", "laptop", "k1"))
			require.NoError(t, err)

			// Act
			wrong, err := sut.DeleteCheckout(ctx, "ACM-TEST", "nope")
			require.NoError(t, err)
			revoked, err := sut.DeleteCheckout(ctx, "ACM-TEST", "")
			require.NoError(t, err)
			again, err := sut.DeleteCheckout(ctx, "ACM-TEST", "")
			require.NoError(t, err)

			// Assert
			assert.False(t, wrong)
			assert.True(t, revoked)
			assert.False(t, again)
		})

		t.Run("should list acms with checkouts", func(t *testing.T) {
			// Arrange
			var (
				sut = newStore(t)
				ctx = newCtx()
			)
			for _, name := range []string{"ACM-B", "ACM-A"} {
				_, err := sut.CreateACM(ctx, name, time.Now())
				require.NoError(t, err)
			}
			_, err := sut.InsertCheckout(ctx, newCheckout("ACM-B", "bo", "desk", "k"))
			require.NoError(t, err)

			// Act
			states, err := sut.ListStates(ctx)

			// Assert
			require.NoError(t, err)
			require.Len(t, states, 2)
			assert.Equal(t, "ACM-A", states[0].ACM.Name)
			assert.Nil(t, states[0].Checkout)
			assert.Equal(t, "ACM-B", states[1].ACM.Name)
			require.NotNil(t, states[1].Checkout)
			assert.Equal(t, "bo", states[1].Checkout.HolderName)
		})

		t.Run("should reserve monotonic srn blocks per device", func(t *testing.T) {
			// Arrange
			var (
				sut = newStore(t)
				ctx = newCtx()
				now = time.Now()
			)

			// Act
			a1, err := sut.ReserveSRN(ctx, "ana", 100, now)
			require.NoError(t, err)
			b1, err := sut.ReserveSRN(ctx, "bo", 100, now)
			require.NoError(t, err)
			a2, err := sut.ReserveSRN(ctx, "ana", 50, now)
			require.NoError(t, err)

			// Assert
			assert.Equal(t, 1, a1.DeviceID)
			assert.Equal(t, 2, b1.DeviceID)
			assert.Equal(t, a1.DeviceID, a2.DeviceID)
			assert.Equal(t, 1, a1.Begin)
			assert.Equal(t, 101, a1.End)
			assert.Equal(t, a1.End, a2.Begin)
			assert.Equal(t, 151, a2.End)
			assert.Equal(t, 1, b1.Begin)
		})

		t.Run("should deny srn blocks past the device limit", func(t *testing.T) {
			// Arrange
			var (
				sut = newStore(t)
				ctx = newCtx()
				now = time.Now()
			)
			_, err := sut.ReserveSRN(ctx, "ana", 0xFFF0, now)
			require.NoError(t, err)

			// Act
			_, err = sut.ReserveSRN(ctx, "ana", 0x20, now)
			last, lastErr := sut.ReserveSRN(ctx, "ana", 0xF, now)

			// Assert
			assert.ErrorIs(t, err, ErrSRNExhausted)
			require.NoError(t, lastErr)
			assert.Equal(t, 0x10000, last.End)
		})

		t.Run("should serialize concurrent checkouts", func(t *testing.T) {
			// Arrange
			var (
				sut = newStore(t)
				ctx = newCtx()
				wg  sync.WaitGroup
				mu  sync.Mutex
				won int
			)
			_, err := sut.CreateACM(ctx, "ACM-TEST", time.Now())
			require.NoError(t, err)

			// Act
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					ok, err := sut.InsertCheckout(ctx, newCheckout("ACM-TEST", "user", "pc", string(rune('a'+i))))
					if err == nil && ok {
						mu.Lock()
						won++
						mu.Unlock()
					}
				}(i)
			}
			wg.Wait()

			// Assert
			assert.Equal(t, 1, won)
		})
	})
}

func TestRebind(t *testing.T) {
	sqlite := &Store{driver: "sqlite"}
	postgres := &Store{driver: "postgres"}
	query := "SELECT a FROM t WHERE x = ? AND y = ?"

	assert.Equal(t, query, sqlite.rebind(query))
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", postgres.rebind(query))
}
