package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"acmsync/internal/config"
)

// ErrSRNExhausted indicates a device has no serial numbers left to reserve.
var ErrSRNExhausted = errors.New("device serial numbers exhausted")

// maxSerialEnd is one past the largest serial a device may carry.
const maxSerialEnd = 0x10000

// ACMRecord is the server's history of one ACM.
type ACMRecord struct {
	Name           string
	LastInFileName string
	LastInName     string
	LastInContact  string
	LastInDate     time.Time
	CreatedAt      time.Time
}

// CheckoutRecord is an outstanding write lease.
type CheckoutRecord struct {
	ACM          string
	HolderName   string
	Contact      string
	ComputerName string
	Key          string
	CheckedOutAt time.Time
}

// ACMState pairs an ACM with its checkout, if any.
type ACMState struct {
	ACM      ACMRecord
	Checkout *CheckoutRecord
}

// Store persists checkout and SRN state.
type Store struct {
	db     *sql.DB
	driver string
	dsn    string
}

// Open connects to the database configured in [daemon] and applies
// migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenDSN(context.Background(), cfg.Daemon.DBDriver, cfg.DaemonDSN())
}

// OpenDSN connects using driver ("sqlite" or "postgres") and dsn. For SQLite
// the dsn is a file path.
func OpenDSN(ctx context.Context, driver, dsn string) (*Store, error) {
	var (
		db  *sql.DB
		err error
	)
	switch driver {
	case config.DBDriverSQLite, "":
		driver = config.DBDriverSQLite
		db, err = sql.Open("sqlite", sqliteDSN(dsn))
		if err == nil {
			// One connection serializes writers and keeps per-connection
			// pragmas in force.
			db.SetMaxOpenConns(1)
		}
	case config.DBDriverPostgres:
		db, err = sql.Open("postgres", dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect %s db: %w", driver, err)
	}

	store := &Store{db: db, driver: driver, dsn: dsn}
	if err := store.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func sqliteDSN(path string) string {
	pragmas := url.Values{}
	pragmas.Add("_pragma", "journal_mode(WAL)")
	pragmas.Add("_pragma", "foreign_keys(1)")
	pragmas.Add("_pragma", "busy_timeout(5000)")
	return "file:" + path + "?" + pragmas.Encode()
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Driver returns the database driver name.
func (s *Store) Driver() string { return s.driver }

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// rebind rewrites ? placeholders into $n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.driver != config.DBDriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

// GetACM returns the ACM record, or nil when the ACM is unknown.
func (s *Store) GetACM(ctx context.Context, acm string) (*ACMRecord, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT acm_name, last_in_file_name, last_in_name, last_in_contact, last_in_date, created_at
         FROM acms WHERE acm_name = ?`), acm)
	var (
		rec             ACMRecord
		lastIn, created string
	)
	err := row.Scan(&rec.Name, &rec.LastInFileName, &rec.LastInName, &rec.LastInContact, &lastIn, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get acm %s: %w", acm, err)
	}
	rec.LastInDate = parseTime(lastIn)
	rec.CreatedAt = parseTime(created)
	return &rec, nil
}

// CreateACM registers acm. It reports false when the ACM already existed.
func (s *Store) CreateACM(ctx context.Context, acm string, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO acms (acm_name, created_at) VALUES (?, ?) ON CONFLICT DO NOTHING`),
		acm, formatTime(now))
	if err != nil {
		return false, fmt.Errorf("create acm %s: %w", acm, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create acm %s: %w", acm, err)
	}
	return n == 1, nil
}

// GetCheckout returns the outstanding checkout of acm, or nil.
func (s *Store) GetCheckout(ctx context.Context, acm string) (*CheckoutRecord, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT acm_name, holder_name, contact, computer_name, checkout_key, checkout_date
         FROM checkouts WHERE acm_name = ?`), acm)
	var (
		rec  CheckoutRecord
		date string
	)
	err := row.Scan(&rec.ACM, &rec.HolderName, &rec.Contact, &rec.ComputerName, &rec.Key, &date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get checkout %s: %w", acm, err)
	}
	rec.CheckedOutAt = parseTime(date)
	return &rec, nil
}

// InsertCheckout records rec unless acm is already checked out. It reports
// whether rec was stored.
func (s *Store) InsertCheckout(ctx context.Context, rec CheckoutRecord) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO checkouts (acm_name, holder_name, contact, computer_name, checkout_key, checkout_date)
         VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`),
		rec.ACM, rec.HolderName, rec.Contact, rec.ComputerName, rec.Key, formatTime(rec.CheckedOutAt))
	if err != nil {
		return false, fmt.Errorf("insert checkout %s: %w", rec.ACM, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert checkout %s: %w", rec.ACM, err)
	}
	return n == 1, nil
}

// CheckIn removes the checkout holding key and records filename as the last
// check-in, atomically. It reports false when key does not match.
func (s *Store) CheckIn(ctx context.Context, acm, key, filename, holder, contact string, now time.Time) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin check-in: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(ctx, s.rebind(
		`DELETE FROM checkouts WHERE acm_name = ? AND checkout_key = ?`), acm, key)
	if err != nil {
		return false, fmt.Errorf("release checkout %s: %w", acm, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("release checkout %s: %w", acm, err)
	}
	if n != 1 {
		return false, nil
	}
	if _, err := tx.ExecContext(ctx, s.rebind(
		`UPDATE acms SET last_in_file_name = ?, last_in_name = ?, last_in_contact = ?, last_in_date = ?
         WHERE acm_name = ?`), filename, holder, contact, formatTime(now), acm); err != nil {
		return false, fmt.Errorf("record check-in %s: %w", acm, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit check-in: %w", err)
	}
	return true, nil
}

// DeleteCheckout removes the checkout of acm. With a non-empty key only the
// matching checkout is removed. It reports whether a row was deleted.
func (s *Store) DeleteCheckout(ctx context.Context, acm, key string) (bool, error) {
	query := `DELETE FROM checkouts WHERE acm_name = ?`
	args := []any{acm}
	if key != "" {
		query += ` AND checkout_key = ?`
		args = append(args, key)
	}
	res, err := s.db.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return false, fmt.Errorf("delete checkout %s: %w", acm, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete checkout %s: %w", acm, err)
	}
	return n == 1, nil
}

// ListStates returns every ACM with its checkout, ordered by name.
func (s *Store) ListStates(ctx context.Context) ([]ACMState, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.acm_name, a.last_in_file_name, a.last_in_name, a.last_in_contact, a.last_in_date, a.created_at,
                COALESCE(c.holder_name, ''), COALESCE(c.contact, ''), COALESCE(c.computer_name, ''),
                COALESCE(c.checkout_key, ''), COALESCE(c.checkout_date, '')
         FROM acms a LEFT JOIN checkouts c ON c.acm_name = a.acm_name
         ORDER BY a.acm_name`)
	if err != nil {
		return nil, fmt.Errorf("list acms: %w", err)
	}
	defer rows.Close()

	var states []ACMState
	for rows.Next() {
		var (
			st                      ACMState
			co                      CheckoutRecord
			lastIn, created, coDate string
		)
		if err := rows.Scan(&st.ACM.Name, &st.ACM.LastInFileName, &st.ACM.LastInName, &st.ACM.LastInContact,
			&lastIn, &created, &co.HolderName, &co.Contact, &co.ComputerName, &co.Key, &coDate); err != nil {
			return nil, fmt.Errorf("scan acm: %w", err)
		}
		st.ACM.LastInDate = parseTime(lastIn)
		st.ACM.CreatedAt = parseTime(created)
		if co.Key != "" {
			co.ACM = st.ACM.Name
			co.CheckedOutAt = parseTime(coDate)
			st.Checkout = &co
		}
		states = append(states, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate acms: %w", err)
	}
	return states, nil
}

// SRNReservation is a block of serials granted to one device.
type SRNReservation struct {
	DeviceID int
	Begin    int
	End      int
}

// ReserveSRN advances user's device counter by n. First-time users are
// assigned the next free device id. Blocks are never re-issued.
func (s *Store) ReserveSRN(ctx context.Context, user string, n int, now time.Time) (SRNReservation, error) {
	if n <= 0 || n >= maxSerialEnd {
		return SRNReservation{}, fmt.Errorf("invalid srn block size %d", n)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return SRNReservation{}, fmt.Errorf("begin srn reservation: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := s.ensureDevice(ctx, tx, user, now); err != nil {
		return SRNReservation{}, err
	}

	var deviceID, next int
	err = tx.QueryRowContext(ctx, s.rebind(
		`UPDATE srn_devices SET next_srn = next_srn + ?, updated_at = ?
         WHERE user_name = ? AND next_srn + ? <= ?
         RETURNING device_id, next_srn`), n, formatTime(now), user, n, maxSerialEnd).Scan(&deviceID, &next)
	if errors.Is(err, sql.ErrNoRows) {
		return SRNReservation{}, fmt.Errorf("%w: user %s", ErrSRNExhausted, user)
	}
	if err != nil {
		return SRNReservation{}, fmt.Errorf("reserve srn block: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return SRNReservation{}, fmt.Errorf("commit srn reservation: %w", err)
	}
	return SRNReservation{DeviceID: deviceID, Begin: next - n, End: next}, nil
}

func (s *Store) ensureDevice(ctx context.Context, tx *sql.Tx, user string, now time.Time) error {
	for attempt := 0; attempt < 3; attempt++ {
		var count int
		if err := tx.QueryRowContext(ctx, s.rebind(
			`SELECT COUNT(1) FROM srn_devices WHERE user_name = ?`), user).Scan(&count); err != nil {
			return fmt.Errorf("lookup srn device: %w", err)
		}
		if count > 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx, s.rebind(
			`INSERT INTO srn_devices (user_name, device_id, next_srn, updated_at)
             SELECT ?, COALESCE(MAX(device_id), 0) + 1, 1, ? FROM srn_devices WHERE true
             ON CONFLICT DO NOTHING`), user, formatTime(now)); err != nil {
			return fmt.Errorf("assign srn device: %w", err)
		}
	}
	return fmt.Errorf("assign srn device for %s: gave up after concurrent inserts", user)
}

// Device returns the device id assigned to user, or 0.
func (s *Store) Device(ctx context.Context, user string) (int, error) {
	var id int
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT device_id FROM srn_devices WHERE user_name = ?`), user).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("lookup srn device: %w", err)
	}
	return id, nil
}
