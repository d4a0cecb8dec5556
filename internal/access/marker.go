package access

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"acmsync/internal/fileutil"
)

// Marker records that this workstation holds the write lease on an ACM.
type Marker struct {
	ACM          string    `json:"acm"`
	Key          string    `json:"key"`
	Base         string    `json:"base,omitempty"`
	Next         string    `json:"next"`
	Holder       string    `json:"holder"`
	ComputerName string    `json:"computer_name"`
	CheckedOutAt time.Time `json:"checked_out_at"`
	NewDatabase  bool      `json:"new_database,omitempty"`
	// Pending names an uploaded revision whose check-in reply never arrived.
	Pending string `json:"pending,omitempty"`
}

// MarkerPath returns where the marker for acm lives.
func MarkerPath(localDir, acm string) string {
	return filepath.Join(localDir, acm+".checkout.json")
}

// ReadMarker loads the marker for acm. A missing marker yields (nil, nil).
func ReadMarker(localDir, acm string) (*Marker, error) {
	data, err := os.ReadFile(MarkerPath(localDir, acm))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read checkout marker: %w", err)
	}
	var m Marker
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode checkout marker: %w", err)
	}
	if m.Key == "" {
		return nil, fmt.Errorf("checkout marker for %s has no key", acm)
	}
	return &m, nil
}

// WriteMarker persists m atomically.
func WriteMarker(localDir string, m *Marker) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode checkout marker: %w", err)
	}
	if err := fileutil.WriteFileAtomic(MarkerPath(localDir, m.ACM), data, 0o600); err != nil {
		return fmt.Errorf("write checkout marker: %w", err)
	}
	return nil
}

// RemoveMarker deletes the marker for acm. Removing a missing marker is fine.
func RemoveMarker(localDir, acm string) error {
	if err := os.Remove(MarkerPath(localDir, acm)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove checkout marker: %w", err)
	}
	return nil
}
