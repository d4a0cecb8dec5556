package srn

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/magiconair/properties"

	"acmsync/internal/fileutil"
)

// State is everything the allocator persists.
type State struct {
	DeviceID int
	Next     int
	Primary  Range
	Backup   Range
}

// StateStore persists allocator state.
type StateStore interface {
	Load() (State, error)
	Save(State) error
}

// Property keys in tbsrnstore.info.
const (
	keyDeviceID     = "tbloaderid"
	keyDeviceIDHex  = "tbloaderidhex"
	keyNext         = "nextsrn"
	keyPrimaryBegin = "primarybegin"
	keyPrimaryEnd   = "primaryend"
	keyBackupBegin  = "backupbegin"
	keyBackupEnd    = "backupend"
)

// PropertiesStore keeps State in a Java-style properties file.
type PropertiesStore struct {
	path string
}

var _ StateStore = (*PropertiesStore)(nil)

// NewPropertiesStore returns a store backed by the file at path.
func NewPropertiesStore(path string) *PropertiesStore {
	return &PropertiesStore{path: path}
}

// Path returns the backing file.
func (s *PropertiesStore) Path() string { return s.path }

// Load reads the state file. A missing file yields the zero State.
func (s *PropertiesStore) Load() (State, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("read srn state: %w", err)
	}
	p, err := properties.Load(data, properties.ISO_8859_1)
	if err != nil {
		return State{}, fmt.Errorf("parse srn state %s: %w", s.path, err)
	}
	p.DisableExpansion = true
	return State{
		DeviceID: p.GetInt(keyDeviceID, 0),
		Next:     p.GetInt(keyNext, 0),
		Primary:  Range{Begin: p.GetInt(keyPrimaryBegin, 0), End: p.GetInt(keyPrimaryEnd, 0)},
		Backup:   Range{Begin: p.GetInt(keyBackupBegin, 0), End: p.GetInt(keyBackupEnd, 0)},
	}, nil
}

// Save writes st through a temp file and rename.
func (s *PropertiesStore) Save(st State) error {
	p := properties.NewProperties()
	p.DisableExpansion = true
	values := []struct {
		key   string
		value string
	}{
		{keyDeviceID, strconv.Itoa(st.DeviceID)},
		{keyDeviceIDHex, fmt.Sprintf("%04X", st.DeviceID)},
		{keyNext, strconv.Itoa(st.Next)},
		{keyPrimaryBegin, strconv.Itoa(st.Primary.Begin)},
		{keyPrimaryEnd, strconv.Itoa(st.Primary.End)},
		{keyBackupBegin, strconv.Itoa(st.Backup.Begin)},
		{keyBackupEnd, strconv.Itoa(st.Backup.End)},
	}
	for _, kv := range values {
		if _, _, err := p.Set(kv.key, kv.value); err != nil {
			return fmt.Errorf("set %s: %w", kv.key, err)
		}
	}
	var buf bytes.Buffer
	if _, err := p.WriteComment(&buf, "# ", properties.ISO_8859_1); err != nil {
		return fmt.Errorf("encode srn state: %w", err)
	}
	if err := fileutil.WriteFileAtomic(s.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write srn state: %w", err)
	}
	return nil
}
