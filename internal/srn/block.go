package srn

import (
	"errors"
	"fmt"
)

// MaxSerial is the largest serial number a device can carry.
const MaxSerial = 0xFFFF

var (
	// ErrExhausted indicates that no serial numbers remain locally.
	ErrExhausted = errors.New("no serial numbers available")
	// ErrDenied indicates the server refused to reserve another block.
	ErrDenied = errors.New("serial number block reservation denied")
	// ErrDeviceMismatch indicates the server assigned a device id different
	// from the one already stored locally.
	ErrDeviceMismatch = errors.New("device id changed")
)

// Range is the half-open interval [Begin, End).
type Range struct {
	Begin int
	End   int
}

// Len returns the number of serials in r.
func (r Range) Len() int {
	if r.End <= r.Begin {
		return 0
	}
	return r.End - r.Begin
}

// Empty reports whether r contains nothing.
func (r Range) Empty() bool { return r.Len() == 0 }

// Contains reports whether n lies in r.
func (r Range) Contains(n int) bool { return n >= r.Begin && n < r.End }

func (r Range) String() string { return fmt.Sprintf("[%#04x,%#04x)", r.Begin, r.End) }

// Block is a range of serials reserved for one device.
type Block struct {
	DeviceID int
	Range
}

// Validate checks that b is usable.
func (b Block) Validate() error {
	if b.DeviceID <= 0 || b.DeviceID > MaxSerial {
		return fmt.Errorf("invalid device id %d", b.DeviceID)
	}
	if b.Empty() {
		return fmt.Errorf("empty serial block %s", b.Range)
	}
	if b.Begin < 0 || b.End > MaxSerial+1 {
		return fmt.Errorf("serial block %s out of range", b.Range)
	}
	return nil
}

// Format renders a serial as the SRN string printed on a device, e.g.
// Format("B-", 0x0c, 0x101) is "B-000C0101".
func Format(prefix string, deviceID, serial int) string {
	return fmt.Sprintf("%s%04X%04X", prefix, deviceID, serial)
}
