package access

import "fmt"

// AccessStatus is the outcome of Init.
type AccessStatus int

const (
	StatusUnknown AccessStatus = iota
	// StatusCheckedOut means this workstation already holds the write lease.
	StatusCheckedOut
	// StatusNoNetwork means the server is unreachable but a revision exists.
	StatusNoNetwork
	// StatusNoDB means there is no revision to open at all.
	StatusNoDB
	// StatusNotAvailable means someone else holds the write lease.
	StatusNotAvailable
	// StatusOutdatedDB means the server knows a revision the store has not
	// received yet.
	StatusOutdatedDB
	// StatusUserReadOnly means the configured user may not check out.
	StatusUserReadOnly
	// StatusNewDatabase means nothing exists anywhere and may be created.
	StatusNewDatabase
	// StatusAvailable means the lease is free.
	StatusAvailable
)

func (s AccessStatus) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusCheckedOut:
		return "checked_out"
	case StatusNoNetwork:
		return "no_network"
	case StatusNoDB:
		return "no_db"
	case StatusNotAvailable:
		return "not_available"
	case StatusOutdatedDB:
		return "outdated_db"
	case StatusUserReadOnly:
		return "user_read_only"
	case StatusNewDatabase:
		return "new_database"
	case StatusAvailable:
		return "available"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// CanSandbox reports whether a sandbox open is permitted.
func (s AccessStatus) CanSandbox() bool {
	switch s {
	case StatusCheckedOut, StatusNoNetwork, StatusNotAvailable, StatusOutdatedDB,
		StatusUserReadOnly, StatusAvailable:
		return true
	default:
		return false
	}
}

// CanReadWrite reports whether a read-write open is permitted.
func (s AccessStatus) CanReadWrite() bool {
	switch s {
	case StatusCheckedOut, StatusNewDatabase, StatusAvailable:
		return true
	default:
		return false
	}
}

// Describe returns a sentence suitable for showing to the user.
func (s AccessStatus) Describe() string {
	switch s {
	case StatusCheckedOut:
		return "already checked out on this computer"
	case StatusNoNetwork:
		return "checkout server unreachable; a read-only copy can be opened"
	case StatusNoDB:
		return "no copy of the database is available"
	case StatusNotAvailable:
		return "checked out by someone else"
	case StatusOutdatedDB:
		return "a newer revision has not finished syncing to this computer"
	case StatusUserReadOnly:
		return "this user may only open the database read-only"
	case StatusNewDatabase:
		return "database does not exist yet and can be created"
	case StatusAvailable:
		return "available for checkout"
	default:
		return "status has not been determined"
	}
}

// OpenStatus is the outcome of Open.
type OpenStatus int

const (
	OpenFailed OpenStatus = iota
	OpenOpened
	OpenSandboxed
	OpenNewDB
	OpenNotAllowed
	OpenLocked
	OpenDenied
	OpenNetworkError
	OpenNoDB
)

func (s OpenStatus) String() string {
	switch s {
	case OpenFailed:
		return "failed"
	case OpenOpened:
		return "opened"
	case OpenSandboxed:
		return "sandboxed"
	case OpenNewDB:
		return "new_db"
	case OpenNotAllowed:
		return "not_allowed"
	case OpenLocked:
		return "locked"
	case OpenDenied:
		return "denied"
	case OpenNetworkError:
		return "network_error"
	case OpenNoDB:
		return "no_db"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Success reports whether the ACM is now open.
func (s OpenStatus) Success() bool {
	return s == OpenOpened || s == OpenSandboxed || s == OpenNewDB
}

// CanSandbox reports whether retrying in sandbox mode makes sense.
func (s OpenStatus) CanSandbox() bool {
	return s == OpenDenied || s == OpenNetworkError
}

// UpdateStatus is the outcome of Commit and Discard.
type UpdateStatus int

const (
	UpdateOK UpdateStatus = iota
	UpdateDenied
	UpdateNetworkError
	UpdateZipError
	UpdateNotOpen
	UpdateNotAllowed
)

func (s UpdateStatus) String() string {
	switch s {
	case UpdateOK:
		return "ok"
	case UpdateDenied:
		return "denied"
	case UpdateNetworkError:
		return "network_error"
	case UpdateZipError:
		return "zip_error"
	case UpdateNotOpen:
		return "not_open"
	case UpdateNotAllowed:
		return "not_allowed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// CanSandbox reports whether the local changes can still be inspected in a
// sandbox after this outcome.
func (s UpdateStatus) CanSandbox() bool {
	return s == UpdateDenied || s == UpdateNetworkError
}
