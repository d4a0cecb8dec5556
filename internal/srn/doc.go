// Package srn allocates serial numbers (SRNs) for talking-book devices.
//
// The checkout server leases each workstation user a device id and, on
// request, a contiguous block of serial numbers for it. The Allocator holds a
// primary block it is drawing from and a backup block fetched ahead of time so
// that allocation keeps working offline until both are spent. State is
// persisted to a properties file before any number is handed out, so a crash
// never causes a serial to be issued twice.
package srn
