// Package ports declares the boundaries sshsync crosses: the network, the
// local and remote filesystems, time and the user.
package ports

import "time"

// Clock drives everything time-based: SSH keepalives, the watch debounce
// and auth lockouts.
type Clock interface {
	Now() time.Time
	// After fires once, d after the call.
	After(d time.Duration) <-chan time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker fires repeatedly until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}
