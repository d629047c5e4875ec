// FILE: lixenwraith/properties/timing.go
package properties

import "time"

// Core timing constants for file monitoring and persistence.
const (
	// File watching intervals (ordered by frequency)
	SpinWaitInterval    = 5 * time.Millisecond   // Busy-wait quantum for lock retries and shutdown
	MinPollInterval     = 10 * time.Millisecond  // Hard floor for file stat polling
	ShutdownTimeout     = 500 * time.Millisecond // Upper bound for a poll loop to exit on Stop
	DefaultPollInterval = 10 * time.Second       // Standard file monitoring frequency
	DefaultLockTimeout  = 5 * time.Second        // Maximum wait for the shared or exclusive file lock
)

// DefaultMaxWatchers limits Watch subscriber channels per handle
const DefaultMaxWatchers = 100
