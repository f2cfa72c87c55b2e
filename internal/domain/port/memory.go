package port

// MemoryLevel classifies a reading against the configured thresholds.
type MemoryLevel string

const (
	MemoryOk       MemoryLevel = "OK"
	MemoryWarn     MemoryLevel = "WARN"
	MemoryExceeded MemoryLevel = "EXCEEDED"
)

// MemoryReading is a point-in-time sample of process memory. Ephemeral.
type MemoryReading struct {
	ResidentBytes uint64
	Level         MemoryLevel
}

// MemoryGuard enforces the resident-memory ceiling. EnsureWithin is called
// before and after every memory-significant stage; ForceCleanup runs
// between batches unconditionally.
type MemoryGuard interface {
	Sample() MemoryReading
	EnsureWithin() error
	ForceCleanup()
}
