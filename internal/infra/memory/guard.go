package memory

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/Jayliang7/VideoSplice/internal/domain/entity"
	"github.com/Jayliang7/VideoSplice/internal/domain/port"
	"github.com/Jayliang7/VideoSplice/internal/infra/metrics"
	"go.uber.org/zap"
)

// Guard samples the process's own heap and enforces the configured hard
// limit. A reading inside the safety buffer below the hard limit is the
// warn band: logged, still allowed to proceed. The buffer exists so the
// guard fires as a clean error while there is still headroom, instead of
// the host OOM-killing the process at the ceiling.
type Guard struct {
	hardLimitBytes uint64
	warnBytes      uint64
	logger         *zap.Logger
}

func NewGuard(hardLimitBytes, safetyBufferBytes uint64, logger *zap.Logger) *Guard {
	warnBytes := hardLimitBytes
	if safetyBufferBytes < hardLimitBytes {
		warnBytes = hardLimitBytes - safetyBufferBytes
	}
	return &Guard{
		hardLimitBytes: hardLimitBytes,
		warnBytes:      warnBytes,
		logger:         logger,
	}
}

func (g *Guard) Sample() port.MemoryReading {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	// HeapInuse + StackInuse is the closest self-view proxy for resident
	// set: it counts spans actually backing live allocations rather than
	// address space reserved from the OS.
	resident := ms.HeapInuse + ms.StackInuse
	metrics.MemoryResidentBytes.Set(float64(resident))

	level := port.MemoryOk
	switch {
	case resident >= g.hardLimitBytes:
		level = port.MemoryExceeded
	case resident >= g.warnBytes:
		level = port.MemoryWarn
	}

	return port.MemoryReading{ResidentBytes: resident, Level: level}
}

func (g *Guard) EnsureWithin() error {
	reading := g.Sample()
	switch reading.Level {
	case port.MemoryExceeded:
		g.logger.Error("memory hard limit exceeded",
			zap.Uint64("resident_bytes", reading.ResidentBytes),
			zap.Uint64("hard_limit_bytes", g.hardLimitBytes),
		)
		return fmt.Errorf("%w: %dMB > %dMB",
			entity.ErrMemoryLimitExceeded,
			reading.ResidentBytes/(1024*1024),
			g.hardLimitBytes/(1024*1024),
		)
	case port.MemoryWarn:
		g.logger.Warn("memory usage high",
			zap.Uint64("resident_bytes", reading.ResidentBytes),
			zap.Uint64("hard_limit_bytes", g.hardLimitBytes),
		)
	}
	return nil
}

// ForceCleanup runs a full collection and returns freed spans to the OS.
// It runs between batches unconditionally, independent of thresholds.
func (g *Guard) ForceCleanup() {
	before := g.Sample().ResidentBytes
	runtime.GC()
	debug.FreeOSMemory()
	after := g.Sample().ResidentBytes

	g.logger.Debug("forced memory cleanup",
		zap.Uint64("before_bytes", before),
		zap.Uint64("after_bytes", after),
	)
}
