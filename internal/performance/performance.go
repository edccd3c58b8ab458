// Package performance samples runtime resource usage around a simulation run.
package performance

import (
	"fmt"
	"runtime"

	"github.com/rs/zerolog"
)

// MemoryStats returns current memory statistics.
func MemoryStats() MemStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return MemStats{
		Alloc:       m.Alloc,
		TotalAlloc:  m.TotalAlloc,
		Sys:         m.Sys,
		NumGC:       m.NumGC,
		HeapAlloc:   m.HeapAlloc,
		HeapInuse:   m.HeapInuse,
		HeapObjects: m.HeapObjects,
		Goroutines:  runtime.NumGoroutine(),
	}
}

// MemStats contains memory statistics.
type MemStats struct {
	Alloc       uint64 // bytes allocated and still in use
	TotalAlloc  uint64 // bytes allocated (even if freed)
	Sys         uint64 // bytes obtained from system
	NumGC       uint32 // number of completed GC cycles
	HeapAlloc   uint64 // bytes allocated on heap
	HeapInuse   uint64 // bytes in non-idle spans
	HeapObjects uint64 // number of allocated objects
	Goroutines  int    // number of goroutines
}

// Usage is the resource cost between two samples.
type Usage struct {
	Allocated uint64 // bytes allocated in between
	GCCycles  uint32
	HeapAlloc uint64 // live heap at the second sample
}

// Since returns the usage accumulated since before was sampled.
func Since(before MemStats) Usage {
	return Between(before, MemoryStats())
}

// Between returns the usage accumulated from before to after.
func Between(before, after MemStats) Usage {
	u := Usage{HeapAlloc: after.HeapAlloc}
	if after.TotalAlloc > before.TotalAlloc {
		u.Allocated = after.TotalAlloc - before.TotalAlloc
	}
	if after.NumGC > before.NumGC {
		u.GCCycles = after.NumGC - before.NumGC
	}
	return u
}

// Log writes the usage as a debug event.
func (u Usage) Log(logger zerolog.Logger, scenarios int) {
	event := logger.Debug().
		Str("allocated", FormatBytes(u.Allocated)).
		Str("heap", FormatBytes(u.HeapAlloc)).
		Uint32("gc_cycles", u.GCCycles)
	if scenarios > 0 {
		event = event.Uint64("bytes_per_scenario", u.Allocated/uint64(scenarios))
	}
	event.Msg("Run resource usage")
}

// FormatBytes formats bytes into human-readable format.
func FormatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit && exp < 3; n /= unit {
		div *= unit
		exp++
	}
	units := []string{"KB", "MB", "GB", "TB"}
	return fmt.Sprintf("%.1f %s", float64(bytes)/float64(div), units[exp])
}
