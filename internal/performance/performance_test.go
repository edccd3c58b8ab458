package performance

import (
	"bytes"
	"context"
	"encoding/json"
	"runtime"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aquaculture-risk/internal/models"
	"aquaculture-risk/internal/risk"
	"aquaculture-risk/internal/simulation"
)

func benchmarkRun(b *testing.B, workers, n int) {
	seed := uint64(42)
	cfg := models.SimulationConfig{NSimulations: n, TimeHorizonDays: 180, TimeSteps: 60, Seed: &seed}
	opts := simulation.Options{Workers: workers}
	executor, err := simulation.NewExecutor(cfg, opts, zerolog.Nop())
	require.NoError(b, err)
	params := models.DefaultParameters()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := executor.Run(context.Background(), params); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkRunSequential benchmarks a run on a single worker.
func BenchmarkRunSequential(b *testing.B) {
	benchmarkRun(b, 1, 1000)
}

// BenchmarkRunParallel benchmarks a run on one worker per CPU.
func BenchmarkRunParallel(b *testing.B) {
	benchmarkRun(b, runtime.NumCPU(), 1000)
}

// BenchmarkSummarize benchmarks aggregation of a finished run.
func BenchmarkSummarize(b *testing.B) {
	seed := uint64(7)
	cfg := models.SimulationConfig{NSimulations: 5000, TimeHorizonDays: 180, TimeSteps: 60, Seed: &seed}
	executor, err := simulation.NewExecutor(cfg, simulation.Options{}, zerolog.Nop())
	require.NoError(b, err)
	scenarios, err := executor.Run(context.Background(), models.DefaultParameters())
	require.NoError(b, err)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := risk.Summarize(scenarios); err != nil {
			b.Fatal(err)
		}
	}
}

// TestMemoryStats tests memory stats retrieval.
func TestMemoryStats(t *testing.T) {
	stats := MemoryStats()

	assert.NotZero(t, stats.Alloc)
	assert.NotZero(t, stats.Goroutines)
	assert.GreaterOrEqual(t, stats.TotalAlloc, stats.Alloc)
}

func TestBetween(t *testing.T) {
	before := MemStats{TotalAlloc: 1000, NumGC: 2}
	after := MemStats{TotalAlloc: 5096, NumGC: 5, HeapAlloc: 3000}

	u := Between(before, after)
	assert.Equal(t, uint64(4096), u.Allocated)
	assert.Equal(t, uint32(3), u.GCCycles)
	assert.Equal(t, uint64(3000), u.HeapAlloc)

	// Counters never go backwards; a swapped pair reports nothing.
	assert.Zero(t, Between(after, before).Allocated)
}

func TestSince_CountsAllocations(t *testing.T) {
	before := MemoryStats()
	buf := make([][]byte, 0, 64)
	for i := 0; i < 64; i++ {
		buf = append(buf, make([]byte, 16*1024))
	}
	u := Since(before)
	runtime.KeepAlive(buf)

	assert.GreaterOrEqual(t, u.Allocated, uint64(64*16*1024))
}

func TestUsageLog(t *testing.T) {
	var out bytes.Buffer
	logger := zerolog.New(&out).Level(zerolog.DebugLevel)

	Usage{Allocated: 2048, GCCycles: 1, HeapAlloc: 512}.Log(logger, 4)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &entry))
	assert.Equal(t, "2.0 KB", entry["allocated"])
	assert.Equal(t, "512 B", entry["heap"])
	assert.Equal(t, float64(512), entry["bytes_per_scenario"])
	assert.Equal(t, "Run resource usage", entry["message"])
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes uint64
		want  string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatBytes(tt.bytes))
	}
}
