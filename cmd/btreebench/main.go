// Command btreebench drives a configurable mixed workload against the
// in-memory slot-directory B-tree and, optionally, a Pebble-backed
// comparison backend, recording per-phase latency and memory to CSV and
// an optional chart.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/slotdb/slotdb/btree"
	"github.com/slotdb/slotdb/cmd/btreebench/bconfig"
	"github.com/slotdb/slotdb/cmd/btreebench/compare"
	"github.com/slotdb/slotdb/cmd/btreebench/report"
	"github.com/slotdb/slotdb/cmd/btreebench/workload"
)

// phaseResult is one row of the output CSV: which backend, which
// phase, how long each operation took, and how much memory was live
// immediately afterward. This generalizes the teacher's BenchResult to
// cover more than one backend kind.
type phaseResult struct {
	Backend     string
	Phase       string
	LatencyNs   int64
	AllocMB     uint64
	HeapObjects uint64
}

func memStats() (allocMB, heapObjects uint64) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	return m.Alloc / 1024 / 1024, m.HeapObjects
}

func writeResults(path string, results []phaseResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()
	if err := w.Write([]string{"Backend", "Phase", "LatencyNs", "AllocMB", "HeapObjects"}); err != nil {
		return err
	}
	for _, r := range results {
		if err := w.Write([]string{
			r.Backend,
			r.Phase,
			strconv.FormatInt(r.LatencyNs, 10),
			strconv.FormatUint(r.AllocMB, 10),
			strconv.FormatUint(r.HeapObjects, 10),
		}); err != nil {
			return err
		}
	}
	return w.Error()
}

// btreeAdapter satisfies workload.Index over the core tree, which
// returns a *btree.ValuesIter rather than a bare (bool, []byte, error).
type btreeAdapter struct{ tree *btree.BTree }

func (a btreeAdapter) Insert(key, val []byte) error {
	return a.tree.Insert(key, val)
}

// Get returns key's most recently inserted value, matching
// compare.Backend's overwrite semantics so the two can be compared
// under Testable Property 10 for unique-key workloads.
func (a btreeAdapter) Get(key []byte) (bool, []byte, error) {
	it, ok := a.tree.Get(key)
	if !ok {
		return false, nil, nil
	}
	var latest []byte
	for {
		v, ok := it.Next()
		if !ok {
			break
		}
		latest = v
	}
	out := append([]byte(nil), latest...)
	return true, out, nil
}

func loadKeys(idx workload.Index, n, valueSize int) error {
	val := make([]byte, valueSize)
	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("key-%010d", i))
		if err := idx.Insert(key, val); err != nil {
			return err
		}
	}
	return nil
}

func runBackend(log *zap.SugaredLogger, name string, idx workload.Index, cfg *bconfig.Config) ([]phaseResult, error) {
	var results []phaseResult

	start := time.Now()
	if err := loadKeys(idx, cfg.NumKeys, cfg.ValueSize); err != nil {
		return nil, fmt.Errorf("%s: load: %w", name, err)
	}
	loadNs := time.Since(start).Nanoseconds() / int64(cfg.NumKeys)
	allocMB, objs := memStats()
	results = append(results, phaseResult{Backend: name, Phase: "load", LatencyNs: loadNs, AllocMB: allocMB, HeapObjects: objs})
	log.Infow("load complete", "backend", name, "ns_per_op", loadNs)

	wt, err := workload.ParseType(cfg.Workload)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(1))
	start = time.Now()
	inserts, lookups, err := workload.Run(idx, wt, cfg.WorkloadOps, cfg.NumKeys, cfg.ValueSize, rng)
	if err != nil {
		return nil, fmt.Errorf("%s: workload: %w", name, err)
	}
	elapsed := time.Since(start)
	total := inserts + lookups
	var perOp int64
	if total > 0 {
		perOp = elapsed.Nanoseconds() / int64(total)
	}
	allocMB, objs = memStats()
	results = append(results, phaseResult{Backend: name, Phase: cfg.Workload, LatencyNs: perOp, AllocMB: allocMB, HeapObjects: objs})
	log.Infow("workload complete", "backend", name, "workload", cfg.Workload, "ns_per_op", perOp, "inserts", inserts, "lookups", lookups)

	return results, nil
}

func buildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	var zl zap.AtomicLevel
	if err := zl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	cfg.Level = zl
	return cfg.Build()
}

func main() {
	configPath := flag.String("config", "", "path to a btreebench YAML config file")
	flag.Parse()

	cfg, err := bconfig.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Sugar()

	tree, err := btree.New(btree.ValueLayout{Size: uint32(cfg.ValueSize), Align: 1}, nil)
	if err != nil {
		log.Fatalw("building tree", "error", err)
	}

	var results []phaseResult
	treeResults, err := runBackend(log, "btree", btreeAdapter{tree: tree}, cfg)
	if err != nil {
		log.Fatalw("btree run failed", "error", err)
	}
	results = append(results, treeResults...)

	if cfg.ComparePebble {
		backend, err := compare.Open(cfg.PebbleDir)
		if err != nil {
			log.Fatalw("opening pebble backend", "error", err)
		}
		defer backend.Close()

		pebbleResults, err := runBackend(log, "pebble", backend, cfg)
		if err != nil {
			log.Fatalw("pebble run failed", "error", err)
		}
		results = append(results, pebbleResults...)
	}

	if err := writeResults(cfg.OutputCSV, results); err != nil {
		log.Fatalw("writing results", "error", err)
	}
	log.Infow("results written", "path", cfg.OutputCSV)

	if cfg.ChartPath != "" {
		samples := make([]report.Sample, len(results))
		for i, r := range results {
			samples[i] = report.Sample{Backend: r.Backend, Phase: r.Phase, LatencyNs: float64(r.LatencyNs)}
		}
		if err := report.Render(cfg.ChartPath, samples); err != nil {
			log.Errorw("rendering chart", "error", err)
		} else {
			log.Infow("chart written", "path", cfg.ChartPath)
		}
	}
}
