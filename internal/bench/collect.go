package bench

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/oobench/unetbench/internal/api"
	"github.com/oobench/unetbench/internal/logger"
)

// Patterns matching the performance summary lines the training program
// prints at the end of a run:
//
//	0 epoch training latency:  12.34 ms
//	0 epoch training Throughput:  56.78 fps
var (
	throughputRe = regexp.MustCompile(`epoch training Throughput:\s*([0-9.]+)\s*fps`)
	latencyRe    = regexp.MustCompile(`epoch training latency:\s*([0-9.]+)\s*ms`)

	// Log directory and file layout produced by the sweep:
	// <model>-bs<batch>-<run>/rcpi<cores>-ins<index>.log
	comboDirRe = regexp.MustCompile(`^(.+)-bs(\d+)-[0-9a-f]+$`)
	logNameRe  = regexp.MustCompile(`^rcpi(\d+)-ins(\d+)\.log$`)
)

// Collect walks a sweep log directory and parses one Result per instance
// log that carries a performance summary.
//
// Logs without a summary (crashed or still-running instances) are skipped
// with a warning rather than failing the collection, so partial sweeps can
// still be inspected.
func Collect(logDir string) ([]api.Result, error) {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read log directory: %w", err)
	}

	var results []api.Result
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dirMatch := comboDirRe.FindStringSubmatch(entry.Name())
		if dirMatch == nil {
			continue
		}
		model := dirMatch[1]
		batchSize, _ := strconv.Atoi(dirMatch[2])

		comboDir := filepath.Join(logDir, entry.Name())
		logs, err := os.ReadDir(comboDir)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", comboDir, err)
		}

		for _, logEntry := range logs {
			nameMatch := logNameRe.FindStringSubmatch(logEntry.Name())
			if nameMatch == nil {
				continue
			}
			cores, _ := strconv.Atoi(nameMatch[1])
			instance, _ := strconv.Atoi(nameMatch[2])

			logPath := filepath.Join(comboDir, logEntry.Name())
			result, err := parseLog(logPath)
			if err != nil {
				logger.Warn("skipping %s: %v", logPath, err)
				continue
			}

			result.Model = model
			result.BatchSize = batchSize
			result.Instance = instance
			result.Cores = cores
			result.LogPath = logPath
			results = append(results, *result)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Model != b.Model {
			return a.Model < b.Model
		}
		if a.BatchSize != b.BatchSize {
			return a.BatchSize < b.BatchSize
		}
		return a.Instance < b.Instance
	})
	return results, nil
}

// parseLog extracts the performance summary from one instance log.
func parseLog(path string) (*api.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}
	defer f.Close()

	result := &api.Result{}
	found := false

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if m := throughputRe.FindStringSubmatch(line); m != nil {
			result.Throughput, _ = strconv.ParseFloat(m[1], 64)
			found = true
		}
		if m := latencyRe.FindStringSubmatch(line); m != nil {
			result.LatencyMS, _ = strconv.ParseFloat(m[1], 64)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan log: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("no performance summary found")
	}
	return result, nil
}

// Report renders collected results as a per-instance table followed by
// per-combination aggregates (summed throughput across instances).
func Report(w io.Writer, results []api.Result) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL\tBATCH\tINSTANCE\tCORES\tTHROUGHPUT (fps)\tLATENCY (ms)")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%.2f\t%.2f\n",
			r.Model, r.BatchSize, r.Instance, r.Cores, r.Throughput, r.LatencyMS)
	}
	tw.Flush()

	fmt.Fprintln(w)
	bold := color.New(color.Bold)
	for _, agg := range aggregate(results) {
		bold.Fprintf(w, "%s bs=%d: %.2f fps total across %d instance(s)\n",
			agg.model, agg.batchSize, agg.throughput, agg.instances)
	}
}

type comboAggregate struct {
	model      string
	batchSize  int
	instances  int
	throughput float64
}

// aggregate sums throughput per (model, batch size) combination, keeping
// the sorted order of the input.
func aggregate(results []api.Result) []comboAggregate {
	var aggs []comboAggregate
	for _, r := range results {
		if n := len(aggs); n > 0 && aggs[n-1].model == r.Model && aggs[n-1].batchSize == r.BatchSize {
			aggs[n-1].instances++
			aggs[n-1].throughput += r.Throughput
			continue
		}
		aggs = append(aggs, comboAggregate{
			model:      r.Model,
			batchSize:  r.BatchSize,
			instances:  1,
			throughput: r.Throughput,
		})
	}
	return aggs
}
