package kv

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ValentinKolb/trol/cmd/util"
	"github.com/ValentinKolb/trol/lib/collection"
	"github.com/ValentinKolb/trol/lib/common"
	"github.com/ValentinKolb/trol/lib/lockmgr"
	"github.com/ValentinKolb/trol/lib/model"
	"github.com/ValentinKolb/trol/lib/property"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for the object mapping layer",
		Long:    "Runs each scenario with the configured number of workers against the server and prints latency percentiles and throughput. All keys are created under the perf prefix and removed afterwards.",
		RunE:    run,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix  = "__perf"
	perfNumThreads = 10
	perfOps        = 10000
	perfKeySpread  = 100
	perfSkip       = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Scenarios to skip (comma separated - e.g. lock,compare)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of concurrent workers"))
	key = "ops"
	perfTestCmd.Flags().Int(key, 10000, util.WrapString("Number of operations per scenario"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different entities to spread the operations over"))
	key = "prefix"
	perfTestCmd.Flags().String(key, perfKeyPrefix, util.WrapString("Type name of the benchmark entities, every key starts with it"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfNumThreads = max(viper.GetInt("threads"), 1)
	perfOps = max(viper.GetInt("ops"), 1)
	perfKeySpread = max(viper.GetInt("keys"), 1)
	perfSkip = strings.Split(viper.GetString("skip"), ",")
	if prefix := viper.GetString("prefix"); prefix != "" {
		perfKeyPrefix = prefix
	}

	return nil
}

// --------------------------------------------------------------------------
// Scenarios
// --------------------------------------------------------------------------

// scenario is one measured operation; i is the global operation index
type scenario struct {
	name string
	op   func(ctx context.Context, e *model.Entity, i int) error
}

type perfResult struct {
	timer   gometrics.Timer
	elapsed time.Duration
	errors  int64
	skipped bool
}

func scenarios() (*model.Type, []scenario) {
	var (
		name    = property.Must[string]()
		counter = property.Must[int64]()
		score   = property.Must[float64]()
		tags    = collection.MustSet[string]()
		other   = collection.MustSet[string]()
		events  = collection.MustList[string]()
		ranking = collection.MustSortedSet[string]()
		attrs   = collection.MustHash[string, int64]()
		mutex   = lockmgr.New(lockmgr.WithTimeout(10 * time.Second))
	)
	bench := model.NewType(perfKeyPrefix,
		model.WithField("name", name),
		model.WithField("counter", counter),
		model.WithField("score", score),
		model.WithCollection("tags", tags),
		model.WithCollection("other", other),
		model.WithCollection("events", events),
		model.WithCollection("ranking", ranking),
		model.WithCollection("attrs", attrs),
		model.WithLock("mutex", mutex),
	)

	return bench, []scenario{
		{"assign", func(ctx context.Context, e *model.Entity, i int) error {
			return name.Assign(ctx, e, "value-"+strconv.Itoa(i))
		}},
		{"fetch", func(ctx context.Context, e *model.Entity, _ int) error {
			_, _, err := name.Fetch(ctx, e)
			return err
		}},
		{"commit", func(ctx context.Context, e *model.Entity, i int) error {
			name.Set(e, "value-"+strconv.Itoa(i))
			counter.Set(e, int64(i))
			score.Set(e, float64(i)/2)
			return e.Commit(ctx)
		}},
		{"set-add", func(ctx context.Context, e *model.Entity, i int) error {
			s, err := tags.Bind(e)
			if err != nil {
				return err
			}
			_, err = s.Add(ctx, strconv.Itoa(i%64))
			return err
		}},
		{"compare", func(ctx context.Context, e *model.Entity, _ int) error {
			s, err := tags.Bind(e)
			if err != nil {
				return err
			}
			o, err := other.Bind(e)
			if err != nil {
				return err
			}
			_, err = s.IsSubset(ctx, o)
			return err
		}},
		{"list-push", func(ctx context.Context, e *model.Entity, i int) error {
			l, err := events.Bind(e)
			if err != nil {
				return err
			}
			if _, err = l.Push(ctx, strconv.Itoa(i)); err != nil {
				return err
			}
			return l.Trim(ctx, -100, -1)
		}},
		{"zset-add", func(ctx context.Context, e *model.Entity, i int) error {
			z, err := ranking.Bind(e)
			if err != nil {
				return err
			}
			_, err = z.Add(ctx, float64(i), strconv.Itoa(i%128))
			return err
		}},
		{"hash-incr", func(ctx context.Context, e *model.Entity, i int) error {
			h, err := attrs.Bind(e)
			if err != nil {
				return err
			}
			_, err = h.HIncrBy(ctx, strconv.Itoa(i%16), 1)
			return err
		}},
		{"lock", func(ctx context.Context, e *model.Entity, _ int) error {
			h, err := e.Lock("mutex")
			if err != nil {
				return err
			}
			ok, err := h.TryAcquire(ctx)
			if err != nil || !ok {
				return err
			}
			_, err = h.Release(ctx)
			return err
		}},
	}
}

func run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	fmt.Println("Performance testing tool for the object mapping layer")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Printf("Operations: %d\n", perfOps)
	fmt.Println()

	db := model.NewDatabase(client)
	bench, tests := scenarios()
	entities := make([]*model.Entity, perfKeySpread)
	for i := range entities {
		entities[i] = db.New(bench, strconv.Itoa(i))
	}
	defer cleanup(context.WithoutCancel(ctx))

	fmt.Println("staring tests...")

	results := make(map[string]*perfResult, len(tests))
	for _, s := range tests {
		if shouldSkip(s.name) {
			results[s.name] = &perfResult{skipped: true}
			printResult(s.name, results[s.name])
			continue
		}
		r, err := runScenario(ctx, s, entities)
		if err != nil {
			return err
		}
		results[s.name] = r
		printResult(s.name, r)
	}

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, util.GetClientConfig()); err != nil {
			return err
		}
	}
	return nil
}

// runScenario distributes perfOps operations over perfNumThreads workers
func runScenario(ctx context.Context, s scenario, entities []*model.Entity) (*perfResult, error) {
	r := &perfResult{timer: gometrics.NewTimer()}
	errCount := gometrics.NewCounter()

	g, gctx := errgroup.WithContext(ctx)
	start := time.Now()
	for w := 0; w < perfNumThreads; w++ {
		w := w
		g.Go(func() error {
			for i := w; i < perfOps; i += perfNumThreads {
				if err := gctx.Err(); err != nil {
					return err
				}
				e := entities[i%len(entities)]
				opStart := time.Now()
				if err := s.op(gctx, e, i); err != nil {
					errCount.Inc(1)
					log.Printf("(%s) - error: %v\n", s.name, err)
					continue
				}
				r.timer.UpdateSince(opStart)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	r.elapsed = time.Since(start)
	r.errors = errCount.Count()
	return r, nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == strings.TrimSpace(skip) {
			return true
		}
	}
	return false
}

// cleanup removes every key created by the scenarios
func cleanup(ctx context.Context) {
	iter := client.Scan(ctx, 0, perfKeyPrefix+":*", 1000).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Printf("(cleanup) - error scanning keys: %v\n", err)
		return
	}
	for len(keys) > 0 {
		n := min(len(keys), 500)
		if err := client.Del(ctx, keys[:n]...).Err(); err != nil {
			log.Printf("(cleanup) - error deleting keys: %v\n", err)
			return
		}
		keys = keys[n:]
	}
}

func opsPerSec(r *perfResult) float64 {
	secs := math.Max(r.elapsed.Seconds(), 1e-9) // prevent division by zero
	return float64(r.timer.Count()) / secs
}

// printResult prints the result of a scenario in a formatted way
func printResult(test string, r *perfResult) {
	if r.skipped {
		fmt.Printf("%-12sskipped\n", test)
		return
	}
	snap := r.timer.Snapshot()
	fmt.Printf("%-12smean %-10s p50 %-10s p99 %-10s\t%.0f ops/sec\t%d errors\n",
		test,
		time.Duration(snap.Mean()).Round(time.Microsecond),
		time.Duration(snap.Percentile(0.5)).Round(time.Microsecond),
		time.Duration(snap.Percentile(0.99)).Round(time.Microsecond),
		opsPerSec(r),
		r.errors,
	)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]*perfResult, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "MeanNs", "P50Ns", "P99Ns", "OpsPerSec", "Errors", "Skipped",
		"Endpoint", "DB", "TimeoutSec", "RetryCount", "PoolSize",
		"Threads", "Ops", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for test, r := range results {
		row := []string{test, "0", "0", "0", "0", "0", "true"}
		if !r.skipped {
			snap := r.timer.Snapshot()
			row = []string{
				test,
				fmt.Sprintf("%.0f", snap.Mean()),
				fmt.Sprintf("%.0f", snap.Percentile(0.5)),
				fmt.Sprintf("%.0f", snap.Percentile(0.99)),
				fmt.Sprintf("%.0f", opsPerSec(r)),
				strconv.FormatInt(r.errors, 10),
				"false",
			}
		}
		row = append(row,
			config.Endpoint,
			strconv.Itoa(config.DB),
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.RetryCount),
			strconv.Itoa(config.PoolSize),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfOps),
			strconv.Itoa(perfKeySpread),
		)

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
