package perf

import (
	"encoding/csv"
	"fmt"
	"github.com/ValentinKolb/mRPC/cmd/util"
	"github.com/ValentinKolb/mRPC/rpc/client"
	"github.com/ValentinKolb/mRPC/rpc/common"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"io"
	"log"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var (
	rpcClient *client.RPCClient

	// PerfCmd benchmarks a running server
	PerfCmd = &cobra.Command{
		Use:               "perf",
		Short:             "Performance testing tool for mRPC servers",
		Long:              "Calls the builtin methods of a server started with 'mrpc serve' from several goroutines and prints latency percentiles per test.",
		PersistentPreRunE: setupClient,
		PersistentPostRun: func(*cobra.Command, []string) {
			if rpcClient != nil {
				_ = rpcClient.Close()
			}
		},
		RunE: run,
	}
	perfNumThreads    = 10
	perfCalls         = 10000
	perfLargeValueKB  = 100
	perfSkip          = make([]string, 0)
	perfPercentiles   = []float64{0.5, 0.9, 0.99}
	perfPercentileCSV = []string{"P50", "P90", "P99"}
)

// perfTest is a single benchmark, call issues one call and returns its error
type perfTest struct {
	name string
	call func(i int) error
}

// perfResult is the outcome of one benchmark
type perfResult struct {
	name    string
	timer   metrics.Timer
	errors  int64
	elapsed time.Duration
}

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add common RPC flags
	util.SetupRPCClientFlags(PerfCmd)

	key := "skip"
	PerfCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. ping,add)"))
	key = "threads"
	PerfCmd.Flags().Int(key, 10, util.WrapString("Number of goroutines calling concurrently"))
	key = "calls"
	PerfCmd.Flags().Int(key, 10000, util.WrapString("Number of calls per benchmark"))
	key = "large-value-size"
	PerfCmd.Flags().Int(key, 100, util.WrapString("How large the binary for the echo-large test should be (in KB)"))
	key = "csv"
	PerfCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func setupClient(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfNumThreads = max(viper.GetInt("threads"), 1)
	perfCalls = max(viper.GetInt("calls"), 1)
	perfLargeValueKB = viper.GetInt("large-value-size")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	t, err := util.GetTransport()
	if err != nil {
		return err
	}
	rpcClient, err = client.NewRPCClient(*util.GetClientConfig(), t)
	return err
}

func run(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	config := util.GetClientConfig()

	fmt.Fprintln(out, "Performance testing tool for mRPC servers")

	// Print configuration
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Configuration:")
	fmt.Fprintln(out, config.String())
	fmt.Fprintf(out, "Threads: %d, Calls: %d\n", perfNumThreads, perfCalls)
	fmt.Fprintln(out)

	largeValue := common.Binary(make([]byte, perfLargeValueKB*1024))
	tests := []perfTest{
		{"ping", func(int) error {
			_, err := rpcClient.Call("ping")
			return err
		}},
		{"add", func(i int) error {
			_, err := rpcClient.Call("add", common.Int(int64(i)), common.Int(1))
			return err
		}},
		{"echo-large", func(int) error {
			_, err := rpcClient.Call("echo", largeValue)
			return err
		}},
		{"notify", func(i int) error {
			return rpcClient.Notify("log", common.String("perf"), common.Int(int64(i)))
		}},
	}

	var results []perfResult
	for _, test := range tests {
		if slices.Contains(perfSkip, test.name) {
			fmt.Fprintf(out, "%-20sskipped\n", test.name)
			continue
		}
		result := runTest(test)
		printResult(out, result)
		results = append(results, result)
	}

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Fprintf(out, "\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, config); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Fprintln(out, "Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// runTest issues perfCalls calls from perfNumThreads goroutines and times every call
func runTest(test perfTest) perfResult {
	result := perfResult{name: test.name, timer: metrics.NewTimer()}

	var next atomic.Int64
	var failed atomic.Int64
	var wg sync.WaitGroup

	start := time.Now()
	for w := 0; w < perfNumThreads; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(next.Add(1))
				if i > perfCalls {
					return
				}
				callStart := time.Now()
				if err := test.call(i); err != nil {
					if failed.Add(1) == 1 {
						log.Printf("(%s) - call failed: %v\n", test.name, err)
					}
					continue
				}
				result.timer.UpdateSince(callStart)
			}
		}()
	}
	wg.Wait()

	result.elapsed = time.Since(start)
	result.errors = failed.Load()
	return result
}

// printResult prints the result of a benchmark in a formatted way
func printResult(w io.Writer, r perfResult) {
	snapshot := r.timer.Snapshot()
	ps := snapshot.Percentiles(perfPercentiles)
	opsPerSec := float64(snapshot.Count()) / r.elapsed.Seconds()

	fmt.Fprintf(w, "%-20s%.0f ops/sec\tmean %s\tp50 %s\tp90 %s\tp99 %s\terrors %d\n",
		r.name, opsPerSec,
		time.Duration(snapshot.Mean()), time.Duration(ps[0]), time.Duration(ps[1]), time.Duration(ps[2]),
		r.errors)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results []perfResult, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	// Write header
	header := append([]string{"Test", "Calls", "Errors", "OpsPerSec", "MeanNs"}, perfPercentileCSV...)
	header = append(header, "Endpoint", "Transport", "TimeoutSec", "Threads", "LargeValueSizeKB")
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for _, r := range results {
		snapshot := r.timer.Snapshot()
		row := []string{
			r.name,
			strconv.FormatInt(snapshot.Count(), 10),
			strconv.FormatInt(r.errors, 10),
			fmt.Sprintf("%.0f", float64(snapshot.Count())/r.elapsed.Seconds()),
			fmt.Sprintf("%.0f", snapshot.Mean()),
		}
		for _, p := range snapshot.Percentiles(perfPercentiles) {
			row = append(row, fmt.Sprintf("%.0f", p))
		}
		row = append(row,
			config.Transport.Endpoint,
			viper.GetString("transport"),
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueKB),
		)
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %v", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
