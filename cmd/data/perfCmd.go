package data

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cmdUtil "github.com/ValentinKolb/dMerge/cmd/util"
)

var (
	perfCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for dMerge servers",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfNumThreads = 10
	perfRequests   = 1000
	perfCSVPath    = ""
)

// perfPayload is the DATA A document the write benchmark submits.
const perfPayload = `{
	"menus": [
		{"id": 1, "sysName": "perf-item", "name": {"en": "Perf Item"}, "price": 1.0, "vatRate": "normal"}
	],
	"vatRates": {"normal": {"ratePct": 19.0, "isDefault": true}}
}`

func init() {
	// add flags
	key := "threads"
	perfCmd.Flags().Int(key, 10, cmdUtil.WrapString("Number of concurrent workers to use for the benchmark"))
	key = "requests"
	perfCmd.Flags().Int(key, 1000, cmdUtil.WrapString("Number of requests per benchmark"))
	key = "csv"
	perfCmd.Flags().String(key, "", cmdUtil.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	perfNumThreads = viper.GetInt("threads")
	perfRequests = viper.GetInt("requests")
	perfCSVPath = viper.GetString("csv")
	return nil
}

func runPerf(cmd *cobra.Command, _ []string) error {
	client, err := newClient(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	fmt.Println("Performance testing tool for dMerge servers")
	fmt.Println()
	fmt.Printf("Server:   %s\n", viper.GetString("server"))
	fmt.Printf("Threads:  %d\n", perfNumThreads)
	fmt.Printf("Requests: %d per benchmark\n", perfRequests)
	fmt.Println()

	// Seed DATA A once so the read benchmark does not hit an empty server.
	if err := client.SubmitDataA([]byte(perfPayload)); err != nil {
		return fmt.Errorf("failed to seed data A: %v", err)
	}

	timers := map[string]gometrics.Timer{
		"submit": runBenchmark(func() error {
			return client.SubmitDataA([]byte(perfPayload))
		}),
		"get": runBenchmark(func() error {
			_, _, err := client.GetDataC()
			return err
		}),
	}

	for name, timer := range timers {
		printResult(name, timer)
	}

	if perfCSVPath != "" {
		return writeCSV(perfCSVPath, timers)
	}
	return nil
}

// runBenchmark fires perfRequests operations from perfNumThreads workers and
// records the latency of every call.
func runBenchmark(op func() error) gometrics.Timer {
	timer := gometrics.NewTimer()

	var (
		wg     sync.WaitGroup
		failed int64
		mu     sync.Mutex
	)

	work := make(chan struct{}, perfRequests)
	for i := 0; i < perfRequests; i++ {
		work <- struct{}{}
	}
	close(work)

	for w := 0; w < perfNumThreads; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range work {
				start := time.Now()
				err := op()
				timer.UpdateSince(start)
				if err != nil {
					mu.Lock()
					failed++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	if failed > 0 {
		fmt.Printf("warning: %d requests failed\n", failed)
	}
	return timer
}

func printResult(name string, timer gometrics.Timer) {
	fmt.Printf("%-8s  count=%d  mean=%s  p95=%s  p99=%s  rate=%.0f req/s\n",
		name,
		timer.Count(),
		time.Duration(int64(timer.Mean())),
		time.Duration(int64(timer.Percentile(0.95))),
		time.Duration(int64(timer.Percentile(0.99))),
		timer.RateMean(),
	)
}

func writeCSV(path string, timers map[string]gometrics.Timer) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"benchmark", "count", "mean_ns", "p95_ns", "p99_ns", "rate_per_s"}); err != nil {
		return err
	}
	for name, timer := range timers {
		record := []string{
			name,
			strconv.FormatInt(timer.Count(), 10),
			strconv.FormatInt(int64(timer.Mean()), 10),
			strconv.FormatInt(int64(timer.Percentile(0.95)), 10),
			strconv.FormatInt(int64(timer.Percentile(0.99)), 10),
			strconv.FormatFloat(timer.RateMean(), 'f', 2, 64),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}
