// Replay tool for testing AdBrain against historical daily metrics.
//
// Usage:
//   go run cmd/replay/main.go -csv /path/to/daily_metrics.csv
//
// This tool:
//   1. Reads daily raw metrics (date, spend, revenue, orders, customers, ...)
//   2. Computes profit metrics and health for each day
//   3. Evaluates every preset rule against each day's snapshot
//   4. Reports trigger frequency per rule and the health distribution
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopify-ad-intelligence/adbrain/internal/domain"
	"github.com/shopify-ad-intelligence/adbrain/internal/metrics"
	"github.com/shopify-ad-intelligence/adbrain/internal/rules"
)

// DailyRow is one day of raw metrics from the CSV.
type DailyRow struct {
	Date time.Time
	Raw  domain.RawMetricsInput
}

// ReplayStats aggregates one replay run.
type ReplayStats struct {
	DaysProcessed int
	TriggerCounts map[string]int
	HealthCounts  map[domain.HealthStatus]int
	WorstDay      time.Time
	WorstROAS     float64
	BestDay       time.Time
	BestROAS      float64
}

func main() {
	csvPath := flag.String("csv", "", "Path to daily metrics CSV file")
	limit := flag.Int("limit", 0, "Maximum days to process (0 = all)")
	verbose := flag.Bool("verbose", false, "Print each day's evaluation")
	flag.Parse()

	if *csvPath == "" {
		fmt.Println("Usage: replay -csv /path/to/daily_metrics.csv")
		fmt.Println("\nExpected columns: date,spend,revenue,orders,customers")
		fmt.Println("Optional columns: totalmarketingspend,ltv,paybackdays")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║           ADBRAIN REPLAY - Historical Rule Evaluation         ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nCSV File: %s\n", *csvPath)
	fmt.Printf("Limit:    %d\n", *limit)
	fmt.Println()

	rows, err := readDailyCSV(*csvPath, *limit)
	if err != nil {
		fmt.Printf("ERROR: Failed to read CSV: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Loaded %d days of metrics\n", len(rows))

	engine, err := rules.NewEngine()
	if err != nil {
		fmt.Printf("ERROR: Failed to create rule engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	startTime := time.Now()
	stats := runReplay(engine, rows, *verbose)
	duration := time.Since(startTime)

	printResults(stats, duration)
}

func readDailyCSV(path string, limit int) ([]DailyRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}

	for _, required := range []string{"date", "spend", "revenue", "orders", "customers"} {
		if _, ok := colIndex[required]; !ok {
			return nil, fmt.Errorf("missing required column: %s", required)
		}
	}

	floatAt := func(record []string, col string) float64 {
		idx, ok := colIndex[col]
		if !ok || idx >= len(record) {
			return 0
		}
		v, _ := strconv.ParseFloat(record[idx], 64)
		return v
	}
	intAt := func(record []string, col string) int {
		idx, ok := colIndex[col]
		if !ok || idx >= len(record) {
			return 0
		}
		v, _ := strconv.Atoi(record[idx])
		return v
	}

	var rows []DailyRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // Skip malformed rows
		}

		date, err := time.Parse("2006-01-02", record[colIndex["date"]])
		if err != nil {
			continue
		}

		rows = append(rows, DailyRow{
			Date: date,
			Raw: domain.RawMetricsInput{
				Spend:               floatAt(record, "spend"),
				Revenue:             floatAt(record, "revenue"),
				Orders:              intAt(record, "orders"),
				Customers:           intAt(record, "customers"),
				TotalMarketingSpend: floatAt(record, "totalmarketingspend"),
				LTV:                 floatAt(record, "ltv"),
				PaybackDays:         floatAt(record, "paybackdays"),
			},
		})

		if limit > 0 && len(rows) >= limit {
			break
		}
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return rows, nil
}

func runReplay(engine *rules.Engine, rows []DailyRow, verbose bool) *ReplayStats {
	stats := &ReplayStats{
		TriggerCounts: make(map[string]int),
		HealthCounts:  make(map[domain.HealthStatus]int),
		WorstROAS:     -1,
		BestROAS:      -1,
	}

	for _, row := range rows {
		m := metrics.Compute(row.Raw)
		health := metrics.AssessHealth(m)
		summary := engine.EvaluateAll(m, nil)

		stats.DaysProcessed++
		stats.HealthCounts[health.Overall]++
		for _, result := range summary.Triggered {
			stats.TriggerCounts[result.ID]++
		}

		if stats.WorstROAS < 0 || m.MetaROAS < stats.WorstROAS {
			stats.WorstROAS = m.MetaROAS
			stats.WorstDay = row.Date
		}
		if stats.BestROAS < 0 || m.MetaROAS > stats.BestROAS {
			stats.BestROAS = m.MetaROAS
			stats.BestDay = row.Date
		}

		if verbose {
			triggered := make([]string, 0, len(summary.Triggered))
			for _, result := range summary.Triggered {
				triggered = append(triggered, result.ID)
			}
			fmt.Printf("%s | ROAS: %6.2f | MER: %6.2f | Health: %-8s | Triggered: %s\n",
				row.Date.Format("2006-01-02"),
				m.MetaROAS,
				m.MER,
				health.Overall,
				strings.Join(triggered, ", "),
			)
		}
	}

	return stats
}

func printResults(stats *ReplayStats, duration time.Duration) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                        REPLAY RESULTS                         ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\n📊 DATASET STATISTICS\n")
	fmt.Printf("   Days Processed:  %d\n", stats.DaysProcessed)
	if stats.DaysProcessed > 0 {
		fmt.Printf("   Best Day:        %s (ROAS %.2f)\n", stats.BestDay.Format("2006-01-02"), stats.BestROAS)
		fmt.Printf("   Worst Day:       %s (ROAS %.2f)\n", stats.WorstDay.Format("2006-01-02"), stats.WorstROAS)
	}

	fmt.Printf("\n❤️  HEALTH DISTRIBUTION\n")
	for _, status := range []domain.HealthStatus{domain.HealthHealthy, domain.HealthWarning, domain.HealthCritical} {
		count := stats.HealthCounts[status]
		pct := float64(0)
		if stats.DaysProcessed > 0 {
			pct = 100 * float64(count) / float64(stats.DaysProcessed)
		}
		fmt.Printf("   %-10s %5d days (%.1f%%)\n", status, count, pct)
	}

	fmt.Printf("\n🔔 RULE TRIGGERS\n")
	if len(stats.TriggerCounts) == 0 {
		fmt.Println("   No preset rules triggered")
	} else {
		ids := make([]string, 0, len(stats.TriggerCounts))
		for id := range stats.TriggerCounts {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			count := stats.TriggerCounts[id]
			pct := 100 * float64(count) / float64(stats.DaysProcessed)
			fmt.Printf("   %-24s %5d days (%.1f%%)\n", id, count, pct)
		}
	}

	fmt.Printf("\n⏱️  PERFORMANCE\n")
	fmt.Printf("   Total Duration:  %v\n", duration.Round(time.Millisecond))
	if stats.DaysProcessed > 0 && duration > 0 {
		fmt.Printf("   Throughput:      %.0f days/sec\n", float64(stats.DaysProcessed)/duration.Seconds())
	}

	fmt.Println()
}
