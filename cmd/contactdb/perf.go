package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"contactdb/internal/store"
	storecfg "contactdb/internal/store/config"
)

// perfReport captures one trie-vs-linear comparison run.
type perfReport struct {
	Contacts       int           `json:"contacts"`
	PrefixesTested int           `json:"prefixes_tested"`
	LinearNameTime time.Duration `json:"linear_name_time_ns"`
	TrieNameTime   time.Duration `json:"trie_name_time_ns"`
	Speedup        float64       `json:"speedup"`
}

// cmdPerf loads a throwaway store with n random contacts and times the
// trie-backed name lookup against the linear scan over the same prefixes.
// The report is printed and saved next to the live data.
func cmdPerf(args []string, dataDir string) {
	n := 2000
	if len(args) > 0 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil || parsed <= 0 {
			fmt.Println("usage: perf [n]")
			return
		}
		n = parsed
	}

	tmpDir, err := os.MkdirTemp("", "contactdb-perf-")
	if err != nil {
		fmt.Println("perf failed:", err)
		return
	}
	defer os.RemoveAll(tmpDir)

	// Durability is not under test here; fsync per insert would swamp the
	// numbers.
	cfg := storecfg.DefaultConfig()
	cfg.Dir = tmpDir
	fsync := false
	cfg.Fsync = &fsync

	s, err := store.Open(cfg, nil)
	if err != nil {
		fmt.Println("perf failed:", err)
		return
	}
	defer s.Close()

	fmt.Printf("loading %d random contacts...\n", n)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	letters := "abcdefghijklmnopqrstuvwxyz"
	prefixes := make([]string, 0, 200)
	for i := 0; i < n; i++ {
		name := make([]byte, 8)
		for j := range name {
			name[j] = letters[rng.Intn(len(letters))]
		}
		phone := fmt.Sprintf("1%010d", rng.Int63n(10_000_000_000))
		if _, err := s.Add(string(name), phone, ""); err != nil {
			continue
		}
		if len(prefixes) < cap(prefixes) {
			prefixes = append(prefixes, string(name[:3]))
		}
	}

	timeQueries := func(query func(string)) time.Duration {
		const repeats = 3
		start := time.Now()
		for r := 0; r < repeats; r++ {
			for _, p := range prefixes {
				query(p)
			}
		}
		return time.Since(start) / repeats
	}

	report := perfReport{
		Contacts:       s.Count(),
		PrefixesTested: len(prefixes),
		LinearNameTime: timeQueries(func(p string) { s.ScanNamePrefix(p) }),
		TrieNameTime:   timeQueries(func(p string) { s.FindByNamePrefix(p) }),
	}
	if report.TrieNameTime > 0 {
		report.Speedup = float64(report.LinearNameTime) / float64(report.TrieNameTime)
	}

	fmt.Printf("linear scan: %v for %d prefixes\n", report.LinearNameTime, report.PrefixesTested)
	fmt.Printf("trie lookup: %v for %d prefixes\n", report.TrieNameTime, report.PrefixesTested)
	fmt.Printf("speedup: %.1fx\n", report.Speedup)

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return
	}
	reportPath := filepath.Join(dataDir, "perf_report.json")
	if err := os.WriteFile(reportPath, out, 0o644); err != nil {
		fmt.Println("could not save report:", err)
		return
	}
	fmt.Println("report saved to", reportPath)
}
