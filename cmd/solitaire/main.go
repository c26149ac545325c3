// Command solitaire plays headless campaigns with the built-in strategies and
// reports how each fared.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/race-to-moscow/internal/bot"
	"github.com/freeeve/race-to-moscow/internal/logger"
	"github.com/freeeve/race-to-moscow/internal/repository"
	"github.com/freeeve/race-to-moscow/internal/repository/local"
	"github.com/freeeve/race-to-moscow/pkg/campaign"
)

func main() {
	var (
		strategies string
		faction    string
		mode       string
		contentDir string
		numGames   int
		workers    int
		maxTurns   int
		seed       int64
		savePath   string
		jsonOut    bool
		debug      bool
	)

	flag.StringVar(&strategies, "strategy", "greedy", "Comma-separated strategies ("+strings.Join(bot.Names(), ", ")+")")
	flag.StringVar(&faction, "faction", "gray", "Faction to play")
	flag.StringVar(&mode, "mode", "standard", "Difficulty (standard, hard)")
	flag.StringVar(&contentDir, "content", "", "Content directory (empty = standard map and cards)")
	flag.IntVar(&numGames, "n", 1, "Games per strategy")
	flag.IntVar(&workers, "workers", 1, "Concurrency (parallel games)")
	flag.IntVar(&maxTurns, "max-turns", 40, "Stop a campaign unfinished after this turn")
	flag.Int64Var(&seed, "seed", 0, "Base seed (0 = from the clock)")
	flag.StringVar(&savePath, "save", "", "Record every game to this SQLite file")
	flag.BoolVar(&jsonOut, "json", false, "Output results as JSON")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.Parse()

	level := "info"
	if debug {
		level = "debug"
	}
	logger.Setup(logger.Options{Level: level, Console: os.Stderr, Color: true})

	names := strings.Split(strategies, ",")
	for _, name := range names {
		if _, err := bot.StrategyFor(strings.TrimSpace(name)); err != nil {
			log.Fatal().Err(err).Msg("Bad strategy")
		}
	}
	if workers < 1 {
		workers = 1
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	m, cards := campaign.StandardMap(), campaign.StandardCards()
	if contentDir != "" {
		var err error
		if m, cards, err = campaign.LoadContentDir(contentDir); err != nil {
			log.Fatal().Err(err).Msg("Content load failed")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("Shutting down...")
		cancel()
	}()

	var sessions repository.SessionRepository
	var snapshots repository.SnapshotRepository
	if savePath != "" {
		store, err := local.Open(savePath, log.Logger)
		if err != nil {
			log.Fatal().Err(err).Msg("Store open failed")
		}
		defer store.Close()
		sessions, snapshots = store.Sessions(), store.Snapshots()
	}

	type job struct {
		idx      int
		strategy string
		seed     int64
	}
	var jobs []job
	for _, name := range names {
		for i := 0; i < numGames; i++ {
			jobs = append(jobs, job{idx: len(jobs), strategy: strings.TrimSpace(name), seed: seed + int64(i)})
		}
	}

	// Run games
	results := make([]*bot.ArenaResult, len(jobs))
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	errCount := 0

	for _, j := range jobs {
		wg.Add(1)
		sem <- struct{}{}

		go func(j job) {
			defer wg.Done()
			defer func() { <-sem }()

			cfg := bot.ArenaConfig{
				Name:     fmt.Sprintf("solitaire-%s-%d", j.strategy, j.seed),
				OwnerID:  "solitaire",
				Faction:  faction,
				Mode:     mode,
				Strategy: j.strategy,
				Seed:     j.seed,
				MaxTurns: maxTurns,
				DryRun:   savePath == "",
			}
			result, err := bot.RunGame(ctx, m, cards, cfg, sessions, snapshots)
			if err != nil {
				log.Error().Err(err).Str("strategy", j.strategy).Int64("seed", j.seed).Msg("Game failed")
				mu.Lock()
				errCount++
				mu.Unlock()
				return
			}

			mu.Lock()
			results[j.idx] = result
			mu.Unlock()

			log.Info().Str("strategy", j.strategy).Int64("seed", j.seed).Str("result", result.Result).
				Int("turns", result.Turns).Int("medals", result.Medals).Msg("Game completed")
		}(j)
	}

	wg.Wait()

	if jsonOut {
		printJSON(results, len(jobs), errCount)
	} else {
		printSummary(summarize(results), errCount, savePath)
	}
}

// strategyStats aggregates the results of one strategy.
type strategyStats struct {
	Strategy   string  `json:"strategy"`
	Games      int     `json:"games"`
	Won        int     `json:"won"`
	Lost       int     `json:"lost"`
	Unfinished int     `json:"unfinished"`
	AvgTurns   float64 `json:"avg_turns"`
	AvgMedals  float64 `json:"avg_medals"`
}

func summarize(results []*bot.ArenaResult) []strategyStats {
	byName := make(map[string]*strategyStats)
	for _, r := range results {
		if r == nil {
			continue
		}
		s := byName[r.Strategy]
		if s == nil {
			s = &strategyStats{Strategy: r.Strategy}
			byName[r.Strategy] = s
		}
		s.Games++
		s.AvgTurns += float64(r.Turns)
		s.AvgMedals += float64(r.Medals)
		switch r.Result {
		case "won":
			s.Won++
		case "lost":
			s.Lost++
		default:
			s.Unfinished++
		}
	}

	out := make([]strategyStats, 0, len(byName))
	for _, s := range byName {
		s.AvgTurns /= float64(s.Games)
		s.AvgMedals /= float64(s.Games)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Strategy < out[j].Strategy })
	return out
}

func printSummary(stats []strategyStats, errCount int, savePath string) {
	fmt.Printf("\nResults:\n")
	if errCount > 0 {
		fmt.Printf("  (%d games failed)\n", errCount)
	}
	for _, s := range stats {
		fmt.Printf("  %-10s %d games:  %d won, %d lost, %d unfinished  -- avg turns %.1f, avg medals %.1f\n",
			s.Strategy, s.Games, s.Won, s.Lost, s.Unfinished, s.AvgTurns, s.AvgMedals)
	}
	if savePath != "" {
		fmt.Printf("\nGames saved to %s\n", savePath)
	}
}

func printJSON(results []*bot.ArenaResult, total, errCount int) {
	out := struct {
		Total   int                `json:"total"`
		Errors  int                `json:"errors"`
		Summary []strategyStats    `json:"summary"`
		Results []*bot.ArenaResult `json:"results"`
	}{
		Total:   total,
		Errors:  errCount,
		Summary: summarize(results),
		Results: results,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(out)
}
