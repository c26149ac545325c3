package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/race-to-moscow/internal/bot"
	"github.com/freeeve/race-to-moscow/internal/logger"
	"github.com/freeeve/race-to-moscow/pkg/campaign"
)

func main() {
	url := flag.String("url", "http://localhost:8009", "server base URL")
	strategyName := flag.String("strategy", "greedy", "bot strategy ("+strings.Join(bot.Names(), ", ")+")")
	faction := flag.String("faction", "gray", "faction to play")
	mode := flag.String("mode", "standard", "difficulty (standard, hard)")
	seed := flag.Int64("seed", 0, "session seed (0 = server picks)")
	maxTurns := flag.Int("max-turns", 0, "stop after this turn (0 = 40)")
	contentDir := flag.String("content", "", "content directory matching the server's (empty = standard)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := "info"
	if *debug {
		level = "debug"
	}
	logger.Setup(logger.Options{Level: level, Console: os.Stderr, Color: true})

	strategy, err := bot.StrategyFor(*strategyName)
	if err != nil {
		log.Fatal().Err(err).Msg("Bad strategy")
	}

	m, cards := campaign.StandardMap(), campaign.StandardCards()
	if *contentDir != "" {
		if m, cards, err = campaign.LoadContentDir(*contentDir); err != nil {
			log.Fatal().Err(err).Msg("Content load failed")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("Received shutdown signal")
		cancel()
	}()

	orch := bot.NewOrchestrator(*url, m, cards, strategy, bot.ArenaConfig{
		Faction:  *faction,
		Mode:     *mode,
		Seed:     *seed,
		MaxTurns: *maxTurns,
	})
	res, err := orch.Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Bot orchestrator failed")
	}
	log.Info().
		Str("sessionId", res.SessionID).
		Str("result", res.Result).
		Str("reason", res.Reason).
		Int("turns", res.Turns).
		Int("medals", res.Medals).
		Msg("Bot campaign completed")
}
