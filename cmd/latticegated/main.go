package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/latticegate/latticegate/internal/audit"
	"github.com/latticegate/latticegate/internal/config"
	"github.com/latticegate/latticegate/internal/engine"
	"github.com/latticegate/latticegate/internal/metrics"
)

// traceLine is one proposed step read from the contribution trace.
type traceLine struct {
	Contribs []struct {
		Channel string `json:"channel"`
		WeightQ int64  `json:"weight_q"`
	} `json:"contribs"`
	Class         int `json:"class"`
	Anchor        int `json:"anchor"`
	SpectralIters int `json:"spectral_iters"`
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	tracePath := flag.String("trace", "-", "contribution trace (JSONL), - for stdin")
	watch := flag.Bool("watch", false, "hot-reload budget limits on config change")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("latticegated starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	eng, led, err := cfg.Build()
	if err != nil {
		slog.Error("failed to build engine", "err", err)
		os.Exit(1)
	}
	slog.Info("engine provisioned",
		"channels", len(cfg.Channels),
		"ledger_rows", len(cfg.Ledger),
		"scale_q", cfg.Engine.ScaleQ,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Serializes engine access: the step loop and the budget hot-reload
	// callback are the only two writers.
	var mu sync.Mutex
	if *watch {
		go func() {
			err := config.Watch(ctx, *configPath, func(next *config.Config) {
				mu.Lock()
				defer mu.Unlock()
				if err := eng.SetBudgets(next.Budgets()); err != nil {
					slog.Error("budget reload rejected", "err", err)
					return
				}
				slog.Info("budget limits reloaded",
					"limit1_q", next.Engine.Limit1Q, "limit2_q", next.Engine.Limit2Q)
			})
			if err != nil {
				slog.Error("config watcher stopped", "err", err)
			}
		}()
	}

	journalOut := io.Writer(os.Stdout)
	if cfg.Audit.Journal != "" {
		f, err := os.Create(cfg.Audit.Journal)
		if err != nil {
			slog.Error("failed to open journal", "path", cfg.Audit.Journal, "err", err)
			os.Exit(1)
		}
		defer f.Close()
		journalOut = f
	}
	journal := audit.New(journalOut, cfg.Audit.AuditEvery)
	collector := metrics.NewCollector()

	traceIn := io.Reader(os.Stdin)
	if *tracePath != "-" {
		f, err := os.Open(*tracePath)
		if err != nil {
			slog.Error("failed to open trace", "path", *tracePath, "err", err)
			os.Exit(1)
		}
		defer f.Close()
		traceIn = f
	}

	state := append([]int64(nil), cfg.Trajectory.State...)
	offset := cfg.Trajectory.Offset

	scanner := bufio.NewScanner(traceIn)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	steps := 0
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var tl traceLine
		if err := json.Unmarshal(line, &tl); err != nil {
			slog.Error("bad trace line", "step", steps, "err", err)
			os.Exit(1)
		}
		contribs := make([]engine.Contribution, len(tl.Contribs))
		for i, c := range tl.Contribs {
			contribs[i] = engine.Contribution{ChannelID: c.Channel, WeightQ: c.WeightQ}
		}

		mu.Lock()
		res, err := eng.Step(state, offset, contribs, tl.SpectralIters)
		mu.Unlock()
		if err != nil {
			// Input-contract violation: abort the whole run, no partial result.
			if errors.Is(err, engine.ErrUnknownChannel) {
				slog.Error("trace violates channel roster", "step", steps, "err", err)
			} else {
				slog.Error("step failed", "step", steps, "err", err)
			}
			os.Exit(1)
		}

		entryID, err := journal.Record(res, audit.Context{Class: tl.Class, Anchor: tl.Anchor})
		if err != nil {
			slog.Error("journal write failed", "step", steps, "err", err)
			os.Exit(1)
		}
		collector.Observe(res)

		if res.Committed {
			state = res.NextState
			slog.Info("step committed", "step", steps, "entry", entryID, "digest", res.Digest)
		} else {
			slog.Warn("step quarantined", "step", steps, "entry", entryID, "reason", res.Reason)
		}
		steps++
	}
	if err := scanner.Err(); err != nil {
		slog.Error("trace read failed", "err", err)
		os.Exit(1)
	}

	if cfg.Metrics.Snapshot != "" {
		f, err := os.Create(cfg.Metrics.Snapshot)
		if err != nil {
			slog.Error("failed to open metrics snapshot", "path", cfg.Metrics.Snapshot, "err", err)
			os.Exit(1)
		}
		if err := collector.WriteSnapshot(f, led); err != nil {
			slog.Error("metrics snapshot failed", "err", err)
		}
		f.Close()
	}

	slog.Info("latticegated done", "steps", steps)
}
