package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"askbook/config"
	"askbook/domain/orderbook"
	"askbook/infra/codec"
	"askbook/infra/kafka"
	"askbook/infra/metrics"
	"askbook/infra/sequence"
	"askbook/infra/transport"
	entrywal "askbook/infra/wal/entry"
	exitwal "askbook/infra/wal/exit"
	"askbook/jobs/broadcaster"
	"askbook/service"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// App wires the engine and its optional infrastructure for one run.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	runID   string
	closers []func()
}

func New(cfg *config.Config, logger *slog.Logger) *App {
	runID := uuid.NewString()
	return &App{
		cfg:    cfg,
		runID:  runID,
		logger: logger.With(slog.String("run_id", runID)),
	}
}

// Run consumes the configured input, settles with the closing buy and
// writes its cost to out.
func (a *App) Run(ctx context.Context, out io.Writer) error {
	a.logger.InfoContext(ctx, "starting",
		slog.String("transport", a.cfg.Input.Transport),
		slog.String("path", a.cfg.Input.Path),
	)

	// ---- Metrics ----
	m := metrics.New()

	// ---- Entry WAL ----
	var journal *entrywal.WAL
	if a.cfg.Journal.Enabled {
		// one journal per run, so replaying it reproduces exactly this run
		dir := a.JournalDir()
		w, err := entrywal.Open(entrywal.Config{
			Dir:         dir,
			SegmentSize: a.cfg.Journal.SegmentSize,
		})
		if err != nil {
			return fmt.Errorf("app: journal: %w", err)
		}
		if w.LastSeq() != 0 {
			_ = w.Close()
			return fmt.Errorf("app: journal %s already holds commands", dir)
		}
		a.addCloser("journal", w.Close)
		journal = w
		a.logger.InfoContext(ctx, "journaling", slog.String("dir", dir))
	}

	// ---- Exit WAL ----
	var (
		outbox *exitwal.ExitWAL
		enc    codec.Codec
	)
	if a.cfg.Outbox.Enabled {
		c, err := codec.ByName(a.cfg.Outbox.Codec)
		if err != nil {
			return err
		}
		w, err := exitwal.Open(a.cfg.Outbox.Dir, a.cfg.Outbox.Durable)
		if err != nil {
			return fmt.Errorf("app: outbox: %w", err)
		}
		a.addCloser("outbox", w.Close)
		outbox, enc = w, c
	}

	// ---- Broadcaster ----
	var bc *broadcaster.Broadcaster
	if a.cfg.Publish.Enabled && outbox != nil {
		pub, err := kafka.New(a.cfg.Publish.Driver, a.cfg.Publish.Brokers, a.cfg.Publish.Topic)
		if err != nil {
			return fmt.Errorf("app: publisher: %w", err)
		}
		bc = broadcaster.New(outbox, pub, broadcaster.Config{
			Interval:   a.cfg.Publish.Interval.Duration,
			MaxRetries: uint32(a.cfg.Publish.MaxRetries),
		}, m, a.logger)
		a.addCloser("publisher", bc.Close)
	}

	// ---- Service ----
	svc, err := service.NewOrderService(
		orderbook.NewOrderBook(a.cfg.Book.InitialCapacity),
		sequence.New(0),
		service.Deps{
			Journal: journal,
			Outbox:  outbox,
			Codec:   enc,
			Metrics: m,
			RunID:   a.runID,
		},
		service.Options{
			FinalBuy:    a.cfg.Book.FinalBuy,
			SkipInvalid: a.cfg.Input.SkipInvalid,
		},
		a.logger,
	)
	if err != nil {
		return err
	}

	// ---- Run ----
	g, gctx := errgroup.WithContext(ctx)
	bctx, stopBroadcast := context.WithCancel(gctx)
	defer stopBroadcast()

	g.Go(func() error {
		defer stopBroadcast()
		return a.runEngine(gctx, svc, out)
	})
	if bc != nil {
		g.Go(func() error {
			return bc.Run(bctx)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// ---- Metrics textfile ----
	if path := a.cfg.Metrics.Textfile; path != "" {
		if err := m.WriteTextfile(path); err != nil {
			return err
		}
	}
	return nil
}

// JournalDir is where this run's commands are journaled.
func (a *App) JournalDir() string {
	return filepath.Join(a.cfg.Journal.Dir, a.runID)
}

func (a *App) runEngine(ctx context.Context, svc *service.OrderService, out io.Writer) error {
	var (
		stats service.Stats
		err   error
	)
	if a.cfg.Input.Transport == transport.KindJournal {
		stats, err = svc.Replay(ctx, a.cfg.Input.Path)
	} else {
		var stream *transport.Stream
		if stream, err = transport.Open(a.cfg.Input.Transport, a.cfg.Input.Path); err != nil {
			return err
		}
		defer stream.Close()
		stats, err = svc.Run(ctx, stream)
	}
	if err != nil {
		return err
	}

	cost, err := svc.Settle(ctx)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(out, cost); err != nil {
		return fmt.Errorf("app: write result: %w", err)
	}

	a.logger.Info("run complete",
		slog.Int("commands", stats.Commands),
		slog.Int("skipped", stats.Skipped),
		slog.Int("fills", stats.Fills),
		slog.Int64("cost", stats.Cost),
	)
	return nil
}

func (a *App) addCloser(name string, fn func() error) {
	a.closers = append(a.closers, func() {
		if err := fn(); err != nil {
			a.logger.Error("close failed", slog.String("resource", name), slog.Any("error", err))
		}
	})
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
