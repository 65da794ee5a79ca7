package broadcaster

import (
	"context"
	"log/slog"
	"time"

	"askbook/infra/kafka"
	exitwal "askbook/infra/wal/exit"
)

const drainTimeout = 5 * time.Second

// Observer is told about every delivery attempt.
type Observer interface {
	Published(ok bool)
}

type Config struct {
	Interval   time.Duration
	MaxRetries uint32
}

// Broadcaster relays outbox records to a publisher. A record is marked SENT
// before the publish and removed only after the publisher accepts it, so a
// crash in between redelivers rather than loses it.
type Broadcaster struct {
	exitWAL   *exitwal.ExitWAL
	publisher kafka.Publisher
	cfg       Config
	observer  Observer
	logger    *slog.Logger
}

type FlushResult struct {
	Sent   int
	Failed int
}

// ------------------------------------------------
// CONSTRUCTOR
// ------------------------------------------------

func New(
	exitWAL *exitwal.ExitWAL,
	publisher kafka.Publisher,
	cfg Config,
	observer Observer,
	logger *slog.Logger,
) *Broadcaster {
	if cfg.Interval <= 0 {
		cfg.Interval = 250 * time.Millisecond
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 5
	}
	return &Broadcaster{
		exitWAL:   exitWAL,
		publisher: publisher,
		cfg:       cfg,
		observer:  observer,
		logger:    logger.With(slog.String("component", "broadcaster")),
	}
}

// ------------------------------------------------
// LOOP
// ------------------------------------------------

// Run ticks until ctx is done, then drains whatever is left once.
func (b *Broadcaster) Run(ctx context.Context) error {
	b.logger.Info("started", slog.Duration("interval", b.cfg.Interval))

	ticker := time.NewTicker(b.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
			defer cancel()

			res, err := b.Flush(drainCtx)
			b.logger.Info("stopped", slog.Int("sent", res.Sent), slog.Int("failed", res.Failed))
			return err

		case <-ticker.C:
			if _, err := b.Flush(ctx); err != nil && ctx.Err() == nil {
				b.logger.Error("flush failed", slog.Any("error", err))
			}
		}
	}
}

// ------------------------------------------------
// REPLAY LOGIC
// ------------------------------------------------

// Flush makes one pass over the pending records.
func (b *Broadcaster) Flush(ctx context.Context) (FlushResult, error) {
	var res FlushResult

	err := b.exitWAL.Pending(b.cfg.MaxRetries, func(rec exitwal.ExitRecord) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := b.exitWAL.MarkSent(rec.Seq); err != nil {
			return err
		}

		if err := b.publisher.Send(ctx, rec.Key, rec.Payload); err != nil {
			res.Failed++
			b.observe(false)
			b.logger.Warn("publish failed",
				slog.Uint64("seq", rec.Seq),
				slog.Uint64("retries", uint64(rec.Retries+1)),
				slog.Any("error", err),
			)
			return b.exitWAL.MarkFailed(rec.Seq, rec.Retries+1)
		}

		res.Sent++
		b.observe(true)
		return b.exitWAL.Ack(rec.Seq)
	})
	return res, err
}

func (b *Broadcaster) observe(ok bool) {
	if b.observer != nil {
		b.observer.Published(ok)
	}
}

// ------------------------------------------------
// SHUTDOWN
// ------------------------------------------------

func (b *Broadcaster) Close() error {
	return b.publisher.Close()
}
