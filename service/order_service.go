package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"askbook/domain/command"
	"askbook/domain/orderbook"
	"askbook/infra/codec"
	"askbook/infra/metrics"
	"askbook/infra/sequence"
	"askbook/infra/transport"
	entrywal "askbook/infra/wal/entry"
	exitwal "askbook/infra/wal/exit"
)

var (
	ErrInvalidCommand = errors.New("service: invalid command")
	ErrOutboxCodec    = errors.New("service: outbox requires a codec")
)

// ctxCheckEvery bounds how many commands run between cancellation checks.
const ctxCheckEvery = 1024

// Deps are the optional collaborators of an OrderService. Nil members are
// skipped.
type Deps struct {
	Journal *entrywal.WAL
	Outbox  *exitwal.ExitWAL
	Codec   codec.Codec
	Metrics *metrics.Metrics
	RunID   string
}

type Options struct {
	FinalBuy    int64
	SkipInvalid bool
}

// Stats summarizes a run over a command stream.
type Stats struct {
	Commands int
	Adds     int
	Removes  int
	Buys     int
	Skipped  int
	Fills    int
	Cost     int64
}

/*
OrderService is the ONLY write entry point into the book.

Every command is sequenced, journaled when a journal is configured, then
applied. Fills of a buy are encoded into the outbox for the broadcaster.
*/
type OrderService struct {
	book    *orderbook.OrderBook
	seq     *sequence.Sequencer
	fillSeq *sequence.Sequencer
	deps    Deps
	opts    Options
	logger  *slog.Logger

	stats   Stats
	fillErr error
	scratch []byte
}

func NewOrderService(
	book *orderbook.OrderBook,
	seq *sequence.Sequencer,
	deps Deps,
	opts Options,
	logger *slog.Logger,
) (*OrderService, error) {
	var lastFill uint64
	if deps.Outbox != nil {
		if deps.Codec == nil {
			return nil, ErrOutboxCodec
		}
		// undelivered fills of earlier runs keep their numbers
		var err error
		if lastFill, err = deps.Outbox.LastSeq(); err != nil {
			return nil, fmt.Errorf("service: outbox last seq: %w", err)
		}
	}
	return &OrderService{
		book:    book,
		seq:     seq,
		fillSeq: sequence.New(lastFill),
		deps:    deps,
		opts:    opts,
		logger:  logger.With(slog.String("component", "order_service")),
	}, nil
}

// Book exposes the book for read-only queries.
func (s *OrderService) Book() *orderbook.OrderBook {
	return s.book
}

// Stats returns the totals accumulated so far.
func (s *OrderService) Stats() Stats {
	return s.stats
}

//
// ──────────────────────────────────────────────────────────
// Commands
// ──────────────────────────────────────────────────────────
//

// Apply sequences, journals and executes one command. The returned cost is
// non-zero only for buys.
func (s *OrderService) Apply(ctx context.Context, c command.Command) (int64, error) {
	if err := validate(c); err != nil {
		return 0, err
	}

	seq := s.seq.Next()

	// 1️⃣ Write-ahead
	if s.deps.Journal != nil {
		s.scratch = c.AppendBinary(s.scratch[:0])
		rec := entrywal.NewRecord(transport.RecordTypeOf(c.Kind), seq, s.scratch)
		if err := s.deps.Journal.Append(rec); err != nil {
			return 0, fmt.Errorf("service: journal seq %d: %w", seq, err)
		}
	}

	// 2️⃣ Execute
	return s.apply(ctx, seq, c)
}

// apply mutates the book before exporting fills, so a failed export still
// leaves the command applied and counted; its error is returned afterwards.
func (s *OrderService) apply(ctx context.Context, seq uint64, c command.Command) (int64, error) {
	var cost int64
	s.fillErr = nil

	switch c.Kind {
	case command.Add:
		s.book.Add(c.Price, c.Size)
		s.stats.Adds++
	case command.Remove:
		s.book.Remove(c.Pos)
		s.stats.Removes++
	case command.Buy:
		now := time.Now().UTC()
		cost = s.book.Execute(c.Shares, func(f orderbook.Fill) {
			s.onFill(seq, now, f)
		})
		s.stats.Buys++
		s.stats.Cost += cost
	}
	s.stats.Commands++

	if m := s.deps.Metrics; m != nil {
		m.Command(c.Kind.String())
	}
	if s.logger.Enabled(ctx, slog.LevelDebug) {
		s.logger.Debug("applied",
			slog.Uint64("seq", seq),
			slog.String("cmd", c.String()),
			slog.Int64("cost", cost),
			slog.String("book", s.book.String()),
		)
	}
	return cost, s.fillErr
}

// 3️⃣ Fan out fills
func (s *OrderService) onFill(cmdSeq uint64, at time.Time, f orderbook.Fill) {
	s.stats.Fills++
	if m := s.deps.Metrics; m != nil {
		m.Fill(f.Size, f.Cost())
	}
	if s.deps.Outbox == nil || s.fillErr != nil {
		return
	}

	ev := codec.FillEvent{
		RunID:      s.deps.RunID,
		Seq:        s.fillSeq.Next(),
		CommandSeq: cmdSeq,
		Position:   f.Position,
		Price:      f.Price,
		Size:       f.Size,
		Exhausted:  f.Exhausted,
		Time:       at,
	}
	payload, err := s.deps.Codec.Encode(ev)
	if err != nil {
		s.fillErr = fmt.Errorf("service: encode fill %d: %w", ev.Seq, err)
		return
	}
	if err := s.deps.Outbox.PutNew(ev.Seq, ev.Key(), payload); err != nil {
		s.fillErr = fmt.Errorf("service: outbox fill %d: %w", ev.Seq, err)
	}
}

func validate(c command.Command) error {
	switch c.Kind {
	case command.Add:
		if c.Size <= 0 {
			return fmt.Errorf("%w: %s: size must be positive", ErrInvalidCommand, c)
		}
	case command.Remove, command.Buy:
	default:
		return fmt.Errorf("%w: kind %d", ErrInvalidCommand, c.Kind)
	}
	return nil
}

//
// ──────────────────────────────────────────────────────────
// Streams
// ──────────────────────────────────────────────────────────
//

// Run applies src until io.EOF. A malformed or invalid record aborts the run
// unless SkipInvalid is set, in which case it is logged and counted.
func (s *OrderService) Run(ctx context.Context, src command.Source) (Stats, error) {
	for n := 0; ; n++ {
		if n%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return s.stats, err
			}
		}

		c, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err == nil {
			_, err = s.Apply(ctx, c)
		}
		if err == nil {
			continue
		}
		if !s.skippable(err) {
			return s.stats, err
		}
		s.stats.Skipped++
		s.logger.Warn("skipping record", slog.Any("error", err))
	}

	s.publishBook()
	return s.stats, nil
}

func (s *OrderService) skippable(err error) bool {
	var de *command.DecodeError
	isDecode := errors.As(err, &de)
	if isDecode && s.deps.Metrics != nil {
		s.deps.Metrics.DecodeError()
	}
	return s.opts.SkipInvalid && (isDecode || errors.Is(err, ErrInvalidCommand))
}

// Settle executes the closing buy and flushes the journal. The closing buy
// is not journaled, so replaying a journal and settling again reproduces the
// same cost.
func (s *OrderService) Settle(ctx context.Context) (int64, error) {
	cost, err := s.apply(ctx, s.seq.Next(), command.NewBuy(s.opts.FinalBuy))
	if err != nil {
		return cost, err
	}
	if s.deps.Journal != nil {
		if err := s.deps.Journal.Sync(); err != nil {
			return cost, fmt.Errorf("service: journal sync: %w", err)
		}
	}
	s.publishBook()

	s.logger.Info("settled",
		slog.Int64("final_buy", s.opts.FinalBuy),
		slog.Int64("cost", cost),
		slog.Int("resting_orders", s.book.Len()),
	)
	return cost, nil
}

func (s *OrderService) publishBook() {
	if m := s.deps.Metrics; m != nil {
		m.Book(s.book.Len(), s.book.Depth())
	}
}
