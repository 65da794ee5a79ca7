package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"askbook/infra/transport"
)

/*
Replay applies a command journal in order, keeping the journal's sequence
numbers. Replayed commands are not journaled again.

Sequencing resumes after the last replayed record.
*/
func (s *OrderService) Replay(ctx context.Context, dir string) (Stats, error) {
	src, err := transport.NewJournalSource(dir)
	if err != nil {
		return s.stats, err
	}
	defer src.Close()

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
		if err != nil {
			return s.stats, fmt.Errorf("service: replay: %w", err)
		}
		if err := validate(c); err != nil {
			return s.stats, fmt.Errorf("service: replay seq %d: %w", src.LastSeq(), err)
		}
		if _, err := s.apply(ctx, src.LastSeq(), c); err != nil {
			return s.stats, err
		}
	}

	// Resume sequencing AFTER replay
	if last := src.LastSeq(); last > s.seq.Current() {
		s.seq.Reset(last)
	}
	s.publishBook()

	s.logger.Info("journal replay completed",
		slog.String("dir", dir),
		slog.Uint64("last_seq", src.LastSeq()),
		slog.Int("commands", s.stats.Commands),
	)
	return s.stats, nil
}
