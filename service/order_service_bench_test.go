package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"askbook/domain/command"
	"askbook/domain/orderbook"
	"askbook/infra/codec"
	"askbook/infra/sequence"
	entrywal "askbook/infra/wal/entry"
	exitwal "askbook/infra/wal/exit"
)

func benchCommand(i int) command.Command {
	switch i % 8 {
	case 6:
		return command.NewBuy(25)
	case 7:
		return command.NewRemove(i % 64)
	default:
		return command.NewAdd(int64(100+i%40), int64(1+i%16))
	}
}

func BenchmarkApply_Core(b *testing.B) {
	svc, _ := NewOrderService(
		orderbook.NewOrderBook(orderbook.DefaultCapacity),
		sequence.New(0),
		Deps{},
		Options{},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = svc.Apply(ctx, benchCommand(i))
	}
}

func BenchmarkApply_JournalAndOutbox(b *testing.B) {
	entryWAL, err := entrywal.Open(entrywal.Config{
		Dir:         b.TempDir(),
		SegmentSize: 64 << 20,
	})
	if err != nil {
		b.Fatal(err)
	}
	defer entryWAL.Close()

	exitWAL, err := exitwal.Open(b.TempDir(), false)
	if err != nil {
		b.Fatal(err)
	}
	defer exitWAL.Close()

	svc, err := NewOrderService(
		orderbook.NewOrderBook(orderbook.DefaultCapacity),
		sequence.New(0),
		Deps{Journal: entryWAL, Outbox: exitWAL, Codec: codec.Proto{}, RunID: "bench"},
		Options{},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.Apply(ctx, benchCommand(i)); err != nil {
			b.Fatal(err)
		}
	}
}
