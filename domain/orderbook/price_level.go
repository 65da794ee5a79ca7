package orderbook

// PriceLevel aggregates the resting orders at a single price.
type PriceLevel struct {
	Price      int64
	TotalSize  int64
	OrderCount int
}

// Levels returns up to depth price levels, best first. depth <= 0 returns
// every level.
func (b *OrderBook) Levels(depth int) []PriceLevel {
	var out []PriceLevel
	for _, o := range b.orders {
		if n := len(out); n > 0 && out[n-1].Price == o.Price {
			out[n-1].TotalSize += o.Size
			out[n-1].OrderCount++
			continue
		}
		if depth > 0 && len(out) == depth {
			break
		}
		out = append(out, PriceLevel{Price: o.Price, TotalSize: o.Size, OrderCount: 1})
	}
	return out
}
