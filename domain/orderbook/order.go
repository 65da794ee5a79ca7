package orderbook

import "fmt"

// Order is a resting order. The book owns it by value.
type Order struct {
	Price int64
	Size  int64
}

func (o Order) String() string {
	return fmt.Sprintf("(%d, %d)", o.Price, o.Size)
}

// ranksBefore reports whether o has strictly better priority than other:
// lower price first, then larger size at the same price.
func (o Order) ranksBefore(other Order) bool {
	if o.Price != other.Price {
		return o.Price < other.Price
	}
	return o.Size > other.Size
}

// Fill describes one resting order touched by a buy.
type Fill struct {
	Position  int
	Price     int64
	Size      int64
	Exhausted bool
}

// Cost is the notional of the fill.
func (f Fill) Cost() int64 {
	return f.Price * f.Size
}
