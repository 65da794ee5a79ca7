package orderbook

import (
	"slices"
	"sort"
	"strings"
)

// DefaultCapacity is the initial backing size used when none is given.
const DefaultCapacity = 1 << 16

// OrderBook is a single-sided book of resting orders kept in priority
// order: ascending price, then descending size within a price.
//
// It is single-writer and not safe for concurrent use.
type OrderBook struct {
	orders []Order
}

// NewOrderBook returns an empty book. capacity is a hint; the book grows
// past it as needed.
func NewOrderBook(capacity int) *OrderBook {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &OrderBook{
		orders: make([]Order, 0, capacity),
	}
}

// ---- mutations ----

// Add inserts a new order at the position that keeps the book in priority
// order. Exact duplicates are placed after the orders they equal.
func (b *OrderBook) Add(price, size int64) {
	o := Order{Price: price, Size: size}
	n := len(b.orders)

	if n == 0 {
		b.orders = append(b.orders, o)
		return
	}

	// worst price, or same worst price with no larger size
	if !o.ranksBefore(b.orders[n-1]) {
		b.orders = append(b.orders, o)
		return
	}

	// best price, or same best price with a larger size
	if o.ranksBefore(b.orders[0]) {
		b.orders = slices.Insert(b.orders, 0, o)
		return
	}

	// orders[0] does not rank after o and orders[n-1] does, so the answer
	// lies in [1, n-1].
	i := 1 + sort.Search(n-2, func(k int) bool {
		return o.ranksBefore(b.orders[k+1])
	})
	b.orders = slices.Insert(b.orders, i, o)
}

// Remove cancels the order at position. Positions past the end remove the
// worst order, negative positions remove the best one, and removing from an
// empty book does nothing.
func (b *OrderBook) Remove(position int) {
	n := len(b.orders)
	if n == 0 {
		return
	}
	position = min(max(position, 0), n-1)
	b.orders = slices.Delete(b.orders, position, position+1)
}

// Buy executes a market buy of quantity shares against the book and returns
// the total cost. It stops early when the book runs out.
func (b *OrderBook) Buy(quantity int64) int64 {
	return b.Execute(quantity, nil)
}

// Execute is Buy with a callback invoked once per order touched, in
// priority order. fn may be nil.
func (b *OrderBook) Execute(quantity int64, fn func(Fill)) int64 {
	var cost int64
	consumed := 0
	partial := false

	for i := range b.orders {
		if quantity <= 0 {
			break
		}
		o := &b.orders[i]

		take := min(quantity, o.Size)
		quantity -= take
		cost += take * o.Price
		o.Size -= take

		exhausted := o.Size <= 0
		if exhausted {
			consumed++
		}
		if fn != nil {
			fn(Fill{Position: i, Price: o.Price, Size: take, Exhausted: exhausted})
		}
		if !exhausted {
			partial = take > 0
			break
		}
	}

	// exhausted orders form a prefix; drop them with a single shift
	if consumed > 0 {
		b.orders = slices.Delete(b.orders, 0, consumed)
	}
	if partial {
		b.reseatBest()
	}
	return cost
}

// reseatBest moves a partially filled best order behind the orders at its
// price that now out-size it (and behind equal ones, as Add does).
func (b *OrderBook) reseatBest() {
	n := len(b.orders)
	if n < 2 {
		return
	}
	o := b.orders[0]
	k := 1
	for k < n && b.orders[k].Price == o.Price && b.orders[k].Size >= o.Size {
		k++
	}
	if k == 1 {
		return
	}
	copy(b.orders[0:k-1], b.orders[1:k])
	b.orders[k-1] = o
}

// ---- queries ----

// Len returns the number of resting orders.
func (b *OrderBook) Len() int {
	return len(b.orders)
}

// At returns the order at position. It panics if position is out of range.
func (b *OrderBook) At(position int) Order {
	return b.orders[position]
}

// Best returns the order that the next buy would hit first.
func (b *OrderBook) Best() (Order, bool) {
	if len(b.orders) == 0 {
		return Order{}, false
	}
	return b.orders[0], true
}

// Walk visits orders best to worst until fn returns false.
func (b *OrderBook) Walk(fn func(position int, o Order) bool) {
	for i, o := range b.orders {
		if !fn(i, o) {
			return
		}
	}
}

// Orders returns a copy of the book in priority order.
func (b *OrderBook) Orders() []Order {
	return slices.Clone(b.orders)
}

// Depth returns the total resting size.
func (b *OrderBook) Depth() int64 {
	var total int64
	for _, o := range b.orders {
		total += o.Size
	}
	return total
}

func (b *OrderBook) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, o := range b.orders {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(o.String())
	}
	sb.WriteByte(']')
	return sb.String()
}
