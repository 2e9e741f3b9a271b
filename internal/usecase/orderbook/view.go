package orderbook

import (
	orderbookv1 "github.com/meridian-exchange/matching-engine/internal/domain/orderbook/v1"
)

// LevelQuote summarizes one price level for inspection and snapshots.
type LevelQuote struct {
	Price  orderbookv1.Price `json:"price"`
	Qty    orderbookv1.Qty   `json:"qty"`
	Orders int               `json:"orders"`
}

// Bids returns the bid levels from most to least aggressive (descending
// price). Must be called from the goroutine that owns the book.
func (b *Book) Bids() []LevelQuote {
	return b.quotes(b.bestBid)
}

// Asks returns the ask levels from most to least aggressive (ascending
// price). Must be called from the goroutine that owns the book.
func (b *Book) Asks() []LevelQuote {
	return b.quotes(b.bestAsk)
}

func (b *Book) quotes(bestIdx int32) []LevelQuote {
	if bestIdx == nilIdx {
		return nil
	}

	var out []LevelQuote
	levelIdx := bestIdx
	for {
		level := b.levels.At(levelIdx)

		quote := LevelQuote{Price: level.Price}
		orderIdx := level.FirstOrder
		for {
			order := b.orders.At(orderIdx)
			quote.Qty += order.Qty
			quote.Orders++
			orderIdx = order.Next
			if orderIdx == level.FirstOrder {
				break
			}
		}
		out = append(out, quote)

		levelIdx = level.Next
		if levelIdx == bestIdx {
			break
		}
	}
	return out
}

// OrdersAt returns copies of the orders resting at (side, price) in FIFO
// order, or nil when no level exists there.
func (b *Book) OrdersAt(side orderbookv1.Side, price orderbookv1.Price) []orderbookv1.Order {
	levelIdx := b.levelIdxAt(price)
	if levelIdx == nilIdx {
		return nil
	}
	level := b.levels.At(levelIdx)
	if level.Side != side {
		return nil
	}

	var out []orderbookv1.Order
	orderIdx := level.FirstOrder
	for {
		out = append(out, *b.orders.At(orderIdx))
		orderIdx = b.orders.At(orderIdx).Next
		if orderIdx == level.FirstOrder {
			break
		}
	}
	return out
}

// BestBid returns the most aggressive bid price, if any.
func (b *Book) BestBid() (orderbookv1.Price, bool) {
	if b.bestBid == nilIdx {
		return 0, false
	}
	return b.levels.At(b.bestBid).Price, true
}

// BestAsk returns the most aggressive ask price, if any.
func (b *Book) BestAsk() (orderbookv1.Price, bool) {
	if b.bestAsk == nilIdx {
		return 0, false
	}
	return b.levels.At(b.bestAsk).Price, true
}

// OpenOrders returns the number of orders currently resting in the book.
func (b *Book) OpenOrders() int {
	return b.orders.InUse()
}

// HasOrder reports whether (clientID, orderID) currently maps to a resting
// order.
func (b *Book) HasOrder(clientID orderbookv1.ClientID, orderID orderbookv1.OrderID) bool {
	if int(clientID) >= len(b.clientOrders) || orderID >= orderbookv1.OrderID(len(b.clientOrders[clientID])) {
		return false
	}
	return b.clientOrders[clientID][orderID] != nilIdx
}
