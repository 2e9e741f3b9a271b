package orderbookv1

import "fmt"

// Order is a resting order in the book. Orders live in a slab pool; Prev
// and Next are pool slot indices forming a circular FIFO of the orders at
// one price level. A single resting order links to itself.
type Order struct {
	InstrumentID  InstrumentID
	ClientID      ClientID
	ClientOrderID OrderID
	EngineOrderID OrderID

	Side     Side
	Price    Price
	Qty      Qty // remaining quantity, decremented in place on partial fills
	Priority Priority

	Prev int32
	Next int32
}

func (o *Order) String() string {
	return fmt.Sprintf("Order[instrument:%d client:%d coid:%d eoid:%d side:%v price:%d qty:%d priority:%d]",
		o.InstrumentID, o.ClientID, o.ClientOrderID, o.EngineOrderID, o.Side, o.Price, o.Qty, o.Priority)
}

// PriceLevel is one price on one side of the book. Levels live in their own
// slab pool; Prev and Next are pool slot indices forming a circular list
// ordered by aggressiveness (bids descending, asks ascending). FirstOrder
// is the head of the level's order FIFO. A level exists iff at least one
// order rests at its price.
type PriceLevel struct {
	Side  Side
	Price Price

	FirstOrder int32

	Prev int32
	Next int32
}

func (l *PriceLevel) String() string {
	return fmt.Sprintf("PriceLevel[side:%v price:%d]", l.Side, l.Price)
}
