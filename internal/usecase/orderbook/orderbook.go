package orderbook

import (
	"fmt"

	orderbookv1 "github.com/meridian-exchange/matching-engine/internal/domain/orderbook/v1"
	"github.com/meridian-exchange/matching-engine/pkg/config"
	"github.com/meridian-exchange/matching-engine/pkg/errors"
	"github.com/meridian-exchange/matching-engine/pkg/logger"
	"github.com/meridian-exchange/matching-engine/pkg/pool"
)

const nilIdx = pool.NilIdx

// Book is a single-instrument limit order book with strict price-time
// priority. Orders and price levels live in slab pools and link to each
// other by slot index; the hot path (Add, Cancel, the matching sweep) never
// locks, blocks or allocates.
//
// A Book is owned by exactly one engine goroutine and is not safe for
// concurrent use.
type Book struct {
	instrumentID orderbookv1.InstrumentID
	sink         orderbookv1.Sink
	logger       *logger.Logger

	orders *pool.Pool[orderbookv1.Order]
	levels *pool.Pool[orderbookv1.PriceLevel]

	// Best (most aggressive) level per side, nilIdx when the side is empty.
	bestBid int32
	bestAsk int32

	// price mod len -> level slot. A slot occupied by a different live
	// price means the table was sized below the instrument's price range.
	priceToLevel []int32

	// [clientID][clientOrderID] -> order slot.
	clientOrders [][]int32

	nextEngineOrderID orderbookv1.OrderID

	// Scratch records reused for every emission so the matching path stays
	// allocation free. Sinks must copy before returning.
	response orderbookv1.ClientResponse
	update   orderbookv1.MarketUpdate
}

// NewBook provisions a book for one instrument. All pools and tables are
// sized up front from cfg; exceeding them later aborts the process.
func NewBook(instrumentID orderbookv1.InstrumentID, cfg config.BookConfig, sink orderbookv1.Sink, log *logger.Logger) *Book {
	if cfg.MaxOrders <= 0 || cfg.MaxPriceLevels <= 0 || cfg.MaxClients <= 0 || cfg.MaxOrderIDs <= 0 {
		panic(errors.NewTracer(fmt.Sprintf("book capacities must be positive: %+v", cfg)))
	}

	b := &Book{
		instrumentID:      instrumentID,
		sink:              sink,
		logger:            log,
		orders:            pool.New[orderbookv1.Order](cfg.MaxOrders),
		levels:            pool.New[orderbookv1.PriceLevel](cfg.MaxPriceLevels),
		bestBid:           nilIdx,
		bestAsk:           nilIdx,
		priceToLevel:      make([]int32, cfg.MaxPriceLevels),
		clientOrders:      make([][]int32, cfg.MaxClients),
		nextEngineOrderID: 1,
	}

	for i := range b.priceToLevel {
		b.priceToLevel[i] = nilIdx
	}
	for c := range b.clientOrders {
		b.clientOrders[c] = make([]int32, cfg.MaxOrderIDs)
		for i := range b.clientOrders[c] {
			b.clientOrders[c][i] = nilIdx
		}
	}

	log.Info("order book provisioned",
		logger.Field{Key: "instrumentID", Value: instrumentID},
		logger.Field{Key: "maxOrders", Value: cfg.MaxOrders},
		logger.Field{Key: "maxPriceLevels", Value: cfg.MaxPriceLevels},
		logger.Field{Key: "maxClients", Value: cfg.MaxClients},
		logger.Field{Key: "maxOrderIDs", Value: cfg.MaxOrderIDs},
	)

	return b
}

// Add accepts a new limit order: it acknowledges the request, sweeps the
// opposite side for crossable quantity, and rests any remainder at its
// price with the next FIFO priority. A fully-filled aggressor never enters
// the book.
func (b *Book) Add(clientID orderbookv1.ClientID, clientOrderID orderbookv1.OrderID, side orderbookv1.Side, price orderbookv1.Price, qty orderbookv1.Qty) {
	if int(clientID) >= len(b.clientOrders) {
		panic(errors.NewTracer(fmt.Sprintf("client id %d exceeds capacity %d", clientID, len(b.clientOrders))))
	}
	if clientOrderID >= orderbookv1.OrderID(len(b.clientOrders[clientID])) {
		panic(errors.NewTracer(fmt.Sprintf("client order id %d exceeds capacity %d", clientOrderID, len(b.clientOrders[clientID]))))
	}

	engineOrderID := b.nextEngineOrderID
	b.nextEngineOrderID++

	b.response = orderbookv1.ClientResponse{
		Type:          orderbookv1.ClientResponseAccepted,
		ClientID:      clientID,
		InstrumentID:  b.instrumentID,
		ClientOrderID: clientOrderID,
		EngineOrderID: engineOrderID,
		Side:          side,
		Price:         price,
		ExecQty:       0,
		LeavesQty:     qty,
	}
	b.sink.SendClientResponse(&b.response)

	leaves := b.sweep(clientID, clientOrderID, engineOrderID, side, price, qty)
	if leaves == 0 {
		return
	}

	priority := b.nextPriority(price)

	orderIdx := b.orders.Alloc()
	*b.orders.At(orderIdx) = orderbookv1.Order{
		InstrumentID:  b.instrumentID,
		ClientID:      clientID,
		ClientOrderID: clientOrderID,
		EngineOrderID: engineOrderID,
		Side:          side,
		Price:         price,
		Qty:           leaves,
		Priority:      priority,
		Prev:          nilIdx,
		Next:          nilIdx,
	}
	b.addOrder(orderIdx)

	b.update = orderbookv1.MarketUpdate{
		Type:          orderbookv1.MarketUpdateAdd,
		EngineOrderID: engineOrderID,
		InstrumentID:  b.instrumentID,
		Side:          side,
		Price:         price,
		Qty:           leaves,
		Priority:      priority,
	}
	b.sink.SendMarketUpdate(&b.update)
}

// Cancel removes a resting order identified by (clientID, orderID). An
// unknown, foreign or already-terminal order yields CANCEL_REJECTED with no
// side effects and no market update.
func (b *Book) Cancel(clientID orderbookv1.ClientID, orderID orderbookv1.OrderID) {
	orderIdx := nilIdx
	if int(clientID) < len(b.clientOrders) && orderID < orderbookv1.OrderID(len(b.clientOrders[clientID])) {
		orderIdx = b.clientOrders[clientID][orderID]
	}

	if orderIdx == nilIdx {
		b.response = orderbookv1.ClientResponse{
			Type:          orderbookv1.ClientResponseCancelRejected,
			ClientID:      clientID,
			InstrumentID:  b.instrumentID,
			ClientOrderID: orderID,
			EngineOrderID: orderbookv1.OrderIDInvalid,
			Side:          orderbookv1.SideInvalid,
			Price:         orderbookv1.PriceInvalid,
			ExecQty:       orderbookv1.QtyInvalid,
			LeavesQty:     orderbookv1.QtyInvalid,
		}
		b.sink.SendClientResponse(&b.response)
		return
	}

	order := b.orders.At(orderIdx)
	b.response = orderbookv1.ClientResponse{
		Type:          orderbookv1.ClientResponseCanceled,
		ClientID:      clientID,
		InstrumentID:  b.instrumentID,
		ClientOrderID: orderID,
		EngineOrderID: order.EngineOrderID,
		Side:          order.Side,
		Price:         order.Price,
		ExecQty:       orderbookv1.QtyInvalid,
		LeavesQty:     order.Qty,
	}
	b.update = orderbookv1.MarketUpdate{
		Type:          orderbookv1.MarketUpdateCancel,
		EngineOrderID: order.EngineOrderID,
		InstrumentID:  b.instrumentID,
		Side:          order.Side,
		Price:         order.Price,
		Qty:           0,
		Priority:      order.Priority,
	}

	b.removeOrder(orderIdx)

	b.sink.SendMarketUpdate(&b.update)
	b.sink.SendClientResponse(&b.response)
}

// sweep matches an incoming order against the opposite side while it
// remains marketable, consuming resting orders in price-time priority.
// It returns the unmatched remainder.
func (b *Book) sweep(clientID orderbookv1.ClientID, clientOrderID, engineOrderID orderbookv1.OrderID, side orderbookv1.Side, price orderbookv1.Price, qty orderbookv1.Qty) orderbookv1.Qty {
	leaves := qty

	if side == orderbookv1.SideBuy {
		for leaves > 0 && b.bestAsk != nilIdx {
			level := b.levels.At(b.bestAsk)
			if price < level.Price {
				break
			}
			leaves = b.match(clientID, clientOrderID, engineOrderID, side, level.FirstOrder, leaves)
		}
		return leaves
	}

	for leaves > 0 && b.bestBid != nilIdx {
		level := b.levels.At(b.bestBid)
		if price > level.Price {
			break
		}
		leaves = b.match(clientID, clientOrderID, engineOrderID, side, level.FirstOrder, leaves)
	}
	return leaves
}

// match executes a single fill between the incoming order and the resting
// order at restingIdx. Execution price is always the resting order's price.
func (b *Book) match(clientID orderbookv1.ClientID, clientOrderID, engineOrderID orderbookv1.OrderID, side orderbookv1.Side, restingIdx int32, leaves orderbookv1.Qty) orderbookv1.Qty {
	resting := b.orders.At(restingIdx)
	restingQty := resting.Qty

	fill := leaves
	if restingQty < fill {
		fill = restingQty
	}

	leaves -= fill
	resting.Qty -= fill

	b.response = orderbookv1.ClientResponse{
		Type:          orderbookv1.ClientResponseFilled,
		ClientID:      clientID,
		InstrumentID:  b.instrumentID,
		ClientOrderID: clientOrderID,
		EngineOrderID: engineOrderID,
		Side:          side,
		Price:         resting.Price,
		ExecQty:       fill,
		LeavesQty:     leaves,
	}
	b.sink.SendClientResponse(&b.response)

	b.response = orderbookv1.ClientResponse{
		Type:          orderbookv1.ClientResponseFilled,
		ClientID:      resting.ClientID,
		InstrumentID:  b.instrumentID,
		ClientOrderID: resting.ClientOrderID,
		EngineOrderID: resting.EngineOrderID,
		Side:          resting.Side,
		Price:         resting.Price,
		ExecQty:       fill,
		LeavesQty:     resting.Qty,
	}
	b.sink.SendClientResponse(&b.response)

	b.update = orderbookv1.MarketUpdate{
		Type:          orderbookv1.MarketUpdateTrade,
		EngineOrderID: orderbookv1.OrderIDInvalid,
		InstrumentID:  b.instrumentID,
		Side:          side,
		Price:         resting.Price,
		Qty:           fill,
		Priority:      orderbookv1.PriorityInvalid,
	}
	b.sink.SendMarketUpdate(&b.update)

	if resting.Qty == 0 {
		b.update = orderbookv1.MarketUpdate{
			Type:          orderbookv1.MarketUpdateCancel,
			EngineOrderID: resting.EngineOrderID,
			InstrumentID:  b.instrumentID,
			Side:          resting.Side,
			Price:         resting.Price,
			Qty:           restingQty,
			Priority:      orderbookv1.PriorityInvalid,
		}
		b.sink.SendMarketUpdate(&b.update)

		b.removeOrder(restingIdx)
	} else {
		b.update = orderbookv1.MarketUpdate{
			Type:          orderbookv1.MarketUpdateModify,
			EngineOrderID: resting.EngineOrderID,
			InstrumentID:  b.instrumentID,
			Side:          resting.Side,
			Price:         resting.Price,
			Qty:           resting.Qty,
			Priority:      resting.Priority,
		}
		b.sink.SendMarketUpdate(&b.update)
	}

	return leaves
}

// priceIndex hashes a price into the level table. The modulo is kept
// non-negative so negative prices hash correctly.
func (b *Book) priceIndex(price orderbookv1.Price) int {
	n := orderbookv1.Price(len(b.priceToLevel))
	return int(((price % n) + n) % n)
}

// levelIdxAt returns the level slot for price, or nilIdx when no level
// exists. A slot held by a different live price is a fatal sizing error.
func (b *Book) levelIdxAt(price orderbookv1.Price) int32 {
	idx := b.priceToLevel[b.priceIndex(price)]
	if idx != nilIdx && b.levels.At(idx).Price != price {
		panic(errors.NewTracer(fmt.Sprintf(
			"price table collision: prices %d and %d share slot %d",
			b.levels.At(idx).Price, price, b.priceIndex(price))))
	}
	return idx
}

// nextPriority returns the FIFO priority for a new order at price: 0 on a
// fresh level, otherwise one past the level's tail order.
func (b *Book) nextPriority(price orderbookv1.Price) orderbookv1.Priority {
	levelIdx := b.levelIdxAt(price)
	if levelIdx == nilIdx {
		return 0
	}
	tailIdx := b.orders.At(b.levels.At(levelIdx).FirstOrder).Prev
	return b.orders.At(tailIdx).Priority + 1
}

// addOrder links the order at orderIdx into its price level's FIFO,
// creating the level when absent, and records it in the client lookup.
func (b *Book) addOrder(orderIdx int32) {
	order := b.orders.At(orderIdx)

	levelIdx := b.levelIdxAt(order.Price)
	if levelIdx == nilIdx {
		order.Prev = orderIdx
		order.Next = orderIdx

		newLevelIdx := b.levels.Alloc()
		*b.levels.At(newLevelIdx) = orderbookv1.PriceLevel{
			Side:       order.Side,
			Price:      order.Price,
			FirstOrder: orderIdx,
			Prev:       nilIdx,
			Next:       nilIdx,
		}
		b.insertLevel(newLevelIdx)
	} else {
		level := b.levels.At(levelIdx)
		firstIdx := level.FirstOrder
		first := b.orders.At(firstIdx)
		tailIdx := first.Prev

		b.orders.At(tailIdx).Next = orderIdx
		order.Prev = tailIdx
		order.Next = firstIdx
		first.Prev = orderIdx
	}

	b.clientOrders[order.ClientID][order.ClientOrderID] = orderIdx
}

// moreAggressive reports whether price a trades ahead of price b on side.
func moreAggressive(side orderbookv1.Side, a, price orderbookv1.Price) bool {
	if side == orderbookv1.SideBuy {
		return a > price
	}
	return a < price
}

// insertLevel places a freshly allocated level into its side's circular
// list at the position that keeps the list strictly ordered by
// aggressiveness: a linear scan from the best level, terminating at the
// first level that is no more aggressive than the new one.
func (b *Book) insertLevel(levelIdx int32) {
	level := b.levels.At(levelIdx)
	b.priceToLevel[b.priceIndex(level.Price)] = levelIdx

	best := b.bestSide(level.Side)
	if *best == nilIdx {
		level.Prev = levelIdx
		level.Next = levelIdx
		*best = levelIdx
		return
	}

	targetIdx := *best
	for {
		target := b.levels.At(targetIdx)
		if moreAggressive(level.Side, level.Price, target.Price) {
			b.linkLevelBefore(levelIdx, targetIdx)
			if targetIdx == *best {
				*best = levelIdx
			}
			return
		}
		targetIdx = target.Next
		if targetIdx == *best {
			// Wrapped around: the new level is the least aggressive.
			b.linkLevelBefore(levelIdx, *best)
			return
		}
	}
}

// linkLevelBefore splices the level at newIdx immediately before atIdx.
func (b *Book) linkLevelBefore(newIdx, atIdx int32) {
	newLevel := b.levels.At(newIdx)
	at := b.levels.At(atIdx)
	prevIdx := at.Prev

	newLevel.Prev = prevIdx
	newLevel.Next = atIdx
	b.levels.At(prevIdx).Next = newIdx
	at.Prev = newIdx
}

// removeLevel unlinks and frees the (empty) level at price.
func (b *Book) removeLevel(side orderbookv1.Side, price orderbookv1.Price) {
	levelIdx := b.levelIdxAt(price)
	level := b.levels.At(levelIdx)
	best := b.bestSide(side)

	if level.Next == levelIdx {
		*best = nilIdx
	} else {
		b.levels.At(level.Prev).Next = level.Next
		b.levels.At(level.Next).Prev = level.Prev
		if *best == levelIdx {
			*best = level.Next
		}
	}

	b.priceToLevel[b.priceIndex(price)] = nilIdx
	b.levels.Free(levelIdx)
}

// removeOrder unlinks the order at orderIdx from its level FIFO, destroys
// the level if it empties, clears the lookup entry and frees the slot.
func (b *Book) removeOrder(orderIdx int32) {
	order := b.orders.At(orderIdx)

	if order.Prev == orderIdx {
		// Sole order at its price.
		b.removeLevel(order.Side, order.Price)
	} else {
		level := b.levels.At(b.levelIdxAt(order.Price))
		b.orders.At(order.Prev).Next = order.Next
		b.orders.At(order.Next).Prev = order.Prev
		if level.FirstOrder == orderIdx {
			level.FirstOrder = order.Next
		}
	}

	b.clientOrders[order.ClientID][order.ClientOrderID] = nilIdx
	b.orders.Free(orderIdx)
}

func (b *Book) bestSide(side orderbookv1.Side) *int32 {
	if side == orderbookv1.SideBuy {
		return &b.bestBid
	}
	return &b.bestAsk
}
