package marketdatav1

import (
	"time"

	orderbookv1 "github.com/meridian-exchange/matching-engine/internal/domain/orderbook/v1"
)

// SequencedUpdate is a market update stamped with the stream-wide sequence
// number the publisher assigned to it. Consumers detect gaps by watching Seq.
type SequencedUpdate struct {
	Seq uint64 `json:"seq"`
	orderbookv1.MarketUpdate
}

// SnapshotOrder is one live order as it appears in a book snapshot.
type SnapshotOrder struct {
	EngineOrderID orderbookv1.OrderID  `json:"engineOrderId"`
	Side          orderbookv1.Side     `json:"side"`
	Price         orderbookv1.Price    `json:"price"`
	Qty           orderbookv1.Qty      `json:"qty"`
	Priority      orderbookv1.Priority `json:"priority"`
}

// BookSnapshot is the full set of live orders for one instrument, synthesized
// from the incremental update stream. LastSeq is the sequence number of the
// last update folded into the snapshot; a consumer resumes the incremental
// stream from LastSeq+1.
type BookSnapshot struct {
	InstrumentID orderbookv1.InstrumentID `json:"instrumentId"`
	LastSeq      uint64                   `json:"lastSeq"`
	SyncedAt     time.Time                `json:"syncedAt"`
	Orders       []SnapshotOrder          `json:"orders"`
}
