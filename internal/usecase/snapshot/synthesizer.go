package snapshot

import (
	"context"
	"sync"
	"time"

	marketdatav1 "github.com/meridian-exchange/matching-engine/internal/domain/marketdata/v1"
	orderbookv1 "github.com/meridian-exchange/matching-engine/internal/domain/orderbook/v1"
	"github.com/meridian-exchange/matching-engine/pkg/config"
	"github.com/meridian-exchange/matching-engine/pkg/logger"
	"github.com/meridian-exchange/matching-engine/pkg/util"
)

// Synthesizer folds the incremental market update stream back into full book
// snapshots and periodically persists them. A late-joining consumer loads the
// snapshot and resumes the incremental stream from LastSeq+1 instead of
// replaying from the beginning.
type Synthesizer struct {
	store    marketdatav1.SnapshotStore
	interval time.Duration
	logger   *logger.Logger

	mu      sync.Mutex
	books   []map[orderbookv1.OrderID]marketdatav1.SnapshotOrder
	lastSeq []uint64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

const defaultInterval = 30 * time.Second

// NewSynthesizer creates a Synthesizer tracking the given number of instruments.
func NewSynthesizer(instruments int, cfg config.SnapshotConfig, store marketdatav1.SnapshotStore, log *logger.Logger) *Synthesizer {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultInterval
	}

	s := &Synthesizer{
		store:    store,
		interval: interval,
		logger:   log,
		books:    make([]map[orderbookv1.OrderID]marketdatav1.SnapshotOrder, instruments),
		lastSeq:  make([]uint64, instruments),
	}
	for i := range s.books {
		s.books[i] = make(map[orderbookv1.OrderID]marketdatav1.SnapshotOrder)
	}
	return s
}

// Apply folds one sequenced update into the instrument's live order set.
// Trades carry no book state and are skipped; the add/modify/cancel stream
// alone reconstructs the book.
func (s *Synthesizer) Apply(update *marketdatav1.SequencedUpdate) {
	if int(update.InstrumentID) >= len(s.books) {
		s.logger.Warn("update for untracked instrument",
			logger.Field{Key: "instrumentID", Value: update.InstrumentID},
			logger.Field{Key: "seq", Value: update.Seq},
		)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	book := s.books[update.InstrumentID]
	switch update.Type {
	case orderbookv1.MarketUpdateAdd:
		book[update.EngineOrderID] = marketdatav1.SnapshotOrder{
			EngineOrderID: update.EngineOrderID,
			Side:          update.Side,
			Price:         update.Price,
			Qty:           update.Qty,
			Priority:      update.Priority,
		}
	case orderbookv1.MarketUpdateModify:
		if order, ok := book[update.EngineOrderID]; ok {
			order.Qty = update.Qty
			book[update.EngineOrderID] = order
		}
	case orderbookv1.MarketUpdateCancel:
		delete(book, update.EngineOrderID)
	case orderbookv1.MarketUpdateTrade:
	}

	s.lastSeq[update.InstrumentID] = update.Seq
}

// Snapshot builds the current snapshot for one instrument.
func (s *Synthesizer) Snapshot(instrumentID orderbookv1.InstrumentID) *marketdatav1.BookSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	book := s.books[instrumentID]
	orders := make([]marketdatav1.SnapshotOrder, 0, len(book))
	for _, order := range book {
		orders = append(orders, order)
	}

	return &marketdatav1.BookSnapshot{
		InstrumentID: instrumentID,
		LastSeq:      s.lastSeq[instrumentID],
		SyncedAt:     time.Now().UTC(),
		Orders:       orders,
	}
}

// Start spawns the periodic persist loop.
func (s *Synthesizer) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run(ctx)
}

// Stop persists a final round of snapshots, then cancels the loop and waits
// for it, bounded by ctx.
func (s *Synthesizer) Stop(ctx context.Context) error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.persistAll(ctx)
		s.logger.Info("snapshot synthesizer stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("snapshot synthesizer stop timeout exceeded")
		return ctx.Err()
	}
}

func (s *Synthesizer) run(ctx context.Context) {
	defer s.wg.Done()

	s.logger.Info("snapshot synthesizer started",
		logger.Field{Key: "instruments", Value: len(s.books)},
		logger.Field{Key: "interval", Value: s.interval.String()},
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.persistAll(ctx)
		}
	}
}

// persistAll writes every instrument's snapshot under one request id so a
// round's store logs correlate.
func (s *Synthesizer) persistAll(ctx context.Context) {
	ctx = util.WithRequestID(ctx, "")
	for i := range s.books {
		instrumentID := orderbookv1.InstrumentID(i)
		snapshot := s.Snapshot(instrumentID)
		if err := s.store.Save(ctx, snapshot); err != nil {
			s.logger.Error(err,
				logger.Field{Key: "instrumentID", Value: instrumentID},
				logger.Field{Key: "lastSeq", Value: snapshot.LastSeq},
			)
		}
	}
}
