package engine

import (
	"testing"

	orderbookv1 "github.com/meridian-exchange/matching-engine/internal/domain/orderbook/v1"
	"github.com/meridian-exchange/matching-engine/pkg/logger"
	"github.com/meridian-exchange/matching-engine/pkg/spsc"
)

func setupBenchmarkEngine(b *testing.B) (*Engine, *RequestQueue, *ResponseQueue, *UpdateQueue) {
	b.Helper()

	log, err := logger.NewLogger(logger.WithLoggingLevel(logger.ErrorLevel))
	if err != nil {
		b.Fatal(err)
	}

	requests := spsc.NewQueue[orderbookv1.ClientRequest](1024)
	responses := spsc.NewQueue[orderbookv1.ClientResponse](1024)
	updates := spsc.NewQueue[orderbookv1.MarketUpdate](1024)

	cfg := testConfig()
	cfg.Book.MaxOrders = 1 << 16
	cfg.Book.MaxOrderIDs = 1 << 16

	engine := New(cfg, requests, responses, updates, log)
	return engine, requests, responses, updates
}

func flush[T any](q *spsc.Queue[T]) {
	for q.Peek() != nil {
		q.CommitRead()
	}
}

// BenchmarkEngine_RestingOrders measures the non-crossing add path: every
// order rests, nothing matches.
func BenchmarkEngine_RestingOrders(b *testing.B) {
	engine, _, responses, updates := setupBenchmarkEngine(b)

	request := orderbookv1.ClientRequest{
		Type:         orderbookv1.ClientRequestNew,
		ClientID:     0,
		InstrumentID: 0,
		Side:         orderbookv1.SideBuy,
		Qty:          1,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		request.OrderID = orderbookv1.OrderID(i % (1 << 16))
		request.Price = orderbookv1.Price(100 + i%32)
		engine.processClientRequest(&request)
		flush(responses)
		flush(updates)
	}
}

// BenchmarkEngine_AddCancel measures the add/cancel round trip, the hot path
// for quoting flow.
func BenchmarkEngine_AddCancel(b *testing.B) {
	engine, _, responses, updates := setupBenchmarkEngine(b)

	add := orderbookv1.ClientRequest{
		Type:         orderbookv1.ClientRequestNew,
		ClientID:     0,
		InstrumentID: 0,
		OrderID:      1,
		Side:         orderbookv1.SideBuy,
		Price:        100,
		Qty:          1,
	}
	cancel := orderbookv1.ClientRequest{
		Type:         orderbookv1.ClientRequestCancel,
		ClientID:     0,
		InstrumentID: 0,
		OrderID:      1,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		engine.processClientRequest(&add)
		engine.processClientRequest(&cancel)
		flush(responses)
		flush(updates)
	}
}

// BenchmarkEngine_Matching measures a fully crossing add pair: one resting
// order, one aggressor that clears it.
func BenchmarkEngine_Matching(b *testing.B) {
	engine, _, responses, updates := setupBenchmarkEngine(b)

	sell := orderbookv1.ClientRequest{
		Type:         orderbookv1.ClientRequestNew,
		ClientID:     0,
		InstrumentID: 0,
		OrderID:      1,
		Side:         orderbookv1.SideSell,
		Price:        100,
		Qty:          1,
	}
	buy := orderbookv1.ClientRequest{
		Type:         orderbookv1.ClientRequestNew,
		ClientID:     1,
		InstrumentID: 0,
		OrderID:      1,
		Side:         orderbookv1.SideBuy,
		Price:        100,
		Qty:          1,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		engine.processClientRequest(&sell)
		engine.processClientRequest(&buy)
		flush(responses)
		flush(updates)
	}
}
