package engine

import (
	"context"
	"testing"
	"time"

	orderbookv1 "github.com/meridian-exchange/matching-engine/internal/domain/orderbook/v1"
	"github.com/meridian-exchange/matching-engine/pkg/config"
	"github.com/meridian-exchange/matching-engine/pkg/logger"
	"github.com/meridian-exchange/matching-engine/pkg/spsc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Instruments: 2,
		Book: config.BookConfig{
			MaxOrders:      64,
			MaxPriceLevels: 64,
			MaxClients:     4,
			MaxOrderIDs:    64,
		},
	}
}

func newTestEngine(t *testing.T) (*Engine, *RequestQueue, *ResponseQueue, *UpdateQueue) {
	t.Helper()

	log, err := logger.NewLogger()
	require.NoError(t, err)

	requests := spsc.NewQueue[orderbookv1.ClientRequest](1024)
	responses := spsc.NewQueue[orderbookv1.ClientResponse](1024)
	updates := spsc.NewQueue[orderbookv1.MarketUpdate](1024)

	engine := New(testConfig(), requests, responses, updates, log)
	return engine, requests, responses, updates
}

func sendRequest(requests *RequestQueue, request orderbookv1.ClientRequest) {
	*requests.NextToWrite() = request
	requests.CommitWrite()
}

func drainResponses(t *testing.T, responses *ResponseQueue, n int) []orderbookv1.ClientResponse {
	t.Helper()

	var out []orderbookv1.ClientResponse
	require.Eventually(t, func() bool {
		for {
			response := responses.Peek()
			if response == nil {
				break
			}
			out = append(out, *response)
			responses.CommitRead()
		}
		return len(out) >= n
	}, 5*time.Second, time.Millisecond)
	return out
}

func drainUpdates(t *testing.T, updates *UpdateQueue, n int) []orderbookv1.MarketUpdate {
	t.Helper()

	var out []orderbookv1.MarketUpdate
	require.Eventually(t, func() bool {
		for {
			update := updates.Peek()
			if update == nil {
				break
			}
			out = append(out, *update)
			updates.CommitRead()
		}
		return len(out) >= n
	}, 5*time.Second, time.Millisecond)
	return out
}

func stopEngine(t *testing.T, engine *Engine) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, engine.Stop(ctx))
}

// Test 1: A new order flows queue to queue through the worker
func TestEngine_NewOrderFlow(t *testing.T) {
	engine, requests, responses, updates := newTestEngine(t)
	engine.Start()

	sendRequest(requests, orderbookv1.ClientRequest{
		Type:         orderbookv1.ClientRequestNew,
		ClientID:     0,
		InstrumentID: 1,
		OrderID:      1,
		Side:         orderbookv1.SideBuy,
		Price:        100,
		Qty:          10,
	})

	gotResponses := drainResponses(t, responses, 1)
	gotUpdates := drainUpdates(t, updates, 1)
	stopEngine(t, engine)

	require.Len(t, gotResponses, 1)
	assert.Equal(t, orderbookv1.ClientResponseAccepted, gotResponses[0].Type)
	assert.Equal(t, orderbookv1.InstrumentID(1), gotResponses[0].InstrumentID)

	require.Len(t, gotUpdates, 1)
	assert.Equal(t, orderbookv1.MarketUpdateAdd, gotUpdates[0].Type)

	assert.True(t, engine.Book(1).HasOrder(0, 1))
	assert.Equal(t, 0, engine.Book(0).OpenOrders())
}

// Test 2: Crossing orders produce the full response sequence in order
func TestEngine_MatchFlow(t *testing.T) {
	engine, requests, responses, updates := newTestEngine(t)
	engine.Start()

	sendRequest(requests, orderbookv1.ClientRequest{
		Type:         orderbookv1.ClientRequestNew,
		ClientID:     1,
		InstrumentID: 0,
		OrderID:      1,
		Side:         orderbookv1.SideSell,
		Price:        100,
		Qty:          50,
	})
	sendRequest(requests, orderbookv1.ClientRequest{
		Type:         orderbookv1.ClientRequestNew,
		ClientID:     0,
		InstrumentID: 0,
		OrderID:      1,
		Side:         orderbookv1.SideBuy,
		Price:        100,
		Qty:          50,
	})

	// Sell: ACCEPTED. Buy: ACCEPTED, aggressor FILLED, passive FILLED.
	gotResponses := drainResponses(t, responses, 4)
	// Sell: ADD. Buy: TRADE, passive removal CANCEL.
	gotUpdates := drainUpdates(t, updates, 3)
	stopEngine(t, engine)

	require.Len(t, gotResponses, 4)
	assert.Equal(t, orderbookv1.ClientResponseAccepted, gotResponses[0].Type)
	assert.Equal(t, orderbookv1.ClientResponseAccepted, gotResponses[1].Type)
	assert.Equal(t, orderbookv1.ClientResponseFilled, gotResponses[2].Type)
	assert.Equal(t, orderbookv1.ClientID(0), gotResponses[2].ClientID)
	assert.Equal(t, orderbookv1.ClientResponseFilled, gotResponses[3].Type)
	assert.Equal(t, orderbookv1.ClientID(1), gotResponses[3].ClientID)

	require.Len(t, gotUpdates, 3)
	assert.Equal(t, orderbookv1.MarketUpdateAdd, gotUpdates[0].Type)
	assert.Equal(t, orderbookv1.MarketUpdateTrade, gotUpdates[1].Type)
	assert.Equal(t, orderbookv1.MarketUpdateCancel, gotUpdates[2].Type)

	assert.Equal(t, 0, engine.Book(0).OpenOrders())
}

// Test 3: Cancel requests flow through the same path
func TestEngine_CancelFlow(t *testing.T) {
	engine, requests, responses, updates := newTestEngine(t)
	engine.Start()

	sendRequest(requests, orderbookv1.ClientRequest{
		Type:         orderbookv1.ClientRequestNew,
		ClientID:     0,
		InstrumentID: 0,
		OrderID:      1,
		Side:         orderbookv1.SideBuy,
		Price:        100,
		Qty:          10,
	})
	sendRequest(requests, orderbookv1.ClientRequest{
		Type:         orderbookv1.ClientRequestCancel,
		ClientID:     0,
		InstrumentID: 0,
		OrderID:      1,
	})

	gotResponses := drainResponses(t, responses, 2)
	gotUpdates := drainUpdates(t, updates, 2)
	stopEngine(t, engine)

	require.Len(t, gotResponses, 2)
	assert.Equal(t, orderbookv1.ClientResponseCanceled, gotResponses[1].Type)

	require.Len(t, gotUpdates, 2)
	assert.Equal(t, orderbookv1.MarketUpdateCancel, gotUpdates[1].Type)
	assert.Equal(t, orderbookv1.Qty(0), gotUpdates[1].Qty)

	assert.False(t, engine.Book(0).HasOrder(0, 1))
}

// Test 4: Instruments are isolated from each other
func TestEngine_InstrumentIsolation(t *testing.T) {
	engine, requests, responses, _ := newTestEngine(t)
	engine.Start()

	sendRequest(requests, orderbookv1.ClientRequest{
		Type:         orderbookv1.ClientRequestNew,
		ClientID:     0,
		InstrumentID: 0,
		OrderID:      1,
		Side:         orderbookv1.SideSell,
		Price:        100,
		Qty:          10,
	})
	sendRequest(requests, orderbookv1.ClientRequest{
		Type:         orderbookv1.ClientRequestNew,
		ClientID:     1,
		InstrumentID: 1,
		OrderID:      1,
		Side:         orderbookv1.SideBuy,
		Price:        100,
		Qty:          10,
	})

	gotResponses := drainResponses(t, responses, 2)
	stopEngine(t, engine)

	// Different instruments never match.
	for _, response := range gotResponses {
		assert.Equal(t, orderbookv1.ClientResponseAccepted, response.Type)
	}
	assert.Equal(t, 1, engine.Book(0).OpenOrders())
	assert.Equal(t, 1, engine.Book(1).OpenOrders())
}

// Test 5: Start is idempotent and Stop drains in-flight work
func TestEngine_StartStop(t *testing.T) {
	engine, requests, responses, _ := newTestEngine(t)

	engine.Start()
	engine.Start()

	sendRequest(requests, orderbookv1.ClientRequest{
		Type:         orderbookv1.ClientRequestNew,
		ClientID:     0,
		InstrumentID: 0,
		OrderID:      1,
		Side:         orderbookv1.SideBuy,
		Price:        100,
		Qty:          10,
	})

	drainResponses(t, responses, 1)
	stopEngine(t, engine)

	// A second stop returns immediately.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, engine.Stop(ctx))
}
