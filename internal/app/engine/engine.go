package engine

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	orderbookv1 "github.com/meridian-exchange/matching-engine/internal/domain/orderbook/v1"
	"github.com/meridian-exchange/matching-engine/internal/usecase/orderbook"
	"github.com/meridian-exchange/matching-engine/pkg/config"
	"github.com/meridian-exchange/matching-engine/pkg/logger"
	"github.com/meridian-exchange/matching-engine/pkg/spsc"
	"go.uber.org/zap"
)

// RequestQueue carries requests from the gateway into the engine.
type RequestQueue = spsc.Queue[orderbookv1.ClientRequest]

// ResponseQueue carries responses from the engine back to the gateway.
type ResponseQueue = spsc.Queue[orderbookv1.ClientResponse]

// UpdateQueue carries market updates from the engine to the publisher.
type UpdateQueue = spsc.Queue[orderbookv1.MarketUpdate]

// Engine owns one order book per instrument and a single worker goroutine
// that drains the inbound request queue. Everything a book emits is
// forwarded onto the two outbound queues in the exact order the matching
// algorithm produced it; the engine adds no buffering and no reordering.
type Engine struct {
	books []*orderbook.Book

	requests  *RequestQueue
	responses *ResponseQueue
	updates   *UpdateQueue

	logger  *logger.Logger
	options *Options

	running atomic.Bool
	wg      sync.WaitGroup
}

// New creates an Engine with default options. Order books for instrument
// ids 0..cfg.Instruments-1 are provisioned here; there is no dynamic
// registration.
func New(cfg *config.Config, requests *RequestQueue, responses *ResponseQueue, updates *UpdateQueue, log *logger.Logger) *Engine {
	return NewWithOptions(cfg, requests, responses, updates, log, DefaultEngineOptions())
}

// NewWithOptions creates an Engine with custom options.
func NewWithOptions(cfg *config.Config, requests *RequestQueue, responses *ResponseQueue, updates *UpdateQueue, log *logger.Logger, options *Options) *Engine {
	e := &Engine{
		requests:  requests,
		responses: responses,
		updates:   updates,
		logger:    log,
		options:   options,
	}

	e.books = make([]*orderbook.Book, cfg.Instruments)
	for i := range e.books {
		e.books[i] = orderbook.NewBook(orderbookv1.InstrumentID(i), cfg.Book, e, log)
	}

	return e
}

// SendClientResponse copies a response into the outbound response queue.
// Part of the orderbookv1.Sink contract; called only from the worker.
func (e *Engine) SendClientResponse(response *orderbookv1.ClientResponse) {
	*e.responses.NextToWrite() = *response
	e.responses.CommitWrite()
}

// SendMarketUpdate copies a market update into the outbound update queue.
// Part of the orderbookv1.Sink contract; called only from the worker.
func (e *Engine) SendMarketUpdate(update *orderbookv1.MarketUpdate) {
	*e.updates.NextToWrite() = *update
	e.updates.CommitWrite()
}

// Start spawns the worker goroutine. Starting a running engine is a no-op.
func (e *Engine) Start() {
	if !e.running.CompareAndSwap(false, true) {
		return
	}

	e.wg.Add(1)
	go e.run()
}

// Stop asks the worker to exit after finishing any in-flight request and
// waits for it, bounded by ctx.
func (e *Engine) Stop(ctx context.Context) error {
	e.running.Store(false)

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.logger.Info("matching engine stopped")
		return nil
	case <-ctx.Done():
		e.logger.Warn("matching engine stop timeout exceeded")
		return ctx.Err()
	}
}

// run is the worker loop: poll the inbound queue, dispatch, advance the
// read index. The stop flag is checked once per iteration and never
// preempts a request mid-processing.
func (e *Engine) run() {
	defer e.wg.Done()

	if e.options.PinThread {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}

	e.logger.Info("matching engine worker started",
		logger.Field{Key: "instruments", Value: len(e.books)},
		logger.Field{Key: "pinThread", Value: e.options.PinThread},
	)

	for e.running.Load() {
		request := e.requests.Peek()
		if request == nil {
			runtime.Gosched()
			continue
		}

		e.processClientRequest(request)
		e.requests.CommitRead()
	}
}

// processClientRequest routes one request to its instrument's book. An
// unknown instrument or request type means the gateway and engine disagree
// about the system's configuration; that is not survivable.
func (e *Engine) processClientRequest(request *orderbookv1.ClientRequest) {
	if int(request.InstrumentID) >= len(e.books) {
		e.logger.GetZap().Fatal("request for unprovisioned instrument",
			zap.Uint32("instrumentID", uint32(request.InstrumentID)),
			zap.Int("instruments", len(e.books)),
		)
	}
	book := e.books[request.InstrumentID]

	switch request.Type {
	case orderbookv1.ClientRequestNew:
		book.Add(request.ClientID, request.OrderID, request.Side, request.Price, request.Qty)
	case orderbookv1.ClientRequestCancel:
		book.Cancel(request.ClientID, request.OrderID)
	default:
		e.logger.GetZap().Fatal("invalid client request type",
			zap.String("type", request.Type.String()),
		)
	}
}

// Book exposes one instrument's book for inspection. Only safe while the
// engine is stopped or from the worker goroutine itself.
func (e *Engine) Book(instrumentID orderbookv1.InstrumentID) *orderbook.Book {
	return e.books[instrumentID]
}
