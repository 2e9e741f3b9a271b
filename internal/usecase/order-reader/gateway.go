package orderreader

import (
	"context"
	"sync"

	orderbookv1 "github.com/meridian-exchange/matching-engine/internal/domain/orderbook/v1"
	"github.com/meridian-exchange/matching-engine/pkg/config"
	"github.com/meridian-exchange/matching-engine/pkg/logger"
	"github.com/meridian-exchange/matching-engine/pkg/spsc"
)

// Gateway pumps requests from the order topic into the engine's inbound
// queue. It is the single producer for that queue; malformed or out-of-range
// requests are dropped here so they never reach the matching worker.
type Gateway struct {
	reader      *Reader
	requests    *spsc.Queue[orderbookv1.ClientRequest]
	instruments int
	book        config.BookConfig
	logger      *logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewGateway creates a Gateway feeding the given request queue. instruments
// and book carry the engine's provisioned capacities; requests outside those
// ranges are rejected at the gateway.
func NewGateway(reader *Reader, requests *spsc.Queue[orderbookv1.ClientRequest], instruments int, book config.BookConfig, log *logger.Logger) *Gateway {
	return &Gateway{
		reader:      reader,
		requests:    requests,
		instruments: instruments,
		book:        book,
		logger:      log,
	}
}

// Start spawns the consume loop.
func (g *Gateway) Start(ctx context.Context) {
	ctx, g.cancel = context.WithCancel(ctx)

	g.wg.Add(1)
	go g.consume(ctx)
}

// Stop cancels the consume loop and waits for it, bounded by ctx.
func (g *Gateway) Stop(ctx context.Context) error {
	g.cancel()

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		g.logger.Info("order reader gateway stopped")
		return g.reader.Close()
	case <-ctx.Done():
		g.logger.Warn("order reader gateway stop timeout exceeded")
		return ctx.Err()
	}
}

func (g *Gateway) consume(ctx context.Context) {
	defer g.wg.Done()

	g.logger.Info("order reader gateway started")

	for {
		_, request, err := g.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			continue
		}

		if !g.validate(request) {
			continue
		}

		*g.requests.NextToWrite() = *request
		g.requests.CommitWrite()
	}
}

// validate rejects requests the engine would treat as fatal. The matching
// worker trusts its input; this is the trust boundary.
func (g *Gateway) validate(request *orderbookv1.ClientRequest) bool {
	if int(request.InstrumentID) >= g.instruments {
		g.logger.Warn("dropping request for unprovisioned instrument",
			logger.Field{Key: "instrumentID", Value: request.InstrumentID},
			logger.Field{Key: "instruments", Value: g.instruments},
		)
		return false
	}

	switch request.Type {
	case orderbookv1.ClientRequestNew:
		if int(request.ClientID) >= g.book.MaxClients || request.OrderID >= orderbookv1.OrderID(g.book.MaxOrderIDs) {
			g.logger.Warn("dropping new order with out-of-range ids",
				logger.Field{Key: "clientID", Value: request.ClientID},
				logger.Field{Key: "orderID", Value: request.OrderID},
				logger.Field{Key: "maxClients", Value: g.book.MaxClients},
				logger.Field{Key: "maxOrderIDs", Value: g.book.MaxOrderIDs},
			)
			return false
		}
		if request.Side != orderbookv1.SideBuy && request.Side != orderbookv1.SideSell {
			g.logger.Warn("dropping new order with invalid side",
				logger.Field{Key: "clientID", Value: request.ClientID},
				logger.Field{Key: "orderID", Value: request.OrderID},
			)
			return false
		}
		if request.Qty == 0 || request.Qty == orderbookv1.QtyInvalid {
			g.logger.Warn("dropping new order with invalid qty",
				logger.Field{Key: "clientID", Value: request.ClientID},
				logger.Field{Key: "orderID", Value: request.OrderID},
			)
			return false
		}
	case orderbookv1.ClientRequestCancel:
	default:
		g.logger.Warn("dropping request with invalid type",
			logger.Field{Key: "clientID", Value: request.ClientID},
			logger.Field{Key: "orderID", Value: request.OrderID},
		)
		return false
	}

	return true
}
