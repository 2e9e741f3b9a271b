package marketpublisher

import (
	"context"
	"encoding/json"
	"runtime"
	"strconv"
	"sync"
	"time"

	marketdatav1 "github.com/meridian-exchange/matching-engine/internal/domain/marketdata/v1"
	orderbookv1 "github.com/meridian-exchange/matching-engine/internal/domain/orderbook/v1"
	"github.com/meridian-exchange/matching-engine/pkg/config"
	"github.com/meridian-exchange/matching-engine/pkg/errors"
	"github.com/meridian-exchange/matching-engine/pkg/logger"
	"github.com/meridian-exchange/matching-engine/pkg/spsc"
	"github.com/oklog/ulid/v2"
	"github.com/segmentio/kafka-go"
)

const writeRetryBackoff = 100 * time.Millisecond

// Publisher drains the engine's market update queue, stamps each update with
// the next stream-wide sequence number and publishes it on the market data
// topic. It is the single consumer of the queue; an update is removed only
// after Kafka has acknowledged it, so the published stream is gapless in the
// order the matching algorithm produced it.
type Publisher struct {
	kafkaWriter *kafka.Writer
	updates     *spsc.Queue[orderbookv1.MarketUpdate]
	applier     marketdatav1.UpdateApplier
	logger      *logger.Logger

	nextSeq uint64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPublisher creates a Kafka publisher for market updates. applier may be
// nil when no snapshot view is wanted.
func NewPublisher(config config.KafkaConfig, updates *spsc.Queue[orderbookv1.MarketUpdate], applier marketdatav1.UpdateApplier, log *logger.Logger) *Publisher {
	kafkaWriter := kafka.NewWriter(kafka.WriterConfig{
		Brokers: config.Brokers,
		Topic:   config.Topic,
	})

	return &Publisher{
		kafkaWriter: kafkaWriter,
		updates:     updates,
		applier:     applier,
		logger:      log,
		nextSeq:     1,
	}
}

// Start spawns the drain loop.
func (p *Publisher) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.drain(ctx)
}

// Stop cancels the drain loop and waits for it, bounded by ctx.
func (p *Publisher) Stop(ctx context.Context) error {
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("market publisher stopped")
		return p.kafkaWriter.Close()
	case <-ctx.Done():
		p.logger.Warn("market publisher stop timeout exceeded")
		return ctx.Err()
	}
}

func (p *Publisher) drain(ctx context.Context) {
	defer p.wg.Done()

	p.logger.Info("market publisher started")

	var sequenced marketdatav1.SequencedUpdate
	for {
		if ctx.Err() != nil {
			return
		}

		update := p.updates.Peek()
		if update == nil {
			runtime.Gosched()
			continue
		}

		// The sequence number is assigned once per update, not once per
		// publish attempt, so retries do not burn numbers.
		sequenced.Seq = p.nextSeq
		sequenced.MarketUpdate = *update

		if err := p.publish(ctx, &sequenced); err != nil {
			time.Sleep(writeRetryBackoff)
			continue
		}

		if p.applier != nil {
			p.applier.Apply(&sequenced)
		}

		p.nextSeq++
		p.updates.CommitRead()
	}
}

func (p *Publisher) publish(ctx context.Context, update *marketdatav1.SequencedUpdate) error {
	buf, err := json.Marshal(update)
	if err != nil {
		p.logger.Error(err,
			logger.Field{Key: "update", Value: update.String()},
		)
		return errors.NewTracer("failed to marshal market update").Wrap(err)
	}

	// Key by instrument so one instrument's stream lands on one partition.
	msg := kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(update.InstrumentID), 10)),
		Value: buf,
		Headers: []kafka.Header{
			{Key: "event-id", Value: []byte(ulid.Make().String())},
		},
	}

	if err := p.kafkaWriter.WriteMessages(ctx, msg); err != nil {
		p.logger.Error(err,
			logger.Field{Key: "error", Value: err.Error()},
			logger.Field{Key: "update", Value: update.String()},
		)
		return errors.NewTracer("failed to publish market update").Wrap(err)
	}

	return nil
}
