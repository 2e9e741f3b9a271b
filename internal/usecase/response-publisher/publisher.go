package responsepublisher

import (
	"context"
	"encoding/json"
	"runtime"
	"strconv"
	"sync"
	"time"

	orderbookv1 "github.com/meridian-exchange/matching-engine/internal/domain/orderbook/v1"
	"github.com/meridian-exchange/matching-engine/pkg/config"
	"github.com/meridian-exchange/matching-engine/pkg/errors"
	"github.com/meridian-exchange/matching-engine/pkg/logger"
	"github.com/meridian-exchange/matching-engine/pkg/spsc"
	"github.com/oklog/ulid/v2"
	"github.com/segmentio/kafka-go"
)

const writeRetryBackoff = 100 * time.Millisecond

// Publisher drains the engine's outbound response queue onto the response
// topic. It is the single consumer of that queue; a response is removed from
// the queue only after Kafka has acknowledged it, so responses are never
// dropped or reordered.
type Publisher struct {
	kafkaWriter *kafka.Writer
	responses   *spsc.Queue[orderbookv1.ClientResponse]
	logger      *logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPublisher creates a Kafka publisher for client responses.
func NewPublisher(config config.KafkaConfig, responses *spsc.Queue[orderbookv1.ClientResponse], log *logger.Logger) *Publisher {
	kafkaWriter := kafka.NewWriter(kafka.WriterConfig{
		Brokers: config.Brokers,
		Topic:   config.Topic,
	})

	return &Publisher{
		kafkaWriter: kafkaWriter,
		responses:   responses,
		logger:      log,
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
		p.logger.Info("response publisher stopped")
		return p.kafkaWriter.Close()
	case <-ctx.Done():
		p.logger.Warn("response publisher stop timeout exceeded")
		return ctx.Err()
	}
}

func (p *Publisher) drain(ctx context.Context) {
	defer p.wg.Done()

	p.logger.Info("response publisher started")

	for {
		if ctx.Err() != nil {
			return
		}

		response := p.responses.Peek()
		if response == nil {
			runtime.Gosched()
			continue
		}

		if err := p.publish(ctx, response); err != nil {
			// Leave the response at the head of the queue and retry.
			time.Sleep(writeRetryBackoff)
			continue
		}

		p.responses.CommitRead()
	}
}

func (p *Publisher) publish(ctx context.Context, response *orderbookv1.ClientResponse) error {
	buf, err := json.Marshal(response)
	if err != nil {
		p.logger.Error(err,
			logger.Field{Key: "response", Value: response.String()},
		)
		return errors.NewTracer("failed to marshal client response").Wrap(err)
	}

	// Key by client so one client's responses land on one partition.
	msg := kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(response.ClientID), 10)),
		Value: buf,
		Headers: []kafka.Header{
			{Key: "event-id", Value: []byte(ulid.Make().String())},
		},
	}

	if err := p.kafkaWriter.WriteMessages(ctx, msg); err != nil {
		p.logger.Error(err,
			logger.Field{Key: "error", Value: err.Error()},
			logger.Field{Key: "response", Value: response.String()},
		)
		return errors.NewTracer("failed to publish client response").Wrap(err)
	}

	return nil
}
