package orderreader

import (
	"context"
	"encoding/json"

	orderbookv1 "github.com/meridian-exchange/matching-engine/internal/domain/orderbook/v1"
	"github.com/meridian-exchange/matching-engine/pkg/config"
	"github.com/meridian-exchange/matching-engine/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// Reader consumes client requests from the order topic.
type Reader struct {
	kafkaReader *kafka.Reader
	logger      *logger.Logger
}

// NewReader creates a Kafka reader for the order topic.
func NewReader(config config.KafkaConfig, log *logger.Logger) *Reader {
	kafkaReader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     config.Brokers,
		Topic:       config.Topic,
		GroupID:     config.GroupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})

	return &Reader{
		kafkaReader: kafkaReader,
		logger:      log,
	}
}

func (r *Reader) logError(err error, operation string) {
	r.logger.Error(err,
		logger.Field{Key: "error", Value: err.Error()},
		logger.Field{Key: "operation", Value: operation},
	)
}

// ReadMessage reads one message from the order topic and parses it as a
// client request.
func (r *Reader) ReadMessage(ctx context.Context) (kafka.Message, *orderbookv1.ClientRequest, error) {
	msg, err := r.kafkaReader.ReadMessage(ctx)
	if err != nil {
		r.logError(err, "ReadMessage")
		return kafka.Message{}, nil, err
	}

	var request orderbookv1.ClientRequest
	if err := json.Unmarshal(msg.Value, &request); err != nil {
		r.logError(err, "UnmarshalClientRequest")
		return kafka.Message{}, nil, err
	}

	r.logger.Debug("ReadMessage",
		logger.Field{Key: "type", Value: request.Type.String()},
		logger.Field{Key: "clientID", Value: request.ClientID},
		logger.Field{Key: "orderID", Value: request.OrderID},
		logger.Field{Key: "instrumentID", Value: request.InstrumentID},
		logger.Field{Key: "offset", Value: msg.Offset},
	)

	return msg, &request, nil
}

// Close properly closes the Kafka reader.
func (r *Reader) Close() error {
	if err := r.kafkaReader.Close(); err != nil {
		r.logError(err, "Close")
		return err
	}
	return nil
}
