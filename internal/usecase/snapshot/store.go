package snapshot

import (
	"context"
	"encoding/json"
	"strconv"

	marketdatav1 "github.com/meridian-exchange/matching-engine/internal/domain/marketdata/v1"
	orderbookv1 "github.com/meridian-exchange/matching-engine/internal/domain/orderbook/v1"
	"github.com/meridian-exchange/matching-engine/pkg/errors"
	"github.com/meridian-exchange/matching-engine/pkg/logger"
	"github.com/meridian-exchange/matching-engine/pkg/redis"
)

// RedisStore persists book snapshots in Redis, one key per instrument.
type RedisStore struct {
	keyPrefix   string
	logger      *logger.Logger
	redisclient redis.Client
}

// NewRedisStore creates a snapshot store backed by the given Redis client.
func NewRedisStore(redisclient redis.Client, keyPrefix string, log *logger.Logger) *RedisStore {
	return &RedisStore{
		keyPrefix:   keyPrefix,
		redisclient: redisclient,
		logger:      log,
	}
}

func (s *RedisStore) key(instrumentID orderbookv1.InstrumentID) string {
	return s.keyPrefix + strconv.FormatUint(uint64(instrumentID), 10)
}

// Save stores one instrument's snapshot.
func (s *RedisStore) Save(ctx context.Context, snapshot *marketdatav1.BookSnapshot) error {
	buf, err := json.Marshal(snapshot)
	if err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "instrumentID",
			Value: snapshot.InstrumentID,
		})
		return errors.NewTracer("snapshot_marshal_error").Wrap(err)
	}

	if err := s.redisclient.Set(ctx, s.key(snapshot.InstrumentID), buf, 0); err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "instrumentID",
			Value: snapshot.InstrumentID,
		})
		return errors.NewTracer("snapshot_store_error").Wrap(err)
	}

	s.logger.DebugContext(ctx, "snapshot stored",
		logger.Field{Key: "instrumentID", Value: snapshot.InstrumentID},
		logger.Field{Key: "lastSeq", Value: snapshot.LastSeq},
		logger.Field{Key: "orders", Value: len(snapshot.Orders)},
	)
	return nil
}

// Load fetches one instrument's snapshot. Returns nil when none is stored.
func (s *RedisStore) Load(ctx context.Context, instrumentID orderbookv1.InstrumentID) (*marketdatav1.BookSnapshot, error) {
	data, err := s.redisclient.Get(ctx, s.key(instrumentID))
	if err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "instrumentID",
			Value: instrumentID,
		})
		return nil, errors.NewTracer("snapshot_load_error").Wrap(err)
	}

	if data == "" {
		s.logger.WarnContext(ctx, "no snapshot found", logger.Field{
			Key:   "instrumentID",
			Value: instrumentID,
		})
		return nil, nil
	}

	var snapshot marketdatav1.BookSnapshot
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "instrumentID",
			Value: instrumentID,
		})
		return nil, errors.NewTracer("snapshot_unmarshal_error").Wrap(err)
	}

	return &snapshot, nil
}
