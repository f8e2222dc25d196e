package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Logger is the narrow logging interface the backends require.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

const redisKeyPrefix = "imgstore"

// RedisStore keeps each row in a redis hash. The hash key embeds a partition
// derived from the leading row byte and the configured split bits, spreading
// write load across the keyspace the same way a pre-split table would.
// Mutation batches ride a MULTI/EXEC pipeline for per-row atomicity.
type RedisStore struct {
	client    *redis.Client
	table     string
	splitBits int
	eval      *VisibilityEvaluator
	logger    Logger
}

// NewRedisStore wraps an existing redis client as a RowStore.
func NewRedisStore(client *redis.Client, table string, splitBits int, logger Logger) (*RedisStore, error) {
	if _, err := Splits(splitBits); err != nil {
		return nil, err
	}
	eval, err := NewVisibilityEvaluator()
	if err != nil {
		return nil, err
	}
	return &RedisStore{
		client:    client,
		table:     table,
		splitBits: splitBits,
		eval:      eval,
		logger:    logger,
	}, nil
}

func (s *RedisStore) rowKey(row []byte) string {
	partition := PartitionFor(row, s.splitBits)
	return fmt.Sprintf("%s:%s:%d:%x", redisKeyPrefix, s.table, partition, row)
}

func (s *RedisStore) metaKey() string {
	return fmt.Sprintf("%s:%s:meta", redisKeyPrefix, s.table)
}

// Provision records the table layout. Redis creates keys lazily, so this only
// persists the split configuration for operators and later processes.
func (s *RedisStore) Provision(ctx context.Context) error {
	err := s.client.HSetNX(ctx, s.metaKey(), "split_bits", s.splitBits).Err()
	if err != nil {
		return fmt.Errorf("provision table %s: %w", s.table, err)
	}
	s.logger.Info("provisioned image store table", "table", s.table, "split_bits", s.splitBits)
	return nil
}

func (s *RedisStore) Scan(ctx context.Context, row []byte, family string, auths Authorizations) ([]Entry, error) {
	fields, err := s.client.HGetAll(ctx, s.rowKey(row)).Result()
	if err != nil {
		return nil, fmt.Errorf("scan row %x: %w", row, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	var entries []Entry
	for field, raw := range fields {
		cellFamily, qualifier, err := splitCellField(field)
		if err != nil {
			s.logger.Warn("skipping malformed cell", "table", s.table, "field", field)
			continue
		}
		visibility, value, err := decodeCellValue([]byte(raw))
		if err != nil {
			s.logger.Warn("skipping undecodable cell", "table", s.table, "field", field, "error", err)
			continue
		}
		if isTombstone(cellFamily, qualifier, value) {
			return nil, nil
		}
		if family != "" && cellFamily != family {
			continue
		}
		visible, err := s.eval.Visible(visibility, auths)
		if err != nil || !visible {
			continue
		}
		entries = append(entries, Entry{
			Family:     cellFamily,
			Qualifier:  qualifier,
			Visibility: visibility,
			Value:      value,
		})
	}

	sortEntries(entries)
	return entries, nil
}

func (s *RedisStore) ApplyAtomic(ctx context.Context, row []byte, muts []Mutation) error {
	key := s.rowKey(row)
	pipe := s.client.TxPipeline()

	// a write revives a tombstoned row
	pipe.HDel(ctx, key, cellField("", ""))

	for _, mut := range muts {
		field := cellField(mut.Family, mut.Qualifier)
		if mut.Delete {
			pipe.HDel(ctx, key, field)
			continue
		}
		pipe.HSet(ctx, key, field, encodeCellValue(mut.Visibility, mut.Value))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("apply batch to row %x: %w", row, err)
	}
	return nil
}

func (s *RedisStore) TombstoneRow(ctx context.Context, row []byte) error {
	err := s.client.HSet(ctx, s.rowKey(row), cellField("", ""), encodeCellValue("", DeleteRowValue)).Err()
	if err != nil {
		return fmt.Errorf("tombstone row %x: %w", row, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
