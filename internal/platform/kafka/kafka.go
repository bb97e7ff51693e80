// Package kafka builds the franz-go client used by the audit relay.
package kafka

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"rwaledger/internal/platform/config"
)

// NewClient returns nil when no brokers are configured.
func NewClient(ctx context.Context, cfg config.Kafka, logger *slog.Logger) (*kgo.Client, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.ClientID("rwaledger"),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("kafka ping failed: %w", err)
	}
	logger.InfoContext(ctx, "kafka client connected", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return client, nil
}
