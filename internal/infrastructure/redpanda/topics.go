package redpanda

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// TopicFaxDispatches carries one event per fax dispatch outcome
const TopicFaxDispatches = "fax.dispatches"

// EnsureTopics creates the dispatch event topic if it does not exist.
// Safe to call on every startup.
func EnsureTopics(ctx context.Context, brokers []string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := kgo.NewClient(kgo.SeedBrokers(brokers...))
	if err != nil {
		return fmt.Errorf("create admin client: %w", err)
	}
	defer client.Close()

	admin := kadm.NewClient(client)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	retention := "2592000000" // 30 days
	configs := map[string]*string{
		"retention.ms":     &retention,
		"cleanup.policy":   strPtr("delete"),
		"compression.type": strPtr("lz4"),
	}

	resp, err := admin.CreateTopics(ctx, 3, 1, configs, TopicFaxDispatches)
	if err != nil {
		return fmt.Errorf("create topics: %w", err)
	}

	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
		logger.Info("topic ready", zap.String("topic", r.Topic))
	}
	return nil
}

func strPtr(s string) *string { return &s }
