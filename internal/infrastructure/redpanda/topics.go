// Package redpanda provides topic management for the prescription streams.
package redpanda

import (
	"context"
	"fmt"
	"strings"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// Topic names published by the prescription safety engine.
const (
	TopicPrescriptionSubmitted = "prescription.submitted"
	TopicSessionEvents         = "prescription.session.events"
	TopicSafetyAudit           = "safety.audit"
	TopicDeadLetter            = "dead.letter"
)

// TopicConfig holds configuration for a stream topic.
type TopicConfig struct {
	Name              string
	Partitions        int32
	ReplicationFactor int16
	Configs           map[string]*string
}

// DefaultTopicConfigs returns the topics the engine publishes to.
func DefaultTopicConfigs() []TopicConfig {
	ptr := func(s string) *string { return &s }

	return []TopicConfig{
		{
			Name:              TopicPrescriptionSubmitted,
			Partitions:        6,
			ReplicationFactor: 1, // set to 3 in production
			Configs: map[string]*string{
				"retention.ms":     ptr("2592000000"), // 30 days
				"cleanup.policy":   ptr("delete"),
				"compression.type": ptr("lz4"),
			},
		},
		{
			Name:              TopicSessionEvents,
			Partitions:        6,
			ReplicationFactor: 1,
			Configs: map[string]*string{
				"retention.ms":     ptr("604800000"), // 7 days
				"cleanup.policy":   ptr("delete"),
				"compression.type": ptr("lz4"),
			},
		},
		{
			Name:              TopicSafetyAudit,
			Partitions:        3,
			ReplicationFactor: 1,
			Configs: map[string]*string{
				"retention.ms":   ptr("7776000000"), // 90 days, audit retention
				"cleanup.policy": ptr("delete"),
			},
		},
		{
			Name:              TopicDeadLetter,
			Partitions:        1,
			ReplicationFactor: 1,
			Configs: map[string]*string{
				"retention.ms":   ptr("2592000000"),
				"cleanup.policy": ptr("delete"),
			},
		},
	}
}

// Admin manages stream topics.
type Admin struct {
	client *kadm.Client
	logger *zap.Logger
}

// NewAdmin creates a topic admin client.
func NewAdmin(brokers []string, logger *zap.Logger) (*Admin, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	kgoClient, err := kgo.NewClient(kgo.SeedBrokers(brokers...))
	if err != nil {
		return nil, fmt.Errorf("failed to create admin client: %w", err)
	}
	return &Admin{client: kadm.NewClient(kgoClient), logger: logger}, nil
}

// CreateTopics creates the given topics, ignoring ones that already exist.
func (a *Admin) CreateTopics(ctx context.Context, configs []TopicConfig) error {
	for _, cfg := range configs {
		resp, err := a.client.CreateTopic(ctx, cfg.Partitions, cfg.ReplicationFactor, cfg.Configs, cfg.Name)
		if err != nil {
			return fmt.Errorf("create topic %s: %w", cfg.Name, err)
		}
		if resp.Err != nil && !isTopicExists(resp.Err) {
			return fmt.Errorf("create topic %s: %w", cfg.Name, resp.Err)
		}
		a.logger.Info("topic ready", zap.String("topic", cfg.Name), zap.Int32("partitions", cfg.Partitions))
	}
	return nil
}

// EnsureTopics creates all default topics.
func (a *Admin) EnsureTopics(ctx context.Context) error {
	return a.CreateTopics(ctx, DefaultTopicConfigs())
}

// ListTopics returns existing topic names.
func (a *Admin) ListTopics(ctx context.Context) ([]string, error) {
	details, err := a.client.ListTopics(ctx)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	var names []string
	for name := range details {
		names = append(names, name)
	}
	return names, nil
}

// Close releases the admin client.
func (a *Admin) Close() {
	a.client.Close()
}

func isTopicExists(err error) bool {
	if err == nil {
		return false
	}
	// kadm surfaces TOPIC_ALREADY_EXISTS in the kerr error string.
	return strings.Contains(err.Error(), "TOPIC_ALREADY_EXISTS")
}
