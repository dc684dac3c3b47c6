// Package kafka wires the lifecycle event topic: connection settings shared by the producer
// and the consumer, and the consumer loop that records events.
package kafka

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
	"go.uber.org/zap"

	vulnevents "github.com/savoirfairelinux/vulnscout-sub000/events/modules/vulnerabilities"
	"github.com/savoirfairelinux/vulnscout-sub000/util"
)

// DefaultTopic carries the lifecycle events.
const DefaultTopic = "vulnerability-lifecycle"

const maxReadInterval = 30 * time.Second

// Config holds the Kafka connection settings.
type Config struct {
	Brokers  []string
	Topic    string
	Username string
	Password string
	GroupID  string
}

// ConfigFromEnv reads KAFKA_BROKERS (comma separated), KAFKA_TOPIC, KAFKA_API_KEY and
// KAFKA_API_SECRET.
func ConfigFromEnv() Config {
	var brokers []string
	for _, b := range strings.Split(util.GetEnvDefault("KAFKA_BROKERS", "localhost:9092"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return Config{
		Brokers:  brokers,
		Topic:    util.GetEnvDefault("KAFKA_TOPIC", DefaultTopic),
		Username: util.GetEnvDefault("KAFKA_API_KEY", ""),
		Password: util.GetEnvDefault("KAFKA_API_SECRET", ""),
		GroupID:  util.GetEnvDefault("KAFKA_GROUP_ID", "vulnscout-lifecycle"),
	}
}

// Secure reports whether SASL/TLS must be used.
func (c Config) Secure() bool {
	return c.Username != "" && c.Password != ""
}

func (c Config) mechanism() plain.Mechanism {
	return plain.Mechanism{Username: c.Username, Password: c.Password}
}

// Dialer returns the dialer of the consumer, with SASL/PLAIN over TLS when credentials are set.
func (c Config) Dialer() *kafka.Dialer {
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	if c.Secure() {
		dialer.SASLMechanism = c.mechanism()
		dialer.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return dialer
}

// Transport returns the transport of the producer, nil when no credentials are set.
func (c Config) Transport() *kafka.Transport {
	if !c.Secure() {
		return nil
	}
	return &kafka.Transport{
		SASL: c.mechanism(),
		TLS:  &tls.Config{MinVersion: tls.VersionTLS12},
	}
}

// NewProducer builds the lifecycle event producer for this configuration.
func (c Config) NewProducer() *vulnevents.Producer {
	return vulnevents.NewProducer(c.Brokers, c.Topic, c.Transport())
}

// RunEventProcessor checks the broker is reachable, then consumes lifecycle events in the
// background until ctx is cancelled, recording each into store.
func RunEventProcessor(ctx context.Context, cfg Config, store vulnevents.EventStore, logger *zap.Logger) error {
	if len(cfg.Brokers) == 0 {
		return fmt.Errorf("no kafka broker configured")
	}
	dialer := cfg.Dialer()

	var err error
	for i := 1; i <= 3; i++ {
		logger.Sugar().Infof("Kafka connection attempt %d/3...", i)
		var conn *kafka.Conn
		conn, err = dialer.DialContext(ctx, "tcp", cfg.Brokers[0])
		if err == nil {
			conn.Close()
			break
		}
		if i < 3 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to reach kafka: %w", err)
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MaxBytes: 10e6,
		Dialer:   dialer,
	})

	go func() {
		defer reader.Close()
		logger.Sugar().Infof("Kafka event processor listening on %s", cfg.Topic)
		consume(ctx, reader, store, readBackOff(), logger)
	}()

	return nil
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

func readBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = maxReadInterval
	bo.MaxElapsedTime = 0
	return bo
}

// consume records the events read from reader until ctx is done. A failed read waits for
// the next interval of bo, which every successful read resets.
func consume(ctx context.Context, reader messageReader, store vulnevents.EventStore, bo backoff.BackOff, logger *zap.Logger) {
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			wait := bo.NextBackOff()
			if wait == backoff.Stop {
				wait = maxReadInterval
			}
			logger.Warn("failed to read lifecycle event", zap.Error(err), zap.Duration("retry_in", wait))
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			continue
		}
		bo.Reset()
		if err := vulnevents.HandleLifecycleEvent(ctx, msg.Value, store, logger); err != nil {
			logger.Warn("dropping lifecycle event", zap.Error(err), zap.Int64("offset", msg.Offset))
		}
	}
}
