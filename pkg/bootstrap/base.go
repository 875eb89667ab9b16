package bootstrap

import (
	"context"
	"fmt"
	"os"

	"leadflow/internal/broker"
	"leadflow/internal/config"
	"leadflow/internal/logger"
)

// Base owns the broker clients. Consumer reads the shared lead event
// group; ConfigConsumer reads config updates in a per-instance group so
// every instance reloads its rule cache.
type Base struct {
	Config         *config.Config
	Logger         logger.Logger
	Producer       broker.Producer
	Consumer       broker.Consumer
	ConfigConsumer broker.Consumer
}

func NewBase(cfg *config.Config, log logger.Logger) *Base {
	return &Base{
		Config: cfg,
		Logger: log,
	}
}

func (b *Base) InitBroker(serviceName string) error {
	producer, err := broker.NewProducer(b.Config.Broker, b.Logger)
	if err != nil {
		return fmt.Errorf("failed to create producer: %w", err)
	}

	consumer, err := broker.NewConsumer(b.Config.Broker, b.Logger)
	if err != nil {
		producer.Close()
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	configConsumer, err := broker.NewConsumer(b.Config.Broker, b.Logger,
		broker.WithGroupID(InstanceGroupID(b.Config.Broker.Kafka.GroupID)),
		broker.WithoutDLQ(),
	)
	if err != nil {
		producer.Close()
		consumer.Close()
		return fmt.Errorf("failed to create config consumer: %w", err)
	}

	if serviceName != "" {
		consumer.SetServiceName(serviceName)
		configConsumer.SetServiceName(serviceName)
	}

	b.Producer = producer
	b.Consumer = consumer
	b.ConfigConsumer = configConsumer
	return nil
}

// InstanceGroupID derives a consumer group unique to this host.
func InstanceGroupID(groupID string) string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "local"
	}
	return groupID + "-" + hostname
}

func (b *Base) ShutdownBroker() []error {
	var errs []error

	if b.Consumer != nil {
		if err := b.Consumer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("consumer close error: %w", err))
		}
	}

	if b.ConfigConsumer != nil {
		if err := b.ConfigConsumer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("config consumer close error: %w", err))
		}
	}

	if b.Producer != nil {
		if err := b.Producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("producer close error: %w", err))
		}
	}

	return errs
}

func (b *Base) Shutdown(ctx context.Context, additionalShutdown func(ctx context.Context) []error) error {
	b.Logger.InfowCtx(ctx, "Shutting down application")

	var errs []error

	errs = append(errs, b.ShutdownBroker()...)

	if additionalShutdown != nil {
		errs = append(errs, additionalShutdown(ctx)...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	b.Logger.InfowCtx(ctx, "Application exited successfully")
	return nil
}
