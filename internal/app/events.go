package app

import (
	"github.com/sirupsen/logrus"

	"dispatch/internal/config"
	"dispatch/internal/events"
)

// NewPublisher returns a Kafka publisher for cfg, or a no-op publisher when
// no brokers are configured. The returned close func is never nil.
func NewPublisher(cfg config.KafkaConfig, logger logrus.FieldLogger) (events.Publisher, func() error, error) {
	if len(cfg.Brokers) == 0 {
		logger.Info("kafka brokers not configured, trip events disabled")
		return events.NopPublisher{}, func() error { return nil }, nil
	}
	p, err := events.NewKafkaPublisher(cfg.Brokers, cfg.Topic)
	if err != nil {
		return nil, nil, err
	}
	logger.WithField("topic", cfg.Topic).WithField("brokers", cfg.Brokers).Info("kafka trip events enabled")
	return p, p.Close, nil
}
