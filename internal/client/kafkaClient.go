package client

import (
	"fmt"
	"payment-reconciliation/internal/config"

	"github.com/IBM/sarama"
)

func InitKafkaProducer(cfg config.Kafka) (sarama.SyncProducer, error) {
	scfg := sarama.NewConfig()
	// SyncProducer needs successes reported back
	scfg.Producer.Return.Successes = true
	scfg.Producer.RequiredAcks = sarama.WaitForAll
	scfg.Producer.Retry.Max = 3

	p, err := sarama.NewSyncProducer(cfg.Brokers, scfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return p, nil
}
