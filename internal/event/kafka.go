package event

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
)

type KafkaSink struct {
	producer     sarama.SyncProducer
	paymentTopic string
	refundTopic  string
}

func NewKafkaSink(producer sarama.SyncProducer, paymentTopic, refundTopic string) *KafkaSink {
	return &KafkaSink{
		producer:     producer,
		paymentTopic: paymentTopic,
		refundTopic:  refundTopic,
	}
}

func (k *KafkaSink) PublishPaymentSucceeded(ctx context.Context, evt PaymentSucceeded) error {
	return k.send(k.paymentTopic, evt.OrderNo, evt)
}

func (k *KafkaSink) PublishRefundSucceeded(ctx context.Context, evt RefundSucceeded) error {
	return k.send(k.refundTopic, evt.OrderNo, evt)
}

// order no as key keeps every event of one order on one partition
func (k *KafkaSink) send(topic, key string, evt any) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	_, _, err = k.producer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
	})
	return err
}
