package event

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKafkaSink_PublishPaymentSucceeded(t *testing.T) {
	producer := mocks.NewSyncProducer(t, sarama.NewConfig())
	defer func() { require.NoError(t, producer.Close()) }()

	paidAt := time.Date(2020, 4, 10, 10, 32, 0, 0, time.UTC)
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		assert.Equal(t, "payment_succeeded", msg.Topic)
		key, err := msg.Key.Encode()
		require.NoError(t, err)
		assert.Equal(t, "20200410103200123456", string(key))

		val, err := msg.Value.Encode()
		require.NoError(t, err)
		var evt PaymentSucceeded
		require.NoError(t, json.Unmarshal(val, &evt))
		assert.Equal(t, "20200410103200123456", evt.OrderNo)
		assert.Equal(t, "paypal", evt.PaymentMethod)
		assert.True(t, decimal.RequireFromString("120.50").Equal(evt.Amount))
		assert.True(t, paidAt.Equal(evt.PaidAt))
		return nil
	})

	sink := NewKafkaSink(producer, "payment_succeeded", "refund_succeeded")
	err := sink.PublishPaymentSucceeded(context.Background(), PaymentSucceeded{
		OrderID:       1,
		OrderNo:       "20200410103200123456",
		Amount:        decimal.RequireFromString("120.50"),
		PaymentMethod: "paypal",
		PaymentNo:     "CAP-1",
		PaidAt:        paidAt,
	})
	assert.NoError(t, err)
}

func TestKafkaSink_PublishRefundSucceeded(t *testing.T) {
	testCases := []struct {
		name    string
		sendErr error
	}{
		{name: "sent"},
		{name: "broker down", sendErr: errors.New("broker down")},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			producer := mocks.NewSyncProducer(t, sarama.NewConfig())
			defer func() { require.NoError(t, producer.Close()) }()
			if tc.sendErr != nil {
				producer.ExpectSendMessageAndFail(tc.sendErr)
			} else {
				producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
					assert.Equal(t, "refund_succeeded", msg.Topic)
					return nil
				})
			}

			sink := NewKafkaSink(producer, "payment_succeeded", "refund_succeeded")
			err := sink.PublishRefundSucceeded(context.Background(), RefundSucceeded{
				OrderNo:  "20200410103200123456",
				RefundNo: "refund_abc",
			})
			assert.Equal(t, tc.sendErr, err)
		})
	}
}
