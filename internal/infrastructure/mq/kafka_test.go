package mq

import (
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublish(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		assert.Equal(t, `{"order_no":"ORD1"}`, string(val))
		return nil
	})

	p := NewProducer(mock)
	_, _, err := p.Publish("market.order.event", "ORD1", `{"order_no":"ORD1"}`)
	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestPublishFailure(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewProducer(mock)
	_, _, err := p.Publish("market.order.event", "ORD1", "{}")
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}
