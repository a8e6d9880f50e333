package kafka

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/novel-memory/pkg/config"
)

func TestPublish_RejectsUnencodableValue(t *testing.T) {
	p := NewProducer(config.KafkaConfig{Brokers: []string{"127.0.0.1:1"}}, "index.built")
	defer p.Close()

	err := p.Publish(context.Background(), Event{Key: "TestNovel", Value: make(chan int)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "marshaling event value")
}
