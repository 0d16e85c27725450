package kafka

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeValue(t *testing.T) {
	b, err := encodeValue([]byte("raw"))
	require.NoError(t, err)
	assert.Equal(t, "raw", string(b))

	b, err = encodeValue(map[string]int{"n": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, string(b))

	_, err = encodeValue(make(chan int))
	assert.Error(t, err)
}

func TestParseCompression(t *testing.T) {
	assert.Equal(t, kafka.Zstd, parseCompression("zstd"))
	assert.Equal(t, kafka.Gzip, parseCompression(""))
}

func TestNewProducerOptions(t *testing.T) {
	_, err := NewProducer()
	assert.Error(t, err)

	p, err := NewProducer(WithBrokers([]string{"localhost:9092"}), WithHashByKey(true), WithRequiredAcks(1))
	require.NoError(t, err)
	defer p.Close()
	assert.IsType(t, &kafka.Hash{}, p.writer.Balancer)
	assert.Equal(t, kafka.RequireOne, p.writer.RequiredAcks)
}

func TestBuildHeaders(t *testing.T) {
	ctx := context.WithValue(context.Background(), ctxTraceID, "abc")
	hs := buildHeaders(ctx, Message{Value: map[string]int{"n": 1}, Headers: map[string]string{"event": "prediction"}})

	got := map[string]string{}
	for _, h := range hs {
		got[h.Key] = string(h.Value)
	}
	assert.Equal(t, map[string]string{
		"content_type": "application/json",
		"trace_id":     "abc",
		"event":        "prediction",
	}, got)

	hs = buildHeaders(context.Background(), Message{Value: []byte("raw"), Headers: map[string]string{"trace_id": "mine"}})
	require.Len(t, hs, 1)
	assert.Equal(t, "mine", string(hs[0].Value))
}
