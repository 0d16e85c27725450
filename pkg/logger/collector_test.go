package logger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu    sync.Mutex
	topic string
	sent  []LogEntry
	last  LogBatch
	calls int
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.calls++
	p.last = payload.(LogBatch)
	p.sent = append(p.sent, p.last.Entries...)
	return nil
}

func TestCollectorDeduplicatesErrors(t *testing.T) {
	pub := &capturePublisher{}
	log := Nop()
	log.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 100, Topic: "logs", Publisher: pub})

	for i := 0; i < 3; i++ {
		log.Error("train failed", String("class", "swing"), Error(errors.New("boom")))
	}
	log.Error("predict failed", String("symbol", "AAPL"))
	log.Warn("not collected")
	log.RemoveCollector()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.sent, 2)
	assert.Equal(t, "logs", pub.topic)
	assert.Equal(t, 1, pub.calls)

	counts := map[string]int{}
	for _, e := range pub.sent {
		counts[e.Message] = e.Count
		assert.Equal(t, "error", e.Level)
	}
	assert.Equal(t, 3, counts["train failed"])
	assert.Equal(t, 1, counts["predict failed"])
}

func TestCollectorGroupsAcrossVolatileFields(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, Topic: "logs", Service: "stockpred", Publisher: pub})

	for _, sym := range []string{"AAPL", "MSFT", "AAPL", "NVDA"} {
		c.AddLog("error", "training failed", map[string]interface{}{"symbol": sym, "class": "swing"}, "x.go:1")
	}
	c.AddLog("error", "training failed", map[string]interface{}{"symbol": "AAPL", "class": "intraday"}, "x.go:1")
	c.Close()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.sent, 2)
	assert.Equal(t, "stockpred", pub.last.Service)

	byClass := map[interface{}]LogEntry{}
	for _, e := range pub.sent {
		byClass[e.Fields["class"]] = e
	}
	swing := byClass["swing"]
	assert.Equal(t, 4, swing.Count)
	assert.Equal(t, map[string]interface{}{"class": "swing"}, swing.Fields)
	assert.Equal(t, []interface{}{"AAPL", "MSFT", "NVDA"}, swing.Samples["symbol"])
	assert.Equal(t, 1, byClass["intraday"].Count)
}

func TestCollectorCapsSamples(t *testing.T) {
	e := &LogEntry{}
	for i := 0; i < 10; i++ {
		e.addSample("job", i)
	}
	assert.Len(t, e.Samples["job"], maxSamples)
}

func TestCollectorFlushesAtThreshold(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 2, Topic: "logs", Publisher: pub})

	c.AddLog("error", "a", nil, "x.go:1")
	c.AddLog("error", "b", nil, "x.go:2")
	c.Close()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Equal(t, 1, pub.calls)
	assert.Len(t, pub.sent, 2)
}

func TestWithSharesCollector(t *testing.T) {
	pub := &capturePublisher{}
	log := Nop()
	log.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 100, Topic: "logs", Publisher: pub})

	log.With("predictor").Error("artifact save failed")
	log.RemoveCollector()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.sent, 1)
	assert.Equal(t, "artifact save failed", pub.sent[0].Message)
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud", Output: "stdout"})
	assert.Error(t, err)
}
