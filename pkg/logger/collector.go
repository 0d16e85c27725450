package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"sort"
	"sync"
	"time"
)

// Publisher ships aggregated error logs, typically to a Kafka topic.
type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

// DefaultVolatileFields vary per occurrence of the same failure.
var DefaultVolatileFields = []string{"symbol", "job", "run_id", "trace_id", "offset", "duration", "duration_ms"}

const maxSamples = 5

type CollectionConfig struct {
	TimeInterval   time.Duration // flush interval
	CountThreshold int           // distinct entries before an early flush
	Topic          string
	Service        string
	// VolatileFields are left out of the grouping key; a few distinct values
	// are kept as samples instead. Empty means DefaultVolatileFields.
	VolatileFields []string
	Publisher      Publisher
}

// LogEntry is one distinct error with its occurrence count.
type LogEntry struct {
	Level     string                   `json:"level"`
	Message   string                   `json:"message"`
	Caller    string                   `json:"caller"`
	Fields    map[string]interface{}   `json:"fields,omitempty"`
	Samples   map[string][]interface{} `json:"samples,omitempty"`
	Count     int                      `json:"count"`
	FirstSeen time.Time                `json:"first_seen"`
	LastSeen  time.Time                `json:"last_seen"`
}

// LogBatch is the payload of one flush.
type LogBatch struct {
	Service   string     `json:"service,omitempty"`
	Host      string     `json:"host,omitempty"`
	FlushedAt time.Time  `json:"flushed_at"`
	Entries   []LogEntry `json:"entries"`
}

// LogCollector groups error logs and publishes them in batches.
type LogCollector struct {
	cfg      CollectionConfig
	host     string
	volatile map[string]struct{}

	mu      sync.Mutex
	entries map[uint64]*LogEntry

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewLogCollector(config *CollectionConfig) *LogCollector {
	cfg := *config
	if cfg.TimeInterval <= 0 {
		cfg.TimeInterval = 30 * time.Second
	}
	if cfg.CountThreshold <= 0 {
		cfg.CountThreshold = 100
	}
	if len(cfg.VolatileFields) == 0 {
		cfg.VolatileFields = DefaultVolatileFields
	}
	host, _ := os.Hostname()
	ctx, cancel := context.WithCancel(context.Background())

	c := &LogCollector{
		cfg:      cfg,
		host:     host,
		volatile: make(map[string]struct{}, len(cfg.VolatileFields)),
		entries:  make(map[uint64]*LogEntry),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, f := range cfg.VolatileFields {
		c.volatile[f] = struct{}{}
	}

	c.wg.Add(1)
	go c.loop()
	return c
}

func (c *LogCollector) AddLog(level, message string, fields map[string]interface{}, caller string) {
	stable := make(map[string]interface{}, len(fields))
	var varying map[string]interface{}
	for k, v := range fields {
		if _, ok := c.volatile[k]; ok {
			if varying == nil {
				varying = make(map[string]interface{})
			}
			varying[k] = v
			continue
		}
		stable[k] = v
	}
	key := groupKey(level, message, caller, stable)
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		e = &LogEntry{Level: level, Message: message, Caller: caller, FirstSeen: now}
		if len(stable) > 0 {
			e.Fields = stable
		}
		c.entries[key] = e
	}
	e.Count++
	e.LastSeen = now
	for k, v := range varying {
		e.addSample(k, v)
	}

	if len(c.entries) >= c.cfg.CountThreshold {
		c.flushLocked()
	}
}

func (e *LogEntry) addSample(field string, v interface{}) {
	if e.Samples == nil {
		e.Samples = make(map[string][]interface{})
	}
	vals := e.Samples[field]
	if len(vals) >= maxSamples {
		return
	}
	for _, have := range vals {
		if fmt.Sprint(have) == fmt.Sprint(v) {
			return
		}
	}
	e.Samples[field] = append(vals, v)
}

// groupKey hashes the stable identity of an entry. Map keys marshal sorted.
func groupKey(level, message, caller string, fields map[string]interface{}) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00", level, message, caller)
	if b, err := json.Marshal(fields); err == nil {
		_, _ = h.Write(b)
	} else {
		fmt.Fprint(h, fields)
	}
	return h.Sum64()
}

func (c *LogCollector) loop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.cfg.TimeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-c.ctx.Done():
			c.mu.Lock()
			c.flushLocked()
			c.mu.Unlock()
			return
		}
		c.mu.Lock()
		c.flushLocked()
		c.mu.Unlock()
	}
}

// flushLocked must be called with c.mu held.
func (c *LogCollector) flushLocked() {
	if len(c.entries) == 0 || c.cfg.Publisher == nil {
		return
	}
	batch := LogBatch{
		Service:   c.cfg.Service,
		Host:      c.host,
		FlushedAt: time.Now().UTC(),
		Entries:   make([]LogEntry, 0, len(c.entries)),
	}
	for _, e := range c.entries {
		batch.Entries = append(batch.Entries, *e)
	}
	sort.Slice(batch.Entries, func(i, j int) bool {
		return batch.Entries[i].FirstSeen.Before(batch.Entries[j].FirstSeen)
	})
	c.entries = make(map[uint64]*LogEntry)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := c.cfg.Publisher.PublishMessage(ctx, c.cfg.Topic, batch); err != nil {
			fmt.Fprintf(os.Stderr, "log collector: publish %d entries: %v\n", len(batch.Entries), err)
		}
	}()
}

// Close flushes pending entries and waits for in-flight publishes.
func (c *LogCollector) Close() {
	c.cancel()
	c.wg.Wait()
}
