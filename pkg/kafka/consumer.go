package kafka

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	xlogger "KiranaCash/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// MessageHandler handles messages from a specific topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

// Consumer reads registered topics and dispatches messages to a worker pool.
// Messages of one partition are handled in order.
type Consumer struct {
	cfg       *ConsumerConfig
	log       *xlogger.Logger
	readers   map[string]*kafka.Reader
	handlers  map[string]MessageHandler
	stopChan  chan struct{}
	wg        sync.WaitGroup
	stopOnce  sync.Once
	msgChan   chan *message
	dlq       *Producer
	mu        sync.Mutex
	partLocks map[string]*sync.Mutex
	hook      ConsumerHook
}

type message struct {
	topic  string
	km     kafka.Message
	reader *kafka.Reader
}

// NewConsumer creates a new Kafka consumer.
func NewConsumer(opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		GroupID:     "kirana-cash",
		WorkerCount: 1,
		BufferSize:  10,
		RetryMax:    3,
		BackoffMin:  50 * time.Millisecond,
		BackoffMax:  2 * time.Second,
		MinBytes:    10e3,
		MaxBytes:    10e6,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = xlogger.Nop()
	}

	c := &Consumer{
		cfg:       cfg,
		log:       cfg.Logger.With(xlogger.String("component", "kafka-consumer")),
		readers:   make(map[string]*kafka.Reader),
		handlers:  make(map[string]MessageHandler),
		stopChan:  make(chan struct{}),
		msgChan:   make(chan *message, cfg.BufferSize),
		partLocks: make(map[string]*sync.Mutex),
		hook:      NoopHook{},
	}
	if cfg.DLQTopic != "" {
		dlq, err := NewProducer(WithBrokers(cfg.Brokers), WithHashByKey(true))
		if err != nil {
			return nil, fmt.Errorf("dlq producer: %w", err)
		}
		c.dlq = dlq
	}
	initConsumerMetricsOnce()
	return c, nil
}

// RegisterHandler binds a handler to its topic. Call before Start.
func (c *Consumer) RegisterHandler(handler MessageHandler) {
	topic := handler.Topic()
	c.handlers[topic] = handler
	c.readers[topic] = kafka.NewReader(kafka.ReaderConfig{
		Brokers:     c.cfg.Brokers,
		GroupID:     c.cfg.GroupID,
		Topic:       topic,
		MinBytes:    c.cfg.MinBytes,
		MaxBytes:    c.cfg.MaxBytes,
		StartOffset: kafka.FirstOffset,
	})
}

// SetHook installs a hook run around every handled message.
func (c *Consumer) SetHook(h ConsumerHook) {
	if h == nil {
		h = NoopHook{}
	}
	c.hook = h
}

// Start launches readers and workers. It does not block.
func (c *Consumer) Start() error {
	if len(c.handlers) == 0 {
		return fmt.Errorf("no handlers registered")
	}
	for i := 0; i < c.cfg.WorkerCount; i++ {
		c.wg.Add(1)
		go c.worker()
	}
	for topic, reader := range c.readers {
		c.wg.Add(1)
		go c.read(topic, reader)
	}
	c.log.Info("kafka consumer started",
		xlogger.String("group", c.cfg.GroupID),
		xlogger.Int("workers", c.cfg.WorkerCount),
		xlogger.Int("topics", len(c.readers)))
	return nil
}

// Stop signals all goroutines and waits for them or ctx.
func (c *Consumer) Stop(ctx context.Context) error {
	c.stopOnce.Do(func() { close(c.stopChan) })

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	var errs []error
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, ctx.Err())
	}
	for topic, r := range c.readers {
		if err := r.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close reader %s: %w", topic, err))
		}
	}
	if c.dlq != nil {
		if err := c.dlq.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close dlq: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (c *Consumer) read(topic string, reader *kafka.Reader) {
	defer c.wg.Done()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-c.stopChan
		cancel()
	}()

	for {
		km, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			consumerFetchErrors.WithLabelValues(topic).Inc()
			c.log.Warn("kafka fetch failed", xlogger.String("topic", topic), xlogger.Error(err))
			time.Sleep(backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, 1))
			continue
		}
		select {
		case c.msgChan <- &message{topic: topic, km: km, reader: reader}:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Consumer) worker() {
	defer c.wg.Done()
	for {
		select {
		case <-c.stopChan:
			return
		case m := <-c.msgChan:
			c.process(m)
		}
	}
}

func (c *Consumer) process(m *message) {
	lock := c.partitionLock(m.topic, m.km.Partition)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()
	handler := c.handlers[m.topic]
	ctx := WithTraceID(context.Background(), ExtractTraceID(m.km))

	ctx, data, err := c.hook.BeforeHandle(ctx, m.topic, m.km.Value)
	if err == nil {
		for attempt := 0; attempt <= c.cfg.RetryMax; attempt++ {
			if err = handler.Handle(ctx, data); err == nil {
				break
			}
			if attempt < c.cfg.RetryMax {
				consumerRetries.WithLabelValues(m.topic).Inc()
				time.Sleep(backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, attempt+1))
			}
		}
	}
	safeAfter(c.hook, ctx, m.topic, data, err)

	result := "ok"
	if err != nil {
		result = "error"
		safeOnError(c.hook, ctx, m.topic, m.km.Value, err)
		c.log.Error("kafka message failed",
			xlogger.String("topic", m.topic),
			xlogger.Int("partition", m.km.Partition),
			xlogger.Int64("offset", m.km.Offset),
			xlogger.Error(err))
		c.deadLetter(m, err)
	}
	consumerHandled.WithLabelValues(m.topic, result).Inc()
	consumerLatency.WithLabelValues(m.topic).Observe(time.Since(start).Seconds())

	if err := c.commit(m, 3); err != nil {
		c.log.Error("kafka commit failed", xlogger.String("topic", m.topic), xlogger.Error(err))
	}
}

func (c *Consumer) deadLetter(m *message, cause error) {
	if c.dlq == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	payload := map[string]interface{}{
		"topic":     m.topic,
		"partition": m.km.Partition,
		"offset":    m.km.Offset,
		"error":     cause.Error(),
		"value":     string(m.km.Value),
	}
	if err := c.dlq.Publish(ctx, c.cfg.DLQTopic, m.km.Key, payload); err != nil {
		c.log.Error("kafka dlq publish failed", xlogger.String("topic", c.cfg.DLQTopic), xlogger.Error(err))
	}
}

func (c *Consumer) commit(m *message, max int) error {
	var err error
	for i := 0; i < max; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = m.reader.CommitMessages(ctx, m.km)
		cancel()
		if err == nil {
			return nil
		}
		time.Sleep(backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, i+1))
	}
	return err
}

func (c *Consumer) partitionLock(topic string, partition int) *sync.Mutex {
	key := fmt.Sprintf("%s/%d", topic, partition)
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.partLocks[key]
	if !ok {
		l = &sync.Mutex{}
		c.partLocks[key] = l
	}
	return l
}

// backoffWithJitter doubles min per attempt, caps at max and adds up to 20% jitter.
func backoffWithJitter(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 10 * time.Millisecond
	}
	if max < min {
		max = min
	}
	d := min
	for i := 1; i < attempt && d < max; i++ {
		d *= 2
	}
	if d > max {
		d = max
	}
	jitter := time.Duration(rand.Int63n(int64(d)/5 + 1))
	return d + jitter
}

var (
	consumerHandled     *prometheus.CounterVec
	consumerRetries     *prometheus.CounterVec
	consumerFetchErrors *prometheus.CounterVec
	consumerLatency     *prometheus.HistogramVec
	consumerOnce        sync.Once
)

func initConsumerMetricsOnce() {
	consumerOnce.Do(func() {
		consumerHandled = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kirana_kafka_consumer_messages_total",
			Help: "Messages handled by result",
		}, []string{"topic", "result"})
		consumerRetries = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kirana_kafka_consumer_retries_total",
			Help: "Handler retries",
		}, []string{"topic"})
		consumerFetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kirana_kafka_consumer_fetch_errors_total",
			Help: "Fetch errors",
		}, []string{"topic"})
		consumerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kirana_kafka_consumer_handle_seconds",
			Help:    "Handle latency including retries",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"})
	})
}
