package notify

import (
	"fmt"
	"regexp"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/Shopify/sarama"
	"github.com/dustin/go-humanize"

	"github.com/janelia-flyem/segedit/vol"
)

// KafkaMaxMessageSize is the max message size in bytes for a Kafka message.
const KafkaMaxMessageSize = 980 * 1000

// DefaultKafkaTopic receives mutation records if no topic is configured.
const DefaultKafkaTopic = "segedit-mutations"

// KafkaConfig describes the kafka servers and topic for mutation records.
type KafkaConfig struct {
	Servers     []string
	Topic       string
	TopicPrefix string `toml:"topic_prefix"`
	BufferSize  int    `toml:"buffer_size"`
}

// Enabled is true if any server is configured.
func (kc KafkaConfig) Enabled() bool {
	return len(kc.Servers) != 0
}

var badTopicChars = regexp.MustCompile(`[^a-zA-Z0-9\._\-]+`)

// TopicName returns the sanitized topic, prefix included.
func (kc KafkaConfig) TopicName() string {
	topic := kc.Topic
	if topic == "" {
		topic = DefaultKafkaTopic
	}
	return badTopicChars.ReplaceAllString(kc.TopicPrefix+topic, "-")
}

// KafkaSink sends records to a topic through an asynchronous producer.  Records
// kafka rejects are written to an optional fallback sink.
type KafkaSink struct {
	producer sarama.AsyncProducer
	topic    string
	fallback Sink

	sent   int64
	failed int64
	done   chan struct{}
}

// NewKafkaSink connects a producer to the configured servers.
func NewKafkaSink(kc KafkaConfig, fallback Sink) (*KafkaSink, error) {
	if !kc.Enabled() {
		return nil, fmt.Errorf("no kafka servers configured")
	}
	config := sarama.NewConfig()
	config.Producer.MaxMessageBytes = KafkaMaxMessageSize
	if kc.BufferSize > 0 {
		config.ChannelBufferSize = kc.BufferSize
	}
	producer, err := sarama.NewAsyncProducer(kc.Servers, config)
	if err != nil {
		return nil, fmt.Errorf("unable to connect kafka producer to %v: %v", kc.Servers, err)
	}
	s := newKafkaSink(producer, kc.TopicName(), fallback)
	vol.Infof("Kafka topic for mutations: %s (max message %s)\n", s.topic, humanize.Bytes(KafkaMaxMessageSize))
	return s, nil
}

func newKafkaSink(producer sarama.AsyncProducer, topic string, fallback Sink) *KafkaSink {
	s := &KafkaSink{
		producer: producer,
		topic:    topic,
		fallback: fallback,
		done:     make(chan struct{}),
	}
	go s.handleErrors()
	return s
}

func (s *KafkaSink) handleErrors() {
	defer close(s.done)
	for err := range s.producer.Errors() {
		atomic.AddInt64(&s.failed, 1)
		vol.Errorf("error on kafka send to topic %q: %v\n", s.topic, err)
		if s.fallback == nil || err.Msg == nil {
			continue
		}
		value, encErr := err.Msg.Value.Encode()
		if encErr != nil {
			continue
		}
		if fbErr := s.fallback.Produce(value); fbErr != nil {
			vol.Criticalf("unable to store failed kafka message for topic %q: %v\n", s.topic, fbErr)
		}
	}
}

// Topic returns the topic records are sent to.
func (s *KafkaSink) Topic() string {
	return s.topic
}

// Produce queues a record keyed by the current time.
func (s *KafkaSink) Produce(value []byte) error {
	if len(value) > KafkaMaxMessageSize {
		return fmt.Errorf("mutation record of %s exceeds kafka max message size", humanize.Bytes(uint64(len(value))))
	}
	timeKey := sarama.StringEncoder(strconv.FormatInt(time.Now().UnixNano(), 10))
	s.producer.Input() <- &sarama.ProducerMessage{Topic: s.topic, Key: timeKey, Value: sarama.ByteEncoder(value)}
	atomic.AddInt64(&s.sent, 1)
	return nil
}

// Stats returns the number of records queued and the number kafka rejected.
func (s *KafkaSink) Stats() (sent, failed int64) {
	return atomic.LoadInt64(&s.sent), atomic.LoadInt64(&s.failed)
}

// Close flushes the producer queue and waits until every error was handled.
func (s *KafkaSink) Close() error {
	err := s.producer.Close()
	<-s.done
	if err != nil {
		return fmt.Errorf("kafka producer had error on close: %v", err)
	}
	vol.Infof("Successfully shut down kafka producer for topic %q.\n", s.topic)
	return nil
}
