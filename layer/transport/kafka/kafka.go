// Package kafka implements the Kafka-like layer connector transport of
// spec §4.10: a durable, ordered topic per layer boundary, written with
// IBM/sarama. Send publishes to whichever partition the default hash
// partitioner picks for the sending replica's fingerprint, preserving
// per-sender order (§5); Broadcast fans out to every partition so each
// consumer-shard's PartitionConsumer observes the control element.
package kafka

import (
	"time"

	"github.com/IBM/sarama"
	"github.com/chinifabio/renoir-go/element"
	"github.com/chinifabio/renoir-go/errs"
	"github.com/chinifabio/renoir-go/layer"
	"github.com/chinifabio/renoir-go/row"
)

// retryBaseBackoff is the first retry delay sarama's BackoffFunc grows
// exponentially from, per spec §4.10's failure model ("transient
// transport errors: retried with bounded exponential backoff at send
// time").
const retryBaseBackoff = 20 * time.Millisecond

// Sink publishes layer-connector frames onto topic via a synchronous,
// fully-acknowledged producer, retrying transient broker errors with
// bounded exponential backoff per §4.10's failure model.
type Sink struct {
	producer   sarama.SyncProducer
	client     sarama.Client
	topic      string
	partitions []int32
}

// NewSink dials brokers and resolves topic's partition count.
func NewSink(brokers []string, topic string) (*Sink, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Retry.BackoffFunc = func(retries, maxRetries int) time.Duration {
		return retryBaseBackoff * time.Duration(1<<uint(retries-1))
	}

	client, err := sarama.NewClient(brokers, cfg)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeTransportFatal, "kafka: dial brokers")
	}
	producer, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeTransportFatal, "kafka: new producer")
	}
	partitions, err := client.Partitions(topic)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeTransportFatal, "kafka: partitions for "+topic)
	}
	return &Sink{producer: producer, client: client, topic: topic, partitions: partitions}, nil
}

func (s *Sink) Send(meta layer.MessageMetadata, e element.StreamElement[row.Row]) error {
	frame := layer.EncodeFrame(meta, e)
	msg := &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(meta.Fingerprint),
		Value: sarama.ByteEncoder(frame),
	}
	if _, _, err := s.producer.SendMessage(msg); err != nil {
		return errs.Wrap(err, errs.CodeTransportTransient, "kafka: send")
	}
	return nil
}

func (s *Sink) Broadcast(meta layer.MessageMetadata, e element.StreamElement[row.Row]) error {
	frame := layer.EncodeFrame(meta, e)
	for _, p := range s.partitions {
		msg := &sarama.ProducerMessage{Topic: s.topic, Partition: p, Value: sarama.ByteEncoder(frame)}
		if _, _, err := s.producer.SendMessage(msg); err != nil {
			return errs.Wrap(err, errs.CodeTransportTransient, "kafka: broadcast")
		}
	}
	return nil
}

func (s *Sink) Close() error {
	err := s.producer.Close()
	if cerr := s.client.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errs.Wrap(err, errs.CodeTransportFatal, "kafka: close sink")
	}
	return nil
}

// Source consumes every partition of topic from the oldest retained
// offset, merging their frames onto one channel; partition order is not
// preserved across partitions (only per-sender order within one, which
// the frontier does not depend on).
type Source struct {
	consumer sarama.Consumer
	parts    []sarama.PartitionConsumer
	frames   chan []byte
	errs     chan error
}

// NewSource subscribes to every partition of topic.
func NewSource(brokers []string, topic string) (*Source, error) {
	cfg := sarama.NewConfig()
	consumer, err := sarama.NewConsumer(brokers, cfg)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeTransportFatal, "kafka: new consumer")
	}
	partitions, err := consumer.Partitions(topic)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeTransportFatal, "kafka: partitions for "+topic)
	}
	src := &Source{consumer: consumer, frames: make(chan []byte, 256), errs: make(chan error, 1)}
	for _, p := range partitions {
		pc, err := consumer.ConsumePartition(topic, p, sarama.OffsetOldest)
		if err != nil {
			return nil, errs.Wrap(err, errs.CodeTransportFatal, "kafka: consume partition")
		}
		src.parts = append(src.parts, pc)
		go func(pc sarama.PartitionConsumer) {
			for msg := range pc.Messages() {
				src.frames <- msg.Value
			}
		}(pc)
	}
	return src, nil
}

func (s *Source) Recv() (layer.MessageMetadata, element.StreamElement[row.Row], error) {
	frame := <-s.frames
	return layer.DecodeFrame(frame)
}

func (s *Source) RecvTimeout(timeout time.Duration) (layer.MessageMetadata, element.StreamElement[row.Row], bool, error) {
	select {
	case frame := <-s.frames:
		meta, e, err := layer.DecodeFrame(frame)
		return meta, e, true, err
	case <-time.After(timeout):
		var zeroMeta layer.MessageMetadata
		var zeroElem element.StreamElement[row.Row]
		return zeroMeta, zeroElem, false, nil
	}
}

func (s *Source) Close() error {
	for _, pc := range s.parts {
		_ = pc.Close()
	}
	if err := s.consumer.Close(); err != nil {
		return errs.Wrap(err, errs.CodeTransportFatal, "kafka: close source")
	}
	return nil
}
