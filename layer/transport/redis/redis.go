// Package redis implements the Redis-like layer connector transport of
// spec §4.10 over go-redis/v9 streams: Send appends to the layer's main
// stream, read by every Source with plain XREAD (no consumer group),
// which preserves per-sender order within a stream, §5; Broadcast appends to a dedicated per-shard stream per
// consumer-shard so every shard's Source observes the control element
// exactly once.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/chinifabio/renoir-go/element"
	"github.com/chinifabio/renoir-go/errs"
	"github.com/chinifabio/renoir-go/layer"
	"github.com/chinifabio/renoir-go/row"
	goredis "github.com/redis/go-redis/v9"
)

const frameField = "frame"

// retryAttempts and retryBaseDelay bound the exponential backoff applied
// to transient Redis errors at send/recv time, per spec §4.10's failure
// model ("transient transport errors: retried with bounded exponential
// backoff at send time").
const (
	retryAttempts  = 5
	retryBaseDelay = 20 * time.Millisecond
)

func broadcastKey(topic string, shard int) string {
	return fmt.Sprintf("%s:broadcast:%d", topic, shard)
}

// withBackoff retries op up to retryAttempts times, doubling the delay
// between attempts starting from retryBaseDelay, returning the last
// error if every attempt fails.
func withBackoff(op func() error) error {
	delay := retryBaseDelay
	var err error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if attempt == retryAttempts-1 {
			break
		}
		time.Sleep(delay)
		delay *= 2
	}
	return err
}

// Sink publishes onto topic's main stream and, for Broadcast, onto every
// shard's dedicated broadcast stream.
type Sink struct {
	client  *goredis.Client
	topic   string
	shards  int
	ctx     context.Context
}

// NewSink connects to a Redis-like server and targets topic with shards
// consumer-shards for broadcast fan-out.
func NewSink(addr, topic string, shards int) (*Sink, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errs.Wrap(err, errs.CodeTransportFatal, "redis: ping")
	}
	return &Sink{client: client, topic: topic, shards: shards, ctx: ctx}, nil
}

func (s *Sink) Send(meta layer.MessageMetadata, e element.StreamElement[row.Row]) error {
	return s.publish(s.topic, meta, e)
}

func (s *Sink) Broadcast(meta layer.MessageMetadata, e element.StreamElement[row.Row]) error {
	for shard := 0; shard < s.shards; shard++ {
		if err := s.publish(broadcastKey(s.topic, shard), meta, e); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sink) publish(stream string, meta layer.MessageMetadata, e element.StreamElement[row.Row]) error {
	frame := layer.EncodeFrame(meta, e)
	args := &goredis.XAddArgs{Stream: stream, Values: map[string]interface{}{frameField: frame}}
	if err := withBackoff(func() error {
		return s.client.XAdd(s.ctx, args).Err()
	}); err != nil {
		return errs.Wrap(err, errs.CodeTransportTransient, "redis: xadd")
	}
	return nil
}

func (s *Sink) Close() error {
	if err := s.client.Close(); err != nil {
		return errs.Wrap(err, errs.CodeTransportFatal, "redis: close sink")
	}
	return nil
}

// Source reads topic's main stream and its shard's broadcast stream,
// starting from the tail (only frames published after the source
// subscribes are observed — a durable consumer-group cursor is left as
// a deployment-time concern, not modeled here).
type Source struct {
	client    *goredis.Client
	ctx       context.Context
	streams   []string
	lastIDs   []string
}

// NewSource subscribes to topic's main stream and the broadcast stream
// for the given shard index.
func NewSource(addr, topic string, shard int) (*Source, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errs.Wrap(err, errs.CodeTransportFatal, "redis: ping")
	}
	return &Source{
		client:  client,
		ctx:     ctx,
		streams: []string{topic, broadcastKey(topic, shard)},
		lastIDs: []string{"$", "$"},
	}, nil
}

func (s *Source) Recv() (layer.MessageMetadata, element.StreamElement[row.Row], error) {
	meta, e, ok, err := s.RecvTimeout(0)
	if err != nil {
		return meta, e, err
	}
	if !ok {
		return s.Recv()
	}
	return meta, e, nil
}

func (s *Source) RecvTimeout(timeout time.Duration) (layer.MessageMetadata, element.StreamElement[row.Row], bool, error) {
	var zeroMeta layer.MessageMetadata
	var zeroElem element.StreamElement[row.Row]

	args := &goredis.XReadArgs{Streams: s.readArgs(), Block: timeout, Count: 1}
	var res []goredis.XStream
	var noData bool
	err := withBackoff(func() error {
		r, e := s.client.XRead(s.ctx, args).Result()
		if e == goredis.Nil {
			noData = true
			return nil
		}
		if e != nil {
			noData = false
			return e
		}
		res = r
		return nil
	})
	if noData {
		return zeroMeta, zeroElem, false, nil
	}
	if err != nil {
		return zeroMeta, zeroElem, false, errs.Wrap(err, errs.CodeTransportTransient, "redis: xread")
	}
	for _, streamRes := range res {
		for i, name := range s.streams {
			if streamRes.Stream == name && len(streamRes.Messages) > 0 {
				msg := streamRes.Messages[0]
				s.lastIDs[i] = msg.ID
				raw, _ := msg.Values[frameField].(string)
				meta, e, err := layer.DecodeFrame([]byte(raw))
				return meta, e, true, err
			}
		}
	}
	return zeroMeta, zeroElem, false, nil
}

func (s *Source) readArgs() []string {
	args := make([]string, 0, len(s.streams)*2)
	args = append(args, s.streams...)
	args = append(args, s.lastIDs...)
	return args
}

func (s *Source) Close() error {
	if err := s.client.Close(); err != nil {
		return errs.Wrap(err, errs.CodeTransportFatal, "redis: close source")
	}
	return nil
}
