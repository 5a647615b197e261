package main

import (
	"github.com/chinifabio/renoir-go/config"
	"github.com/chinifabio/renoir-go/errs"
	"github.com/chinifabio/renoir-go/layer"
	"github.com/chinifabio/renoir-go/layer/transport/kafka"
	"github.com/chinifabio/renoir-go/layer/transport/none"
	"github.com/chinifabio/renoir-go/layer/transport/redis"
)

// loopbackCapacity bounds the "none" transport's in-memory queue when a
// layer boundary declares no remote transport.
const loopbackCapacity = 256

// dialSink constructs the concrete layer.Sink a group_output transport
// spec names.
func dialSink(spec config.TransportSpec) (layer.Sink, error) {
	switch spec.Kind {
	case config.TransportKafka:
		return kafka.NewSink(spec.Brokers, spec.Topic)
	case config.TransportRedis:
		return redis.NewSink(spec.Addr, spec.Topic, spec.Shards)
	case config.TransportNone:
		return none.New(loopbackCapacity), nil
	default:
		return nil, errs.Newf(errs.CodeConfiguration, "unknown transport kind %q", spec.Kind)
	}
}

// dialSource constructs the concrete layer.Source a group_input
// transport spec names. shard identifies this replica's shard index for
// transports that partition broadcast delivery by consumer shard.
func dialSource(spec config.TransportSpec, shard int) (layer.Source, error) {
	switch spec.Kind {
	case config.TransportKafka:
		return kafka.NewSource(spec.Brokers, spec.Topic)
	case config.TransportRedis:
		return redis.NewSource(spec.Addr, spec.Topic, shard)
	case config.TransportNone:
		return none.New(loopbackCapacity), nil
	default:
		return nil, errs.Newf(errs.CodeConfiguration, "unknown transport kind %q", spec.Kind)
	}
}
