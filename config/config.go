// Package config loads and validates the runtime configuration table of
// spec §6 with github.com/spf13/viper: a YAML/TOML file describing the
// declared hosts, the named layers of the pipeline, and the transport
// each layer boundary ships elements over.
package config

import (
	"time"

	"github.com/chinifabio/renoir-go/errs"
	"github.com/chinifabio/renoir-go/scheduler"
	"github.com/spf13/viper"
)

// TransportKind names one of the three layer connector variants of
// spec §4.10.
type TransportKind string

const (
	TransportKafka TransportKind = "kafka-like"
	TransportRedis TransportKind = "redis-like"
	TransportNone  TransportKind = "none"
)

// TransportSpec configures one side (input or output) of a layer
// boundary. Which fields are meaningful depends on Kind.
type TransportSpec struct {
	Kind TransportKind `mapstructure:"kind"`

	// Kafka-like.
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`

	// Redis-like.
	Addr   string `mapstructure:"addr"`
	Shards int    `mapstructure:"shards"`
}

func (t TransportSpec) validate(layer, side string) error {
	switch t.Kind {
	case TransportKafka:
		if len(t.Brokers) == 0 || t.Topic == "" {
			return errs.Newf(errs.CodeConfiguration, "layer %q %s: kafka-like transport requires brokers and topic", layer, side)
		}
	case TransportRedis:
		if t.Addr == "" || t.Topic == "" {
			return errs.Newf(errs.CodeConfiguration, "layer %q %s: redis-like transport requires addr and topic", layer, side)
		}
		if t.Shards <= 0 {
			return errs.Newf(errs.CodeConfiguration, "layer %q %s: redis-like transport requires a positive shard count", layer, side)
		}
	case TransportNone:
		// No further fields required.
	default:
		return errs.Newf(errs.CodeConfiguration, "layer %q %s: unknown transport kind %q", layer, side, t.Kind)
	}
	return nil
}

// LayerSpec is one named tier of the pipeline and the transports
// binding it to its neighbors, per spec §4.10.
type LayerSpec struct {
	GroupInput  TransportSpec `mapstructure:"group_input"`
	GroupOutput TransportSpec `mapstructure:"group_output"`
	// MaxParallelism caps this layer's declared parallelism; nil means
	// unlimited (block.ReplicationUnlimited resolves against the
	// scheduler's declared parallelism instead).
	MaxParallelism *int `mapstructure:"max_parallelism"`
}

// Table is the validated runtime configuration of spec §6.
type Table struct {
	Hosts                 []scheduler.HostSpec `mapstructure:"hosts"`
	Layers                map[string]LayerSpec `mapstructure:"layers"`
	HeartbeatIntervalSecs float64              `mapstructure:"heartbeat_interval_secs"`
	RecvTimeoutSecs       float64              `mapstructure:"recv_timeout_secs"`
}

// HeartbeatInterval is HeartbeatIntervalSecs as a time.Duration, per
// layer.LayoutFrontier's constructor.
func (t Table) HeartbeatInterval() time.Duration {
	return time.Duration(t.HeartbeatIntervalSecs * float64(time.Second))
}

// RecvTimeout is RecvTimeoutSecs as a time.Duration, per
// layer.Source.RecvTimeout's polling loop.
func (t Table) RecvTimeout() time.Duration {
	return time.Duration(t.RecvTimeoutSecs * float64(time.Second))
}

// Load reads and validates the config file at path. The file format is
// inferred by viper from its extension (YAML, TOML, JSON, ...).
func Load(path string) (*Table, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("heartbeat_interval_secs", 30.0)
	v.SetDefault("recv_timeout_secs", 1.0)

	if err := v.ReadInConfig(); err != nil {
		return nil, errs.Wrap(err, errs.CodeConfiguration, "reading config file "+path)
	}

	var t Table
	if err := v.Unmarshal(&t); err != nil {
		return nil, errs.Wrap(err, errs.CodeConfiguration, "decoding config file "+path)
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks the invariants Load's caller relies on: at least one
// layer, every host has a positive replication, and every transport
// spec names a recognized kind with its required fields.
func (t Table) Validate() error {
	if len(t.Layers) == 0 {
		return errs.New(errs.CodeConfiguration, "config must declare at least one layer")
	}
	for _, h := range t.Hosts {
		if h.Address == "" {
			return errs.New(errs.CodeConfiguration, "hosts entry missing address")
		}
		if h.Replication <= 0 {
			return errs.Newf(errs.CodeConfiguration, "host %q: replication must be positive", h.Address)
		}
	}
	for name, l := range t.Layers {
		if err := l.GroupInput.validate(name, "group_input"); err != nil {
			return err
		}
		if err := l.GroupOutput.validate(name, "group_output"); err != nil {
			return err
		}
		if l.MaxParallelism != nil && *l.MaxParallelism <= 0 {
			return errs.Newf(errs.CodeConfiguration, "layer %q: max_parallelism must be positive when set", name)
		}
	}
	if t.HeartbeatIntervalSecs <= 0 {
		return errs.New(errs.CodeConfiguration, "heartbeat_interval_secs must be positive")
	}
	if t.RecvTimeoutSecs <= 0 {
		return errs.New(errs.CodeConfiguration, "recv_timeout_secs must be positive")
	}
	return nil
}

// Layer looks up a named layer, reporting a CodeConfiguration error if
// it is not declared.
func (t Table) Layer(name string) (LayerSpec, error) {
	l, ok := t.Layers[name]
	if !ok {
		return LayerSpec{}, errs.Newf(errs.CodeConfiguration, "layer %q is not declared in the config", name)
	}
	return l, nil
}
