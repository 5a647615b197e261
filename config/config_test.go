package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chinifabio/renoir-go/config"
	"github.com/chinifabio/renoir-go/errs"
	"github.com/stretchr/testify/require"
)

const validYAML = `
hosts:
  - address: 10.0.0.1
    replication: 2
  - address: 10.0.0.2
    replication: 2
heartbeat_interval_secs: 5
recv_timeout_secs: 0.5
layers:
  edge:
    group_input:
      kind: none
    group_output:
      kind: kafka-like
      brokers: ["localhost:9092"]
      topic: edge-out
  cloud:
    group_input:
      kind: kafka-like
      brokers: ["localhost:9092"]
      topic: edge-out
    group_output:
      kind: none
    max_parallelism: 4
`

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "renoir.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadValidatesAndDecodesAValidConfig(t *testing.T) {
	path := writeTemp(t, validYAML)

	table, err := config.Load(path)
	require.NoError(t, err)
	require.Len(t, table.Hosts, 2)

	edge, err := table.Layer("edge")
	require.NoError(t, err)
	require.Equal(t, config.TransportNone, edge.GroupInput.Kind)
	require.Equal(t, config.TransportKafka, edge.GroupOutput.Kind)
	require.Equal(t, []string{"localhost:9092"}, edge.GroupOutput.Brokers)

	cloud, err := table.Layer("cloud")
	require.NoError(t, err)
	require.NotNil(t, cloud.MaxParallelism)
	require.Equal(t, 4, *cloud.MaxParallelism)
}

func TestLoadRejectsMissingLayers(t *testing.T) {
	path := writeTemp(t, `
hosts: []
heartbeat_interval_secs: 5
recv_timeout_secs: 1
layers: {}
`)
	_, err := config.Load(path)
	require.Error(t, err)
	require.Equal(t, errs.CodeConfiguration, errs.CodeOf(err))
	require.Equal(t, 1, errs.ExitCode(err))
}

func TestLoadRejectsIncompleteKafkaTransport(t *testing.T) {
	path := writeTemp(t, `
heartbeat_interval_secs: 5
recv_timeout_secs: 1
layers:
  edge:
    group_input:
      kind: kafka-like
    group_output:
      kind: none
`)
	_, err := config.Load(path)
	require.Error(t, err)
	require.Equal(t, errs.CodeConfiguration, errs.CodeOf(err))
}

func TestLayerLookupMissErrorsWithConfigurationCode(t *testing.T) {
	path := writeTemp(t, validYAML)
	table, err := config.Load(path)
	require.NoError(t, err)

	_, err = table.Layer("nonexistent")
	require.Error(t, err)
	require.Equal(t, errs.CodeConfiguration, errs.CodeOf(err))
}
