package main

import (
	"time"

	"github.com/chinifabio/renoir-go/config"
	"github.com/chinifabio/renoir-go/coord"
	"github.com/chinifabio/renoir-go/element"
	"github.com/chinifabio/renoir-go/errs"
	"github.com/chinifabio/renoir-go/layer"
	"go.uber.org/zap"
)

// runLayer loads the config, resolves the named layer, dials its
// group_input/group_output transports, and relays elements between them
// through a LayoutFrontier until every upstream sender's broadcast
// control elements have been fully reconciled and the process observes
// Terminate. args are the passthrough arguments of spec §6, forwarded
// to whichever user program this layer replica hosts; this driver logs
// them since no program frontend ships in this repo (spec §1 scopes
// user programs out).
func runLayer(configPath, layerName string, args []string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		logger = zap.NewNop()
	}
	defer logger.Sync()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	spec, err := cfg.Layer(layerName)
	if err != nil {
		return err
	}

	logger.Info("starting layer",
		zap.String("layer", layerName),
		zap.Strings("args", args),
		zap.String("input", string(spec.GroupInput.Kind)),
		zap.String("output", string(spec.GroupOutput.Kind)),
	)

	sink, err := dialSink(spec.GroupOutput)
	if err != nil {
		return errs.Wrap(err, errs.CodeInherit, "dialing group_output transport")
	}
	defer sink.Close()

	source, err := dialSource(spec.GroupInput, 0)
	if err != nil {
		return errs.Wrap(err, errs.CodeInherit, "dialing group_input transport")
	}
	defer source.Close()

	frontier := layer.NewLayoutFrontier(cfg.HeartbeatInterval())
	fingerprint := coord.NewFingerprint()

	for {
		meta, e, ok, err := source.RecvTimeout(cfg.RecvTimeout())
		if err != nil {
			return errs.Wrap(err, errs.CodeInherit, "receiving from group_input")
		}
		if !ok {
			continue
		}
		frontier.Heartbeat(meta, time.Now())

		if e.IsControl() {
			variant := layer.ElementVariant{Kind: e.Tag(), Timestamp: e.Timestamp()}
			if !frontier.Observe(meta, variant, time.Now()) {
				continue
			}
		}

		if e.Tag() == element.TagTerminate {
			logger.Info("layer observed terminate", zap.String("layer", layerName))
			return nil
		}

		out := layer.MessageMetadata{LayerName: layerName, Fingerprint: fingerprint, Parallelism: 1}
		forward := sink.Send
		if e.IsControl() {
			forward = sink.Broadcast
		}
		if err := forward(out, e); err != nil {
			return errs.Wrap(err, errs.CodeInherit, "forwarding to group_output")
		}
	}
}
