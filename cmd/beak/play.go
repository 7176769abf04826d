package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/opd-ai/beak/config"
	"github.com/opd-ai/beak/device"
	"github.com/opd-ai/beak/engine"
	"github.com/opd-ai/beak/graph"
	"github.com/opd-ai/beak/sample"
)

const (
	playPollInterval = 20 * time.Millisecond
	// playGrace covers device latency and the sweep after the last block.
	playGrace = 2 * time.Second
)

func newPlayCmd(opts *rootOptions) *cobra.Command {
	var (
		file    string
		channel int
		flags   overrides
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play one file on a channel and wait for it to finish",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if err := flags.apply(cmd.Flags(), cfg); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return playFile(ctx, cfg, file, channel)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "The file to play")
	cmd.Flags().IntVar(&channel, "channel", 1, "The channel to play the file on")
	flags.bindAudio(cmd.Flags())
	cmd.MarkFlagRequired("file")
	return cmd
}

func playFile(ctx context.Context, cfg *config.Config, path string, channel int) error {
	dev, err := device.New(cfg.Audio.Backend)
	if err != nil {
		return err
	}
	eng := engine.New(dev)
	if err := eng.Configure(cfg.EngineConfig()); err != nil {
		return err
	}
	defer eng.Close()

	buf, err := sample.Decode(path)
	if err != nil {
		return err
	}
	id, err := eng.PlaySound(buf, channel, path)
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"function": "playFile",
		"path":     path,
		"channel":  channel,
		"node_id":  id,
		"duration": buf.Duration().String(),
	}).Info("Playing file")

	return waitFinished(ctx, eng, id, playTimeout(buf))
}

// playTimeout is how long playFile waits for buf to play out.
func playTimeout(buf *sample.Buffer) time.Duration {
	return buf.Duration() + playGrace
}

// waitFinished polls until the node finishes or has been swept. A
// virtual-output sampler never finishes; it counts as done once it has
// played and returned to prepared.
func waitFinished(ctx context.Context, eng *engine.Engine, id graph.NodeID, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(playPollInterval)
	defer ticker.Stop()
	started := false
	for {
		state, err := eng.PlaybackState(id)
		switch {
		case errors.Is(err, graph.ErrNodeNotFound):
			return nil
		case err != nil:
			return err
		case state == graph.StateFinished:
			return nil
		case state == graph.StatePlaying:
			started = true
		case started && state == graph.StatePrepared:
			return nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("playback of node %d did not finish within %s", id, timeout)
			}
			return nil
		case <-ticker.C:
		}
	}
}
