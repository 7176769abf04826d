// Command beak is the audio playback daemon and its companion tools.
//
//	beak run                      serve the UDP control plane
//	beak play --file kick.wav     play one file locally and exit
//	beak send play|synth|cache|stop   send a control packet to a daemon
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/opd-ai/beak/config"
)

type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "beak",
		Short:         "Real-time audio playback driven over UDP",
		Long:          `beak plays sample files and synth notes on audio device channels in response to protobuf packets received over UDP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML configuration file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format (text, json)")

	cmd.AddCommand(newRunCmd(opts))
	cmd.AddCommand(newPlayCmd(opts))
	cmd.AddCommand(newSendCmd())
	return cmd
}

// load reads the configuration and applies the logging flags on top of it.
func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	if err := cfg.Log.Apply(nil); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "main",
			"error":    err.Error(),
		}).Error("Command failed")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
