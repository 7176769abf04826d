package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/opd-ai/beak/config"
	"github.com/opd-ai/beak/dsp"
	"github.com/opd-ai/beak/transport"
)

type sendOptions struct {
	address string
	port    uint
}

func (o *sendOptions) send(p *transport.Packet) error {
	addr := fmt.Sprintf("%s:%d", o.address, o.port)
	client, err := transport.Dial(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Send(p); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"function": "sendOptions.send",
		"addr":     addr,
		"content":  p.Content.String(),
	}).Info("Packet sent")
	return nil
}

func newSendCmd() *cobra.Command {
	opts := &sendOptions{}
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a control packet to a running daemon",
	}
	cmd.PersistentFlags().StringVarP(&opts.address, "address", "a", "127.0.0.1", "UDP address")
	cmd.PersistentFlags().UintVarP(&opts.port, "port", "p", config.DefaultPort, "UDP port")

	cmd.AddCommand(newSendPlayCmd(opts))
	cmd.AddCommand(newSendSynthCmd(opts))
	cmd.AddCommand(newSendCacheCmd(opts))
	cmd.AddCommand(newSendStopCmd(opts))
	return cmd
}

func newSendPlayCmd(opts *sendOptions) *cobra.Command {
	var (
		uri     string
		channel uint32
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Send an audio_frame",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return opts.send(transport.NewAudioFrame(uri, channel))
		},
	}
	cmd.Flags().StringVarP(&uri, "file", "f", "", "The asset URI or path to play")
	cmd.Flags().Uint32Var(&channel, "channel", 1, "The channel to play the asset on")
	cmd.MarkFlagRequired("file")
	return cmd
}

func newSendSynthCmd(opts *sendOptions) *cobra.Command {
	var (
		channel   uint32
		event     string
		note      uint32
		velocity  float32
		duration  uint32
		waveform  string
		gain      float32
		filter    string
		cutoff    float32
		resonance float32
	)
	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Send a synth_frame",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := &transport.SynthFrame{
				Channel:  channel,
				Note:     note,
				Velocity: velocity,
				Duration: duration,
			}
			switch event {
			case "config":
				f.Event = transport.SynthConfig
			case "on", "note-on":
				f.Event = transport.SynthNoteOn
			case "off", "note-off":
				f.Event = transport.SynthNoteOff
			default:
				return fmt.Errorf("unknown synth event %q", event)
			}
			if cmd.Flags().Changed("waveform") || cmd.Flags().Changed("gain") {
				w, err := dsp.ParseWaveform(waveform)
				if err != nil {
					return err
				}
				// dsp and wire enums share their ordering.
				f.Osc = &transport.Oscillator{Type: transport.Waveform(w), Gain: gain}
			}
			if cmd.Flags().Changed("filter") || cmd.Flags().Changed("cutoff") || cmd.Flags().Changed("resonance") {
				t, err := dsp.ParseFilterType(filter)
				if err != nil {
					return err
				}
				f.Filter = &transport.Filter{Type: transport.FilterType(t), Cutoff: cutoff, Resonance: resonance}
			}
			return opts.send(transport.NewSynthFrame(f))
		},
	}
	cmd.Flags().Uint32Var(&channel, "channel", 1, "Physical output channel")
	cmd.Flags().StringVarP(&event, "event", "e", "on", "config, on or off")
	cmd.Flags().Uint32VarP(&note, "note", "n", 69, "MIDI note number")
	cmd.Flags().Float32VarP(&velocity, "velocity", "v", 1, "Note velocity in [0, 1]")
	cmd.Flags().Uint32VarP(&duration, "duration", "d", 0, "Release the note after this many milliseconds")
	cmd.Flags().StringVar(&waveform, "waveform", "saw", "sine, saw or square")
	cmd.Flags().Float32Var(&gain, "gain", 0, "Oscillator gain in dB")
	cmd.Flags().StringVar(&filter, "filter", "lowpass", "lowpass, bandpass or highpass")
	cmd.Flags().Float32Var(&cutoff, "cutoff", dsp.MaxCutoff, "Filter cutoff in Hz")
	cmd.Flags().Float32Var(&resonance, "resonance", 1, "Filter Q")
	return cmd
}

func newSendCacheCmd(opts *sendOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cache <uri>...",
		Short: "Send a cache_samples request",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return opts.send(transport.NewCacheSamples(args...))
		},
	}
}

func newSendStopCmd(opts *sendOptions) *cobra.Command {
	var channel uint32
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Send a stop_playback",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return opts.send(transport.NewStopPlayback(channel))
		},
	}
	cmd.Flags().Uint32Var(&channel, "channel", 1, "The channel to silence")
	return cmd
}
