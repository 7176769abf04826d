package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/beak/config"
	"github.com/opd-ai/beak/dsp"
	"github.com/opd-ai/beak/sample"
	"github.com/opd-ai/beak/transport"
)

func writeTone(t *testing.T, dir string, frames int) string {
	t.Helper()
	data := make([]float32, frames)
	for i := range data {
		data[i] = 0.25
	}
	buf, err := sample.NewBuffer(data, 1, 48000)
	require.NoError(t, err)
	path := filepath.Join(dir, "tone.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, sample.WriteWAV(f, buf))
	require.NoError(t, f.Close())
	return path
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Listen = "127.0.0.1:0"
	cfg.Audio.Backend = "null"
	cfg.Cache.Dir = filepath.Join(t.TempDir(), "cache")
	cfg.Cache.SampleRoot = t.TempDir()
	cfg.Metrics.Addr = "127.0.0.1:0"
	return cfg
}

func TestRootCommand(t *testing.T) {
	root := newRootCmd()
	assert.Equal(t, "beak", root.Use)

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "play", "send"} {
		assert.True(t, names[want], "missing command %s", want)
	}

	send, _, err := root.Find([]string{"send"})
	require.NoError(t, err)
	var subs []string
	for _, c := range send.Commands() {
		subs = append(subs, c.Name())
	}
	assert.ElementsMatch(t, []string{"play", "synth", "cache", "stop"}, subs)
}

func TestSendCommands(t *testing.T) {
	srv, err := transport.NewServer("127.0.0.1:0")
	require.NoError(t, err)
	got := make(chan *transport.Packet, 4)
	record := func(_ context.Context, p *transport.Packet, _ net.Addr) error {
		got <- p
		return nil
	}
	for _, ct := range []transport.ContentType{
		transport.ContentAudioFrame, transport.ContentSynthFrame,
		transport.ContentCacheSamples, transport.ContentStopPlayback,
	} {
		srv.RegisterHandler(ct, record)
	}
	require.NoError(t, srv.Start())
	defer srv.Close()
	port := strconv.Itoa(srv.LocalAddr().(*net.UDPAddr).Port)

	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, p *transport.Packet)
	}{
		{
			name: "play",
			args: []string{"play", "--file", "kick.wav", "--channel", "3"},
			check: func(t *testing.T, p *transport.Packet) {
				require.NotNil(t, p.AudioFrame)
				assert.Equal(t, "kick.wav", p.AudioFrame.URI)
				assert.Equal(t, uint32(3), p.AudioFrame.Channel)
			},
		},
		{
			name: "synth",
			args: []string{"synth", "-e", "on", "-n", "60", "-d", "500", "--waveform", "square", "--cutoff", "1200"},
			check: func(t *testing.T, p *transport.Packet) {
				f := p.SynthFrame
				require.NotNil(t, f)
				assert.Equal(t, transport.SynthNoteOn, f.Event)
				assert.Equal(t, uint32(60), f.Note)
				assert.Equal(t, uint32(500), f.Duration)
				require.NotNil(t, f.Osc)
				assert.Equal(t, transport.WaveformSquare, f.Osc.Type)
				require.NotNil(t, f.Filter)
				assert.Equal(t, float32(1200), f.Filter.Cutoff)
				assert.Nil(t, f.AmpADSR)
			},
		},
		{
			name: "cache",
			args: []string{"cache", "a.wav", "http://example.com/b.mp3"},
			check: func(t *testing.T, p *transport.Packet) {
				require.NotNil(t, p.CacheSamples)
				assert.Equal(t, []string{"a.wav", "http://example.com/b.mp3"}, p.CacheSamples.URIs)
			},
		},
		{
			name: "stop",
			args: []string{"stop", "--channel", "2"},
			check: func(t *testing.T, p *transport.Packet) {
				require.NotNil(t, p.StopPlayback)
				assert.Equal(t, uint32(2), p.StopPlayback.Channel)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := newRootCmd()
			root.SetArgs(append([]string{"send", "--port", port}, tt.args...))
			require.NoError(t, root.Execute())
			select {
			case p := <-got:
				tt.check(t, p)
			case <-time.After(2 * time.Second):
				t.Fatal("packet not received")
			}
		})
	}
}

func TestSendCommand_Errors(t *testing.T) {
	tests := [][]string{
		{"send", "play"},
		{"send", "cache"},
		{"send", "synth", "-e", "bend"},
		{"send", "synth", "--waveform", "triangle"},
	}
	for _, args := range tests {
		root := newRootCmd()
		root.SetOut(io.Discard)
		root.SetErr(io.Discard)
		root.SetArgs(args)
		assert.Error(t, root.Execute(), "%v", args)
	}
}

func TestRunDaemon(t *testing.T) {
	cfg := testConfig(t)
	writeTone(t, cfg.Cache.SampleRoot, 4800)

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan daemon, 1)
	done := make(chan error, 1)
	go func() { done <- runDaemon(ctx, cfg, ready) }()

	var d daemon
	select {
	case d = <-ready:
	case err := <-done:
		t.Fatalf("daemon exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon not ready")
	}

	client, err := transport.Dial(d.controlAddr.String())
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.Send(transport.NewAudioFrame("tone.wav", 1)))
	require.NoError(t, client.Send(transport.NewSynthFrame(&transport.SynthFrame{
		Channel: 2, Event: transport.SynthNoteOn, Note: 60, Velocity: 1, Duration: 200,
	})))

	require.Eventually(t, func() bool {
		return d.engine.Stats().Played == 1
	}, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		stage, err := d.engine.VoiceStage(2)
		return err == nil && stage != dsp.StageIdle
	}, 2*time.Second, 5*time.Millisecond, "note started")
	require.Eventually(t, func() bool {
		stage, err := d.engine.VoiceStage(2)
		return err == nil && stage == dsp.StageIdle && d.engine.Stats().PendingNotes == 0
	}, 2*time.Second, 10*time.Millisecond, "timed note released")

	resp, err := http.Get("http://" + d.metricsAddr.String() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "beak_engine_played_total 1")
	assert.Contains(t, string(body), "beak_cache_entries 1")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}
}

func TestPlayFile(t *testing.T) {
	cfg := testConfig(t)
	path := writeTone(t, t.TempDir(), 2400)

	start := time.Now()
	require.NoError(t, playFile(context.Background(), cfg, path, 1))
	assert.Less(t, time.Since(start), 5*time.Second)

	err := playFile(context.Background(), cfg, filepath.Join(t.TempDir(), "missing.wav"), 1)
	assert.Error(t, err)
}

func TestPlayTimeout(t *testing.T) {
	tests := []struct {
		name    string
		seconds int
	}{
		{name: "short clip", seconds: 1},
		{name: "past the cache limit", seconds: 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const rate = 8000
			buf, err := sample.NewBuffer(make([]float32, tt.seconds*rate), 1, rate)
			require.NoError(t, err)

			got := playTimeout(buf)
			assert.Greater(t, got, time.Duration(tt.seconds)*time.Second)
			assert.Equal(t, buf.Duration()+playGrace, got)
		})
	}
}

func TestPlayFile_VirtualOutputs(t *testing.T) {
	cfg := testConfig(t)
	cfg.Audio.VirtualOutputs = 4
	path := writeTone(t, t.TempDir(), 24000)

	start := time.Now()
	require.NoError(t, playFile(context.Background(), cfg, path, 3))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestOverrides_Apply(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		check   func(t *testing.T, cfg *config.Config)
		wantErr bool
	}{
		{
			name: "nothing set keeps config",
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, *config.Default(), *cfg)
			},
		},
		{
			name: "server flags",
			args: []string{"--port", "7000", "--backend", "null", "--virtual-outputs", "4", "--monitor", "--metrics", "127.0.0.1:9100"},
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, "0.0.0.0:7000", cfg.Server.Listen)
				assert.Equal(t, "null", cfg.Audio.Backend)
				assert.Equal(t, 4, cfg.Audio.VirtualOutputs)
				assert.True(t, cfg.Audio.Monitor)
				assert.Equal(t, "127.0.0.1:9100", cfg.Metrics.Addr)
				assert.Equal(t, 2, cfg.Audio.Outputs, "unset flag default not applied")
			},
		},
		{
			name:    "invalid outputs",
			args:    []string{"--outputs", "0"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var o overrides
			fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
			o.bindServer(fs)
			require.NoError(t, fs.Parse(tt.args))

			cfg := config.Default()
			err := o.apply(fs, cfg)
			if tt.wantErr {
				assert.ErrorIs(t, err, config.ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}
