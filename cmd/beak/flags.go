package main

import (
	"net"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/opd-ai/beak/config"
)

// overrides holds flags that take precedence over the configuration file
// and environment. Only flags set on the command line are applied.
type overrides struct {
	port           int
	device         string
	backend        string
	inputs         int
	outputs        int
	virtualOutputs int
	monitor        bool
	cacheDir       string
	sampleRoot     string
	metricsAddr    string
}

func (o *overrides) bindAudio(fs *pflag.FlagSet) {
	fs.StringVar(&o.device, "device", "", "Audio device name")
	fs.StringVar(&o.backend, "backend", "", "Audio backend (oto, null)")
	fs.IntVar(&o.outputs, "outputs", 2, "Number of device output channels")
}

func (o *overrides) bindServer(fs *pflag.FlagSet) {
	o.bindAudio(fs)
	fs.IntVar(&o.port, "port", config.DefaultPort, "UDP control port")
	fs.IntVar(&o.inputs, "inputs", 0, "Number of device input channels")
	fs.IntVar(&o.virtualOutputs, "virtual-outputs", 0, "Virtual playback channels mixed to stereo")
	fs.BoolVar(&o.monitor, "monitor", false, "Route each input to the matching output")
	fs.StringVar(&o.cacheDir, "cache", "", "Cache directory for downloaded assets")
	fs.StringVar(&o.sampleRoot, "sample-root", "", "Directory local assets are served from")
	fs.StringVar(&o.metricsAddr, "metrics", "", "Metrics listen address, empty to disable")
}

func (o *overrides) apply(fs *pflag.FlagSet, cfg *config.Config) error {
	if fs.Changed("port") {
		host, _, err := net.SplitHostPort(cfg.Server.Listen)
		if err != nil {
			return err
		}
		cfg.Server.Listen = net.JoinHostPort(host, strconv.Itoa(o.port))
	}
	if fs.Changed("device") {
		cfg.Audio.Device = o.device
	}
	if fs.Changed("backend") {
		cfg.Audio.Backend = o.backend
	}
	if fs.Changed("inputs") {
		cfg.Audio.Inputs = o.inputs
	}
	if fs.Changed("outputs") {
		cfg.Audio.Outputs = o.outputs
	}
	if fs.Changed("virtual-outputs") {
		cfg.Audio.VirtualOutputs = o.virtualOutputs
	}
	if fs.Changed("monitor") {
		cfg.Audio.Monitor = o.monitor
	}
	if fs.Changed("cache") {
		cfg.Cache.Dir = o.cacheDir
	}
	if fs.Changed("sample-root") {
		cfg.Cache.SampleRoot = o.sampleRoot
	}
	if fs.Changed("metrics") {
		cfg.Metrics.Addr = o.metricsAddr
	}
	return cfg.Validate()
}
