package engine

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/beak/graph"
	"github.com/opd-ai/beak/nodes"
	"github.com/opd-ai/beak/sample"
)

// PlaySound plays buf once on channel and returns the id of the node
// playing it. In virtual-output mode the channel's sampler is retriggered
// and its id returned.
func (e *Engine) PlaySound(buf *sample.Buffer, channel int, name string) (graph.NodeID, error) {
	if buf == nil {
		return 0, nodes.ErrNilBuffer
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireConfigured(); err != nil {
		return 0, err
	}
	if err := e.channels.Validate(channel); err != nil {
		return 0, invalidChannel(err)
	}
	if e.samplers != nil {
		return e.triggerLocked(buf, channel, name)
	}

	p, err := nodes.NewPlayer(buf, name)
	if err != nil {
		return 0, err
	}
	return e.playLocked(p, channel)
}

// PlayFile decodes path and plays it once on channel.
func (e *Engine) PlayFile(path string, channel int) (graph.NodeID, error) {
	e.mu.Lock()
	if err := e.requireConfigured(); err != nil {
		e.mu.Unlock()
		return 0, err
	}
	if err := e.channels.Validate(channel); err != nil {
		e.mu.Unlock()
		return 0, invalidChannel(err)
	}
	e.mu.Unlock()

	// decode outside the lock; it may take a while
	p, err := nodes.NewPlayerFromFile(path)
	if err != nil {
		return 0, err
	}
	return e.Play(p, channel)
}

// Play inserts a prepared-by-the-graph player on channel and starts it.
func (e *Engine) Play(p *nodes.Player, channel int) (graph.NodeID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireConfigured(); err != nil {
		return 0, err
	}
	if err := e.channels.Validate(channel); err != nil {
		return 0, invalidChannel(err)
	}
	if e.samplers != nil {
		return e.triggerLocked(p.Source(), channel, p.Name())
	}
	return e.playLocked(p, channel)
}

func (e *Engine) playLocked(p *nodes.Player, channel int) (graph.NodeID, error) {
	bus := e.buses[e.channels.Index(channel)]

	id, err := e.graph.AddNode(p)
	if err != nil {
		return 0, fmt.Errorf("%w: add player: %w", ErrInvariantViolation, err)
	}
	if err := e.graph.AddConnection(link(id, 0, bus.id, 0)); err != nil {
		e.graph.RemoveNode(id)
		return 0, fmt.Errorf("%w: connect player: %w", ErrInvariantViolation, err)
	}
	if err := p.Start(); err != nil {
		e.graph.RemoveNode(id)
		return 0, fmt.Errorf("%w: start player: %w", ErrInvariantViolation, err)
	}

	e.oneShots[id] = oneShot{channel: channel, player: p, started: e.clock.Now()}
	e.played++

	logrus.WithFields(logrus.Fields{
		"function": "Engine.PlaySound",
		"node_id":  id,
		"name":     p.Name(),
		"channel":  channel,
		"frames":   p.Source().Frames(),
	}).Debug("Started one-shot playback")

	return id, nil
}

func (e *Engine) triggerLocked(buf *sample.Buffer, channel int, name string) (graph.NodeID, error) {
	slot := e.samplers[e.channels.Index(channel)]
	if err := slot.sampler.Trigger(buf); err != nil {
		return 0, fmt.Errorf("%w: trigger sampler: %w", ErrInvariantViolation, err)
	}
	e.played++

	logrus.WithFields(logrus.Fields{
		"function": "Engine.PlaySound",
		"node_id":  slot.id,
		"name":     name,
		"channel":  channel,
	}).Debug("Triggered virtual channel sampler")

	return slot.id, nil
}

// StopPlayback silences channel: its voice is hard-reset, its sampler
// stopped and every one-shot player on it finished and swept.
func (e *Engine) StopPlayback(channel int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireConfigured(); err != nil {
		return err
	}
	if err := e.channels.Validate(channel); err != nil {
		return invalidChannel(err)
	}

	if e.physical.Validate(channel) == nil {
		e.voices[e.physical.Index(channel)].voice.Stop()
		delete(e.notes, e.physical.Index(channel))
	}
	if e.samplers != nil {
		e.samplers[e.channels.Index(channel)].sampler.Stop()
	}

	stopped := 0
	for _, s := range e.oneShots {
		if s.channel == channel {
			s.player.Stop()
			stopped++
		}
	}
	removed := e.sweepLocked()

	logrus.WithFields(logrus.Fields{
		"function": "Engine.StopPlayback",
		"channel":  channel,
		"stopped":  stopped,
		"removed":  removed,
	}).Debug("Stopped channel playback")

	return nil
}

// PlaybackState returns the lifecycle state of a playback node.
func (e *Engine) PlaybackState(id graph.NodeID) (graph.State, error) {
	n, ok := e.graph.Node(id)
	if !ok {
		return graph.StateIdle, fmt.Errorf("%w: %d", graph.ErrNodeNotFound, id)
	}
	if _, ok := graph.AsPlayback(n); !ok {
		return graph.StateIdle, fmt.Errorf("%w: node %d (%s) has no playback capability", ErrInvariantViolation, id, n.Name())
	}
	return n.State(), nil
}

// Sweep removes every finished one-shot player and reclaims retired nodes.
// It returns the number of players removed.
func (e *Engine) Sweep() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sweepLocked()
}

func (e *Engine) sweepLocked() int {
	removed := 0
	for id, s := range e.oneShots {
		if s.player.State() != graph.StateFinished {
			continue
		}
		if err := e.graph.RemoveNode(id); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Engine.Sweep",
				"node_id":  id,
				"error":    err.Error(),
			}).Error("One-shot bookkeeping out of sync with graph")
		}
		delete(e.oneShots, id)
		removed++

		logrus.WithFields(logrus.Fields{
			"function": "Engine.Sweep",
			"node_id":  id,
			"channel":  s.channel,
			"lifetime": e.clock.Now().Sub(s.started).String(),
		}).Debug("Removed finished one-shot")
	}
	e.removed += uint64(removed)
	e.graph.Reclaim()
	return removed
}

func (e *Engine) cleanupLoop(interval time.Duration, stop <-chan struct{}) {
	defer e.wg.Done()
	ticker := e.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-e.graph.Completed():
			e.Sweep()
		case <-ticker.C:
			e.Sweep()
		}
	}
}
