package transport

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, register func(s *Server)) (*Server, *Client) {
	t.Helper()
	srv, err := NewServer("127.0.0.1:0")
	require.NoError(t, err)
	if register != nil {
		register(srv)
	}
	require.NoError(t, srv.Start())
	t.Cleanup(func() { srv.Close() })

	c, err := Dial(srv.LocalAddr().String())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return srv, c
}

func TestServer_DeliversPackets(t *testing.T) {
	got := make(chan *Packet, 1)
	_, c := startServer(t, func(s *Server) {
		s.RegisterHandler(ContentAudioFrame, func(_ context.Context, p *Packet, addr net.Addr) error {
			got <- p
			return nil
		})
	})

	require.NoError(t, c.Send(NewAudioFrame("kick.wav", 2)))
	select {
	case p := <-got:
		assert.Equal(t, "kick.wav", p.AudioFrame.URI)
		assert.Equal(t, uint32(2), p.AudioFrame.Channel)
	case <-time.After(2 * time.Second):
		t.Fatal("packet not delivered")
	}
}

func TestServer_PreservesOrderPerContentType(t *testing.T) {
	const n = 40
	notes := make(chan uint32, n)
	srv, c := startServer(t, func(s *Server) {
		s.RegisterHandler(ContentSynthFrame, func(_ context.Context, p *Packet, _ net.Addr) error {
			notes <- p.SynthFrame.Note
			return nil
		})
	})

	for i := 0; i < n; i++ {
		require.NoError(t, c.Send(NewSynthFrame(&SynthFrame{Channel: 1, Event: SynthNoteOn, Note: uint32(i)})))
	}

	for i := 0; i < n; i++ {
		select {
		case note := <-notes:
			assert.Equal(t, uint32(i), note)
		case <-time.After(2 * time.Second):
			t.Fatalf("received %d of %d packets, stats %+v", i, n, srv.Stats())
		}
	}
}

func TestServer_SlowHandlerDoesNotBlockOthers(t *testing.T) {
	release := make(chan struct{})
	synth := make(chan struct{}, 1)
	_, c := startServer(t, func(s *Server) {
		s.RegisterHandler(ContentCacheSamples, func(ctx context.Context, _ *Packet, _ net.Addr) error {
			select {
			case <-release:
			case <-ctx.Done():
			}
			return nil
		})
		s.RegisterHandler(ContentSynthFrame, func(context.Context, *Packet, net.Addr) error {
			synth <- struct{}{}
			return nil
		})
	})
	defer close(release)

	require.NoError(t, c.Send(NewCacheSamples("https://example.com/big.wav")))
	require.NoError(t, c.Send(NewSynthFrame(&SynthFrame{Channel: 1, Event: SynthNoteOn, Note: 60})))

	select {
	case <-synth:
	case <-time.After(2 * time.Second):
		t.Fatal("synth frame stalled behind cache download")
	}
}

func TestServer_CountsOutcomes(t *testing.T) {
	srv, c := startServer(t, func(s *Server) {
		s.RegisterHandler(ContentAudioFrame, func(context.Context, *Packet, net.Addr) error {
			return errors.New("unknown asset")
		})
	})

	raw, err := net.Dial("udp", srv.LocalAddr().String())
	require.NoError(t, err)
	defer raw.Close()

	_, err = raw.Write([]byte{0xff, 0xff})
	require.NoError(t, err)
	require.NoError(t, c.Send(NewStopPlayback(1)))
	require.NoError(t, c.Send(NewAudioFrame("missing.wav", 1)))

	assert.Eventually(t, func() bool {
		s := srv.Stats()
		return s.Received == 3 && s.Malformed == 1 && s.Unhandled == 1 && s.Failed == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, uint64(0), srv.Stats().Handled)
}

func TestServer_RegisterAfterStart(t *testing.T) {
	srv, c := startServer(t, nil)
	got := make(chan uint32, 1)
	srv.RegisterHandler(ContentStopPlayback, func(_ context.Context, p *Packet, _ net.Addr) error {
		got <- p.StopPlayback.Channel
		return nil
	})

	require.NoError(t, c.Send(NewStopPlayback(5)))
	select {
	case ch := <-got:
		assert.Equal(t, uint32(5), ch)
	case <-time.After(2 * time.Second):
		t.Fatal("late handler not running")
	}
}

func TestServer_Send(t *testing.T) {
	srv, _ := startServer(t, nil)

	peer, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer peer.Close()

	require.NoError(t, srv.Send(NewStopPlayback(3), peer.LocalAddr()))

	buf := make([]byte, 64)
	require.NoError(t, peer.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, _, err := peer.ReadFrom(buf)
	require.NoError(t, err)
	p, err := ParsePacket(buf[:n])
	require.NoError(t, err)
	assert.Equal(t, uint32(3), p.StopPlayback.Channel)
}

func TestServer_Lifecycle(t *testing.T) {
	srv, err := NewServer("127.0.0.1:0")
	require.NoError(t, err)

	require.NoError(t, srv.Start())
	assert.True(t, errors.Is(srv.Start(), ErrAlreadyStarted))

	done := make(chan error, 1)
	go func() { done <- srv.Close() }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("close blocked on the read loop")
	}
	assert.NoError(t, srv.Close(), "second close is a no-op")
	assert.True(t, errors.Is(srv.Start(), ErrServerClosed))
}
