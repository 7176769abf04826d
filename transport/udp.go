package transport

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/beak/limits"
)

const (
	// readTimeout bounds how long the read loop blocks, so Close is prompt.
	readTimeout = 100 * time.Millisecond

	// DefaultQueueSize is the per content type backlog before packets are
	// dropped.
	DefaultQueueSize = 64
)

// ServerStats counts packets by outcome.
type ServerStats struct {
	Received  uint64
	Malformed uint64
	Unhandled uint64
	Dropped   uint64
	Handled   uint64
	Failed    uint64
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithQueueSize sets the per content type backlog.
func WithQueueSize(n int) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

type job struct {
	id     string
	packet *Packet
	addr   net.Addr
}

// worker runs the handler of one content type in arrival order.
type worker struct {
	content ContentType
	queue   chan job
	handler atomic.Pointer[Handler]
}

// Server receives control packets over UDP.
type Server struct {
	conn      net.PacketConn
	queueSize int

	mu      sync.RWMutex
	workers map[ContentType]*worker
	started bool
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once

	received  atomic.Uint64
	malformed atomic.Uint64
	unhandled atomic.Uint64
	dropped   atomic.Uint64
	handled   atomic.Uint64
	failed    atomic.Uint64
}

// NewServer binds listenAddr. Packets are not read until Start.
func NewServer(listenAddr string, opts ...ServerOption) (*Server, error) {
	conn, err := net.ListenPacket("udp", listenAddr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		conn:      conn,
		queueSize: DefaultQueueSize,
		workers:   make(map[ContentType]*worker),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(s)
	}

	logrus.WithFields(logrus.Fields{
		"function":   "NewServer",
		"local_addr": conn.LocalAddr().String(),
		"queue_size": s.queueSize,
	}).Info("Control server bound")

	return s, nil
}

// RegisterHandler sets the handler for a content type, replacing any
// previous one. Packets already queued run with the new handler.
func (s *Server) RegisterHandler(ct ContentType, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w, ok := s.workers[ct]; ok {
		w.handler.Store(&h)
		return
	}
	w := &worker{content: ct, queue: make(chan job, s.queueSize)}
	w.handler.Store(&h)
	s.workers[ct] = w
	if s.started && !s.closed {
		s.startWorker(w)
	}
}

// Start begins reading packets.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrServerClosed
	}
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true
	for _, w := range s.workers {
		s.startWorker(w)
	}
	s.wg.Add(1)
	go s.processPackets()

	logrus.WithFields(logrus.Fields{
		"function":   "Server.Start",
		"local_addr": s.conn.LocalAddr().String(),
		"handlers":   len(s.workers),
	}).Info("Control server started")

	return nil
}

func (s *Server) startWorker(w *worker) {
	s.wg.Add(1)
	go s.runWorker(w)
}

// Send encodes p and writes it to addr.
func (s *Server) Send(p *Packet, addr net.Addr) error {
	data, err := p.Marshal()
	if err != nil {
		return err
	}
	_, err = s.conn.WriteTo(data, addr)
	return err
}

// Close stops reading, waits for in-flight handlers and releases the socket.
func (s *Server) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		s.cancel()
		err = s.conn.Close()
		s.wg.Wait()

		logrus.WithFields(logrus.Fields{
			"function": "Server.Close",
			"received": s.received.Load(),
			"handled":  s.handled.Load(),
		}).Info("Control server stopped")
	})
	return err
}

// LocalAddr returns the bound address.
func (s *Server) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

// Stats returns a snapshot of packet counters.
func (s *Server) Stats() ServerStats {
	return ServerStats{
		Received:  s.received.Load(),
		Malformed: s.malformed.Load(),
		Unhandled: s.unhandled.Load(),
		Dropped:   s.dropped.Load(),
		Handled:   s.handled.Load(),
		Failed:    s.failed.Load(),
	}
}

func (s *Server) processPackets() {
	defer s.wg.Done()
	buffer := make([]byte, limits.MaxDatagramSize+1)

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
			s.processIncomingPacket(buffer)
		}
	}
}

func (s *Server) processIncomingPacket(buffer []byte) {
	_ = s.conn.SetReadDeadline(time.Now().Add(readTimeout))

	n, addr, err := s.conn.ReadFrom(buffer)
	if err != nil {
		s.handleReadError(err)
		return
	}
	s.received.Add(1)

	id := uuid.NewString()
	packet, err := ParsePacket(buffer[:n])
	if err != nil {
		s.malformed.Add(1)
		logrus.WithFields(logrus.Fields{
			"function":    "Server.processIncomingPacket",
			"request_id":  id,
			"remote_addr": addr.String(),
			"size":        n,
			"error":       err.Error(),
		}).Warn("Dropping malformed packet")
		return
	}

	s.dispatch(job{id: id, packet: packet, addr: addr})
}

func (s *Server) handleReadError(err error) {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return
	}
	if s.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
		return
	}
	logrus.WithFields(logrus.Fields{
		"function": "Server.handleReadError",
		"error":    err.Error(),
	}).Warn("Control socket read failed")
}

func (s *Server) dispatch(j job) {
	s.mu.RLock()
	w, ok := s.workers[j.packet.Content]
	s.mu.RUnlock()

	fields := logrus.Fields{
		"function":    "Server.dispatch",
		"request_id":  j.id,
		"content":     j.packet.Content.String(),
		"remote_addr": j.addr.String(),
	}
	if !ok {
		s.unhandled.Add(1)
		logrus.WithFields(fields).Debug("No handler for content type")
		return
	}

	select {
	case w.queue <- j:
		logrus.WithFields(fields).Debug("Packet queued")
	default:
		s.dropped.Add(1)
		logrus.WithFields(fields).Warn("Handler backlog full, dropping packet")
	}
}

func (s *Server) runWorker(w *worker) {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case j := <-w.queue:
			s.handle(w, j)
		}
	}
}

func (s *Server) handle(w *worker, j job) {
	h := *w.handler.Load()
	start := time.Now()
	err := h(s.ctx, j.packet, j.addr)

	fields := logrus.Fields{
		"function":    "Server.handle",
		"request_id":  j.id,
		"content":     w.content.String(),
		"remote_addr": j.addr.String(),
		"elapsed":     time.Since(start).String(),
	}
	if err != nil {
		s.failed.Add(1)
		fields["error"] = err.Error()
		logrus.WithFields(fields).Warn("Handler failed, packet dropped")
		return
	}
	s.handled.Add(1)
	logrus.WithFields(fields).Debug("Packet handled")
}
