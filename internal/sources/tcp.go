package sources

import (
	"bufio"
	"context"
	"net"
	"sync"

	"github.com/sirupsen/logrus"
	config "github.com/streamsmith/relay/pkg/config/v1"

	"github.com/streamsmith/relay/internal/events"
)

// tcpSource listens on a TCP address and turns each received line into an
// event.
type tcpSource struct {
	name    string
	log     logrus.FieldLogger
	clock   events.Clock
	address string

	listener net.Listener
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewTCPSource creates a new TCP source.
func NewTCPSource(name string, conf *config.SourceConfig, log logrus.FieldLogger, clock events.Clock) Source {
	return &tcpSource{
		name:    name,
		log:     log.WithField("source", name),
		clock:   clock,
		address: conf.Address,
	}
}

// Start binds the listener and begins accepting connections.
func (s *tcpSource) Start(ctx context.Context, out chan<- *events.LogEvent) error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	s.listener = listener
	s.log.WithField("address", listener.Addr().String()).Info("Starting tcp source")

	acceptCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		s.accept(acceptCtx, out)
	}()

	return nil
}

// Stop closes the listener and waits for open connections to drain.
func (s *tcpSource) Stop(ctx context.Context) error {
	s.log.Info("Stopping tcp source")

	if s.cancel != nil {
		s.cancel()
	}

	if s.listener != nil {
		s.listener.Close()
	}

	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *tcpSource) Name() string { return s.name }
func (s *tcpSource) Type() string { return config.SourceTypeTCP }

// Address returns the bound listener address. Useful when the configured
// address uses port 0.
func (s *tcpSource) Address() string {
	if s.listener == nil {
		return s.address
	}

	return s.listener.Addr().String()
}

func (s *tcpSource) accept(ctx context.Context, out chan<- *events.LogEvent) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
			default:
				s.log.WithError(err).Debug("Accept failed")
			}

			return
		}

		s.wg.Add(1)

		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn, out)
		}()
	}
}

func (s *tcpSource) handleConn(ctx context.Context, conn net.Conn, out chan<- *events.LogEvent) {
	defer conn.Close()

	// Close the connection when the source shuts down so blocked reads
	// return.
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		select {
		case out <- events.NewLogEvent(s.name, line, s.clock.Now()):
		case <-ctx.Done():
			return
		}
	}
}
