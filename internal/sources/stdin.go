package sources

import (
	"bufio"
	"context"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	config "github.com/streamsmith/relay/pkg/config/v1"

	"github.com/streamsmith/relay/internal/events"
)

// stdinSource reads newline-delimited events from standard input.
type stdinSource struct {
	name   string
	log    logrus.FieldLogger
	clock  events.Clock
	reader io.Reader

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewStdinSource creates a new stdin source.
func NewStdinSource(name string, log logrus.FieldLogger, clock events.Clock) Source {
	return &stdinSource{
		name:   name,
		log:    log.WithField("source", name),
		clock:  clock,
		reader: os.Stdin,
	}
}

// NewReaderSource creates a stdin-style source reading from r. Used in tests.
func NewReaderSource(name string, log logrus.FieldLogger, clock events.Clock, r io.Reader) Source {
	return &stdinSource{
		name:   name,
		log:    log.WithField("source", name),
		clock:  clock,
		reader: r,
	}
}

// Start begins reading lines.
func (s *stdinSource) Start(ctx context.Context, out chan<- *events.LogEvent) error {
	s.log.Info("Starting stdin source")

	readCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		scanner := bufio.NewScanner(s.reader)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}

			select {
			case out <- events.NewLogEvent(s.name, line, s.clock.Now()):
			case <-readCtx.Done():
				return
			}
		}

		if err := scanner.Err(); err != nil {
			s.log.WithError(err).Error("Failed reading stdin")
		}
	}()

	return nil
}

// Stop stops publishing. A read blocked on stdin itself cannot be
// interrupted; the goroutine exits on the next line or on EOF.
func (s *stdinSource) Stop(ctx context.Context) error {
	s.log.Info("Stopping stdin source")

	if s.cancel != nil {
		s.cancel()
	}

	return nil
}

func (s *stdinSource) Name() string { return s.name }
func (s *stdinSource) Type() string { return config.SourceTypeStdin }
