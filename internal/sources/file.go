package sources

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	config "github.com/streamsmith/relay/pkg/config/v1"

	"github.com/streamsmith/relay/internal/events"
)

// pollInterval is how often the tailer checks for new data and rotation.
const pollInterval = 250 * time.Millisecond

// fileSource tails a file. It optionally reads existing content, follows
// appends and reopens the file when it is truncated or rotated away.
type fileSource struct {
	name      string
	log       logrus.FieldLogger
	clock     events.Clock
	path      string
	fromStart bool

	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewFileSource creates a new file source.
func NewFileSource(name string, conf *config.SourceConfig, log logrus.FieldLogger, clock events.Clock) Source {
	return &fileSource{
		name:      name,
		log:       log.WithField("source", name),
		clock:     clock,
		path:      conf.Path,
		fromStart: conf.ReadFromStart,
		done:      make(chan struct{}),
	}
}

// Start begins tailing the file.
func (s *fileSource) Start(ctx context.Context, out chan<- *events.LogEvent) error {
	s.log.WithField("path", s.path).Info("Starting file source")

	tailCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		s.tail(tailCtx, out)
	}()

	return nil
}

// Stop stops the tailer and waits for it to finish.
func (s *fileSource) Stop(ctx context.Context) error {
	s.log.Info("Stopping file source")

	if s.cancel != nil {
		s.cancel()
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

func (s *fileSource) Name() string { return s.name }
func (s *fileSource) Type() string { return config.SourceTypeFile }

func (s *fileSource) tail(ctx context.Context, out chan<- *events.LogEvent) {
	var (
		file    *os.File
		reader  *bufio.Reader
		offset  int64
		partial strings.Builder
	)

	defer func() {
		if file != nil {
			file.Close()
		}
	}()

	for {
		if file == nil {
			f, err := os.Open(s.path)
			if err != nil {
				if !s.sleep(ctx) {
					return
				}

				continue
			}

			file = f
			offset = 0

			if !s.fromStart {
				if end, seekErr := file.Seek(0, io.SeekEnd); seekErr == nil {
					offset = end
				}
			}

			reader = bufio.NewReader(file)
			// Only the first open honours read_from_start; reopens after
			// rotation always read the new file from the beginning.
			s.fromStart = true
		}

		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			offset += int64(len(line))
		}

		if err == nil {
			partial.WriteString(strings.TrimSuffix(line, "\n"))
			if !s.publish(ctx, out, partial.String()) {
				return
			}

			partial.Reset()

			continue
		}

		// Partial line without trailing newline: keep it until the rest
		// arrives.
		partial.WriteString(line)

		if rotated := s.detectRotation(file, offset); rotated {
			file.Close()

			file = nil
			partial.Reset()

			continue
		}

		if !s.sleep(ctx) {
			return
		}
	}
}

// detectRotation reports whether the file at the configured path is no
// longer the file being read, or has been truncated below our offset.
func (s *fileSource) detectRotation(file *os.File, offset int64) bool {
	current, err := os.Stat(s.path)
	if err != nil {
		// Path is gone; wait for it to reappear.
		return true
	}

	open, err := file.Stat()
	if err != nil {
		return true
	}

	if !os.SameFile(current, open) {
		s.log.Info("File rotated, reopening")

		return true
	}

	if current.Size() < offset {
		s.log.Info("File truncated, reopening")

		return true
	}

	return false
}

func (s *fileSource) publish(ctx context.Context, out chan<- *events.LogEvent, line string) bool {
	if line == "" {
		return true
	}

	select {
	case out <- events.NewLogEvent(s.name, line, s.clock.Now()):
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *fileSource) sleep(ctx context.Context) bool {
	select {
	case <-time.After(pollInterval):
		return true
	case <-ctx.Done():
		return false
	}
}
