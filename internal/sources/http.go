package sources

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	config "github.com/streamsmith/relay/pkg/config/v1"

	"github.com/streamsmith/relay/internal/events"
)

// httpSource accepts events via HTTP POST. Request bodies are either
// newline-delimited JSON/text or a single JSON array of objects.
type httpSource struct {
	name    string
	log     logrus.FieldLogger
	clock   events.Clock
	address string

	server   *http.Server
	listener net.Listener
	out      chan<- *events.LogEvent
	ctx      context.Context
}

// NewHTTPSource creates a new HTTP source.
func NewHTTPSource(name string, conf *config.SourceConfig, log logrus.FieldLogger, clock events.Clock) Source {
	return &httpSource{
		name:    name,
		log:     log.WithField("source", name),
		clock:   clock,
		address: conf.Address,
	}
}

// Start binds the listener and serves in the background.
func (s *httpSource) Start(ctx context.Context, out chan<- *events.LogEvent) error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	s.listener = listener
	s.out = out
	s.ctx = ctx

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIngest)

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 15 * time.Second,
	}

	s.log.WithField("address", listener.Addr().String()).Info("Starting http source")

	go func() {
		if serveErr := s.server.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.log.WithError(serveErr).Error("Failed to serve http source")
		}
	}()

	return nil
}

// Stop shuts the server down, waiting for in-flight requests.
func (s *httpSource) Stop(ctx context.Context) error {
	s.log.Info("Stopping http source")

	if s.server == nil {
		return nil
	}

	return s.server.Shutdown(ctx)
}

func (s *httpSource) Name() string { return s.name }
func (s *httpSource) Type() string { return config.SourceTypeHTTP }

// Address returns the bound listener address.
func (s *httpSource) Address() string {
	if s.listener == nil {
		return s.address
	}

	return s.listener.Addr().String()
}

func (s *httpSource) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)

		return
	}

	defer r.Body.Close()

	reader := bufio.NewReader(r.Body)

	first, err := reader.Peek(1)
	if err != nil {
		http.Error(w, "empty body", http.StatusBadRequest)

		return
	}

	var accepted int

	if first[0] == '[' {
		accepted, err = s.ingestArray(reader)
	} else {
		accepted, err = s.ingestLines(reader)
	}

	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	fmt.Fprintf(w, "{\"accepted\":%d}\n", accepted)
}

// ingestArray decodes a JSON array of objects, one event per element.
func (s *httpSource) ingestArray(reader *bufio.Reader) (int, error) {
	var items []map[string]any
	if err := json.NewDecoder(reader).Decode(&items); err != nil {
		return 0, err
	}

	var count int

	for _, item := range items {
		event := s.eventFromObject(item)
		if !s.publish(event) {
			break
		}

		count++
	}

	return count, nil
}

// ingestLines treats each non-empty line as one event. Lines that parse as
// JSON objects contribute their fields.
func (s *httpSource) ingestLines(reader *bufio.Reader) (int, error) {
	var count int

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var (
			event *events.LogEvent
			item  map[string]any
		)

		if json.Unmarshal([]byte(line), &item) == nil {
			event = s.eventFromObject(item)
		} else {
			event = events.NewLogEvent(s.name, line, s.clock.Now())
		}

		if !s.publish(event) {
			break
		}

		count++
	}

	return count, scanner.Err()
}

// eventFromObject builds an event from a decoded JSON object. A "message"
// key becomes the raw message; everything else becomes fields.
func (s *httpSource) eventFromObject(item map[string]any) *events.LogEvent {
	var message string
	if m, ok := item["message"].(string); ok {
		message = m
	}

	event := events.NewLogEvent(s.name, message, s.clock.Now())

	for k, v := range item {
		if k == "message" {
			continue
		}

		event.SetField(k, v)
	}

	return event
}

func (s *httpSource) publish(event *events.LogEvent) bool {
	select {
	case s.out <- event:
		return true
	case <-s.ctx.Done():
		return false
	}
}
