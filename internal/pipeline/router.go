// Package pipeline wires sources through transform chains into sinks per
// the declarative configuration and manages the flow of events between them.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	config "github.com/streamsmith/relay/pkg/config/v1"

	"github.com/streamsmith/relay/internal/events"
	"github.com/streamsmith/relay/internal/sinks"
	"github.com/streamsmith/relay/internal/sources"
	"github.com/streamsmith/relay/internal/transforms"
)

// Router executes the configured pipeline graph. Each source publishes into
// its own bounded channel; a dispatcher fans source events out to every
// pipeline that references the source; pipeline workers run the transform
// chain and fan the surviving events out to per-sink worker channels.
// Bounded channels provide backpressure between all stages.
type Router struct {
	log     logrus.FieldLogger
	cfg     *config.Config
	metrics *events.Metrics
	summary *events.Summary

	sources    map[string]sources.Source
	transforms map[string]transforms.Transform
	sinks      map[string]sinks.Sink

	sourceChans map[string]chan *events.LogEvent
	pipelines   []*pipelineUnit

	quitDispatch  chan struct{}
	quitPipelines chan struct{}
	quitSinks     chan struct{}

	dispatchWg sync.WaitGroup
	pipelineWg sync.WaitGroup
	sinkWg     sync.WaitGroup
}

// pipelineUnit is one configured pipeline: an input channel fed by the
// dispatchers, an ordered transform chain and one worker channel per sink.
type pipelineUnit struct {
	id    string
	input chan *events.LogEvent
	chain []transforms.Transform

	sinkNames []string
	sinkChans []chan *events.LogEvent
}

// New builds a router over already-constructed components. The config must
// have been validated.
func New(
	log logrus.FieldLogger,
	cfg *config.Config,
	metrics *events.Metrics,
	summary *events.Summary,
	srcs map[string]sources.Source,
	trs map[string]transforms.Transform,
	snks map[string]sinks.Sink,
) (*Router, error) {
	r := &Router{
		log:           log.WithField("module", "pipeline"),
		cfg:           cfg,
		metrics:       metrics,
		summary:       summary,
		sources:       srcs,
		transforms:    trs,
		sinks:         snks,
		sourceChans:   make(map[string]chan *events.LogEvent),
		quitDispatch:  make(chan struct{}),
		quitPipelines: make(chan struct{}),
		quitSinks:     make(chan struct{}),
	}

	for id, pconf := range cfg.Pipelines {
		unit := &pipelineUnit{
			id:    id,
			input: make(chan *events.LogEvent, cfg.BufferSize),
		}

		for _, ref := range pconf.Transforms {
			tr, ok := trs[ref]
			if !ok {
				return nil, fmt.Errorf("pipeline %q: transform %q not built", id, ref)
			}

			unit.chain = append(unit.chain, tr)
		}

		for _, ref := range pconf.Sinks {
			if _, ok := snks[ref]; !ok {
				return nil, fmt.Errorf("pipeline %q: sink %q not built", id, ref)
			}

			unit.sinkNames = append(unit.sinkNames, ref)
			unit.sinkChans = append(unit.sinkChans, make(chan *events.LogEvent, cfg.BufferSize))
		}

		for _, ref := range pconf.Sources {
			if _, ok := srcs[ref]; !ok {
				return nil, fmt.Errorf("pipeline %q: source %q not built", id, ref)
			}
		}

		r.pipelines = append(r.pipelines, unit)
	}

	for id := range srcs {
		r.sourceChans[id] = make(chan *events.LogEvent, cfg.BufferSize)
	}

	return r, nil
}

// Start brings the graph up: sinks and transforms first, then the workers,
// then the sources.
func (r *Router) Start(ctx context.Context) error {
	r.log.WithFields(logrus.Fields{
		"sources":   len(r.sources),
		"pipelines": len(r.pipelines),
		"sinks":     len(r.sinks),
	}).Info("Starting router")

	for _, sink := range r.sinks {
		if err := sink.Start(ctx); err != nil {
			return fmt.Errorf("failed to start sink %s: %w", sink.Name(), err)
		}
	}

	for _, tr := range r.transforms {
		if err := tr.Start(ctx); err != nil {
			return fmt.Errorf("failed to start transform %s: %w", tr.Name(), err)
		}
	}

	for _, unit := range r.pipelines {
		for i, name := range unit.sinkNames {
			r.sinkWg.Add(1)

			go r.runSinkWorker(ctx, unit.sinkChans[i], r.sinks[name])
		}

		r.pipelineWg.Add(1)

		go r.runPipeline(ctx, unit)
	}

	for id, src := range r.sources {
		inputs := r.subscribers(id)
		if len(inputs) == 0 {
			r.log.WithField("source", id).Warn("Source is not referenced by any pipeline")
		}

		r.dispatchWg.Add(1)

		go r.runDispatcher(src, r.sourceChans[id], inputs)

		if err := src.Start(ctx, r.sourceChans[id]); err != nil {
			return fmt.Errorf("failed to start source %s: %w", src.Name(), err)
		}
	}

	return nil
}

// Stop drains the graph in stage order: sources first, then dispatchers,
// pipeline workers and sink workers, and finally flushes the sinks.
func (r *Router) Stop(ctx context.Context) error {
	r.log.Info("Stopping router")

	for _, src := range r.sources {
		if err := src.Stop(ctx); err != nil {
			r.log.WithError(err).WithField("source", src.Name()).Error("Failed to stop source")
		}
	}

	close(r.quitDispatch)
	r.dispatchWg.Wait()

	close(r.quitPipelines)
	r.pipelineWg.Wait()

	close(r.quitSinks)
	r.sinkWg.Wait()

	for _, tr := range r.transforms {
		if err := tr.Stop(ctx); err != nil {
			r.log.WithError(err).WithField("transform", tr.Name()).Error("Failed to stop transform")
		}
	}

	for _, sink := range r.sinks {
		if err := sink.Stop(ctx); err != nil {
			r.log.WithError(err).WithField("sink", sink.Name()).Error("Failed to stop sink")
		}
	}

	r.log.Info("Router stopped")

	return nil
}

// subscribers returns the input channels of every pipeline referencing the
// given source.
func (r *Router) subscribers(sourceID string) []chan *events.LogEvent {
	var inputs []chan *events.LogEvent

	for _, unit := range r.pipelines {
		for _, ref := range r.cfg.Pipelines[unit.id].Sources {
			if ref == sourceID {
				inputs = append(inputs, unit.input)

				break
			}
		}
	}

	return inputs
}

// runDispatcher fans events from one source out to the subscribed pipeline
// inputs. On shutdown it drains whatever the source already published.
func (r *Router) runDispatcher(src sources.Source, in <-chan *events.LogEvent, outs []chan *events.LogEvent) {
	defer r.dispatchWg.Done()

	dispatch := func(event *events.LogEvent) {
		r.metrics.AddEventsIngested(1, src.Name(), src.Type())
		r.summary.AddSourceEvents(src.Name(), 1)

		// Each pipeline mutates its events independently, so every
		// subscriber after the first gets its own copy.
		for i, out := range outs {
			if i == 0 {
				out <- event

				continue
			}

			out <- event.Clone()
		}
	}

	for {
		select {
		case event := <-in:
			dispatch(event)
		case <-r.quitDispatch:
			// Sources have stopped publishing; drain the remainder.
			for {
				select {
				case event := <-in:
					dispatch(event)
				default:
					return
				}
			}
		}
	}
}

// runPipeline applies the transform chain and fans surviving events out to
// the pipeline's sink channels.
func (r *Router) runPipeline(ctx context.Context, unit *pipelineUnit) {
	defer r.pipelineWg.Done()

	process := func(event *events.LogEvent) {
		for _, tr := range unit.chain {
			keep, reason, err := tr.Apply(ctx, event)
			if err != nil {
				r.log.WithError(err).WithField("transform", tr.Name()).Error("Transform failed")
				r.metrics.AddEventsDropped(1, tr.Name(), "error")
				r.summary.AddDroppedEvents(1)

				return
			}

			if !keep {
				r.metrics.AddEventsDropped(1, tr.Name(), reason)
				r.summary.AddDroppedEvents(1)

				return
			}
		}

		for _, out := range unit.sinkChans {
			out <- event
		}
	}

	for {
		select {
		case event := <-unit.input:
			process(event)
		case <-r.quitPipelines:
			for {
				select {
				case event := <-unit.input:
					process(event)
				default:
					return
				}
			}
		}
	}
}

// runSinkWorker delivers events from one pipeline to one sink.
func (r *Router) runSinkWorker(ctx context.Context, in <-chan *events.LogEvent, sink sinks.Sink) {
	defer r.sinkWg.Done()

	deliver := func(event *events.LogEvent) {
		if err := sink.HandleEvent(ctx, event); err != nil {
			r.log.WithError(err).WithField("sink", sink.Name()).Error("Failed to handle event")
		}
	}

	for {
		select {
		case event := <-in:
			deliver(event)
		case <-r.quitSinks:
			for {
				select {
				case event := <-in:
					deliver(event)
				default:
					return
				}
			}
		}
	}
}
