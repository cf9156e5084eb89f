package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/poryaazizi7428/global-private-messenger/contract"
	"github.com/poryaazizi7428/global-private-messenger/domain/event"
	"github.com/poryaazizi7428/global-private-messenger/runtime/workers"
)

// Orchestrator owns the broadcast pipeline: a single buffered event channel
// drained by a supervised fan-out worker. Services publish into the channel
// after their store write committed (append-then-publish), so the order
// observed on the channel matches commit order.
type Orchestrator struct {
	log        *slog.Logger
	registry   *Registry
	supervisor contract.ISupervisor
	events     chan event.DomainEvent

	sinkTimeout  time.Duration
	extraWorkers []contract.Worker
}

var _ contract.EventPublisher = (*Orchestrator)(nil)

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor,
	registry *Registry, bufferSize int, sinkTimeout time.Duration) *Orchestrator {
	return &Orchestrator{
		log:         log,
		registry:    registry,
		supervisor:  supervisor,
		events:      make(chan event.DomainEvent, bufferSize),
		sinkTimeout: sinkTimeout,
	}
}

func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// Publish enqueues an event for fan-out. The send blocks when the pipeline
// is saturated instead of reordering or dropping: persistence-affecting
// events must reach every subscribed connection in commit order.
func (o *Orchestrator) Publish(ctx context.Context, e event.DomainEvent) error {
	select {
	case o.events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryPublish enqueues best-effort and drops under backpressure. Used for
// ephemeral signals (typing) which have no delivery guarantee.
func (o *Orchestrator) TryPublish(e event.DomainEvent) {
	select {
	case o.events <- e:
	default:
		o.log.Debug("Ephemeral event dropped under backpressure", "event", e.Name())
	}
}

// AddWorker registers an extra worker to supervise alongside the fan-out.
func (o *Orchestrator) AddWorker(w ...contract.Worker) {
	o.extraWorkers = append(o.extraWorkers, w...)
}

// Start registers the workers and launches the supervisor. It returns
// immediately; Stop tears the pipeline down.
func (o *Orchestrator) Start(ctx context.Context) {
	fanout := workers.NewEventFanout(o.log, o.registry, o.events, o.sinkTimeout)

	o.supervisor.Add(fanout)
	for _, w := range o.extraWorkers {
		o.supervisor.Add(w)
	}

	o.log.Info("Starting orchestrator and all supervised workers")
	go o.supervisor.Run(ctx)
}

// Stop initiates a graceful shutdown of the orchestrator.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}
