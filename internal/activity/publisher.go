// Package activity forwards interaction events to NATS JetStream, where
// downstream consumers (notification fan-out, analytics) pick them up.
package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	libnats "github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/zhulik/pips"
	"github.com/zhulik/pips/apply"

	"tangle/internal/core"
	"tangle/internal/nats"
)

var eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tangle_activity_events_total",
	Help: "The total number of activity events accepted for publishing",
}, []string{"verb"})

type Publisher struct {
	Logger *slog.Logger
	NATS   *nats.NATS

	ch chan pips.D[core.ActivityEvent]
}

func (p *Publisher) Init(_ context.Context) error {
	p.Logger = p.Logger.With("component", "activity.Publisher")
	p.ch = make(chan pips.D[core.ActivityEvent], 256)
	return nil
}

func (p *Publisher) Shutdown(_ context.Context) error {
	defer close(p.ch)
	return nil
}

// Emit hands the event to the publishing pipeline. It never blocks a
// request: when the buffer is full the event is dropped and logged.
func (p *Publisher) Emit(event core.ActivityEvent) {
	select {
	case p.ch <- pips.NewD(event):
	default:
		p.Logger.Warn("activity buffer full, dropping event", "verb", event.Verb)
	}
}

func (p *Publisher) Run(ctx context.Context) error {
	return pips.New[core.ActivityEvent, any]().
		Then(apply.Each(countEvent)).
		Then(apply.Map(p.publish)).
		Run(ctx, p.ch).
		Wait(ctx)
}

func (p *Publisher) publish(ctx context.Context, event core.ActivityEvent) (any, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	msg := &libnats.Msg{
		Subject: "tangle." + event.Verb,
		Data:    payload,
		Header: libnats.Header{
			libnats.MsgIdHdr: []string{messageID(event)},
		},
	}

	return p.NATS.JS.PublishMsg(ctx, msg)
}

func countEvent(_ context.Context, event core.ActivityEvent) error {
	eventsPublished.WithLabelValues(event.Verb).Inc()
	return nil
}

func messageID(event core.ActivityEvent) string {
	return fmt.Sprintf("%s-%d-%d-%d", event.Verb, event.ActorID, event.Subject, event.At.UnixNano())
}
