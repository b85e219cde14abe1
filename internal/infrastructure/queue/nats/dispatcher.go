// Package nats carries pipeline scheduling commands between the api and the
// worker processes.
package nats

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/fleet-claims/internal/core/ports"
	"github.com/kirillkom/fleet-claims/internal/infrastructure/resilience"
)

const workerQueueGroup = "claim-workers"

type Options struct {
	StepSubject          string
	CancelSubject        string
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

// Dispatcher publishes start and cancel commands. It implements
// ports.StepDispatcher for the api process; Serve is the worker side.
type Dispatcher struct {
	conn          *nats.Conn
	stepSubject   string
	cancelSubject string
	executor      *resilience.Executor
}

func Connect(url string, options Options) (*Dispatcher, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("fleet-claims"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return newDispatcher(conn, options), nil
}

func newDispatcher(conn *nats.Conn, options Options) *Dispatcher {
	step := strings.TrimSpace(options.StepSubject)
	if step == "" {
		step = "claims.step"
	}
	cancel := strings.TrimSpace(options.CancelSubject)
	if cancel == "" {
		cancel = "claims.cancel"
	}
	return &Dispatcher{
		conn:          conn,
		stepSubject:   step,
		cancelSubject: cancel,
		executor:      options.ResilienceExecutor,
	}
}

func (d *Dispatcher) Close() {
	if d.conn != nil {
		d.conn.Close()
	}
}

func (d *Dispatcher) Start(ctx context.Context, claimID string) error {
	return d.publish(ctx, d.stepSubject, claimID)
}

func (d *Dispatcher) Cancel(ctx context.Context, claimID string) error {
	return d.publish(ctx, d.cancelSubject, claimID)
}

func (d *Dispatcher) publish(ctx context.Context, subject, claimID string) error {
	call := func(_ context.Context) error {
		if err := d.conn.Publish(subject, []byte(claimID)); err != nil {
			return fmt.Errorf("nats publish %s: %w", subject, err)
		}
		return nil
	}

	var err error
	if d.executor != nil {
		err = d.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded("nats publish", err)
}

// Serve feeds received commands into local until ctx is done. Start commands
// are load-balanced across workers through a queue group; cancel commands fan
// out to every worker because the claim may be scheduled on any of them.
func (d *Dispatcher) Serve(ctx context.Context, local ports.StepDispatcher) error {
	stepSub, err := d.conn.QueueSubscribe(d.stepSubject, workerQueueGroup, func(msg *nats.Msg) {
		d.handle(ctx, "start", string(msg.Data), local.Start)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", d.stepSubject, err)
	}
	cancelSub, err := d.conn.Subscribe(d.cancelSubject, func(msg *nats.Msg) {
		d.handle(ctx, "cancel", string(msg.Data), local.Cancel)
	})
	if err != nil {
		_ = stepSub.Unsubscribe()
		return fmt.Errorf("nats subscribe %s: %w", d.cancelSubject, err)
	}

	if err := d.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	for _, sub := range []*nats.Subscription{stepSub, cancelSub} {
		if err := sub.Drain(); err != nil {
			return fmt.Errorf("nats drain subscription: %w", err)
		}
	}
	if err := d.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func (d *Dispatcher) handle(ctx context.Context, kind, claimID string, fn func(context.Context, string) error) {
	if ctx.Err() != nil {
		return
	}
	claimID = strings.TrimSpace(claimID)
	if claimID == "" {
		slog.Warn("nats_empty_command", "kind", kind)
		return
	}
	if err := fn(ctx, claimID); err != nil {
		slog.Error("nats_command_failed", "kind", kind, "claim_id", claimID, "error", err)
	}
}
