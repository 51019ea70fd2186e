package env

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/thehaigo/desktop/internal/infrastructure/monitoring"
)

// ssStatus is the side-service slot state. Uninitialized is initial;
// Unavailable and Ready are terminal. The slot never reverts.
type ssStatus int

const (
	ssUninitialized ssStatus = iota
	ssProbing
	ssUnavailable
	ssReady
)

func (s ssStatus) String() string {
	switch s {
	case ssProbing:
		return "probing"
	case ssUnavailable:
		return "unavailable"
	case ssReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

type sideServiceState struct {
	status  ssStatus
	handle  SideService
	waiters []chan ssReply
}

type ssReply struct {
	svc SideService
	ok  bool
}

type sideServiceMsg struct {
	reply chan ssReply
}

type probeDoneMsg struct {
	svc     SideService
	err     error
	elapsed time.Duration
}

// handleSideService answers from the memoized slot, queues accessors while
// the probe runs, and launches the probe on first demand only.
func (e *Env) handleSideService(m sideServiceMsg) {
	switch e.ss.status {
	case ssReady:
		m.reply <- ssReply{svc: e.ss.handle, ok: true}
	case ssUnavailable:
		m.reply <- ssReply{}
	case ssProbing:
		e.ss.waiters = append(e.ss.waiters, m.reply)
	default:
		e.ss.status = ssProbing
		e.ss.waiters = append(e.ss.waiters, m.reply)
		e.setSideServiceGauge(monitoring.SideServiceProbing)
		e.logger.Info("side service probe started")
		go e.runProbe(e.ctx)
	}
}

// runProbe executes the probe in an isolated worker goroutine. A panic or
// error becomes a negative outcome message; nothing propagates to the loop
// or to accessor callers.
func (e *Env) runProbe(ctx context.Context) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			e.post(probeDoneMsg{
				err:     fmt.Errorf("probe panic: %v", r),
				elapsed: time.Since(start),
			})
		}
	}()

	if e.probe == nil {
		e.post(probeDoneMsg{
			err:     errors.New("no probe configured"),
			elapsed: time.Since(start),
		})
		return
	}

	svc, err := e.probe(ctx)
	e.post(probeDoneMsg{svc: svc, err: err, elapsed: time.Since(start)})
}

// post delivers a loop-internal message from a worker goroutine.
func (e *Env) post(m any) {
	select {
	case e.mailbox <- m:
	case <-e.done:
	}
}

func (e *Env) handleProbeDone(m probeDoneMsg) {
	if e.metrics != nil {
		e.metrics.ObserveProbeDuration(m.elapsed)
	}

	if m.err != nil || m.svc == nil {
		e.ss.status = ssUnavailable
		e.setSideServiceGauge(monitoring.SideServiceUnavailable)
		e.logger.Warn("side service unavailable",
			zap.Error(m.err),
			zap.Duration("elapsed", m.elapsed))
		e.resolveSideServiceWaiters(ssReply{})
		return
	}

	e.ss.status = ssReady
	e.ss.handle = m.svc
	e.setSideServiceGauge(monitoring.SideServiceReady)
	e.logger.Info("side service ready", zap.Duration("elapsed", m.elapsed))
	e.resolveSideServiceWaiters(ssReply{svc: m.svc, ok: true})
}

func (e *Env) resolveSideServiceWaiters(r ssReply) {
	for _, w := range e.ss.waiters {
		w <- r
	}
	e.ss.waiters = nil
}

func (e *Env) setSideServiceGauge(state int) {
	if e.metrics != nil {
		e.metrics.SetSideServiceState(state)
	}
}
