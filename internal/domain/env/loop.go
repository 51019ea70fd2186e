package env

import (
	"go.uber.org/zap"
)

// Messages processed by the run loop. Every reply channel is buffered so
// resolving one never blocks the loop, and an abandoned caller leaves a
// harmless no-op target behind.
type (
	getMsg struct {
		key   string
		def   any
		reply chan any
	}

	popMsg struct {
		key   string
		def   any
		reply chan any
	}

	putMsg struct {
		key   string
		value any
		reply chan any
	}

	awaitMsg struct {
		key   string
		reply chan any
	}

	publishMsg struct {
		ev Event
	}

	registerWindowMsg struct {
		h *Handle
	}

	windowsMsg struct {
		reply chan []*Handle
	}

	subscribeMsg struct {
		h     *Handle
		reply chan (<-chan Event)
	}

	connectMsg struct {
		target string
		kind   string
		id     string
		cb     func(args []string)
		reply  chan connectReply
	}

	connectReply struct {
		result string
		err    error
	}

	reconnectMsg struct{}

	statsMsg struct {
		reply chan Stats
	}

	downMsg struct {
		h *Handle
	}
)

// run owns all coordinator state. One message at a time, to completion.
func (e *Env) run() {
	defer close(e.done)

	for {
		select {
		case <-e.quit:
			e.shutdown()
			return
		case m := <-e.mailbox:
			e.handle(m)
		}
	}
}

func (e *Env) handle(m any) {
	switch m := m.(type) {
	case getMsg:
		e.recordOp("get")
		e.handleGet(m)
	case popMsg:
		e.recordOp("pop")
		e.handlePop(m)
	case putMsg:
		e.recordOp("put")
		e.handlePut(m)
	case awaitMsg:
		e.recordOp("await")
		e.handleAwait(m)
	case publishMsg:
		e.recordOp("publish")
		e.handlePublish(m)
	case registerWindowMsg:
		e.recordOp("register_window")
		e.handleRegisterWindow(m)
	case windowsMsg:
		e.recordOp("windows")
		e.handleWindows(m)
	case subscribeMsg:
		e.recordOp("subscribe")
		e.handleSubscribe(m)
	case connectMsg:
		e.recordOp("connect_callback")
		e.handleConnect(m)
	case reconnectMsg:
		e.recordOp("reconnect")
		e.handleReconnect()
	case statsMsg:
		e.handleStats(m)
	case sideServiceMsg:
		e.recordOp("side_service")
		e.handleSideService(m)
	case probeDoneMsg:
		e.handleProbeDone(m)
	case downMsg:
		e.handleDown(m)
	}
}

func (e *Env) handleGet(m getMsg) {
	if v, ok := e.values[m.key]; ok {
		m.reply <- v
		return
	}
	m.reply <- m.def
}

func (e *Env) handlePop(m popMsg) {
	v, ok := e.values[m.key]
	if !ok {
		m.reply <- m.def
		return
	}
	delete(e.values, m.key)
	e.syncStoreGauges()
	m.reply <- v
}

// handlePut stores the value, resolves every waiter parked on the key in
// FIFO order, and only then replies with the previous value. Callers can
// never observe the key present while a waiter is still parked.
func (e *Env) handlePut(m putMsg) {
	prev := e.values[m.key]
	e.values[m.key] = m.value

	if pending := e.waiters[m.key]; len(pending) > 0 {
		for _, w := range pending {
			w <- m.value
		}
		delete(e.waiters, m.key)
		e.waiterCount -= len(pending)
		e.logger.Debug("waiters resolved",
			zap.String("key", m.key),
			zap.Int("count", len(pending)))
	}

	e.syncStoreGauges()
	m.reply <- prev
}

func (e *Env) handleAwait(m awaitMsg) {
	if v, ok := e.values[m.key]; ok {
		m.reply <- v
		return
	}
	e.waiters[m.key] = append(e.waiters[m.key], m.reply)
	e.waiterCount++
	e.syncStoreGauges()
}

func (e *Env) handlePublish(m publishMsg) {
	if e.metrics != nil {
		e.metrics.RecordEventPublished(string(m.ev.Kind))
	}

	// Reopen notifications carry no action.
	if m.ev.Kind == KindReopenApp {
		return
	}

	// Buffering covers only the window before the first subscription;
	// after that, events fan out to whoever is currently registered.
	if !e.everSubscribed {
		e.buffer = append(e.buffer, m.ev)
		e.logger.Debug("event buffered",
			zap.String("kind", string(m.ev.Kind)),
			zap.Int("buffered", len(e.buffer)))
		if e.metrics != nil {
			e.metrics.SetEventsBuffered(len(e.buffer))
		}
		return
	}

	for _, sub := range e.subs {
		sub.box.in <- m.ev
		if e.metrics != nil {
			e.metrics.RecordEventDelivered(string(m.ev.Kind))
		}
	}
}

func (e *Env) handleRegisterWindow(m registerWindowMsg) {
	e.windows = append(e.windows, m.h)
	e.monitor(m.h)
	e.logger.Debug("window registered",
		zap.String("window", m.h.id.String()),
		zap.String("label", m.h.label))
	if e.metrics != nil {
		e.metrics.SetWindowsActive(len(e.windows))
	}
}

func (e *Env) handleWindows(m windowsMsg) {
	ws := make([]*Handle, len(e.windows))
	copy(ws, e.windows)
	m.reply <- ws
}

func (e *Env) handleSubscribe(m subscribeMsg) {
	sub := &subscriber{handle: m.h, box: newMailbox()}

	if n := len(e.buffer); n > 0 {
		for _, ev := range e.buffer {
			sub.box.in <- ev
			if e.metrics != nil {
				e.metrics.RecordEventDelivered(string(ev.Kind))
			}
		}
		e.buffer = nil
		e.logger.Info("buffered events replayed",
			zap.Int("count", n),
			zap.String("subscriber", m.h.id.String()))
	}

	e.everSubscribed = true
	e.subs = append(e.subs, sub)
	e.monitor(m.h)
	e.logger.Debug("subscriber registered", zap.String("subscriber", m.h.id.String()))

	if e.metrics != nil {
		e.metrics.SetSubscribersActive(len(e.subs))
		e.metrics.SetEventsBuffered(0)
	}

	m.reply <- sub.box.out
}

func (e *Env) handleConnect(m connectMsg) {
	if e.toolkit == nil {
		m.reply <- connectReply{err: ErrNoToolkit}
		return
	}
	result, err := e.toolkit.Connect(m.target, m.kind, m.cb, m.id)
	m.reply <- connectReply{result: result, err: err}
}

func (e *Env) handleReconnect() {
	if e.registry == nil {
		e.logger.Debug("reconnect signal with no listener registry")
		return
	}

	listeners := e.registry.Active()
	cycled := 0
	for _, l := range listeners {
		s, ok := l.(Suspender)
		if !ok {
			continue
		}
		if err := s.Suspend(); err != nil {
			e.logger.Warn("listener suspend failed",
				zap.String("addr", l.Addr().String()),
				zap.Error(err))
			continue
		}
		if err := s.Resume(); err != nil {
			e.logger.Warn("listener resume failed",
				zap.String("addr", l.Addr().String()),
				zap.Error(err))
			continue
		}
		cycled++
	}

	e.logger.Info("reconnect handled",
		zap.Int("listeners", len(listeners)),
		zap.Int("cycled", cycled))
}

func (e *Env) handleStats(m statsMsg) {
	m.reply <- Stats{
		Keys:        len(e.values),
		Waiters:     e.waiterCount,
		Windows:     len(e.windows),
		Subscribers: len(e.subs),
		Buffered:    len(e.buffer),
		SideService: e.ss.status.String(),
	}
}

// handleDown removes the handle from the window and subscriber sets in one
// transition. Duplicate notifications for the same handle are no-ops.
func (e *Env) handleDown(m downMsg) {
	removed := false

	ws := e.windows[:0]
	for _, h := range e.windows {
		if h == m.h {
			removed = true
			continue
		}
		ws = append(ws, h)
	}
	e.windows = ws

	subs := e.subs[:0]
	for _, sub := range e.subs {
		if sub.handle == m.h {
			close(sub.box.in)
			removed = true
			continue
		}
		subs = append(subs, sub)
	}
	e.subs = subs

	if !removed {
		return
	}

	e.logger.Debug("handle down",
		zap.String("window", m.h.id.String()),
		zap.String("label", m.h.label))

	if e.metrics != nil {
		e.metrics.SetWindowsActive(len(e.windows))
		e.metrics.SetSubscribersActive(len(e.subs))
	}
}

// monitor watches a handle's done channel and reports its death to the
// loop. Registering the same handle twice yields two monitors and two
// notifications; the second removal is a no-op.
func (e *Env) monitor(h *Handle) {
	go func() {
		select {
		case <-h.done:
			select {
			case e.mailbox <- downMsg{h: h}:
			case <-e.done:
			}
		case <-e.done:
		}
	}()
}

func (e *Env) shutdown() {
	for _, sub := range e.subs {
		close(sub.box.in)
	}
	e.subs = nil

	e.resolveSideServiceWaiters(ssReply{})

	if e.ss.handle != nil {
		if err := e.ss.handle.Close(); err != nil {
			e.logger.Warn("side service close failed", zap.Error(err))
		}
		e.ss.handle = nil
	}

	e.logger.Info("coordinator stopped")
}

func (e *Env) recordOp(op string) {
	if e.metrics != nil {
		e.metrics.RecordOp(op)
	}
}

func (e *Env) syncStoreGauges() {
	if e.metrics != nil {
		e.metrics.SetKeysStored(len(e.values))
		e.metrics.SetAwaitWaiters(e.waiterCount)
	}
}
