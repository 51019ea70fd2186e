package env

// mailbox is an unbounded FIFO stage between the coordinator loop and one
// subscriber. The loop is the only sender on in and the only closer; pending
// events queue here so a slow consumer can never block the loop. Closing in
// closes out; events still queued at that point are discarded (a dead
// subscriber has no use for them, and shutdown delivery is not guaranteed).
type mailbox struct {
	in  chan Event
	out chan Event
}

func newMailbox() *mailbox {
	m := &mailbox{
		in:  make(chan Event),
		out: make(chan Event),
	}
	go m.pump()
	return m
}

func (m *mailbox) pump() {
	var queue []Event
	for {
		if len(queue) == 0 {
			ev, ok := <-m.in
			if !ok {
				close(m.out)
				return
			}
			queue = append(queue, ev)
		}

		select {
		case ev, ok := <-m.in:
			if !ok {
				close(m.out)
				return
			}
			queue = append(queue, ev)
		case m.out <- queue[0]:
			queue = queue[1:]
		}
	}
}
