package processor

import (
	"github.com/soclab/socsim/memtx"
	"github.com/soclab/socsim/sim"
)

// MemoryLink is the stand-in for the external memory component named in
// spec.md §1: it drains a request port, admits each request against the
// backing Store's bandwidth budget, services it, and writes the response
// back out. It exists only so this module can run its own processor
// variants end to end; the memory subsystem proper is out of scope.
//
// A request that is admitted holds its bandwidth slot until later in the
// same clock tick (released via clock.Schedule), so that a burst of
// requests larger than the bandwidth genuinely contends rather than all
// being serviced instantaneously.
type MemoryLink struct {
	store *memtx.Store
	clock *sim.Clock
	req   *sim.Port[memtx.Request]
	resp  *sim.Port[memtx.Response]
}

// NewMemoryLink wires a request/response port pair to store, driven by
// clock for scheduling bandwidth-slot releases and back-pressure retries.
func NewMemoryLink(clock *sim.Clock, store *memtx.Store, req *sim.Port[memtx.Request], resp *sim.Port[memtx.Response]) *MemoryLink {
	m := &MemoryLink{store: store, clock: clock, req: req, resp: resp}
	req.NotifyOnReadable(m.pump)
	return m
}

func (m *MemoryLink) pump() {
	for m.req.ReadValid() && m.resp.WriteValid() {
		if !m.store.TryAdmit() {
			m.clock.Schedule(m.pump)
			return
		}
		request := m.req.Read()
		request.Status = memtx.SENT
		response := m.store.Service(request)
		m.resp.Write(response)
		m.clock.Schedule(m.store.Release)
	}
	if m.req.ReadValid() && !m.resp.WriteValid() {
		m.resp.NotifyOnWritable(m.pump)
	}
	if !m.req.ReadValid() {
		m.req.NotifyOnReadable(m.pump)
	}
}
