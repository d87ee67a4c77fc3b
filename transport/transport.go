// Package transport implements the exchange engine: non-blocking
// send/recv of strided volumes between ranks, plus the single
// wait-all rendezvous a layer calls once per tick.
package transport

import (
	"fmt"
	"sync"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/akita/v4/sim/directconnection"
)

// Transport is the exchange engine a layer synchronizes over. One
// instance is shared by every layer bound to the same topology
// communicator.
type Transport interface {
	Rank() int
	// NextSyncCount advances and returns the rolling counter used to
	// derive this round's message tags (spec.md §4.6), modulo 10.
	NextSyncCount() int
	// ISend posts a non-blocking send to peerRank under tag. Returns
	// immediately.
	ISend(peerRank, tag int, payload []float64)
	// IRecv posts a non-blocking receive from peerRank under tag,
	// returning a handle whose Result is valid only after WaitAll.
	IRecv(peerRank, tag int) *Request
	// WaitAll blocks until every receive request in reqs has
	// completed. Sends have no Request and are not waited on. Panics
	// (Transport fault) on any transport-level failure.
	WaitAll(reqs []*Request)
}

// Request is a handle to a posted, not-yet-completed receive.
type Request struct {
	peer int
	tag  int
	ch   chan []float64
	got  []float64
}

// Result returns the payload a completed receive request delivered.
// Only meaningful after the Request has been passed through WaitAll.
func (r *Request) Result() []float64 { return r.got }

type pendingKey struct {
	peer int
	tag  int
}

// InProcess is the reference Transport: every rank is an akita
// TickingComponent, every rank pair that exchanges is wired with one
// directconnection.Comp, and WaitAll drives the serial engine shared by
// the mesh until the round's receives arrive.
type InProcess struct {
	*sim.TickingComponent

	rank      int
	prefix    string
	engine    sim.Engine
	freq      sim.Freq
	syncCount int

	mu      sync.Mutex
	ports   map[int]*port
	pending map[pendingKey]chan []float64
}

// NewInProcess builds the communicator for one rank. engine is shared
// by every rank's InProcess in the same in-process mesh so that a
// single WaitAll call can drive the whole round to completion. Every
// InProcess sharing a mesh must be built with the same prefix, since
// peer port names are derived from it rather than looked up.
func NewInProcess(prefix string, rank int, engine sim.Engine, freq sim.Freq) *InProcess {
	c := &InProcess{
		rank:    rank,
		prefix:  prefix,
		engine:  engine,
		freq:    freq,
		ports:   make(map[int]*port),
		pending: make(map[pendingKey]chan []float64),
	}
	c.TickingComponent = sim.NewTickingComponent(c.compName(rank), engine, freq, c)
	return c
}

func (c *InProcess) compName(rank int) string {
	return fmt.Sprintf("%sRank%d", c.prefix, rank)
}

// Rank returns this communicator's rank.
func (c *InProcess) Rank() int { return c.rank }

// PortTo returns (creating if necessary) the port this rank uses to
// talk to peerRank. The mesh builder plugs a directconnection.Comp
// between this port and the peer's PortTo(thisRank) port.
func (c *InProcess) PortTo(peerRank int) sim.Port {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.ports[peerRank]
	if !ok {
		name := fmt.Sprintf("%s.ToRank%d", c.Name(), peerRank)
		p = newPort(c, 16, name)
		c.ports[peerRank] = p
	}
	return p
}

// peerPortName returns the deterministic name of the port peerRank
// uses to talk back to this rank, derived from the shared naming
// convention rather than a lookup.
func (c *InProcess) peerPortName(peerRank int) sim.RemotePort {
	return sim.RemotePort(fmt.Sprintf("%s.ToRank%d", c.compName(peerRank), c.rank))
}

// NextSyncCount advances the rolling per-communicator counter.
func (c *InProcess) NextSyncCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncCount = (c.syncCount + 1) % 10
	return c.syncCount
}

// ISend posts a send to a peer's matching receive.
func (c *InProcess) ISend(peerRank, tag int, payload []float64) {
	p := c.PortTo(peerRank).(*port)

	msg := volumeMsgBuilder{}.
		WithSrc(p.AsRemote()).
		WithDst(c.peerPortName(peerRank)).
		WithSendTime(c.engine.CurrentTime()).
		WithTag(tag).
		WithPayload(payload).
		Build()

	if err := p.Send(msg); err != nil {
		panic(fmt.Sprintf("transport: send to rank %d failed: %v", peerRank, err))
	}
}

// IRecv posts a receive for a (peer, tag) pair, reusing the pending
// channel Tick already created if the volume arrived first.
func (c *InProcess) IRecv(peerRank, tag int) *Request {
	c.mu.Lock()
	key := pendingKey{peer: peerRank, tag: tag}
	ch, ok := c.pending[key]
	if !ok {
		ch = make(chan []float64, 1)
		c.pending[key] = ch
	}
	c.mu.Unlock()

	return &Request{peer: peerRank, tag: tag, ch: ch}
}

// Tick drains every port's incoming buffer, dispatching each arrived
// volume to the channel its IRecv registered. Since every rank shares
// one engine, a send can be delivered before its peer has posted the
// matching IRecv; Tick creates the pending channel on demand in that
// case too (mirroring Loopback.ISend) so the volume is buffered rather
// than dropped.
func (c *InProcess) Tick(now sim.VTimeInSec) bool {
	madeProgress := false

	c.mu.Lock()
	ports := make([]*port, 0, len(c.ports))
	for _, p := range c.ports {
		ports = append(ports, p)
	}
	c.mu.Unlock()

	for _, p := range ports {
		msg := p.RetrieveIncoming()
		if msg == nil {
			continue
		}
		vm := msg.(*volumeMsg)

		c.mu.Lock()
		key := pendingKey{peer: c.peerRankOf(p), tag: vm.Tag}
		ch, ok := c.pending[key]
		if !ok {
			ch = make(chan []float64, 1)
			c.pending[key] = ch
		}
		c.mu.Unlock()

		ch <- vm.Payload
		madeProgress = true
	}

	return madeProgress
}

func (c *InProcess) peerRankOf(p *port) int {
	for peer, pp := range c.ports {
		if pp == p {
			return peer
		}
	}
	panic("transport: port not registered to any peer")
}

// WaitAll drives the shared engine until every receive request in
// reqs has its payload, then returns. Sends are not tracked. Any
// underlying akita error is a Transport fault and is fatal.
func (c *InProcess) WaitAll(reqs []*Request) {
	for {
		allDone := true
		for _, r := range reqs {
			if r.got != nil {
				continue
			}
			select {
			case payload := <-r.ch:
				r.got = payload
				c.mu.Lock()
				delete(c.pending, pendingKey{peer: r.peer, tag: r.tag})
				c.mu.Unlock()
			default:
				allDone = false
			}
		}
		if allDone {
			return
		}
		if err := c.engine.Run(); err != nil {
			panic(fmt.Sprintf("transport: engine run failed: %v", err))
		}
	}
}

// Connect wires rank a and rank b's communicators together with a
// directconnection, letting them exchange in both relative directions
// (needed when two ranks are neighbors along more than one direction
// vector, e.g. scenario S3's 2x1 periodic wrap).
func Connect(engine sim.Engine, freq sim.Freq, a, b *InProcess) {
	name := fmt.Sprintf("Conn.%dTo%d", a.Rank(), b.Rank())
	conn := directconnection.MakeBuilder().WithEngine(engine).WithFreq(freq).Build(name)
	conn.PlugIn(a.PortTo(b.Rank()))
	conn.PlugIn(b.PortTo(a.Rank()))
}

// Loopback is a same-process, no-engine Transport: every send to a
// peer is delivered synchronously into that peer's matching receive
// channel on the spot, with no akita component in the loop. It exists
// for tests and for the degenerate single-rank periodic case (a rank
// exchanging with itself), where spinning up an engine is pure
// overhead.
type Loopback struct {
	rank      int
	syncCount int
	peers     map[int]*Loopback

	mu      sync.Mutex
	pending map[pendingKey]chan []float64
}

// NewLoopback builds a Loopback communicator for one rank. Peers are
// wired after construction via LinkLoopback.
func NewLoopback(rank int) *Loopback {
	return &Loopback{
		rank:    rank,
		peers:   make(map[int]*Loopback),
		pending: make(map[pendingKey]chan []float64),
	}
}

// LinkLoopback registers a and b as each other's peers (a rank may
// also link to itself, for self-periodic exchanges).
func LinkLoopback(a, b *Loopback) {
	a.peers[b.rank] = b
	b.peers[a.rank] = a
}

// Rank returns this communicator's rank.
func (l *Loopback) Rank() int { return l.rank }

// NextSyncCount advances the rolling per-communicator counter.
func (l *Loopback) NextSyncCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.syncCount = (l.syncCount + 1) % 10
	return l.syncCount
}

// ISend delivers directly into the peer's pending receive channel.
func (l *Loopback) ISend(peerRank, tag int, payload []float64) {
	peer, ok := l.peers[peerRank]
	if !ok {
		panic(fmt.Sprintf("transport: loopback rank %d has no link to rank %d", l.rank, peerRank))
	}

	peer.mu.Lock()
	ch, ok := peer.pending[pendingKey{peer: l.rank, tag: tag}]
	if !ok {
		ch = make(chan []float64, 1)
		peer.pending[pendingKey{peer: l.rank, tag: tag}] = ch
	}
	peer.mu.Unlock()

	ch <- payload
}

// IRecv posts a receive for a (peer, tag) pair.
func (l *Loopback) IRecv(peerRank, tag int) *Request {
	l.mu.Lock()
	key := pendingKey{peer: peerRank, tag: tag}
	ch, ok := l.pending[key]
	if !ok {
		ch = make(chan []float64, 1)
		l.pending[key] = ch
	}
	l.mu.Unlock()

	return &Request{peer: peerRank, tag: tag, ch: ch}
}

// WaitAll blocks on each request's channel until the matching ISend
// has delivered into it. A rank linked only to itself has its
// receives satisfied by its own ISends before WaitAll; ranks that
// exchange with other ranks block until those peers have sent, so
// their Synchronize calls must run concurrently.
func (l *Loopback) WaitAll(reqs []*Request) {
	for _, r := range reqs {
		if r.got != nil {
			continue
		}
		r.got = <-r.ch
		l.mu.Lock()
		delete(l.pending, pendingKey{peer: r.peer, tag: r.tag})
		l.mu.Unlock()
	}
}
