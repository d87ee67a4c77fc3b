package transport

import (
	"fmt"
	"sync"

	"github.com/sarchlab/akita/v4/sim"
)

// port is a minimal akita port: a pair of buffered queues plugged into
// a directconnection on one end and read/written by a Comm on the
// other.
type port struct {
	sim.HookableBase

	lock sync.Mutex
	name string
	comp sim.Component
	conn sim.Connection

	incomingBuf sim.Buffer
	outgoingBuf sim.Buffer
}

func newPort(comp sim.Component, bufCap int, name string) *port {
	return &port{
		name:        name,
		comp:        comp,
		incomingBuf: sim.NewBuffer(name+".IncomingBuf", bufCap),
		outgoingBuf: sim.NewBuffer(name+".OutgoingBuf", bufCap),
	}
}

func (p *port) Name() string { return p.name }

func (p *port) AsRemote() sim.RemotePort { return sim.RemotePort(p.name) }

func (p *port) Component() sim.Component { return p.comp }

func (p *port) SetConnection(conn sim.Connection) {
	if p.conn != nil {
		panic(fmt.Sprintf("transport: port %s already connected to %s",
			p.name, p.conn.Name()))
	}
	p.conn = conn
}

func (p *port) CanSend() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.outgoingBuf.CanPush()
}

func (p *port) Send(msg sim.Msg) *sim.SendError {
	p.lock.Lock()
	if !p.outgoingBuf.CanPush() {
		p.lock.Unlock()
		return sim.NewSendError()
	}
	wasEmpty := p.outgoingBuf.Size() == 0
	p.outgoingBuf.Push(msg)
	p.lock.Unlock()

	if wasEmpty {
		p.conn.NotifySend()
	}
	return nil
}

func (p *port) Deliver(msg sim.Msg) *sim.SendError {
	p.lock.Lock()
	if !p.incomingBuf.CanPush() {
		p.lock.Unlock()
		return sim.NewSendError()
	}
	wasEmpty := p.incomingBuf.Size() == 0
	p.incomingBuf.Push(msg)
	p.lock.Unlock()

	if p.comp != nil && wasEmpty {
		p.comp.NotifyRecv(p)
	}
	return nil
}

func (p *port) RetrieveIncoming() sim.Msg {
	p.lock.Lock()
	defer p.lock.Unlock()
	item := p.incomingBuf.Pop()
	if item == nil {
		return nil
	}
	if p.incomingBuf.Size() == p.incomingBuf.Capacity()-1 {
		p.conn.NotifyAvailable(p)
	}
	return item.(sim.Msg)
}

func (p *port) PeekIncoming() sim.Msg {
	p.lock.Lock()
	defer p.lock.Unlock()
	item := p.incomingBuf.Peek()
	if item == nil {
		return nil
	}
	return item.(sim.Msg)
}

func (p *port) RetrieveOutgoing() sim.Msg {
	p.lock.Lock()
	defer p.lock.Unlock()
	item := p.outgoingBuf.Pop()
	if item == nil {
		return nil
	}
	if p.comp != nil && p.outgoingBuf.Size() == p.outgoingBuf.Capacity()-1 {
		p.comp.NotifyPortFree(p)
	}
	return item.(sim.Msg)
}

func (p *port) PeekOutgoing() sim.Msg {
	p.lock.Lock()
	defer p.lock.Unlock()
	item := p.outgoingBuf.Peek()
	if item == nil {
		return nil
	}
	return item.(sim.Msg)
}

func (p *port) NotifyAvailable() {
	if p.comp != nil {
		p.comp.NotifyPortFree(p)
	}
}
