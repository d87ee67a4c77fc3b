package transport_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/archsim/meshfield/transport"
)

var _ = Describe("InProcess", func() {
	It("delivers an ISend to the matching IRecv through a directconnection", func() {
		engine := sim.NewSerialEngine()
		a := transport.NewInProcess("Test.", 0, engine, 1*sim.GHz)
		b := transport.NewInProcess("Test.", 1, engine, 1*sim.GHz)
		transport.Connect(engine, 1*sim.GHz, a, b)

		payload := []float64{1, 2, 3}
		req := b.IRecv(a.Rank(), 42)
		a.ISend(b.Rank(), 42, payload)

		b.WaitAll([]*transport.Request{req})

		Expect(req.Result()).To(Equal(payload))
	})

	It("advances NextSyncCount modulo 10", func() {
		engine := sim.NewSerialEngine()
		a := transport.NewInProcess("Test.", 0, engine, 1*sim.GHz)

		var last int
		for i := 0; i < 11; i++ {
			last = a.NextSyncCount()
		}
		Expect(last).To(Equal(1)) // 11 calls from 0: 1,2,...,9,0,1
	})
})

var _ = Describe("Loopback", func() {
	It("delivers ISend to IRecv synchronously, self-linked", func() {
		l := transport.NewLoopback(0)
		transport.LinkLoopback(l, l)

		payload := []float64{4, 5, 6}
		req := l.IRecv(0, 7)
		l.ISend(0, 7, payload)
		l.WaitAll([]*transport.Request{req})

		Expect(req.Result()).To(Equal(payload))
	})

	It("routes independent (peer, tag) pairs to distinct requests", func() {
		a := transport.NewLoopback(0)
		b := transport.NewLoopback(1)
		transport.LinkLoopback(a, b)

		reqX := a.IRecv(1, 1)
		reqY := a.IRecv(1, 2)
		b.ISend(0, 2, []float64{2})
		b.ISend(0, 1, []float64{1})

		a.WaitAll([]*transport.Request{reqX, reqY})

		Expect(reqX.Result()).To(Equal([]float64{1}))
		Expect(reqY.Result()).To(Equal([]float64{2}))
	})
})
