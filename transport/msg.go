package transport

import "github.com/sarchlab/akita/v4/sim"

// volumeMsg carries one neighbor exchange's packed payload plus the tag
// that disambiguates it from any other in-flight exchange between the
// same pair of ranks.
type volumeMsg struct {
	sim.MsgMeta

	Tag     int
	Payload []float64
}

// Meta returns the message's akita metadata.
func (m *volumeMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

type volumeMsgBuilder struct {
	src, dst sim.RemotePort
	sendTime sim.VTimeInSec
	tag      int
	payload  []float64
}

func (b volumeMsgBuilder) WithSrc(src sim.RemotePort) volumeMsgBuilder {
	b.src = src
	return b
}

func (b volumeMsgBuilder) WithDst(dst sim.RemotePort) volumeMsgBuilder {
	b.dst = dst
	return b
}

func (b volumeMsgBuilder) WithSendTime(t sim.VTimeInSec) volumeMsgBuilder {
	b.sendTime = t
	return b
}

func (b volumeMsgBuilder) WithTag(tag int) volumeMsgBuilder {
	b.tag = tag
	return b
}

func (b volumeMsgBuilder) WithPayload(payload []float64) volumeMsgBuilder {
	b.payload = payload
	return b
}

func (b volumeMsgBuilder) Build() *volumeMsg {
	return &volumeMsg{
		MsgMeta: sim.MsgMeta{
			ID:       sim.GetIDGenerator().Generate(),
			Src:      b.src,
			Dst:      b.dst,
			SendTime: b.sendTime,
		},
		Tag:     b.tag,
		Payload: b.payload,
	}
}
