package netcore

import (
	"net"
	"net/netip"
	"strconv"

	"github.com/mdlayher/ethernet"
)

// An Operation is an ARP operation, such as request or reply.
type Operation uint16

// Operation constants which indicate an ARP request or reply.
const (
	OperationRequest Operation = 1
	OperationReply   Operation = 2
)

func (op Operation) String() string {
	switch op {
	case OperationRequest:
		return "request"
	case OperationReply:
		return "reply"
	default:
		return "Operation(" + strconv.Itoa(int(op)) + ")"
	}
}

// ARP for IPv4 over Ethernet.  Offsets are relative to the start of the frame.
const (
	arpMessageLen = 28
	arpFrameLen   = ethHeaderLen + arpMessageLen

	arpHardwareType = 14
	arpProtocolType = 16
	arpHardwareLen  = 18
	arpProtocolLen  = 19
	arpOperation    = 20
	arpSenderHW     = 22
	arpSenderProto  = 28
	arpTargetHW     = 32
	arpTargetProto  = 38

	arpHardwareEthernet = 1
)

func (r *Responder) handleARP(frame []byte) {
	var reply [arpFrameLen]byte
	if d := r.buildARPReply(&reply, frame); d != dropNone {
		r.dropped(protoARP, d)
		return
	}

	r.transmit(protoARP, reply[:])
	if r.debug() {
		r.log.Debugf("arp reply: %s is-at %s (to %s at %s)",
			r.id.Addr, r.id.HardwareAddr,
			netip.AddrFrom4([4]byte(frame[arpSenderProto:arpSenderProto+4])),
			net.HardwareAddr(frame[arpSenderHW:arpSenderHW+6]))
	}
}

// buildARPReply writes into reply the answer to the ARP request in frame.
// reply is only meaningful when dropNone is returned.
func (r *Responder) buildARPReply(reply *[arpFrameLen]byte, frame []byte) drop {
	if len(frame) < arpFrameLen {
		return dropShort
	}
	if Operation(get16(frame, arpOperation)) != OperationRequest {
		return dropOperation
	}
	if get32(frame, arpTargetProto) != r.ip {
		return dropNotForUs
	}

	b := reply[:]

	copy(b[ethDst:ethDst+6], frame[arpSenderHW:arpSenderHW+6])
	copy(b[ethSrc:ethSrc+6], r.mac[:])
	put16(b, ethType, uint16(ethernet.EtherTypeARP))

	put16(b, arpHardwareType, arpHardwareEthernet)
	put16(b, arpProtocolType, uint16(ethernet.EtherTypeIPv4))
	b[arpHardwareLen] = 6
	b[arpProtocolLen] = 4
	put16(b, arpOperation, uint16(OperationReply))

	copy(b[arpSenderHW:arpSenderHW+6], r.mac[:])
	put32(b, arpSenderProto, r.ip)
	copy(b[arpTargetHW:arpTargetHW+6], frame[arpSenderHW:arpSenderHW+6])
	copy(b[arpTargetProto:arpTargetProto+4], frame[arpSenderProto:arpSenderProto+4])

	return dropNone
}
