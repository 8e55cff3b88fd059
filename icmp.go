package netcore

import (
	"net/netip"
)

// IPv4 header layout, relative to the start of the IPv4 header.
const (
	ipv4MinHeaderLen = 20

	ipVersionIHL  = 0
	ipTotalLength = 2
	ipTTL         = 8
	ipProtocol    = 9
	ipChecksum    = 10
	ipSrc         = 12
	ipDst         = 16

	ipProtoICMP = 1
	ipProtoUDP  = 17

	// replyTTL is the time to live given to every echo reply.
	replyTTL = 64
)

// ICMP echo layout, relative to the start of the ICMP header.
const (
	icmpHeaderLen = 8

	icmpType     = 0
	icmpCode     = 1
	icmpChecksum = 2
	icmpID       = 4
	icmpSeq      = 6

	icmpTypeEchoReply   = 0
	icmpTypeEchoRequest = 8
)

// replyBufferSize bounds the largest echo reply, and so the largest echo
// request, this package will answer.
const replyBufferSize = 2048

func (r *Responder) handleICMP(frame []byte, ipOff int) {
	var reply [replyBufferSize]byte
	n, d := r.buildEchoReply(&reply, frame, ipOff)
	if d != dropNone {
		r.dropped(protoICMP, d)
		return
	}

	r.transmit(protoICMP, reply[:n])
	if r.debug() {
		icmpOff := ipOff + int(frame[ipOff+ipVersionIHL]&0x0f)*4
		r.log.Debugf("echo reply: to %s id=%d seq=%d len=%d",
			netip.AddrFrom4([4]byte(frame[ipOff+ipSrc:ipOff+ipSrc+4])),
			get16(frame, icmpOff+icmpID), get16(frame, icmpOff+icmpSeq), n)
	}
}

// buildEchoReply writes into reply the answer to the echo request carried by
// the IPv4 packet at frame[ipOff:].  It returns the length of the reply frame,
// which is only meaningful when dropNone is returned.
func (r *Responder) buildEchoReply(reply *[replyBufferSize]byte, frame []byte, ipOff int) (int, drop) {
	if ipOff < ethHeaderLen || len(frame) <= ipOff {
		return 0, dropShort
	}

	// The header length must be known before any offset past it is trusted.
	hlen := int(frame[ipOff+ipVersionIHL]&0x0f) * 4
	if hlen < ipv4MinHeaderLen {
		return 0, dropBadHeader
	}
	icmpOff := ipOff + hlen
	if len(frame) < icmpOff+icmpHeaderLen {
		return 0, dropShort
	}
	if frame[icmpOff+icmpType] != icmpTypeEchoRequest {
		return 0, dropType
	}

	// The frame length bounds the payload.  Link layer padding past a
	// consistent IPv4 total length is not part of it.
	end := len(frame)
	if total := int(get16(frame, ipOff+ipTotalLength)); total >= hlen+icmpHeaderLen && ipOff+total <= end {
		end = ipOff + total
	}
	payload := end - (icmpOff + icmpHeaderLen)
	if payload < 0 {
		return 0, dropShort
	}
	if end > len(reply) {
		return 0, dropOversize
	}
	if r.verify && (!ValidChecksum(frame[ipOff:icmpOff]) || !ValidChecksum(frame[icmpOff:end])) {
		return 0, dropBadChecksum
	}

	b := reply[:end]

	copy(b[ethDst:ethDst+6], frame[ethSrc:ethSrc+6])
	// A group address is never a valid source, so requests sent to one are
	// answered from the local MAC.
	if frame[ethDst]&0x01 == 0 {
		copy(b[ethSrc:ethSrc+6], frame[ethDst:ethDst+6])
	} else {
		copy(b[ethSrc:ethSrc+6], r.mac[:])
	}
	copy(b[ethType:ipOff], frame[ethType:ipOff])

	ip := b[ipOff:icmpOff]
	copy(ip, frame[ipOff:icmpOff])
	copy(ip[ipSrc:ipSrc+4], frame[ipOff+ipDst:ipOff+ipDst+4])
	copy(ip[ipDst:ipDst+4], frame[ipOff+ipSrc:ipOff+ipSrc+4])
	put16(ip, ipTotalLength, uint16(hlen+icmpHeaderLen+payload))
	ip[ipTTL] = replyTTL
	put16(ip, ipChecksum, 0)

	icmp := b[icmpOff:end]
	icmp[icmpType] = icmpTypeEchoReply
	icmp[icmpCode] = 0
	put16(icmp, icmpChecksum, 0)
	copy(icmp[icmpID:icmpHeaderLen], frame[icmpOff+icmpID:icmpOff+icmpHeaderLen])
	copy(icmp[icmpHeaderLen:], frame[icmpOff+icmpHeaderLen:end])

	// Both checksums cover fields set above, so they come last.
	put16(ip, ipChecksum, ChecksumSafe(ip))
	put16(icmp, icmpChecksum, ChecksumSafe(icmp))

	return end, dropNone
}
