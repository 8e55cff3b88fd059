package netcore

import (
	"bytes"
	"errors"
	"net"
	"net/netip"
	"os"
	"time"

	"github.com/mdlayher/ethernet"
	"github.com/mdlayher/raw"
)

var (
	errNoIPv4Addr = errors.New("no IPv4 address")

	// ErrEchoMismatch is returned by Client.Ping when an echo reply arrives
	// whose payload differs from the request.
	ErrEchoMismatch = errors.New("echo reply payload mismatch")
)

// A Client sends ARP requests and ICMP echo requests from a local Identity,
// and is used to probe a Responder from another host on the same link.
type Client struct {
	id   Identity
	p    net.PacketConn
	echo uint16
}

// Dial opens a raw Ethernet socket on ifi and creates a Client which uses
// the hardware address of ifi and its first IPv4 address.
func Dial(ifi *net.Interface) (*Client, error) {
	// Check for a usable IPv4 address for the Client
	addrs, err := ifi.Addrs()
	if err != nil {
		return nil, err
	}
	ip, err := firstIPv4Addr(addrs)
	if err != nil {
		return nil, err
	}

	// Open raw socket to send and receive frames we build ourselves
	p, err := Listen(ifi)
	if err != nil {
		return nil, err
	}

	c, err := NewClient(p, Identity{HardwareAddr: ifi.HardwareAddr, Addr: ip})
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	return c, nil
}

// NewClient creates a Client which sends and receives frames using p on
// behalf of id.
func NewClient(p net.PacketConn, id Identity) (*Client, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		id: Identity{
			HardwareAddr: id.HardwareAddr,
			Addr:         id.Addr.Unmap(),
		},
		p:    p,
		echo: uint16(os.Getpid()),
	}, nil
}

// Close closes the Client's raw socket.
func (c *Client) Close() error {
	return c.p.Close()
}

// SetDeadline sets the read and write deadlines associated with the
// connection.
func (c *Client) SetDeadline(t time.Time) error {
	return c.p.SetDeadline(t)
}

// SetReadDeadline sets the deadline for future raw socket read calls.
// If the deadline is reached, a raw socket read will fail with a timeout
// (see type net.Error) instead of blocking.
// A zero value for t means a raw socket read will not time out.
func (c *Client) SetReadDeadline(t time.Time) error {
	return c.p.SetReadDeadline(t)
}

// SetWriteDeadline sets the deadline for future raw socket write calls.
func (c *Client) SetWriteDeadline(t time.Time) error {
	return c.p.SetWriteDeadline(t)
}

// HardwareAddr fetches the hardware address the Client sends from.
func (c *Client) HardwareAddr() net.HardwareAddr {
	return c.id.HardwareAddr
}

// Resolve performs an ARP request, attempting to retrieve the hardware
// address of a machine using its IPv4 address.  Resolve blocks until a
// matching reply arrives or the read deadline expires.
func (c *Client) Resolve(ip netip.Addr) (net.HardwareAddr, error) {
	ip = ip.Unmap()
	if !ip.Is4() {
		return nil, ErrInvalidAddr
	}

	// Address the request to the broadcast MAC, leaving the target hardware
	// address zeroed
	arpb := make([]byte, arpMessageLen)
	put16(arpb, arpHardwareType-ethHeaderLen, arpHardwareEthernet)
	put16(arpb, arpProtocolType-ethHeaderLen, uint16(ethernet.EtherTypeIPv4))
	arpb[arpHardwareLen-ethHeaderLen] = 6
	arpb[arpProtocolLen-ethHeaderLen] = 4
	put16(arpb, arpOperation-ethHeaderLen, uint16(OperationRequest))
	copy(arpb[arpSenderHW-ethHeaderLen:], c.id.HardwareAddr)
	put32(arpb, arpSenderProto-ethHeaderLen, c.id.hostAddr())
	put32(arpb, arpTargetProto-ethHeaderLen, Identity{Addr: ip}.hostAddr())

	if err := c.send(ethernet.Broadcast, ethernet.EtherTypeARP, arpb); err != nil {
		return nil, err
	}

	// Loop and wait for replies
	buf := make([]byte, maxFrameSize)
	for {
		f, err := c.receive(buf, ethernet.EtherTypeARP)
		if err != nil {
			return nil, err
		}

		p := f.Payload
		if len(p) < arpMessageLen {
			continue
		}
		if Operation(get16(p, arpOperation-ethHeaderLen)) != OperationReply {
			continue
		}

		// Check if ARP is in reply to our MAC address and for the
		// requested IPv4 address
		sender := p[arpSenderProto-ethHeaderLen : arpSenderProto-ethHeaderLen+4]
		target := p[arpTargetHW-ethHeaderLen : arpTargetHW-ethHeaderLen+6]
		if netip.AddrFrom4([4]byte(sender)) != ip || !bytes.Equal(target, c.id.HardwareAddr) {
			continue
		}

		mac := make(net.HardwareAddr, 6)
		copy(mac, p[arpSenderHW-ethHeaderLen:])
		return mac, nil
	}
}

// Ping sends an ICMP echo request carrying payload to the machine at mac
// and ip, and waits for the matching echo reply.  It returns the round trip
// time.  If the reply payload differs from payload, ErrEchoMismatch is
// returned.
func (c *Client) Ping(mac net.HardwareAddr, ip netip.Addr, seq uint16, payload []byte) (time.Duration, error) {
	ip = ip.Unmap()
	if !ip.Is4() {
		return 0, ErrInvalidAddr
	}
	if len(mac) != 6 {
		return 0, ErrInvalidHardwareAddr
	}

	pkt := buildEchoRequest(c.id.Addr, ip, c.echo, seq, payload)

	start := time.Now()
	if err := c.send(mac, ethernet.EtherTypeIPv4, pkt); err != nil {
		return 0, err
	}

	buf := make([]byte, maxFrameSize)
	for {
		f, err := c.receive(buf, ethernet.EtherTypeIPv4)
		if err != nil {
			return 0, err
		}

		p := f.Payload
		if len(p) < ipv4MinHeaderLen || p[ipProtocol] != ipProtoICMP {
			continue
		}
		if netip.AddrFrom4([4]byte(p[ipSrc:ipSrc+4])) != ip {
			continue
		}
		hlen := int(p[ipVersionIHL]&0x0f) * 4
		if hlen < ipv4MinHeaderLen || len(p) < hlen+icmpHeaderLen {
			continue
		}
		end := len(p)
		if total := int(get16(p, ipTotalLength)); total >= hlen+icmpHeaderLen && total <= end {
			end = total
		}

		icmp := p[hlen:end]
		if icmp[icmpType] != icmpTypeEchoReply || get16(icmp, icmpID) != c.echo || get16(icmp, icmpSeq) != seq {
			continue
		}
		if !ValidChecksum(icmp) {
			continue
		}

		rtt := time.Since(start)
		if !bytes.Equal(icmp[icmpHeaderLen:], payload) {
			return rtt, ErrEchoMismatch
		}
		return rtt, nil
	}
}

// send wraps payload in an Ethernet frame from the Client and writes it to dst.
func (c *Client) send(dst net.HardwareAddr, et ethernet.EtherType, payload []byte) error {
	f := &ethernet.Frame{
		Destination: dst,
		Source:      c.id.HardwareAddr,
		EtherType:   et,
		Payload:     payload,
	}
	fb, err := f.MarshalBinary()
	if err != nil {
		return err
	}

	_, err = c.p.WriteTo(fb, &raw.Addr{HardwareAddr: dst})
	return err
}

// receive reads frames into buf until one of EtherType et arrives.
func (c *Client) receive(buf []byte, et ethernet.EtherType) (*ethernet.Frame, error) {
	f := new(ethernet.Frame)
	for {
		n, _, err := c.p.ReadFrom(buf)
		if err != nil {
			return nil, err
		}

		if err := f.UnmarshalBinary(buf[:n]); err != nil {
			continue
		}
		if f.EtherType == et {
			return f, nil
		}
	}
}

// buildEchoRequest returns an IPv4 packet carrying an ICMP echo request.
func buildEchoRequest(src, dst netip.Addr, id, seq uint16, payload []byte) []byte {
	b := make([]byte, ipv4MinHeaderLen+icmpHeaderLen+len(payload))

	ip := b[:ipv4MinHeaderLen]
	ip[ipVersionIHL] = 4<<4 | ipv4MinHeaderLen/4
	put16(ip, ipTotalLength, uint16(len(b)))
	ip[ipTTL] = replyTTL
	ip[ipProtocol] = ipProtoICMP
	put32(ip, ipSrc, Identity{Addr: src}.hostAddr())
	put32(ip, ipDst, Identity{Addr: dst}.hostAddr())
	put16(ip, ipChecksum, Checksum(ip))

	icmp := b[ipv4MinHeaderLen:]
	icmp[icmpType] = icmpTypeEchoRequest
	put16(icmp, icmpID, id)
	put16(icmp, icmpSeq, seq)
	copy(icmp[icmpHeaderLen:], payload)
	put16(icmp, icmpChecksum, Checksum(icmp))

	return b
}

// firstIPv4Addr attempts to retrieve the first detected IPv4 address from an
// input slice of network addresses.
func firstIPv4Addr(addrs []net.Addr) (netip.Addr, error) {
	for _, a := range addrs {
		if a.Network() != "ip+net" {
			continue
		}

		p, err := netip.ParsePrefix(a.String())
		if err != nil {
			return netip.Addr{}, err
		}

		if ip := p.Addr().Unmap(); ip.Is4() {
			return ip, nil
		}
	}

	return netip.Addr{}, errNoIPv4Addr
}
