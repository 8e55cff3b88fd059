package netcore

import (
	"bytes"
	"errors"
	"io"
	"net"
	"net/netip"
	"testing"

	"github.com/google/gopacket/layers"
	"github.com/mdlayher/raw"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MyuraASM/netcore/internal/frametest"
)

func testClient(p net.PacketConn) *Client {
	return &Client{
		id: Identity{
			HardwareAddr: frametest.Peer.MAC,
			Addr:         frametest.Peer.IP,
		},
		p:    p,
		echo: 0x0102,
	}
}

func TestClientResolveIPv6Address(t *testing.T) {
	c := testClient(noopPacketConn{})

	_, got := c.Resolve(netip.IPv6Loopback())
	if want := ErrInvalidAddr; want != got {
		t.Fatalf("unexpected error for IPv6 address:\n- want: %v\n-  got: %v",
			want, got)
	}
}

func TestClientResolveErrWriteTo(t *testing.T) {
	errWriteTo := errors.New("test error")
	c := testClient(&errWriteToPacketConn{err: errWriteTo})

	_, got := c.Resolve(frametest.Local.IP)
	if want := errWriteTo; want != got {
		t.Fatalf("unexpected error during WriteTo:\n- want: %v\n-  got: %v",
			want, got)
	}
}

func TestClientResolveErrReadFrom(t *testing.T) {
	errReadFrom := errors.New("test error")
	c := testClient(&errReadFromPacketConn{err: errReadFrom})

	_, got := c.Resolve(frametest.Local.IP)
	if want := errReadFrom; want != got {
		t.Fatalf("unexpected error during ReadFrom:\n- want: %v\n-  got: %v",
			want, got)
	}
}

func TestClientResolveIgnoresUnrelatedFrames(t *testing.T) {
	tests := []struct {
		desc  string
		frame []byte
	}{
		{
			desc:  "truncated frame",
			frame: []byte{0},
		},
		{
			desc:  "wrong EtherType",
			frame: frametest.Ethernet(frametest.Local.MAC, frametest.Peer.MAC, layers.EthernetTypeIPv6, make([]byte, 46)),
		},
		{
			desc:  "request instead of reply",
			frame: frametest.ARPRequest(frametest.Local, frametest.Peer.IP),
		},
		{
			desc: "reply for another address",
			frame: frametest.ARP(layers.ARPReply, frametest.Host{
				MAC: frametest.Local.MAC,
				IP:  frametest.Local.IP.Next(),
			}, frametest.Peer.MAC, frametest.Peer.IP),
		},
		{
			desc:  "reply to another host",
			frame: frametest.ARP(layers.ARPReply, frametest.Local, net.HardwareAddr{0, 1, 2, 3, 4, 5}, frametest.Peer.IP),
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			c := testClient(&queuePacketConn{frames: [][]byte{tt.frame}})

			_, err := c.Resolve(frametest.Local.IP)
			assert.Equal(t, io.EOF, err)
		})
	}
}

func TestClientResolveRequest(t *testing.T) {
	p := &queuePacketConn{}
	c := testClient(p)

	_, err := c.Resolve(frametest.Local.IP)
	require.Equal(t, io.EOF, err)
	require.Len(t, p.written, 1)

	addr, ok := p.addrs[0].(*raw.Addr)
	require.True(t, ok, "unexpected address type %T", p.addrs[0])
	assert.Equal(t, layers.EthernetBroadcast, addr.HardwareAddr)

	pkt := frametest.Decode(p.written[0])
	eth, ok := pkt.Layer(layers.LayerTypeEthernet).(*layers.Ethernet)
	require.True(t, ok)
	assert.Equal(t, layers.EthernetBroadcast, eth.DstMAC)
	assert.Equal(t, frametest.Peer.MAC, eth.SrcMAC)

	arp, ok := pkt.Layer(layers.LayerTypeARP).(*layers.ARP)
	require.True(t, ok)
	assert.Equal(t, uint16(layers.ARPRequest), arp.Operation)
	assert.Equal(t, layers.LinkTypeEthernet, arp.AddrType)
	assert.Equal(t, layers.EthernetTypeIPv4, arp.Protocol)
	assert.Equal(t, []byte(frametest.Peer.MAC), arp.SourceHwAddress)
	assert.Equal(t, frametest.Peer.IP.AsSlice(), arp.SourceProtAddress)
	assert.Equal(t, make([]byte, 6), arp.DstHwAddress)
	assert.Equal(t, frametest.Local.IP.AsSlice(), arp.DstProtAddress)
}

func TestClientResolveResponder(t *testing.T) {
	p := newLoopbackPacketConn(t)
	c := testClient(p)

	mac, err := c.Resolve(frametest.Local.IP)
	require.NoError(t, err)
	assert.Equal(t, frametest.Local.MAC, mac)
}

func TestClientPingInvalidArguments(t *testing.T) {
	c := testClient(noopPacketConn{})

	_, err := c.Ping(frametest.Local.MAC, netip.IPv6Loopback(), 1, nil)
	assert.Equal(t, ErrInvalidAddr, err)

	_, err = c.Ping(net.HardwareAddr{0, 1}, frametest.Local.IP, 1, nil)
	assert.Equal(t, ErrInvalidHardwareAddr, err)
}

func TestClientPingErrWriteTo(t *testing.T) {
	errWriteTo := errors.New("test error")
	c := testClient(&errWriteToPacketConn{err: errWriteTo})

	_, err := c.Ping(frametest.Local.MAC, frametest.Local.IP, 1, nil)
	assert.Equal(t, errWriteTo, err)
}

func TestClientPingResponder(t *testing.T) {
	payload := []byte("abcdefghijklmnopqrstuvwabcdefghi")

	for _, size := range []int{0, 1, len(payload)} {
		p := newLoopbackPacketConn(t)
		c := testClient(p)

		_, err := c.Ping(frametest.Local.MAC, frametest.Local.IP, uint16(size), payload[:size])
		require.NoError(t, err, "payload size %d", size)
	}
}

func TestClientPingRequest(t *testing.T) {
	p := newLoopbackPacketConn(t)
	c := testClient(p)

	_, err := c.Ping(frametest.Local.MAC, frametest.Local.IP, 9, []byte("ping"))
	require.NoError(t, err)
	require.Len(t, p.written, 1)

	pkt := frametest.Decode(p.written[0])
	ip, ok := pkt.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
	require.True(t, ok)
	assert.Equal(t, frametest.Peer.IP.AsSlice(), []byte(ip.SrcIP.To4()))
	assert.Equal(t, frametest.Local.IP.AsSlice(), []byte(ip.DstIP.To4()))
	assert.Equal(t, layers.IPProtocolICMPv4, ip.Protocol)
	assert.Equal(t, uint16(ipv4MinHeaderLen+icmpHeaderLen+4), ip.Length)

	icmp, ok := pkt.Layer(layers.LayerTypeICMPv4).(*layers.ICMPv4)
	require.True(t, ok)
	assert.Equal(t, uint8(layers.ICMPv4TypeEchoRequest), icmp.TypeCode.Type())
	assert.Equal(t, uint16(0x0102), icmp.Id)
	assert.Equal(t, uint16(9), icmp.Seq)
}

func TestClientPingMismatch(t *testing.T) {
	p := newLoopbackPacketConn(t)
	// Corrupt the echoed payload but keep the reply checksum valid
	p.mangle = func(frame []byte) {
		icmp := frame[ethHeaderLen+ipv4MinHeaderLen:]
		icmp[icmpHeaderLen] ^= 0xff
		put16(icmp, icmpChecksum, 0)
		put16(icmp, icmpChecksum, Checksum(icmp))
	}
	c := testClient(p)

	_, err := c.Ping(frametest.Local.MAC, frametest.Local.IP, 1, []byte("ping"))
	assert.ErrorIs(t, err, ErrEchoMismatch)
}

func TestClientPingIgnoresInvalidReplies(t *testing.T) {
	tests := []struct {
		desc   string
		mangle func(frame []byte)
	}{
		{
			desc: "bad checksum",
			mangle: func(frame []byte) {
				frame[ethHeaderLen+ipv4MinHeaderLen+icmpChecksum] ^= 0xff
			},
		},
		{
			desc: "wrong sequence",
			mangle: func(frame []byte) {
				icmp := frame[ethHeaderLen+ipv4MinHeaderLen:]
				put16(icmp, icmpSeq, 2)
				put16(icmp, icmpChecksum, 0)
				put16(icmp, icmpChecksum, Checksum(icmp))
			},
		},
		{
			desc: "wrong source",
			mangle: func(frame []byte) {
				frame[ethHeaderLen+ipSrc+3]++
			},
		},
		{
			desc: "not ICMP",
			mangle: func(frame []byte) {
				frame[ethHeaderLen+ipProtocol] = ipProtoUDP
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			p := newLoopbackPacketConn(t)
			p.mangle = tt.mangle
			c := testClient(p)

			_, err := c.Ping(frametest.Local.MAC, frametest.Local.IP, 1, []byte("ping"))
			assert.Equal(t, io.EOF, err)
		})
	}
}

// queuePacketConn is a net.PacketConn which records every write and returns
// its queued frames from ReadFrom, one per call, followed by io.EOF.
type queuePacketConn struct {
	frames  [][]byte
	written [][]byte
	addrs   []net.Addr

	noopPacketConn
}

func (p *queuePacketConn) ReadFrom(b []byte) (int, net.Addr, error) {
	if len(p.frames) == 0 {
		return 0, nil, io.EOF
	}

	n := copy(b, p.frames[0])
	p.frames = p.frames[1:]
	return n, &raw.Addr{}, nil
}

func (p *queuePacketConn) WriteTo(b []byte, addr net.Addr) (int, error) {
	p.written = append(p.written, append([]byte(nil), b...))
	p.addrs = append(p.addrs, addr)
	return len(b), nil
}

// loopbackPacketConn is a queuePacketConn wired to a Responder: each frame
// written is handled by the Responder, and each reply is queued for reading
// after passing through mangle.
type loopbackPacketConn struct {
	r      *Responder
	mangle func(frame []byte)

	queuePacketConn
}

func newLoopbackPacketConn(t *testing.T) *loopbackPacketConn {
	t.Helper()

	p := &loopbackPacketConn{}
	r, err := NewResponder(Config{
		Identity: Identity{
			HardwareAddr: frametest.Local.MAC,
			Addr:         frametest.Local.IP,
		},
		Transmitter: TransmitterFunc(func(frame []byte) {
			b := append([]byte(nil), frame...)
			if p.mangle != nil {
				p.mangle(b)
			}
			p.frames = append(p.frames, b)
		}),
		Logger: quietLogger(),
	})
	require.NoError(t, err)

	p.r = r
	return p
}

func (p *loopbackPacketConn) WriteTo(b []byte, addr net.Addr) (int, error) {
	n, err := p.queuePacketConn.WriteTo(b, addr)
	p.r.HandlePacket(bytes.Clone(b))
	return n, err
}

// errWriteToPacketConn is a net.PacketConn which always returns its embedded
// error when its WriteTo method is called.
type errWriteToPacketConn struct {
	err error

	noopPacketConn
}

func (p *errWriteToPacketConn) WriteTo(b []byte, addr net.Addr) (int, error) { return 0, p.err }

// errReadFromPacketConn is a net.PacketConn which always returns its embedded
// error when its ReadFrom method is called.
type errReadFromPacketConn struct {
	err error

	noopPacketConn
}

func (p *errReadFromPacketConn) ReadFrom(b []byte) (int, net.Addr, error) { return 0, nil, p.err }
