// Package frametest builds Ethernet frames for tests with gopacket, so that
// the frames fed to a Responder and the decoding of its replies never share
// code with the Responder itself.
package frametest

import (
	"net"
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// Host is one end of a test exchange.
type Host struct {
	MAC net.HardwareAddr
	IP  netip.Addr
}

// Common test hosts.
var (
	Local = Host{
		MAC: net.HardwareAddr{0x52, 0x54, 0x00, 0x12, 0x34, 0x56},
		IP:  netip.MustParseAddr("192.168.0.200"),
	}
	Peer = Host{
		MAC: net.HardwareAddr{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff},
		IP:  netip.MustParseAddr("192.168.0.10"),
	}
)

// Serialize serializes ls with lengths and checksums computed.  It panics on
// error.
func Serialize(ls ...gopacket.SerializableLayer) []byte {
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, ls...); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// ARP returns an ARP frame for IPv4 over Ethernet from sender, asking about
// (or answering for) target.  Frames are padded to the Ethernet minimum.
func ARP(op uint16, sender Host, targetMAC net.HardwareAddr, targetIP netip.Addr) []byte {
	if targetMAC == nil {
		targetMAC = net.HardwareAddr{0, 0, 0, 0, 0, 0}
	}
	dst := layers.EthernetBroadcast
	if op == layers.ARPReply {
		dst = targetMAC
	}

	return Serialize(
		&layers.Ethernet{
			SrcMAC:       sender.MAC,
			DstMAC:       dst,
			EthernetType: layers.EthernetTypeARP,
		},
		&layers.ARP{
			AddrType:          layers.LinkTypeEthernet,
			Protocol:          layers.EthernetTypeIPv4,
			HwAddressSize:     6,
			ProtAddressSize:   4,
			Operation:         op,
			SourceHwAddress:   sender.MAC,
			SourceProtAddress: sender.IP.AsSlice(),
			DstHwAddress:      targetMAC,
			DstProtAddress:    targetIP.AsSlice(),
		},
	)
}

// ARPRequest returns a broadcast who-has request from sender for target.
func ARPRequest(sender Host, target netip.Addr) []byte {
	return ARP(layers.ARPRequest, sender, nil, target)
}

// Echo describes an ICMP echo message.
type Echo struct {
	Src, Dst Host
	ID, Seq  uint16
	Payload  []byte
	TTL      uint8

	// Type defaults to an echo request.  An echo reply has the zero type
	// code, so it cannot be expressed here.
	Type layers.ICMPv4TypeCode

	// Options are IPv4 header options; they lengthen the header past 20 bytes.
	Options []layers.IPv4Option
}

// Frame serializes the echo message in an Ethernet frame from Src to Dst.
func (e Echo) Frame() []byte {
	typ := e.Type
	if typ == 0 {
		typ = layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0)
	}
	ttl := e.TTL
	if ttl == 0 {
		ttl = 64
	}

	return Serialize(
		&layers.Ethernet{
			SrcMAC:       e.Src.MAC,
			DstMAC:       e.Dst.MAC,
			EthernetType: layers.EthernetTypeIPv4,
		},
		&layers.IPv4{
			Version:  4,
			TTL:      ttl,
			Id:       0x1c46,
			Flags:    layers.IPv4DontFragment,
			Protocol: layers.IPProtocolICMPv4,
			SrcIP:    e.Src.IP.AsSlice(),
			DstIP:    e.Dst.IP.AsSlice(),
			Options:  e.Options,
		},
		&layers.ICMPv4{
			TypeCode: typ,
			Id:       e.ID,
			Seq:      e.Seq,
		},
		gopacket.Payload(e.Payload),
	)
}

// UDP returns a UDP datagram in an Ethernet frame from src to dst.
func UDP(src, dst Host, srcPort, dstPort layers.UDPPort, payload []byte) []byte {
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    src.IP.AsSlice(),
		DstIP:    dst.IP.AsSlice(),
	}
	udp := &layers.UDP{SrcPort: srcPort, DstPort: dstPort}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		panic(err)
	}

	return Serialize(
		&layers.Ethernet{
			SrcMAC:       src.MAC,
			DstMAC:       dst.MAC,
			EthernetType: layers.EthernetTypeIPv4,
		},
		ip,
		udp,
		gopacket.Payload(payload),
	)
}

// IPv4 returns an IPv4 packet of an arbitrary protocol in an Ethernet frame.
func IPv4(src, dst Host, proto layers.IPProtocol, payload []byte) []byte {
	return Serialize(
		&layers.Ethernet{
			SrcMAC:       src.MAC,
			DstMAC:       dst.MAC,
			EthernetType: layers.EthernetTypeIPv4,
		},
		&layers.IPv4{
			Version:  4,
			TTL:      64,
			Protocol: proto,
			SrcIP:    src.IP.AsSlice(),
			DstIP:    dst.IP.AsSlice(),
		},
		gopacket.Payload(payload),
	)
}

// Ethernet returns a frame of an arbitrary EtherType.
func Ethernet(src, dst net.HardwareAddr, et layers.EthernetType, payload []byte) []byte {
	return Serialize(
		&layers.Ethernet{
			SrcMAC:       src,
			DstMAC:       dst,
			EthernetType: et,
		},
		gopacket.Payload(payload),
	)
}

// Decode decodes an Ethernet frame and every layer it carries.
func Decode(frame []byte) gopacket.Packet {
	return gopacket.NewPacket(frame, layers.LayerTypeEthernet, gopacket.Default)
}
