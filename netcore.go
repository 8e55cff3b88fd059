// Package netcore implements a link-layer and network-layer packet responder
// which answers ARP requests (RFC 826) and ICMP echo requests (RFC 792) on
// behalf of a single, statically configured identity.
//
// Frames are handed to a Responder by a driver, which may be the raw socket
// Server in this package, an offline pcap replay, or any other source of
// Ethernet II frames.
package netcore

// Transmitter provides an interface which allows a Responder to send a fully
// formed Ethernet frame onto the link.  The frame is only valid for the
// duration of the call; implementations which retain it must copy it.
//
// Transmit reports nothing back to the Responder: delivery is best-effort.
type Transmitter interface {
	Transmit(frame []byte)
}

// TransmitterFunc is an adapter type which allows the use of normal functions
// as Transmitters.  If f is a function with the appropriate signature,
// TransmitterFunc(f) is a Transmitter that calls f.
type TransmitterFunc func(frame []byte)

// Transmit calls f(frame), allowing regular functions to implement Transmitter.
func (f TransmitterFunc) Transmit(frame []byte) {
	f(frame)
}

// UDPHandler provides an interface which allows UDP datagrams addressed to
// the local identity to be handled outside of this package.  ServeUDP receives
// the complete Ethernet frame along with the offset of its IPv4 header.
type UDPHandler interface {
	ServeUDP(frame []byte, ipOffset int)
}

// UDPHandlerFunc is an adapter type which allows the use of normal functions
// as UDP handlers.
type UDPHandlerFunc func(frame []byte, ipOffset int)

// ServeUDP calls f(frame, ipOffset).
func (f UDPHandlerFunc) ServeUDP(frame []byte, ipOffset int) {
	f(frame, ipOffset)
}
