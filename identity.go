package netcore

import (
	"errors"
	"net"
	"net/netip"
)

var (
	// ErrInvalidHardwareAddr is returned when an Identity's hardware address
	// is not a 6 byte Ethernet MAC address.
	ErrInvalidHardwareAddr = errors.New("invalid hardware address")

	// ErrInvalidAddr is returned when an Identity's network address is not
	// an IPv4 address.
	ErrInvalidAddr = errors.New("invalid IPv4 address")

	// ErrNoTransmitter is returned by NewResponder when Config.Transmitter
	// is nil.
	ErrNoTransmitter = errors.New("no transmitter configured")
)

// An Identity is the link and network address pair a Responder answers for.
// It is fixed at construction time and never modified by a Responder.
type Identity struct {
	// HardwareAddr is the Ethernet MAC address of the local interface.
	HardwareAddr net.HardwareAddr

	// Addr is the local IPv4 address.  IPv4-mapped IPv6 addresses are
	// accepted and unmapped.
	Addr netip.Addr
}

// Validate checks that id holds an Ethernet MAC address and an IPv4 address.
func (id Identity) Validate() error {
	if len(id.HardwareAddr) != 6 {
		return ErrInvalidHardwareAddr
	}
	if !id.Addr.Unmap().Is4() {
		return ErrInvalidAddr
	}
	return nil
}

// String returns "addr (hardware address)".
func (id Identity) String() string {
	return id.Addr.String() + " (" + id.HardwareAddr.String() + ")"
}

// hostAddr returns the identity's IPv4 address as a host order integer.
func (id Identity) hostAddr() uint32 {
	a := id.Addr.Unmap().As4()
	return get32(a[:], 0)
}
