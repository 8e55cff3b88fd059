package netcore

import (
	"net"

	"github.com/mdlayher/raw"
	"github.com/sirupsen/logrus"
)

// A Link is a Transmitter which writes frames to a net.PacketConn, typically
// a raw Ethernet socket returned by Listen.  Each frame is addressed to the
// destination hardware address found in its own Ethernet header.
type Link struct {
	p   net.PacketConn
	log *logrus.Entry
}

// NewLink creates a Link writing to p.  Write errors are logged to l, or to
// the logrus standard logger if l is nil.
func NewLink(p net.PacketConn, l *logrus.Logger) *Link {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &Link{
		p:   p,
		log: l.WithField("component", "link"),
	}
}

// Transmit implements Transmitter.
func (l *Link) Transmit(frame []byte) {
	if len(frame) < ethHeaderLen {
		return
	}

	addr := &raw.Addr{
		HardwareAddr: net.HardwareAddr(frame[ethDst : ethDst+6]),
	}
	if _, err := l.p.WriteTo(frame, addr); err != nil {
		l.log.WithError(err).WithField("dst", addr.HardwareAddr.String()).Warn("transmit failed")
	}
}
