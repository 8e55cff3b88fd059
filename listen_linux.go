//go:build linux

package netcore

import (
	"net"

	"github.com/mdlayher/raw"
	"golang.org/x/sys/unix"
)

// Listen opens a raw Ethernet socket on ifi which receives frames of every
// EtherType.
func Listen(ifi *net.Interface) (net.PacketConn, error) {
	p, err := raw.ListenPacket(ifi, unix.ETH_P_ALL, nil)
	if err != nil {
		return nil, err
	}
	return p, nil
}
