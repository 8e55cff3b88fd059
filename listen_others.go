//go:build !linux

package netcore

import (
	"errors"
	"net"
)

// Listen is only implemented on Linux.
func Listen(ifi *net.Interface) (net.PacketConn, error) {
	return nil, errors.New("netcore: raw Ethernet sockets are only supported on Linux")
}
