package netcore

import (
	"net"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentity(t *testing.T) {
	id := Identity{
		HardwareAddr: net.HardwareAddr{0x52, 0x54, 0x00, 0x12, 0x34, 0x56},
		Addr:         netip.MustParseAddr("::ffff:192.168.0.200"),
	}

	assert.NoError(t, id.Validate())
	assert.Equal(t, uint32(0xc0a800c8), id.hostAddr())
	assert.Equal(t, "192.168.0.200 (52:54:00:12:34:56)", Identity{
		HardwareAddr: id.HardwareAddr,
		Addr:         id.Addr.Unmap(),
	}.String())

	assert.ErrorIs(t, Identity{Addr: id.Addr}.Validate(), ErrInvalidHardwareAddr)
	assert.ErrorIs(t, Identity{HardwareAddr: id.HardwareAddr}.Validate(), ErrInvalidAddr)
}
