package netcore

import (
	"testing"

	"github.com/google/gopacket/layers"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MyuraASM/netcore/internal/frametest"
)

func TestARPReply(t *testing.T) {
	tests := []struct {
		desc  string
		frame []byte
	}{
		{
			desc:  "broadcast request",
			frame: frametest.ARPRequest(frametest.Peer, frametest.Local.IP),
		},
		{
			desc: "unicast request",
			frame: frametest.Serialize(
				&layers.Ethernet{
					SrcMAC:       frametest.Peer.MAC,
					DstMAC:       frametest.Local.MAC,
					EthernetType: layers.EthernetTypeARP,
				},
				&layers.ARP{
					AddrType:          layers.LinkTypeEthernet,
					Protocol:          layers.EthernetTypeIPv4,
					HwAddressSize:     6,
					ProtAddressSize:   4,
					Operation:         layers.ARPRequest,
					SourceHwAddress:   frametest.Peer.MAC,
					SourceProtAddress: frametest.Peer.IP.AsSlice(),
					DstHwAddress:      frametest.Local.MAC,
					DstProtAddress:    frametest.Local.IP.AsSlice(),
				},
			),
		},
		{
			desc:  "unpadded request",
			frame: frametest.ARPRequest(frametest.Peer, frametest.Local.IP)[:arpFrameLen],
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			r, rec := testResponder(t, nil)
			r.HandlePacket(tt.frame)

			require.Len(t, rec.frames, 1)
			reply := rec.frames[0]
			require.Len(t, reply, arpFrameLen)

			pkt := frametest.Decode(reply)
			eth, ok := pkt.Layer(layers.LayerTypeEthernet).(*layers.Ethernet)
			require.True(t, ok)
			assert.Equal(t, frametest.Peer.MAC, eth.DstMAC)
			assert.Equal(t, frametest.Local.MAC, eth.SrcMAC)
			assert.Equal(t, layers.EthernetTypeARP, eth.EthernetType)

			arp, ok := pkt.Layer(layers.LayerTypeARP).(*layers.ARP)
			require.True(t, ok)
			assert.Equal(t, layers.LinkTypeEthernet, arp.AddrType)
			assert.Equal(t, layers.EthernetTypeIPv4, arp.Protocol)
			assert.Equal(t, uint8(6), arp.HwAddressSize)
			assert.Equal(t, uint8(4), arp.ProtAddressSize)
			assert.Equal(t, uint16(layers.ARPReply), arp.Operation)
			assert.Equal(t, []byte(frametest.Local.MAC), arp.SourceHwAddress)
			assert.Equal(t, frametest.Local.IP.AsSlice(), arp.SourceProtAddress)
			assert.Equal(t, []byte(frametest.Peer.MAC), arp.DstHwAddress)
			assert.Equal(t, frametest.Peer.IP.AsSlice(), arp.DstProtAddress)
		})
	}
}

func TestARPDrop(t *testing.T) {
	request := frametest.ARPRequest(frametest.Peer, frametest.Local.IP)

	tests := []struct {
		desc   string
		frame  []byte
		reason string
	}{
		{
			desc:   "other target address",
			frame:  frametest.ARPRequest(frametest.Peer, frametest.Local.IP.Next()),
			reason: "not_for_us",
		},
		{
			desc:   "request sent by us",
			frame:  frametest.ARPRequest(frametest.Local, frametest.Peer.IP),
			reason: "not_for_us",
		},
		{
			desc:   "reply",
			frame:  frametest.ARP(layers.ARPReply, frametest.Peer, frametest.Local.MAC, frametest.Local.IP),
			reason: "operation",
		},
		{
			desc: "unknown operation",
			frame: func() []byte {
				b := append([]byte(nil), request...)
				put16(b, arpOperation, 3)
				return b
			}(),
			reason: "operation",
		},
		{
			desc:   "truncated",
			frame:  request[:arpFrameLen-1],
			reason: "short",
		},
		{
			desc:   "header only",
			frame:  request[:ethHeaderLen],
			reason: "short",
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			m := NewMetrics(nil)
			r, rec := testResponder(t, func(cfg *Config) {
				cfg.Metrics = m
			})
			r.HandlePacket(tt.frame)

			assert.Empty(t, rec.frames)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.Drops.WithLabelValues(protoARP, tt.reason)))
			assert.Equal(t, 1.0, testutil.ToFloat64(m.Frames.WithLabelValues(protoARP)))
		})
	}
}

func TestARPReplyDoesNotModifyRequest(t *testing.T) {
	frame := frametest.ARPRequest(frametest.Peer, frametest.Local.IP)
	orig := append([]byte(nil), frame...)

	r, rec := testResponder(t, nil)
	r.HandlePacket(frame)

	require.Len(t, rec.frames, 1)
	assert.Equal(t, orig, frame)
}

func TestOperationString(t *testing.T) {
	assert.Equal(t, "request", OperationRequest.String())
	assert.Equal(t, "reply", OperationReply.String())
	assert.Equal(t, "Operation(9)", Operation(9).String())
}

func TestARPLog(t *testing.T) {
	r, rec, hook := testResponderWithHook(t, false)
	r.HandlePacket(frametest.ARPRequest(frametest.Peer, frametest.Local.IP))

	require.Len(t, rec.frames, 1)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "arp reply: 192.168.0.200 is-at 52:54:00:12:34:56 (to 192.168.0.10 at aa:bb:cc:dd:ee:ff)",
		hook.LastEntry().Message)

	r, rec, hook = testResponderWithHook(t, true)
	r.HandlePacket(frametest.ARPRequest(frametest.Peer, frametest.Local.IP))
	r.HandlePacket(frametest.ARPRequest(frametest.Peer, frametest.Peer.IP))

	assert.Len(t, rec.frames, 1)
	assert.Empty(t, hook.AllEntries())
}
