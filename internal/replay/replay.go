// Package replay drives a Responder from a pcap capture and records its
// replies to another capture, so answers can be inspected without a live
// interface.
package replay

import (
	"fmt"
	"io"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/MyuraASM/netcore"
)

// snaplen of the output capture: large enough for any reply.
const snaplen = 65536

// Result summarizes a replay.
type Result struct {
	// Frames is the number of frames read from the input capture.
	Frames int
	// Replies is the number of replies written to the output capture.
	Replies int
}

// pcapTransmitter is a netcore.Transmitter which records each frame to a
// pcap writer, stamped with the capture info of the frame being handled.
type pcapTransmitter struct {
	w   *pcapgo.Writer
	ci  gopacket.CaptureInfo
	n   int
	err error
}

func (t *pcapTransmitter) Transmit(frame []byte) {
	if t.err != nil {
		return
	}

	ci := t.ci
	ci.CaptureLength = len(frame)
	ci.Length = len(frame)
	if err := t.w.WritePacket(ci, frame); err != nil {
		t.err = err
		return
	}
	t.n++
}

// Run reads Ethernet frames from the pcap capture in, hands each one to a
// Responder built from cfg, and writes every reply to out as a pcap capture.
// cfg.Transmitter is replaced.
func Run(in io.Reader, out io.Writer, cfg netcore.Config) (Result, error) {
	var res Result

	r, err := pcapgo.NewReader(in)
	if err != nil {
		return res, fmt.Errorf("failed to read capture header: %w", err)
	}
	if lt := r.LinkType(); lt != layers.LinkTypeEthernet {
		return res, fmt.Errorf("unsupported link type %s", lt)
	}

	w := pcapgo.NewWriter(out)
	if err := w.WriteFileHeader(snaplen, layers.LinkTypeEthernet); err != nil {
		return res, fmt.Errorf("failed to write capture header: %w", err)
	}

	tx := &pcapTransmitter{w: w}
	cfg.Transmitter = tx
	resp, err := netcore.NewResponder(cfg)
	if err != nil {
		return res, err
	}

	for {
		data, ci, err := r.ReadPacketData()
		if err == io.EOF {
			break
		}
		if err != nil {
			return res, fmt.Errorf("failed to read packet %d: %w", res.Frames+1, err)
		}

		res.Frames++
		tx.ci = ci
		resp.HandlePacket(data)
		if tx.err != nil {
			return res, fmt.Errorf("failed to write reply: %w", tx.err)
		}
		res.Replies = tx.n
	}

	return res, nil
}
