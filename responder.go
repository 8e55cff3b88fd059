package netcore

import (
	"github.com/mdlayher/ethernet"
	"github.com/sirupsen/logrus"
)

// Ethernet II header layout.
const (
	ethHeaderLen = 14

	ethDst  = 0
	ethSrc  = 6
	ethType = 12
)

// Config configures a Responder.
type Config struct {
	// Identity is the address pair the Responder answers for.
	Identity Identity

	// Transmitter sends replies.  It must not be nil.
	Transmitter Transmitter

	// UDP receives UDP datagrams addressed to Identity.  If nil, they are
	// dropped.
	UDP UDPHandler

	// Logger receives diagnostics at debug level.  If nil, the logrus
	// standard logger is used.
	Logger *logrus.Logger

	// Metrics, if set, is updated for every frame.
	Metrics *Metrics

	// Silent suppresses all diagnostic output.
	Silent bool

	// VerifyChecksums drops echo requests whose IPv4 header or ICMP
	// checksum does not validate.
	VerifyChecksums bool
}

// A Responder answers ARP requests and ICMP echo requests addressed to its
// Identity, and hands UDP datagrams addressed to it to a UDPHandler.
//
// A Responder holds no mutable state: HandlePacket may be called
// concurrently, each call building its reply in its own buffer.
type Responder struct {
	id  Identity
	mac [6]byte
	ip  uint32

	tx      Transmitter
	udp     UDPHandler
	log     *logrus.Entry
	metrics *Metrics
	silent  bool
	verify  bool
}

// NewResponder creates a Responder from cfg.  An error is returned if the
// identity is invalid or no Transmitter is configured.
func NewResponder(cfg Config) (*Responder, error) {
	if err := cfg.Identity.Validate(); err != nil {
		return nil, err
	}
	if cfg.Transmitter == nil {
		return nil, ErrNoTransmitter
	}

	l := cfg.Logger
	if l == nil {
		l = logrus.StandardLogger()
	}

	r := &Responder{
		id: Identity{
			HardwareAddr: append([]byte(nil), cfg.Identity.HardwareAddr...),
			Addr:         cfg.Identity.Addr.Unmap(),
		},
		ip:      cfg.Identity.hostAddr(),
		tx:      cfg.Transmitter,
		udp:     cfg.UDP,
		log:     l.WithField("component", "responder"),
		metrics: cfg.Metrics,
		silent:  cfg.Silent,
		verify:  cfg.VerifyChecksums,
	}
	copy(r.mac[:], cfg.Identity.HardwareAddr)
	return r, nil
}

// Identity returns the address pair r answers for.
func (r *Responder) Identity() Identity {
	return Identity{
		HardwareAddr: append([]byte(nil), r.id.HardwareAddr...),
		Addr:         r.id.Addr,
	}
}

// HandlePacket is the single entry point for every received Ethernet frame.
// It transmits at most one reply; frames which are malformed, not addressed
// to r, or of an unsupported protocol are dropped silently.
func (r *Responder) HandlePacket(frame []byte) {
	if len(frame) < ethHeaderLen {
		r.metrics.frame("short")
		r.dropped(protoEthernet, dropShort)
		return
	}

	switch ethernet.EtherType(get16(frame, ethType)) {
	case ethernet.EtherTypeARP:
		r.metrics.frame(protoARP)
		// ARP requests are broadcast, so there is no destination filter.
		r.handleARP(frame)
	case ethernet.EtherTypeIPv4:
		r.metrics.frame(protoIPv4)
		r.handleIPv4(frame, ethHeaderLen)
	default:
		r.metrics.frame("other")
		r.dropped(protoEthernet, dropEtherType)
	}
}

func (r *Responder) handleIPv4(frame []byte, off int) {
	if len(frame) < off+ipv4MinHeaderLen {
		r.dropped(protoIPv4, dropShort)
		return
	}
	if get32(frame, off+ipDst) != r.ip {
		r.dropped(protoIPv4, dropNotForUs)
		return
	}

	switch frame[off+ipProtocol] {
	case ipProtoICMP:
		r.handleICMP(frame, off)
	case ipProtoUDP:
		if r.udp == nil {
			r.dropped(protoUDP, dropNoHandler)
			return
		}
		r.metrics.udp()
		r.udp.ServeUDP(frame, off)
	default:
		r.dropped(protoIPv4, dropProtocol)
	}
}

func (r *Responder) transmit(proto string, frame []byte) {
	r.tx.Transmit(frame)
	r.metrics.reply(proto)
}

func (r *Responder) dropped(proto string, d drop) {
	r.metrics.drop(proto, d)
	if r.debug() {
		r.log.WithFields(logrus.Fields{
			"proto":  proto,
			"reason": d.String(),
		}).Debug("drop")
	}
}

// debug reports whether diagnostics should be built at all.
func (r *Responder) debug() bool {
	return !r.silent && r.log.Logger.IsLevelEnabled(logrus.DebugLevel)
}
