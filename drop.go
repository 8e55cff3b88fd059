package netcore

// A drop is the reason a frame produced no reply.  It carries no payload and
// never leaves the package as an error: it only feeds diagnostics and metrics.
type drop uint8

const (
	dropNone drop = iota
	dropShort
	dropBadHeader
	dropOversize
	dropNotForUs
	dropOperation
	dropType
	dropEtherType
	dropProtocol
	dropBadChecksum
	dropNoHandler
)

var dropNames = [...]string{
	dropNone:        "none",
	dropShort:       "short",
	dropBadHeader:   "bad_header",
	dropOversize:    "oversize",
	dropNotForUs:    "not_for_us",
	dropOperation:   "operation",
	dropType:        "type",
	dropEtherType:   "ethertype",
	dropProtocol:    "protocol",
	dropBadChecksum: "bad_checksum",
	dropNoHandler:   "no_handler",
}

func (d drop) String() string {
	if int(d) < len(dropNames) {
		return dropNames[d]
	}
	return "unknown"
}

// Protocol labels used in diagnostics and metrics.
const (
	protoEthernet = "ethernet"
	protoARP      = "arp"
	protoIPv4     = "ipv4"
	protoICMP     = "icmp"
	protoUDP      = "udp"
)
