package netcore

// maxRecordSize is the largest region checksummed by this package: a full
// reply buffer.
const maxRecordSize = replyBufferSize

// Checksum computes the Internet checksum as defined by RFC 1071: the 16-bit
// ones' complement of the ones' complement sum of all 16-bit big endian words
// in b.  If b has an odd length, the final byte is treated as the high byte
// of a word padded with zero.
//
// The result is in host order and is meant to be written with put16.
func Checksum(b []byte) uint16 {
	var sum uint32
	n := len(b) &^ 1
	for i := 0; i < n; i += 2 {
		sum += uint32(b[i])<<8 | uint32(b[i+1])
	}
	if len(b)&1 != 0 {
		sum += uint32(b[len(b)-1]) << 8
	}
	for sum>>16 != 0 {
		sum = sum&0xffff + sum>>16
	}
	return ^uint16(sum)
}

// ChecksumSafe stages b through a local scratch buffer before computing its
// Checksum, so the summed region never aliases the record being built.  The
// result is identical to Checksum for identical bytes.  Regions larger than
// the scratch buffer are summed in place.
func ChecksumSafe(b []byte) uint16 {
	if len(b) > maxRecordSize {
		return Checksum(b)
	}
	var scratch [maxRecordSize]byte
	n := copy(scratch[:], b)
	return Checksum(scratch[:n])
}

// ValidChecksum reports whether b, a region which already carries its own
// checksum field, sums to the ones' complement of zero.
func ValidChecksum(b []byte) bool {
	return Checksum(b) == 0
}
