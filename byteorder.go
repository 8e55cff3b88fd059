package netcore

import "encoding/binary"

// Htons converts a 16-bit value from host to network (big endian) byte order.
func Htons(v uint16) uint16 {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return binary.NativeEndian.Uint16(b[:])
}

// Ntohs converts a 16-bit value from network to host byte order.  The
// conversion is its own inverse, so Ntohs and Htons share an implementation.
func Ntohs(v uint16) uint16 { return Htons(v) }

// Htonl converts a 32-bit value from host to network (big endian) byte order.
func Htonl(v uint32) uint32 {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return binary.NativeEndian.Uint32(b[:])
}

// Ntohl converts a 32-bit value from network to host byte order.
func Ntohl(v uint32) uint32 { return Htonl(v) }

// Wire accessors.  Multi-byte header fields are loaded as stored in memory and
// converted at the boundary, so no field is ever read through a struct overlay.

func get16(b []byte, off int) uint16 {
	return Ntohs(binary.NativeEndian.Uint16(b[off : off+2]))
}

func put16(b []byte, off int, v uint16) {
	binary.NativeEndian.PutUint16(b[off:off+2], Htons(v))
}

func get32(b []byte, off int) uint32 {
	return Ntohl(binary.NativeEndian.Uint32(b[off : off+4]))
}

func put32(b []byte, off int, v uint32) {
	binary.NativeEndian.PutUint32(b[off:off+4], Htonl(v))
}
