// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psarc

package psarc

import "encoding/binary"

// readU16BE reads a big-endian uint16 from b[0:2].
func readU16BE(b []byte) (uint16, error) {
	if len(b) < 2 {
		return 0, ErrTruncated
	}

	return binary.BigEndian.Uint16(b), nil
}

// readU24BE reads a big-endian, zero-extended 24-bit unsigned integer from b[0:3].
func readU24BE(b []byte) (uint32, error) {
	if len(b) < 3 {
		return 0, ErrTruncated
	}

	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2]), nil
}

// readU32BE reads a big-endian uint32 from b[0:4].
func readU32BE(b []byte) (uint32, error) {
	if len(b) < 4 {
		return 0, ErrTruncated
	}

	return binary.BigEndian.Uint32(b), nil
}

// readU40BE reads a big-endian, zero-extended 40-bit unsigned integer from b[0:5].
func readU40BE(b []byte) (uint64, error) {
	if len(b) < 5 {
		return 0, ErrTruncated
	}

	var v uint64
	for i := 0; i < 5; i++ {
		v = v<<8 | uint64(b[i])
	}

	return v, nil
}

// readU64BE reads a big-endian uint64 from b[0:8].
func readU64BE(b []byte) (uint64, error) {
	if len(b) < 8 {
		return 0, ErrTruncated
	}

	return binary.BigEndian.Uint64(b), nil
}

// putU16BE writes v into b[0:2] big-endian.
func putU16BE(b []byte, v uint16) error {
	if len(b) < 2 {
		return ErrTruncated
	}

	binary.BigEndian.PutUint16(b, v)

	return nil
}

// putU24BE writes the low 24 bits of v into b[0:3] big-endian.
func putU24BE(b []byte, v uint32) error {
	if len(b) < 3 {
		return ErrTruncated
	}

	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)

	return nil
}

// putU32BE writes v into b[0:4] big-endian.
func putU32BE(b []byte, v uint32) error {
	if len(b) < 4 {
		return ErrTruncated
	}

	binary.BigEndian.PutUint32(b, v)

	return nil
}

// putU40BE writes the low 40 bits of v into b[0:5] big-endian.
func putU40BE(b []byte, v uint64) error {
	if len(b) < 5 {
		return ErrTruncated
	}

	b[0] = byte(v >> 32)
	b[1] = byte(v >> 24)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 8)
	b[4] = byte(v)

	return nil
}

// putU64BE writes v into b[0:8] big-endian.
func putU64BE(b []byte, v uint64) error {
	if len(b) < 8 {
		return ErrTruncated
	}

	binary.BigEndian.PutUint64(b, v)

	return nil
}
