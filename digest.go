// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psarc

package psarc

import "crypto/md5"

// nameDigest returns MD5(storedPath), the TOC's name_digest field.
func nameDigest(storedPath string) [digestSize]byte {
	return md5.Sum([]byte(storedPath))
}

// isManifestDigest reports whether d is the all-zero manifest sentinel.
func isManifestDigest(d [digestSize]byte) bool {
	return d == [digestSize]byte{}
}
