// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package secrets

import (
	"log/slog"
	"os"

	"github.com/awnumar/memguard"
	"golang.org/x/sys/unix"
)

// lockedOverheadPages covers memguard's canary and its key enclave, which
// are locked alongside the data pages.
const lockedOverheadPages = 4

// canLock reports whether the memlock limit leaves room for n bytes of
// locked memory.
func canLock(n int) bool {
	var rlimit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_MEMLOCK, &rlimit); err != nil {
		return false
	}
	if rlimit.Cur == unix.RLIM_INFINITY {
		return true
	}
	page := os.Getpagesize()
	need := ((n+page-1)/page + lockedOverheadPages) * page
	return rlimit.Cur >= uint64(need)
}

// holdPlaintext takes ownership of data. When the memlock limit allows, the
// bytes are moved into a locked buffer and the source slice is wiped;
// otherwise data is used in place. Calling release wipes the bytes in both
// cases, and view must not be used afterwards.
func holdPlaintext(data []byte, logger *slog.Logger) (view []byte, release func()) {
	if len(data) == 0 {
		return nil, func() {}
	}
	if !canLock(len(data)) {
		logger.Warn("Memlock limit too low, decrypted secrets held in ordinary memory", "bytes", len(data))
		return data, func() { memguard.WipeBytes(data) }
	}
	buf := memguard.NewBufferFromBytes(data)
	return buf.Bytes(), buf.Destroy
}

// wipe zeroes data in place.
func wipe(data []byte) {
	if len(data) > 0 {
		memguard.WipeBytes(data)
	}
}
