// Streetcast - Fleet Display Advertising Dispatch
// Copyright 2026 Streetcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streetcast/streetcast

// Package transfer implements the chunked, resumable video download
// protocol: pure chunk arithmetic for the HTTP endpoints and advisory
// per-(device, advertisement) session state for observability.
package transfer

import (
	"errors"
	"fmt"
)

// ErrChunkOutOfRange is returned when a requested chunk index is at or
// beyond the file's total chunk count.
var ErrChunkOutOfRange = errors.New("chunk index out of range")

// ChunkCount returns ceil(fileSize / chunkSize). A zero-byte file has zero
// chunks.
func ChunkCount(fileSize, chunkSize int64) int {
	if fileSize <= 0 || chunkSize <= 0 {
		return 0
	}
	return int((fileSize + chunkSize - 1) / chunkSize)
}

// ChunkRange returns the byte range [offset, offset+length) of chunk index
// within a file of fileSize bytes. The final chunk may be short. Fails with
// ErrChunkOutOfRange when index >= ChunkCount(fileSize, chunkSize).
func ChunkRange(fileSize, chunkSize int64, index int) (offset, length int64, err error) {
	total := ChunkCount(fileSize, chunkSize)
	if index < 0 || index >= total {
		return 0, 0, fmt.Errorf("chunk %d of %d: %w", index, total, ErrChunkOutOfRange)
	}
	offset = int64(index) * chunkSize
	length = chunkSize
	if offset+length > fileSize {
		length = fileSize - offset
	}
	return offset, length, nil
}
