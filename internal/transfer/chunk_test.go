// Streetcast - Fleet Display Advertising Dispatch
// Copyright 2026 Streetcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streetcast/streetcast

package transfer

import (
	"errors"
	"testing"
)

func TestChunkCount(t *testing.T) {
	tests := []struct {
		name      string
		fileSize  int64
		chunkSize int64
		want      int
	}{
		{"25 bytes in 10-byte chunks", 25, 10, 3},
		{"exact multiple", 30, 10, 3},
		{"single chunk", 5, 10, 1},
		{"empty file", 0, 10, 0},
		{"one byte over", 31, 10, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChunkCount(tt.fileSize, tt.chunkSize); got != tt.want {
				t.Errorf("ChunkCount(%d, %d) = %d, want %d",
					tt.fileSize, tt.chunkSize, got, tt.want)
			}
		})
	}
}

func TestChunkRange(t *testing.T) {
	// 25-byte file, 10-byte chunks: [0,10), [10,20), [20,25).
	tests := []struct {
		index      int
		wantOffset int64
		wantLength int64
	}{
		{0, 0, 10},
		{1, 10, 10},
		{2, 20, 5},
	}
	for _, tt := range tests {
		offset, length, err := ChunkRange(25, 10, tt.index)
		if err != nil {
			t.Fatalf("ChunkRange(25, 10, %d): %v", tt.index, err)
		}
		if offset != tt.wantOffset || length != tt.wantLength {
			t.Errorf("chunk %d = [%d, %d), want [%d, %d)",
				tt.index, offset, offset+length, tt.wantOffset, tt.wantOffset+tt.wantLength)
		}
	}
}

func TestChunkRangeOutOfRange(t *testing.T) {
	if _, _, err := ChunkRange(25, 10, 3); !errors.Is(err, ErrChunkOutOfRange) {
		t.Errorf("index 3 of 3 chunks: err = %v, want ErrChunkOutOfRange", err)
	}
	if _, _, err := ChunkRange(25, 10, -1); !errors.Is(err, ErrChunkOutOfRange) {
		t.Errorf("negative index: err = %v, want ErrChunkOutOfRange", err)
	}
}
