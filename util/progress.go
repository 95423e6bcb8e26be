// Copyright The ovirt-iso-upload Authors
// SPDX-License-Identifier: Apache-2.0

package util

import (
	"fmt"
	"io"
	"time"

	"github.com/coreos/ioprogress"
	"github.com/coreos/pkg/capnslog"
)

var plog = capnslog.NewPackageLogger("github.com/westonbelk/ovirt-iso-upload", "util")

// DefaultChunkSize bounds memory use while keeping progress reporting
// responsive without excessive syscall overhead.
const DefaultChunkSize = 128 * 1024

// ChunkedCopier copies a byte stream of known length in fixed-size chunks,
// reporting progress along the way. Progress is reported at most once per
// Interval, except for the final report which always fires at 100%.
type ChunkedCopier struct {
	ChunkSize int64
	Interval  time.Duration
	Progress  func(sent, total int64)
}

func NewChunkedCopier() *ChunkedCopier {
	c := &ChunkedCopier{
		ChunkSize: DefaultChunkSize,
		Interval:  time.Second,
	}
	c.Progress = c.defaultProgress
	return c
}

func (c *ChunkedCopier) defaultProgress(sent, total int64) {
	plog.Infof("Transferred %s (%d%%)",
		ioprogress.DrawTextFormatBytes(sent, total), Percent(sent, total))
}

// Percent reports sent as a whole percentage of total, bounded to [0, 100].
func Percent(sent, total int64) int {
	if total <= 0 {
		return 0
	}
	p := int(sent * 100 / total)
	if p > 100 {
		p = 100
	}
	return p
}

// Copy transfers exactly total bytes from r to w. The source must deliver
// every byte it promised: running dry early means the file shrank after its
// size was measured, which is unrecoverable, so Copy stops before writing
// the partial chunk and reports how far it got.
func (c *ChunkedCopier) Copy(w io.Writer, r io.Reader, total int64) (int64, error) {
	buf := make([]byte, c.ChunkSize)
	var sent int64
	lastReport := time.Now()

	for sent < total {
		chunk := buf
		if remaining := total - sent; remaining < int64(len(chunk)) {
			chunk = chunk[:remaining]
		}

		n, err := io.ReadFull(r, chunk)
		if err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return sent, fmt.Errorf("source ended early: read %d of %d bytes", sent+int64(n), total)
			}
			return sent, err
		}

		if _, err := w.Write(chunk); err != nil {
			return sent, err
		}
		sent += int64(n)

		if c.Progress != nil && (sent == total || time.Since(lastReport) >= c.Interval) {
			c.Progress(sent, total)
			lastReport = time.Now()
		}
	}

	return sent, nil
}
