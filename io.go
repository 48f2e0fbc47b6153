// Copyright (c) 2025 Neomantra Corp
// Reader/Writer compression helpers for tick and fill files.

package backtest

import (
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// wantZstd reports whether a stream should be zstd-wrapped: either forced by
// the caller or implied by the filename suffix.
func wantZstd(filename string, force bool) bool {
	if force {
		return true
	}
	switch filepath.Ext(filename) {
	case ".zst", ".zstd":
		return true
	}
	return false
}

// closeStack closes its entries in LIFO order, so compression layers flush
// before the underlying file closes.
type closeStack []io.Closer

func (cs closeStack) closeAll() {
	for i := len(cs) - 1; i >= 0; i-- {
		cs[i].Close()
	}
}

// closerFunc adapts a plain func to io.Closer.
type closerFunc func()

func (f closerFunc) Close() error {
	f()
	return nil
}

// OpenTickReader returns an io.Reader for the given filename, or os.Stdin if
// filename is "-", plus a closing function to defer. The stream is
// zstd-decompressed when wantZstd says so.
func OpenTickReader(filename string, forceZstd bool) (io.Reader, func(), error) {
	var stack closeStack
	var reader io.Reader = os.Stdin
	if filename != "-" {
		file, err := os.Open(filename)
		if err != nil {
			return nil, nil, err
		}
		reader = file
		stack = append(stack, file)
	}
	if wantZstd(filename, forceZstd) {
		zstdReader, err := zstd.NewReader(reader)
		if err != nil {
			stack.closeAll()
			return nil, nil, err
		}
		reader = zstdReader
		stack = append(stack, closerFunc(zstdReader.Close))
	}
	return reader, stack.closeAll, nil
}

// CreateTickWriter returns an io.Writer for the given filename, or os.Stdout
// if filename is "-", plus a closing function to defer. The stream is
// zstd-compressed when wantZstd says so.
func CreateTickWriter(filename string, forceZstd bool) (io.Writer, func(), error) {
	var stack closeStack
	var writer io.Writer = os.Stdout
	if filename != "-" {
		file, err := os.Create(filename)
		if err != nil {
			return nil, nil, err
		}
		writer = file
		stack = append(stack, file)
	}
	if wantZstd(filename, forceZstd) {
		zstdWriter, err := zstd.NewWriter(writer)
		if err != nil {
			stack.closeAll()
			return nil, nil, err
		}
		writer = zstdWriter
		stack = append(stack, zstdWriter)
	}
	return writer, stack.closeAll, nil
}
