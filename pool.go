package blockstpl

import (
	"bytes"
	"sync"
)

// ----------------------------- Buffer pools ---------------------------------

var bufPool = sync.Pool{New: func() any { return new(bytes.Buffer) }}

// chunkSize is the read size used when comparing a template with its
// verification copy.
const chunkSize = 4096

// chunkPairPool hands out two chunkSize buffers at once, one per file.
var chunkPairPool = sync.Pool{
	New: func() any {
		b := make([]byte, 2*chunkSize)
		return &b
	},
}
