package blockstpl

import (
	"bytes"
	"io"
	"os"
)

// ----------------------------- Cache gatekeeper -----------------------------

// Gatekeeper decides whether a template has to be compiled again.
type Gatekeeper struct {
	// DevMode forces every check to report a recompile.
	DevMode bool
}

// NeedsCompile compares source with its verification copy at meta. Checks
// go from cheap to expensive: dev mode, modification times, sizes, and
// finally the bytes themselves. Any I/O failure counts as "changed".
func (g Gatekeeper) NeedsCompile(source, meta string) bool {
	if g.DevMode {
		return true
	}

	srcInfo, err := os.Stat(source)
	if err != nil {
		return true
	}
	metaInfo, err := os.Stat(meta)
	if err != nil {
		return true
	}
	if metaInfo.ModTime().Before(srcInfo.ModTime()) {
		return true
	}
	if metaInfo.Size() != srcInfo.Size() {
		return true
	}
	return !sameContent(source, meta)
}

// sameContent stream-compares two files chunk by chunk.
func sameContent(a, b string) bool {
	fa, err := os.Open(a)
	if err != nil {
		return false
	}
	defer fa.Close()
	fb, err := os.Open(b)
	if err != nil {
		return false
	}
	defer fb.Close()

	bufs := chunkPairPool.Get().(*[]byte)
	defer chunkPairPool.Put(bufs)
	ba, bb := (*bufs)[:chunkSize], (*bufs)[chunkSize:]

	for {
		na, errA := io.ReadFull(fa, ba)
		nb, errB := io.ReadFull(fb, bb)
		if na != nb || !bytes.Equal(ba[:na], bb[:nb]) {
			return false
		}
		doneA, doneB := isEOF(errA), isEOF(errB)
		if doneA != doneB {
			return false
		}
		if doneA {
			return true
		}
		if errA != nil || errB != nil {
			return false
		}
	}
}

func isEOF(err error) bool {
	return err == io.EOF || err == io.ErrUnexpectedEOF
}
