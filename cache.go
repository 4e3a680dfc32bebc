package blockstpl

import (
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// ----------------------------- Compilation cache ----------------------------

// CompileCache memoises Compile results in memory, keyed by a hash of the
// source and the options that change the output.
type CompileCache struct {
	mu      sync.RWMutex
	outputs map[uint64]*Output
	maxSize int
}

// NewCompileCache creates a cache holding at most maxSize outputs.
func NewCompileCache(maxSize int) *CompileCache {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &CompileCache{
		outputs: make(map[uint64]*Output),
		maxSize: maxSize,
	}
}

func (cc *CompileCache) Compile(src string, opts ...Option) (*Output, error) {
	co := newCompileOptions(opts)
	key := cacheKey(src, co)

	cc.mu.RLock()
	out, exists := cc.outputs[key]
	cc.mu.RUnlock()

	if exists {
		return out, nil
	}

	out, err := Compile(src, opts...)
	if err != nil {
		return nil, err
	}

	cc.mu.Lock()
	if len(cc.outputs) >= cc.maxSize {
		// evict an arbitrary entry
		for k := range cc.outputs {
			delete(cc.outputs, k)
			break
		}
	}
	cc.outputs[key] = out
	cc.mu.Unlock()

	return out, nil
}

// Len returns the number of memoised outputs.
func (cc *CompileCache) Len() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.outputs)
}

func (cc *CompileCache) Clear() {
	cc.mu.Lock()
	cc.outputs = make(map[uint64]*Output)
	cc.mu.Unlock()
}

func cacheKey(src string, co compileOptions) uint64 {
	d := xxhash.New()
	d.WriteString(co.dialect.Name())
	d.WriteString(strconv.FormatBool(co.strict))
	d.WriteString(co.filename)
	d.WriteString("\x00")
	d.WriteString(src)
	return d.Sum64()
}
