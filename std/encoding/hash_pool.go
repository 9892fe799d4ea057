package encoding

import (
	"bytes"
	"sync"

	"github.com/cespare/xxhash"
)

// xxHasher bundles a reusable hash state with a scratch buffer so that
// Name.Hash and Name.PrefixHash can encode components without allocating
// on every call.
type xxHasher struct {
	hash   *xxhash.Digest
	buffer bytes.Buffer
}

// Get fetches an xxHasher from the pool with a freshly reset hash state.
func (p *xxHasherPool) Get() *xxHasher {
	xx := p.pool.Get().(*xxHasher)
	xx.hash.Reset()
	xx.buffer.Reset()
	return xx
}

// Put returns an xxHasher to the pool for reuse.
func (p *xxHasherPool) Put(xx *xxHasher) {
	p.pool.Put(xx)
}

type xxHasherPool struct {
	pool sync.Pool
}

// xxHashPool is the process-wide pool backing Name.Hash and Name.PrefixHash.
var xxHashPool = &xxHasherPool{
	pool: sync.Pool{
		New: func() any {
			return &xxHasher{hash: xxhash.New()}
		},
	},
}
