package gencommon

import (
	"strings"
	"sync"
)

// builderPool hands out builders for rendering generated files
var builderPool = sync.Pool{
	New: func() any {
		b := new(strings.Builder)
		b.Grow(16 * 1024)
		return b
	},
}

// GetBuilder retrieves a builder from the pool
func GetBuilder() *strings.Builder {
	return builderPool.Get().(*strings.Builder)
}

// PutBuilder resets b and returns it to the pool
func PutBuilder(b *strings.Builder) {
	b.Reset()
	builderPool.Put(b)
}
