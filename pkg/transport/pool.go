package transport

import "sync"

var stagePool = sync.Pool{
	New: func() any {
		b := make([]byte, defaultBufferSize)
		return &b
	},
}

// rentStage returns a staging buffer of exactly size bytes. Buffers of the
// default size come from a pool.
func rentStage(size int) *[]byte {
	if size != defaultBufferSize {
		b := make([]byte, size)
		return &b
	}
	return stagePool.Get().(*[]byte)
}

func returnStage(b *[]byte) {
	if b == nil || len(*b) != defaultBufferSize {
		return
	}
	stagePool.Put(b)
}
