package element

import (
	"sync"

	"github.com/arbor-ui/arbor/tree"
)

// Index is the *tree.Node -> *Node lookup a frame.Driver needs to resolve
// an arbitrary lane's batch roots back to the element tree, since a batch
// may name any subtree root, not just the overall tree root. Populated at
// mount time and cleaned up at unmount time.
type Index struct {
	mu sync.RWMutex
	m  map[*tree.Node]*Node
}

// NewIndex returns an empty Index.
func NewIndex() *Index {
	return &Index{m: make(map[*tree.Node]*Node)}
}

func (x *Index) put(ctx *tree.Node, n *Node) {
	if x == nil {
		return
	}
	x.mu.Lock()
	x.m[ctx] = n
	x.mu.Unlock()
}

func (x *Index) remove(ctx *tree.Node) {
	if x == nil {
		return
	}
	x.mu.Lock()
	delete(x.m, ctx)
	x.mu.Unlock()
}

// Lookup returns the element Node mounted at ctx, if any.
func (x *Index) Lookup(ctx *tree.Node) (*Node, bool) {
	if x == nil {
		return nil, false
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	n, ok := x.m[ctx]
	return n, ok
}
