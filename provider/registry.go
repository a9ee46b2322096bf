package provider

import (
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arbor-ui/arbor/tree"
)

// Registry maps a context node that provides a value to the live provider
// object at that node. Sync and async reconcilers resolve provider lookups
// concurrently while walking disjoint subtrees, so the registry needs
// lock-striped concurrent access rather than a single mutex guarding one
// map.
type Registry struct {
	objects *xsync.MapOf[*tree.Node, *Object]
}

// NewRegistry constructs an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{objects: xsync.NewMapOf[*tree.Node, *Object]()}
}

// Provide installs obj as the provider object owned by node, overwriting
// any previous provider at that node (an element re-inflating its provided
// value calls this again with a fresh Object).
func (r *Registry) Provide(node *tree.Node, obj *Object) {
	r.objects.Store(node, obj)
	node.SetSlot(obj)
}

// Lookup returns the provider object owned by node, if node provides one.
func (r *Registry) Lookup(node *tree.Node) (*Object, bool) {
	return r.objects.Load(node)
}

// Resolve walks up the provider map from consumer to find the nearest
// ancestor (or consumer itself) providing typeKey, returning its live
// Object.
func (r *Registry) Resolve(consumer *tree.Node, typeKey tree.TypeKey) (*Object, bool) {
	owner := consumer.ProviderOf(typeKey)
	if owner == nil {
		return nil, false
	}
	return r.Lookup(owner)
}

// Remove drops the provider object owned by node, called when the element
// that owns it unmounts.
func (r *Registry) Remove(node *tree.Node) {
	r.objects.Delete(node)
}
