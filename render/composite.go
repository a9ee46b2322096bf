package render

// Encoding is the type-erased scene fragment a layer composites into its
// parent's encoding, ultimately handed to the external rasterizer.
type Encoding struct {
	ops []any
}

// Append records a protocol-specific drawing op into the encoding.
func (e *Encoding) Append(op any) { e.ops = append(e.ops, op) }

// Ops returns the encoding's recorded operations.
func (e *Encoding) Ops() []any { return e.ops }

// Memo is a layer's cached composition result, opaque to this package.
type Memo any

// CompositeConfig carries the compositing parameters down to a layer's
// Compositor/CachedCompositor; its only parameter is the layer's offset.
type CompositeConfig struct {
	Offset Offset
}

// Composite walks the repaint-boundary tree bottom-up from root's paint
// results, producing the final encoding. Cached layers reuse their memo
// when valid; uncached layers composite fresh every call.
func Composite(root *Object, cfg CompositeConfig) *Encoding {
	enc := &Encoding{}
	compositeInto(enc, root, cfg)
	return enc
}

func compositeInto(enc *Encoding, o *Object, cfg CompositeConfig) {
	results := o.Paint()

	for _, rc := range results.Children {
		childCfg := CompositeConfig{Offset: rc.Offset}
		compositeInto(enc, rc.Child, childCfg)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if cc, ok := o.delegate.(CachedCompositor); ok {
		if o.cache.layer != nil && o.cache.layer.haveMemo && !o.Mark().Has(MarkNeedsPaint) {
			cc.CompositeFromCacheTo(enc, o.cache.layer.memo)
			return
		}
		memo := cc.CompositeIntoMemo(results.Children, cfg)
		if o.cache.layer == nil {
			o.cache.layer = &layerCache{}
		}
		o.cache.layer.memo = memo
		o.cache.layer.haveMemo = true
		cc.CompositeFromCacheTo(enc, memo)
		return
	}
	if c, ok := o.delegate.(Compositor); ok {
		c.CompositeTo(enc, results.Children, cfg)
		return
	}
	panic("render: boundary render object delegate implements neither Compositor nor CachedCompositor")
}
