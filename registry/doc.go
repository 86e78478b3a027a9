// Package registry loads and owns the placeable object bundles.
//
// A Bundle is one catalog object: its decoded visual, animation clips and
// optional sound, plus placement state. The Registry keeps at most one
// bundle per id and at most one visual load in flight per id; asking again
// while a load is running returns the same bundle.
//
//	b, err := reg.Load(ctx, "chair1")      // Loading, completes on the loop
//	_ = reg.LoadSound(ctx, "chair1")       // independent of the visual
//	reg.Subscribe(registry.ObserverFunc(func(e registry.Event) {
//	    if e.Type == registry.EventReady { ... }
//	}))
//
// Platform handles are recorded in a resource.Table under the bundle id, so
// Release frees everything an object holds. Completions that arrive for a
// released entry free what they loaded and change nothing else.
//
// All methods must be called on the loop.
package registry
