// Package resource owns the platform handles a session accumulates.
//
// Visual nodes and sound buffers returned by the asset decoders hold native
// memory that is only freed by an explicit Release. The Table records every
// such handle together with the object id that owns it, so a registry can
// free an object's handles in one call and tests can assert nothing leaked.
//
// # Handle Table
//
//	table := resource.NewTable()
//
//	// Take ownership of a decoded visual
//	h := table.Insert(resource.KindVisual, "chair", visual)
//
//	// Retrieve by handle
//	v, ok := table.Get(h)
//
//	// Release frees the platform memory and drops the handle
//	table.Remove(h)
//
// Handle 0 is reserved and always invalid. Handles of removed entries are
// recycled.
//
// # Observers
//
// Register observers to track resource lifecycle events:
//
//	table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//	    if e.Type == resource.EventReleased {
//	        log.Printf("%s %d released for %s", e.Kind, e.Handle, e.Owner)
//	    }
//	}))
//
// # Memory Management
//
// Handles are not garbage collected. Remove, RemoveOwner, Clear or Close must
// be called for every inserted handle; each of them calls Release exactly once.
package resource
