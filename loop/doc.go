// Package loop provides the single cooperative execution context every
// controller in this module runs on.
//
// Work is posted as closures and executed in FIFO order by whichever
// goroutine drives the loop (Run, RunUntil or Drain). Only one goroutine may
// drive a loop at a time; state touched exclusively from posted closures
// therefore needs no locking.
//
// Blocking platform calls run on helper goroutines through Go, which posts
// the completion back onto the loop:
//
//	loop.Go(l, ctx, func(ctx context.Context) (xr.Session, error) {
//	    return platform.NegotiateSession(ctx, required, nil)
//	}, func(s xr.Session, err error) {
//	    // runs on the loop
//	})
//
// Post never blocks, so platform callbacks may post from any goroutine.
package loop
