// Package runtime wires the placement controllers into one object the UI
// layer talks to.
//
// # Quick Start
//
//	cat, err := catalog.Load("objects.toml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	rt := runtime.New(platform, cat,
//	    runtime.WithMaxPlaced(1),
//	    runtime.WithObserver(ui),
//	)
//	go rt.Run(ctx)
//	defer rt.Close(ctx)
//
//	rt.StartSession(ctx)
//	rt.PlaceByID(ctx, "chair1") // load, make active
//	rt.Select()                 // place at the cursor
//
// # Threading
//
// Every controller lives on a single loop.Loop. Runtime methods may be
// called from any goroutine: they validate what they can without touching
// controller state and post the rest to the loop. Observers are invoked on
// the loop goroutine and must not block.
//
// # Notifications
//
// Failures never surface as panics or return values of posted work. They
// arrive through Observer:
//
//	OnSessionStateChanged  inactive, requesting, active, ending
//	OnLoadProgress         fraction in [0,1] per object
//	OnAssetError           visual or sound load failures, per object
//	OnActiveChanged        new target and its catalog policy
//	OnPlaced               committed pose after each placement
//	OnError                session negotiation and other failures
//
// # Session End
//
// When a session ends, for any reason, placed objects are hidden and
// detached but stay loaded. WithReleaseOnEnd frees them instead; Exit ends
// the session and frees everything.
package runtime
