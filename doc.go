// Package arplacement places virtual objects on real surfaces through an AR
// session.
//
// The module is built around a small set of loop-confined controllers:
// a session controller drives the platform session and its per-frame
// hit-test, a placement controller turns hits and taps into placed objects,
// and a registry owns every loaded visual and sound.
//
// # Architecture Overview
//
//	arplacement/         Root package (documentation only)
//	├── runtime/         UI-facing API wiring every controller together
//	├── session/         Session state machine, hit-test source, frames
//	├── placement/       Tracking cursor, select-to-place, audio arbitration
//	├── registry/        Object bundles: async load, dedup, release
//	├── catalog/         id → policy table (TOML, YAML, JSON), hot reload
//	├── resource/        Handle table owning platform visuals and sounds
//	├── event/           Loop-confined message bus
//	├── loop/            Single cooperative execution context
//	├── xr/              Platform interfaces consumed by the controllers
//	├── sim/             Deterministic in-memory platform
//	├── config/          Defaults, TOML file, ARPLACE_ environment
//	├── errors/          Structured error types
//	└── cmd/arsim/       Terminal simulator
//
// # Quick Start
//
//	cat, _ := catalog.Load("objects.toml")
//	rt := runtime.New(platform, cat, runtime.WithObserver(ui))
//	go rt.Run(ctx)
//	defer rt.Close(ctx)
//
//	rt.StartSession(ctx)
//	rt.PlaceByID(ctx, "chair1")
//	rt.Select()
//
// # Session Lifecycle
//
//	Inactive → Requesting → Active → Ending → Inactive
//
// Every session end, whether asked for or imposed by the platform, runs the
// same teardown: the frame callback is removed, the hit-test source is
// cancelled, placed objects are hidden and detached, and the cursor is
// cleared. Loaded objects survive for the next session unless released.
//
// # Thread Safety
//
// Controllers are not safe for concurrent use; they run on one loop.Loop.
// runtime.Runtime methods are safe from any goroutine because they only post
// work to that loop. Asynchronous platform results are posted back and
// checked against the session generation or registry entry that requested
// them, so late results never touch a scene that is gone.
package arplacement
