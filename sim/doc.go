// Package sim is an in-memory binding of the xr interfaces.
//
// It has no tracking: tests and the arsim command script what the "camera"
// sees. SetHits decides what the next frames report, Step delivers a frame,
// Tap fires a select gesture and Background ends the session the way an OS
// would when the app leaves the foreground.
//
//	p := sim.NewPlatform()
//	p.AddModel("chair.glb", "Idle")
//	rt := runtime.New(p, cat)
//	...
//	s := p.Session()
//	s.SetHits(xr.Translation(0, 0, -1))
//	s.Step(16 * time.Millisecond)
//	s.Tap()
//
// Hold blocks an asset or session request until the returned function is
// called, which lets tests order asynchronous completions deterministically.
package sim
