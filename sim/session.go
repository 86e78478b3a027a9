package sim

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wippyai/ar-placement/xr"
)

// ErrEnded is returned by requests on an ended session.
var ErrEnded = errors.New("session ended")

// Session is a scripted xr.Session.
type Session struct {
	scene         *Scene
	frameFn       xr.FrameFunc
	endErr        error
	spaceRequests map[xr.SpaceKind]int
	hitTestHold   chan struct{}
	endFns        []func()
	selectFns     []func()
	features      []xr.Feature
	sources       []*HitTestSource
	hits          []xr.Pose
	id            int
	elapsed       time.Duration
	frames        int
	mu            sync.Mutex
	ended         bool
}

func newSession(id int, features []xr.Feature) *Session {
	return &Session{
		id:            id,
		features:      features,
		scene:         NewScene(),
		spaceRequests: make(map[xr.SpaceKind]int),
	}
}

// ID returns the 1-based negotiation index.
func (s *Session) ID() int { return s.id }

// Features returns the granted features.
func (s *Session) Features() []xr.Feature { return s.features }

// RequestReferenceSpace implements xr.Session.
func (s *Session) RequestReferenceSpace(ctx context.Context, kind xr.SpaceKind) (xr.ReferenceSpace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return nil, ErrEnded
	}
	s.spaceRequests[kind]++
	return &Space{kind: kind, session: s}, nil
}

// HoldHitTest blocks hit-test source requests until the returned function
// is called. Held requests ignore context cancellation so tests can deliver
// a source after the session has gone.
func (s *Session) HoldHitTest() (release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan struct{})
	s.hitTestHold = ch
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// RequestHitTestSource implements xr.Session.
func (s *Session) RequestHitTestSource(ctx context.Context, space xr.ReferenceSpace) (xr.HitTestSource, error) {
	s.mu.Lock()
	hold := s.hitTestHold
	src := &HitTestSource{session: s}
	s.sources = append(s.sources, src)
	s.mu.Unlock()

	if hold != nil {
		<-hold
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return src, nil
	}
	if space == nil || space.Kind() != xr.SpaceViewer {
		return nil, errors.New("hit-test source needs the viewer space")
	}
	return src, nil
}

// HitTestRequests returns how many hit-test sources were requested.
func (s *Session) HitTestRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sources)
}

// Sources returns every hit-test source handed out.
func (s *Session) Sources() []*HitTestSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*HitTestSource(nil), s.sources...)
}

// SpaceRequests returns how many reference spaces of kind were requested.
func (s *Session) SpaceRequests(kind xr.SpaceKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spaceRequests[kind]
}

// SetFrameCallback implements xr.Session.
func (s *Session) SetFrameCallback(fn xr.FrameFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frameFn = fn
}

// FrameCallbackSet reports whether a frame callback is installed.
func (s *Session) FrameCallbackSet() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameFn != nil
}

// OnEnd implements xr.Session.
func (s *Session) OnEnd(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endFns = append(s.endFns, fn)
}

// OnSelect implements xr.Session.
func (s *Session) OnSelect(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectFns = append(s.selectFns, fn)
}

// Scene implements xr.Session.
func (s *Session) Scene() xr.Scene { return s.scene }

// Graph returns the concrete scene for inspection.
func (s *Session) Graph() *Scene { return s.scene }

// FailEnd makes End return err without ending the session.
func (s *Session) FailEnd(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endErr = err
}

// End implements xr.Session.
func (s *Session) End(ctx context.Context) error {
	s.mu.Lock()
	err := s.endErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.finish()
	return nil
}

// Background ends the session as if the OS suspended the app.
func (s *Session) Background() {
	s.finish()
}

func (s *Session) finish() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	fns := s.endFns
	s.endFns = nil
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Ended reports whether the session has ended.
func (s *Session) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

// SetHits sets the poses subsequent frames report; none means no surface.
func (s *Session) SetHits(poses ...xr.Pose) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hits = append([]xr.Pose(nil), poses...)
}

// Step advances the session clock by dt and delivers one frame. It returns
// false when no frame callback is installed.
func (s *Session) Step(dt time.Duration) bool {
	s.mu.Lock()
	if s.ended || s.frameFn == nil {
		s.mu.Unlock()
		return false
	}
	s.elapsed += dt
	s.frames++
	f := &Frame{
		session: s,
		t:       s.elapsed,
		hits:    append([]xr.Pose(nil), s.hits...),
	}
	fn := s.frameFn
	s.mu.Unlock()

	fn(f)
	return true
}

// Frames returns how many frames were delivered.
func (s *Session) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Tap fires a select gesture.
func (s *Session) Tap() {
	s.mu.Lock()
	fns := append([]func(){}, s.selectFns...)
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Space is a reference space handle.
type Space struct {
	session *Session
	kind    xr.SpaceKind
}

// Kind implements xr.ReferenceSpace.
func (sp *Space) Kind() xr.SpaceKind { return sp.kind }

// HitTestSource is a hit-test source handle.
type HitTestSource struct {
	session   *Session
	cancelled bool
	mu        sync.Mutex
}

// Cancel implements xr.HitTestSource.
func (h *HitTestSource) Cancel() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cancelled = true
}

// Cancelled reports whether Cancel was called.
func (h *HitTestSource) Cancelled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cancelled
}

// Frame is a delivered display frame.
type Frame struct {
	session *Session
	hits    []xr.Pose
	t       time.Duration
}

// Time implements xr.Frame.
func (f *Frame) Time() time.Duration { return f.t }

// HitTestResults implements xr.Frame. Cancelled or foreign sources and
// non-local spaces yield no results.
func (f *Frame) HitTestResults(src xr.HitTestSource, space xr.ReferenceSpace) []xr.Pose {
	hs, ok := src.(*HitTestSource)
	if !ok || hs.session != f.session || hs.Cancelled() {
		return nil
	}
	if space == nil || space.Kind() != xr.SpaceLocal {
		return nil
	}
	return append([]xr.Pose(nil), f.hits...)
}
