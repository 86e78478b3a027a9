package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/wippyai/ar-placement/errors"
	"github.com/wippyai/ar-placement/event"
	"github.com/wippyai/ar-placement/loop"
	"github.com/wippyai/ar-placement/xr"
)

var tracer = otel.Tracer("github.com/wippyai/ar-placement/session")

// FrameInfo is what frame handlers receive for each delivered frame.
type FrameInfo struct {
	Frame      xr.Frame
	Hits       []xr.Pose
	Delta      time.Duration
	Generation uint64
}

// FrameHandler runs once per frame while a session is Active.
type FrameHandler func(FrameInfo)

// Option configures a Controller.
type Option func(*Controller)

// WithOptionalFeatures requests features the session may run without.
func WithOptionalFeatures(fs ...xr.Feature) Option {
	return func(c *Controller) {
		c.optional = append(c.optional, fs...)
	}
}

// Controller owns the session state machine:
//
//	Inactive → Requesting → Active → Ending → Inactive
//
// All methods must be called on the loop.
type Controller struct {
	loop          *loop.Loop
	platform      xr.Platform
	state         *RuntimeState
	bus           *event.Bus
	base          context.Context
	cancelBase    context.CancelFunc
	sessCtx       context.Context
	cancelSession context.CancelFunc
	handlers      []FrameHandler
	required      []xr.Feature
	optional      []xr.Feature
	lastFrame     time.Duration
	requestSeq    uint64
	seenFrame     bool
}

// NewController creates a controller operating on st.
func NewController(l *loop.Loop, p xr.Platform, st *RuntimeState, bus *event.Bus, opts ...Option) *Controller {
	base, cancel := context.WithCancel(context.Background())
	c := &Controller{
		loop:       l,
		platform:   p,
		state:      st,
		bus:        bus,
		base:       base,
		cancelBase: cancel,
		required:   []xr.Feature{xr.FeatureHitTest},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	return c.state.State
}

// OnFrame registers h to run on every frame of every Active session.
func (c *Controller) OnFrame(h FrameHandler) {
	c.handlers = append(c.handlers, h)
}

// Request starts negotiating a session. It fails with errors.ErrAlreadyActive
// unless the controller is Inactive. The outcome is reported on the bus.
func (c *Controller) Request(ctx context.Context) error {
	if c.state.State != Inactive {
		return errors.AlreadyActive()
	}
	c.transition(Requesting)
	c.requestSeq++
	seq := c.requestSeq

	loop.Go(c.loop, ctx, func(ctx context.Context) (xr.Session, error) {
		ctx, span := tracer.Start(ctx, "session.negotiate", trace.WithSpanKind(trace.SpanKindClient))
		defer span.End()
		s, err := c.platform.NegotiateSession(ctx, c.required, c.optional)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "negotiation rejected")
		}
		return s, err
	}, func(s xr.Session, err error) {
		c.negotiated(seq, s, err)
	}, func(s xr.Session) {
		if s != nil {
			_ = s.End(context.Background())
		}
	})
	return nil
}

func (c *Controller) negotiated(seq uint64, s xr.Session, err error) {
	st := c.state
	if st.State != Requesting || seq != c.requestSeq {
		// Closed while negotiating.
		if s != nil {
			_ = s.End(context.Background())
		}
		return
	}
	if err != nil {
		c.transition(Inactive)
		c.report(errors.SessionNegotiationFailed(err))
		return
	}

	st.Generation++
	gen := st.Generation
	st.ID = uuid.New()
	st.Handle = s
	st.Scene = s.Scene()
	c.seenFrame = false

	c.sessCtx, c.cancelSession = context.WithCancel(c.base)

	s.OnEnd(func() {
		c.loop.Post(func() { c.teardown(gen) })
	})
	s.OnSelect(func() {
		c.loop.Post(func() {
			if st.Live(gen) {
				c.bus.Emit(event.Event{Kind: event.Select, Session: st.ID, Generation: gen})
			}
		})
	})
	s.SetFrameCallback(func(f xr.Frame) {
		c.loop.Post(func() { c.frame(gen, f) })
	})

	c.transition(Active)
	Logger().Info("session started", zap.Stringer("session", st.ID), zap.Uint64("generation", gen))
	c.bus.Emit(event.Event{Kind: event.SessionStarted, Session: st.ID, Generation: gen})

	c.requestLocalSpace(c.sessCtx, gen)
}

func (c *Controller) requestLocalSpace(ctx context.Context, gen uint64) {
	st := c.state
	h := st.Handle
	loop.Go(c.loop, ctx, func(ctx context.Context) (xr.ReferenceSpace, error) {
		return h.RequestReferenceSpace(ctx, xr.SpaceLocal)
	}, func(space xr.ReferenceSpace, err error) {
		if !st.Live(gen) {
			return
		}
		if err != nil {
			c.report(errors.HitTestFailed(err))
			return
		}
		st.Space = space
	})
}

// RequestHitTestSource negotiates the hit-test source for the Active session.
// It issues at most one negotiation per session and reports whether this
// call issued it.
func (c *Controller) RequestHitTestSource() bool {
	st := c.state
	if st.State != Active || st.hitTestRequested {
		return false
	}
	st.hitTestRequested = true
	gen := st.Generation
	h := st.Handle

	loop.Go(c.loop, c.sessCtx, func(ctx context.Context) (xr.HitTestSource, error) {
		ctx, span := tracer.Start(ctx, "session.hit_test_source", trace.WithSpanKind(trace.SpanKindClient))
		defer span.End()
		viewer, err := h.RequestReferenceSpace(ctx, xr.SpaceViewer)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		src, err := h.RequestHitTestSource(ctx, viewer)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "hit-test source rejected")
		}
		return src, err
	}, func(src xr.HitTestSource, err error) {
		if !st.Live(gen) {
			if src != nil {
				src.Cancel()
			}
			return
		}
		if err != nil {
			// The guard stays set: a rejected source is not retried every frame.
			c.report(errors.HitTestFailed(err))
			return
		}
		st.HitTest = src
		Logger().Debug("hit-test source ready", zap.Uint64("generation", gen))
	}, func(src xr.HitTestSource) {
		if src != nil {
			src.Cancel()
		}
	})
	return true
}

func (c *Controller) frame(gen uint64, f xr.Frame) {
	st := c.state
	if !st.Live(gen) {
		return
	}

	c.RequestHitTestSource()

	var hits []xr.Pose
	if st.HitTest != nil && st.Space != nil {
		hits = f.HitTestResults(st.HitTest, st.Space)
	}

	var delta time.Duration
	if c.seenFrame {
		delta = f.Time() - c.lastFrame
	}
	c.lastFrame = f.Time()
	c.seenFrame = true

	info := FrameInfo{Frame: f, Hits: hits, Delta: delta, Generation: gen}
	for _, h := range c.handlers {
		h(info)
		if !st.Live(gen) {
			return
		}
	}

	if st.Scene != nil {
		st.Scene.Render(f)
	}
}

// End asks the platform to end the Active session. Teardown runs from the
// platform's end callback; if the platform refuses, it runs directly.
func (c *Controller) End(ctx context.Context) error {
	st := c.state
	if st.State != Active {
		return errors.NotActive("end session")
	}
	gen := st.Generation

	_, span := tracer.Start(ctx, "session.end", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("session.id", st.ID.String()))

	if err := st.Handle.End(ctx); err != nil {
		span.RecordError(err)
		Logger().Warn("platform refused to end session, tearing down locally", zap.Error(err))
		c.teardown(gen)
	}
	return nil
}

// teardown is the single end-of-session path for user- and platform-initiated
// ends alike. It is a no-op for stale generations and repeated calls.
func (c *Controller) teardown(gen uint64) {
	st := c.state
	if !st.Live(gen) {
		return
	}
	id := st.ID
	c.transition(Ending)

	if st.Handle != nil {
		st.Handle.SetFrameCallback(nil)
	}
	if c.cancelSession != nil {
		c.cancelSession()
		c.cancelSession = nil
		c.sessCtx = nil
	}
	if st.HitTest != nil {
		st.HitTest.Cancel()
	}
	st.HitTest = nil
	st.hitTestRequested = false
	st.Space = nil

	c.bus.Emit(event.Event{Kind: event.SessionEnded, Session: id, Generation: gen})

	st.clearSession()
	c.transition(Inactive)
	Logger().Info("session ended", zap.Stringer("session", id), zap.Uint64("generation", gen))
}

// Close ends any Active session and abandons pending negotiations.
func (c *Controller) Close(ctx context.Context) {
	switch c.state.State {
	case Active:
		gen := c.state.Generation
		if c.state.Handle != nil {
			_ = c.state.Handle.End(ctx)
		}
		c.teardown(gen)
	case Requesting:
		c.transition(Inactive)
	}
	c.cancelBase()
}

func (c *Controller) transition(s State) {
	prev := c.state.State
	c.state.State = s
	Logger().Debug("session state", zap.Stringer("from", prev), zap.Stringer("to", s))
	c.bus.Emit(event.Event{
		Kind:       event.SessionStateChanged,
		State:      s.String(),
		Session:    c.state.ID,
		Generation: c.state.Generation,
	})
}

func (c *Controller) report(err error) {
	Logger().Warn("session error", zap.Error(err))
	c.bus.Emit(event.Event{Kind: event.Error, Err: err, Generation: c.state.Generation})
}
