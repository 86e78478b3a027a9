package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wippyai/ar-placement/xr"
)

// ErrNotFound is returned for assets that were never registered.
var ErrNotFound = errors.New("asset not found")

// ErrUnsupported is returned when a required feature is unavailable.
var ErrUnsupported = errors.New("feature not supported")

type modelSpec struct {
	err   error
	clips []string
	size  int64
}

// Platform is a scripted xr.Platform.
type Platform struct {
	models       map[string]modelSpec
	sounds       map[string]error
	gates        map[string]chan struct{}
	unsupported  map[xr.Feature]bool
	rejectErr    error
	sessions     []*Session
	visuals      []*Visual
	soundHandles []*Sound
	negotiations int
	latency      time.Duration
	chunks       int
	mu           sync.Mutex
}

// NewPlatform creates a platform that grants every feature.
func NewPlatform() *Platform {
	return &Platform{
		models:      make(map[string]modelSpec),
		sounds:      make(map[string]error),
		gates:       make(map[string]chan struct{}),
		unsupported: make(map[xr.Feature]bool),
		chunks:      4,
	}
}

// SetLatency spreads every asset load over d, reporting progress in chunks.
func (p *Platform) SetLatency(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.latency = d
}

// AddModel registers a decodable model at path carrying the named clips.
func (p *Platform) AddModel(path string, clips ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.models[path] = modelSpec{clips: clips, size: 1 << 20}
}

// FailModel makes loads of path fail with err.
func (p *Platform) FailModel(path string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.models[path] = modelSpec{err: err}
}

// AddSound registers a decodable sound at path.
func (p *Platform) AddSound(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sounds[path] = nil
}

// FailSound makes loads of path fail with err.
func (p *Platform) FailSound(path string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sounds[path] = err
}

// Unsupport removes f from the granted features.
func (p *Platform) Unsupport(f xr.Feature) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unsupported[f] = true
}

// Reject makes every session request fail with err; nil restores grants.
func (p *Platform) Reject(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rejectErr = err
}

// Hold blocks requests for key (an asset path, or "session") until the
// returned function is called.
func (p *Platform) Hold(key string) (release func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch := make(chan struct{})
	p.gates[key] = ch
	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			if p.gates[key] == ch {
				delete(p.gates, key)
			}
			p.mu.Unlock()
			close(ch)
		})
	}
}

func (p *Platform) wait(ctx context.Context, key string) error {
	p.mu.Lock()
	ch := p.gates[key]
	p.mu.Unlock()
	if ch == nil {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NegotiateSession implements xr.Platform.
func (p *Platform) NegotiateSession(ctx context.Context, required, optional []xr.Feature) (xr.Session, error) {
	if err := p.wait(ctx, "session"); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.negotiations++

	if p.rejectErr != nil {
		return nil, p.rejectErr
	}
	for _, f := range required {
		if p.unsupported[f] {
			return nil, fmt.Errorf("%w: %s", ErrUnsupported, f)
		}
	}
	granted := make([]xr.Feature, 0, len(required)+len(optional))
	granted = append(granted, required...)
	for _, f := range optional {
		if !p.unsupported[f] {
			granted = append(granted, f)
		}
	}

	s := newSession(len(p.sessions)+1, granted)
	p.sessions = append(p.sessions, s)
	return s, nil
}

// Session returns the most recently negotiated session, or nil.
func (p *Platform) Session() *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.sessions) == 0 {
		return nil
	}
	return p.sessions[len(p.sessions)-1]
}

// Negotiations returns how many session requests reached the platform.
func (p *Platform) Negotiations() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.negotiations
}

// LoadVisual implements xr.AssetLoader.
func (p *Platform) LoadVisual(ctx context.Context, path string, progress xr.ProgressFunc) (*xr.VisualAsset, error) {
	p.mu.Lock()
	spec, ok := p.models[path]
	latency, chunks := p.latency, p.chunks
	p.mu.Unlock()

	if ok && spec.err == nil && progress != nil {
		for i := 1; i <= chunks; i++ {
			if latency > 0 {
				select {
				case <-time.After(latency / time.Duration(chunks)):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
			progress(spec.size*int64(i)/int64(chunks), spec.size)
		}
	}

	if err := p.wait(ctx, path); err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if spec.err != nil {
		return nil, spec.err
	}

	v := &Visual{Path: path, scale: 1}
	clips := make([]xr.AnimationClip, len(spec.clips))
	for i, name := range spec.clips {
		c := &Clip{name: name}
		v.Clips = append(v.Clips, c)
		clips[i] = c
	}

	p.mu.Lock()
	p.visuals = append(p.visuals, v)
	p.mu.Unlock()

	return &xr.VisualAsset{Visual: v, Clips: clips}, nil
}

// LoadAudio implements xr.AssetLoader.
func (p *Platform) LoadAudio(ctx context.Context, path string) (xr.Sound, error) {
	if err := p.wait(ctx, path); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err, ok := p.sounds[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, err
	}
	s := &Sound{Path: path}
	p.soundHandles = append(p.soundHandles, s)
	return s, nil
}

// Visuals returns every visual decoded from path.
func (p *Platform) Visuals(path string) []*Visual {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*Visual
	for _, v := range p.visuals {
		if v.Path == path {
			out = append(out, v)
		}
	}
	return out
}

// Sounds returns every sound decoded from path.
func (p *Platform) Sounds(path string) []*Sound {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*Sound
	for _, s := range p.soundHandles {
		if s.Path == path {
			out = append(out, s)
		}
	}
	return out
}

// Live returns how many decoded visuals and sounds are not yet released.
func (p *Platform) Live() (visuals, sounds int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, v := range p.visuals {
		if !v.Released() {
			visuals++
		}
	}
	for _, s := range p.soundHandles {
		if !s.Released() {
			sounds++
		}
	}
	return visuals, sounds
}

// PlayingSounds returns the paths of sounds currently playing.
func (p *Platform) PlayingSounds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, s := range p.soundHandles {
		if s.Playing() {
			out = append(out, s.Path)
		}
	}
	return out
}
