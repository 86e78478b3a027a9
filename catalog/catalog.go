package catalog

import (
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/wippyai/ar-placement/errors"
)

// ID identifies a placeable object.
type ID string

// AnimationMode selects when an object's clips start.
type AnimationMode string

const (
	// AnimationNone leaves clips stopped.
	AnimationNone AnimationMode = "none"
	// AnimationLoop starts every clip looping as soon as the model loads.
	AnimationLoop AnimationMode = "loop"
	// AnimationOnPlace plays every clip once per placement.
	AnimationOnPlace AnimationMode = "on-place"
)

// DefaultScale is applied when a policy leaves Scale unset.
const DefaultScale = 1.0

// Policy describes how one object is loaded and presented.
type Policy struct {
	ID          ID            `toml:"id" yaml:"id" json:"id"`
	Name        string        `toml:"name" yaml:"name" json:"name"`
	Model       string        `toml:"model" yaml:"model" json:"model"`
	Sound       string        `toml:"sound" yaml:"sound" json:"sound"`
	Description string        `toml:"description" yaml:"description" json:"description"`
	Animation   AnimationMode `toml:"animation" yaml:"animation" json:"animation"`
	Scale       float64       `toml:"scale" yaml:"scale" json:"scale"`
	SoundLoop   bool          `toml:"sound_loop" yaml:"sound_loop" json:"sound_loop"`
}

// HasSound reports whether the object carries audio.
func (p Policy) HasSound() bool { return p.Sound != "" }

func (p Policy) normalized() Policy {
	if p.Scale == 0 {
		p.Scale = DefaultScale
	}
	if p.Animation == "" {
		p.Animation = AnimationNone
	}
	if p.Name == "" {
		p.Name = string(p.ID)
	}
	return p
}

func (p Policy) validate() error {
	if strings.TrimSpace(string(p.ID)) == "" {
		return errors.InvalidInput(errors.PhaseCatalog, "object id is empty")
	}
	if p.Model == "" {
		return errors.New(errors.PhaseCatalog, errors.KindInvalidInput).
			ID(string(p.ID)).Detail("model path is empty").Build()
	}
	if p.Scale < 0 {
		return errors.New(errors.PhaseCatalog, errors.KindInvalidInput).
			ID(string(p.ID)).Value(p.Scale).Detail("scale must be positive").Build()
	}
	switch p.Animation {
	case AnimationNone, AnimationLoop, AnimationOnPlace:
	default:
		return errors.New(errors.PhaseCatalog, errors.KindInvalidInput).
			ID(string(p.ID)).Value(p.Animation).Detail("unknown animation mode %q", p.Animation).Build()
	}
	return nil
}

// Catalog is a validated id→policy table. It is safe for concurrent use.
type Catalog struct {
	byID  map[ID]Policy
	root  string
	order []ID
	mu    sync.RWMutex
}

// New builds a catalog rooted at assetRoot from policies.
func New(assetRoot string, policies ...Policy) (*Catalog, error) {
	c := &Catalog{}
	if err := c.set(assetRoot, policies); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) set(assetRoot string, policies []Policy) error {
	byID := make(map[ID]Policy, len(policies))
	order := make([]ID, 0, len(policies))
	for _, p := range policies {
		p = p.normalized()
		if err := p.validate(); err != nil {
			return err
		}
		if _, dup := byID[p.ID]; dup {
			return errors.New(errors.PhaseCatalog, errors.KindInvalidInput).
				ID(string(p.ID)).Detail("duplicate object id").Build()
		}
		byID[p.ID] = p
		order = append(order, p.ID)
	}

	c.mu.Lock()
	c.root = assetRoot
	c.byID = byID
	c.order = order
	c.mu.Unlock()
	return nil
}

// Lookup returns the policy for id or errors.ErrUnknownID.
func (c *Catalog) Lookup(id ID) (Policy, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.byID[id]
	if !ok {
		return Policy{}, errors.UnknownID(string(id))
	}
	return p, nil
}

// IDs returns object ids in declaration order.
func (c *Catalog) IDs() []ID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ID, len(c.order))
	copy(out, c.order)
	return out
}

// At returns the id at declaration index i.
func (c *Catalog) At(i int) (ID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i < 0 || i >= len(c.order) {
		return "", false
	}
	return c.order[i], true
}

// Len returns the number of objects.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Resolve joins an asset path with the catalog's asset root. Absolute paths
// and URLs are returned unchanged.
func (c *Catalog) Resolve(asset string) string {
	if asset == "" || strings.HasPrefix(asset, "/") || strings.Contains(asset, "://") {
		return asset
	}
	c.mu.RLock()
	root := c.root
	c.mu.RUnlock()
	if root == "" {
		return asset
	}
	return path.Join(root, asset)
}

// SetAssetRoot changes the directory relative asset paths resolve against.
func (c *Catalog) SetAssetRoot(root string) {
	c.mu.Lock()
	c.root = root
	c.mu.Unlock()
}

// Policies returns every policy in declaration order.
func (c *Catalog) Policies() []Policy {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Policy, len(c.order))
	for i, id := range c.order {
		out[i] = c.byID[id]
	}
	return out
}

// Replace swaps in the contents of other.
func (c *Catalog) Replace(other *Catalog) {
	other.mu.RLock()
	root, byID, order := other.root, other.byID, other.order
	other.mu.RUnlock()

	c.mu.Lock()
	c.root, c.byID, c.order = root, byID, order
	c.mu.Unlock()
}

func (c *Catalog) String() string {
	return fmt.Sprintf("catalog(%d objects)", c.Len())
}
