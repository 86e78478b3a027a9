package runtime

import (
	"github.com/wippyai/ar-placement/catalog"
	"github.com/wippyai/ar-placement/session"
	"github.com/wippyai/ar-placement/xr"
)

// Observer receives UI notifications on the loop goroutine.
type Observer interface {
	OnSessionStateChanged(state session.State)
	OnLoadProgress(id catalog.ID, fraction float64)
	OnAssetError(id catalog.ID, err error)
	OnActiveChanged(id catalog.ID, policy catalog.Policy)
	OnPlaced(id catalog.ID, pose xr.Pose)
	OnError(err error)
}

// BaseObserver implements Observer with no-ops. Embed it to handle a subset.
type BaseObserver struct{}

func (BaseObserver) OnSessionStateChanged(session.State)        {}
func (BaseObserver) OnLoadProgress(catalog.ID, float64)         {}
func (BaseObserver) OnAssetError(catalog.ID, error)             {}
func (BaseObserver) OnActiveChanged(catalog.ID, catalog.Policy) {}
func (BaseObserver) OnPlaced(catalog.ID, xr.Pose)               {}
func (BaseObserver) OnError(error)                              {}
