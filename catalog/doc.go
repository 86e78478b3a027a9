// Package catalog is the explicit table of placeable objects.
//
// Every object id maps to a Policy naming its model, scale, optional sound,
// description text and animation mode. Ids that are not in the table are
// rejected with errors.ErrUnknownID instead of silently falling back to
// defaults.
//
// Catalogs are read from TOML, YAML or JSON, chosen by file extension:
//
//	asset_root = "assets/ar-shop"
//
//	[[object]]
//	id = "chair1"
//	name = "Lounge chair"
//	model = "chair1.glb"
//	sound = "chair1.mp3"
//	scale = 0.8
//	animation = "on-place"
//	description = "Solid oak frame."
//
// A Watcher reloads the file on change; the new table applies to loads
// issued after the reload.
package catalog
