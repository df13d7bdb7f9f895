package scene

import (
	"fmt"
	"sort"
	"strings"
)

// Prefab is a reusable snapshot of a game object subtree, stored as an
// asset and instantiated by deep copy.
type Prefab struct {
	Name      string `json:"name"`
	AssetPath string `json:"assetPath"`

	root *GameObject
}

// PrefabLibrary holds the project's prefabs, keyed by asset path.
type PrefabLibrary struct {
	prefabs map[string]*Prefab
}

// NewPrefabLibrary creates an empty library.
func NewPrefabLibrary() *PrefabLibrary {
	return &PrefabLibrary{prefabs: map[string]*Prefab{}}
}

// CreateFromInstance snapshots the subtree rooted at obj into a prefab
// stored at assetPath. The live object is left in place.
func (lib *PrefabLibrary) CreateFromInstance(obj *GameObject, assetPath string) (*Prefab, error) {
	if assetPath == "" {
		return nil, fmt.Errorf("prefab path is required")
	}
	if !strings.HasSuffix(assetPath, ".prefab") {
		assetPath += ".prefab"
	}
	if _, exists := lib.prefabs[assetPath]; exists {
		return nil, fmt.Errorf("prefab already exists at %q", assetPath)
	}

	p := &Prefab{
		Name:      obj.Name,
		AssetPath: assetPath,
		root:      cloneObject(obj),
	}
	lib.prefabs[assetPath] = p
	return p, nil
}

// Remove deletes the prefab at assetPath. Used to undo createFromInstance.
func (lib *PrefabLibrary) Remove(assetPath string) {
	delete(lib.prefabs, assetPath)
}

// Get returns the prefab at assetPath. Lookup tolerates a missing .prefab
// extension.
func (lib *PrefabLibrary) Get(assetPath string) (*Prefab, error) {
	if p, ok := lib.prefabs[assetPath]; ok {
		return p, nil
	}
	if p, ok := lib.prefabs[assetPath+".prefab"]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("prefab %q not found", assetPath)
}

// Instantiate returns a fresh deep copy of the prefab's subtree, detached
// from any scene.
func (p *Prefab) Instantiate() *GameObject {
	return cloneObject(p.root)
}

// List returns all prefabs sorted by asset path.
func (lib *PrefabLibrary) List() []*Prefab {
	out := make([]*Prefab, 0, len(lib.prefabs))
	for _, p := range lib.prefabs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssetPath < out[j].AssetPath })
	return out
}

// Len returns the number of prefabs.
func (lib *PrefabLibrary) Len() int {
	return len(lib.prefabs)
}

// cloneObject deep-copies a subtree: components by value, children
// recursively. The copy is detached (no parent).
func cloneObject(obj *GameObject) *GameObject {
	clone := &GameObject{
		Name:       obj.Name,
		Active:     obj.Active,
		Components: make([]*Component, 0, len(obj.Components)),
	}
	for _, c := range obj.Components {
		clone.Components = append(clone.Components, c.Clone())
	}
	for _, child := range obj.Children {
		cc := cloneObject(child)
		cc.parent = clone
		clone.Children = append(clone.Children, cc)
	}
	return clone
}
