package scene

import (
	"fmt"
	"sort"
	"strings"

	"github.com/polyforge/scenebridge/internal/protocol"
)

// Play mode states. Wire values match protocol play state constants.
const (
	PlayStateStopped = "stopped"
	PlayStatePlaying = "playing"
	PlayStatePaused  = "paused"
)

// LogFunc receives editor console output (message, stack trace, log type).
type LogFunc func(logType, message, stackTrace string)

// PlayModeFunc receives play mode transitions.
type PlayModeFunc func(state string)

// Editor owns the live scene, the undo history, prefabs, assets, selection
// and play mode. Every structural mutation goes through an Editor method so
// it participates in the undo history and the console log. The Editor is
// confined to the engine main loop; see the package comment.
type Editor struct {
	Scene   *Scene
	Prefabs *PrefabLibrary
	Assets  *AssetDB

	undo       *UndoStack
	playState  string
	selection  []string
	refreshes  int
	onLog      LogFunc
	onPlayMode PlayModeFunc
}

// NewEditor creates an editor hosting an empty scene.
func NewEditor(sceneName string) *Editor {
	if sceneName == "" {
		sceneName = "Untitled"
	}
	return &Editor{
		Scene:     NewScene(sceneName),
		Prefabs:   NewPrefabLibrary(),
		Assets:    NewAssetDB(),
		undo:      NewUndoStack(100),
		playState: PlayStateStopped,
	}
}

// SetLogHook installs the console output hook.
func (e *Editor) SetLogHook(fn LogFunc) { e.onLog = fn }

// SetPlayModeHook installs the play mode transition hook.
func (e *Editor) SetPlayModeHook(fn PlayModeFunc) { e.onPlayMode = fn }

// Logf emits one console line through the log hook.
func (e *Editor) Logf(logType, format string, args ...any) {
	if e.onLog != nil {
		e.onLog(logType, fmt.Sprintf(format, args...), "")
	}
}

// Undo reverts the most recent mutation and returns its label.
func (e *Editor) Undo() (string, error) {
	label, err := e.undo.Undo()
	if err != nil {
		return "", err
	}
	e.Logf("info", "Undo: %s", label)
	return label, nil
}

// UndoHistory returns the labels of undoable mutations, oldest first.
func (e *Editor) UndoHistory() []string { return e.undo.History() }

// CreateGameObject creates an empty object under parentPath (root when
// empty) and returns it.
func (e *Editor) CreateGameObject(name, parentPath string) (*GameObject, error) {
	if name == "" {
		return nil, fmt.Errorf("game object name is required")
	}
	obj := NewGameObject(name)
	if err := e.Scene.Attach(obj, parentPath); err != nil {
		return nil, err
	}
	path := obj.Path()
	e.undo.Record("Create GameObject "+name, func() {
		_, _, _ = e.Scene.Detach(path)
	})
	e.Logf("info", "Created GameObject %q", path)
	return obj, nil
}

// CreatePrimitive creates a primitive object with its mesh and collider.
func (e *Editor) CreatePrimitive(name, primitiveType, parentPath string) (*GameObject, error) {
	obj, err := NewPrimitive(name, primitiveType)
	if err != nil {
		return nil, err
	}
	if err := e.Scene.Attach(obj, parentPath); err != nil {
		return nil, err
	}
	path := obj.Path()
	e.undo.Record("Create "+primitiveType+" "+obj.Name, func() {
		_, _, _ = e.Scene.Detach(path)
	})
	e.Logf("info", "Created %s primitive %q", primitiveType, path)
	return obj, nil
}

// DestroyGameObject removes the object at path from the scene.
func (e *Editor) DestroyGameObject(path string) error {
	obj, parentPath, err := e.Scene.Detach(path)
	if err != nil {
		return err
	}
	e.undo.Record("Destroy GameObject "+obj.Name, func() {
		_ = e.Scene.Attach(obj, parentPath)
	})
	e.Logf("info", "Destroyed GameObject %q", path)
	e.selection = removePath(e.selection, path)
	return nil
}

// SetActive toggles the active flag of the object at path.
func (e *Editor) SetActive(path string, active bool) error {
	obj, err := e.Scene.Find(path)
	if err != nil {
		return err
	}
	prev := obj.Active
	if prev == active {
		return nil
	}
	obj.Active = active
	e.Scene.Dirty = true
	e.undo.Record("Set Active "+obj.Name, func() {
		obj.Active = prev
	})
	return nil
}

// SetTransform applies position/rotation/scale to the object at path.
// Nil vectors leave the corresponding value untouched.
func (e *Editor) SetTransform(path string, position, rotation, scale *protocol.Vector3) error {
	obj, err := e.Scene.Find(path)
	if err != nil {
		return err
	}
	prev := *obj.Transform()
	obj.SetTransform(position, rotation, scale)
	e.Scene.Dirty = true
	e.undo.Record("Set Transform "+obj.Name, func() {
		*obj.Transform() = prev
	})
	return nil
}

// AddComponent attaches a component by type name. A second component of
// the same type on one object is rejected.
func (e *Editor) AddComponent(path, typeName string) (*Component, error) {
	obj, err := e.Scene.Find(path)
	if err != nil {
		return nil, err
	}
	comp, err := NewComponent(typeName)
	if err != nil {
		return nil, err
	}
	if obj.Component(comp.TypeName()) != nil {
		return nil, fmt.Errorf("game object %q already has a %s component", path, comp.TypeName())
	}
	obj.Components = append(obj.Components, comp)
	e.Scene.Dirty = true
	e.undo.Record("Add Component "+comp.TypeName(), func() {
		obj.Components = removeComponent(obj.Components, comp)
	})
	e.Logf("info", "Added %s to %q", comp.TypeName(), path)
	return comp, nil
}

// RemoveComponent detaches a component by type name. Transform cannot be
// removed.
func (e *Editor) RemoveComponent(path, typeName string) error {
	obj, err := e.Scene.Find(path)
	if err != nil {
		return err
	}
	comp := obj.Component(typeName)
	if comp == nil {
		return fmt.Errorf("game object %q has no %s component", path, typeName)
	}
	if comp.TypeName() == "Transform" {
		return fmt.Errorf("the Transform component cannot be removed")
	}
	idx := componentIndex(obj.Components, comp)
	obj.Components = removeComponent(obj.Components, comp)
	e.Scene.Dirty = true
	e.undo.Record("Remove Component "+comp.TypeName(), func() {
		obj.Components = insertComponent(obj.Components, comp, idx)
	})
	e.Logf("info", "Removed %s from %q", comp.TypeName(), path)
	return nil
}

// SetComponentProperty assigns one property from its wire-string value,
// through the typed property table with reflection fallback.
func (e *Editor) SetComponentProperty(path, typeName, property, raw string) error {
	obj, err := e.Scene.Find(path)
	if err != nil {
		return err
	}
	comp := obj.Component(typeName)
	if comp == nil {
		return fmt.Errorf("game object %q has no %s component", path, typeName)
	}
	prev := comp.Clone()
	if err := comp.SetProperty(property, raw); err != nil {
		return err
	}
	e.Scene.Dirty = true
	e.undo.Record(fmt.Sprintf("Set %s.%s", comp.TypeName(), property), func() {
		restoreComponent(comp, prev)
	})
	return nil
}

// NewScene replaces the current scene with an empty one.
func (e *Editor) NewScene(name string) error {
	if e.playState != PlayStateStopped {
		return fmt.Errorf("cannot create a scene while in play mode")
	}
	if name == "" {
		return fmt.Errorf("scene name is required")
	}
	prev := e.Scene
	e.Scene = NewScene(name)
	e.selection = nil
	e.undo.Record("New Scene "+name, func() {
		e.Scene = prev
	})
	e.Logf("info", "Created scene %q", name)
	return nil
}

// SaveScene marks the scene clean and records its save path. An empty path
// keeps the previous one or derives a default from the scene name.
func (e *Editor) SaveScene(path string) (string, error) {
	if path == "" {
		path = e.Scene.Path
	}
	if path == "" {
		path = "Assets/Scenes/" + e.Scene.Name + ".scene"
	}
	e.Scene.Path = path
	e.Scene.Dirty = false
	e.Logf("info", "Saved scene %q to %s", e.Scene.Name, path)
	return path, nil
}

// SelectedPaths returns the current selection.
func (e *Editor) SelectedPaths() []string {
	out := make([]string, len(e.selection))
	copy(out, e.selection)
	return out
}

// SetSelection replaces the selection. Unknown paths are rejected.
func (e *Editor) SetSelection(paths []string) error {
	for _, p := range paths {
		if _, err := e.Scene.Find(p); err != nil {
			return err
		}
	}
	e.selection = append([]string(nil), paths...)
	return nil
}

// PlayState returns the current play mode state.
func (e *Editor) PlayState() string { return e.playState }

// Play enters play mode from stopped, or resumes from paused.
func (e *Editor) Play() error {
	switch e.playState {
	case PlayStatePlaying:
		return fmt.Errorf("already in play mode")
	case PlayStateStopped, PlayStatePaused:
		e.setPlayState(PlayStatePlaying)
		return nil
	}
	return fmt.Errorf("invalid play state %q", e.playState)
}

// Pause pauses play mode.
func (e *Editor) Pause() error {
	if e.playState != PlayStatePlaying {
		return fmt.Errorf("cannot pause: not playing")
	}
	e.setPlayState(PlayStatePaused)
	return nil
}

// Stop exits play mode.
func (e *Editor) Stop() error {
	if e.playState == PlayStateStopped {
		return fmt.Errorf("cannot stop: not in play mode")
	}
	e.setPlayState(PlayStateStopped)
	return nil
}

func (e *Editor) setPlayState(state string) {
	e.playState = state
	e.Logf("info", "Play mode: %s", state)
	if e.onPlayMode != nil {
		e.onPlayMode(state)
	}
}

// RefreshProject reimports project assets and returns the refresh count.
func (e *Editor) RefreshProject() int {
	e.refreshes++
	e.Logf("info", "Project refresh #%d complete (%d assets, %d prefabs)",
		e.refreshes, e.Assets.Len(), e.Prefabs.Len())
	return e.refreshes
}

// menuItems maps editor menu paths to their actions.
var menuItems = map[string]func(e *Editor) error{
	"File/Save Scene": func(e *Editor) error {
		_, err := e.SaveScene("")
		return err
	},
	"Edit/Undo": func(e *Editor) error {
		_, err := e.Undo()
		return err
	},
	"Edit/Play":  func(e *Editor) error { return e.Play() },
	"Edit/Pause": func(e *Editor) error { return e.Pause() },
	"Edit/Stop":  func(e *Editor) error { return e.Stop() },
	"Assets/Refresh": func(e *Editor) error {
		e.RefreshProject()
		return nil
	},
	"GameObject/Create Empty": func(e *Editor) error {
		_, err := e.CreateGameObject("GameObject", "")
		return err
	},
}

// MenuItemNames returns the executable menu paths, sorted.
func MenuItemNames() []string {
	names := make([]string, 0, len(menuItems))
	for name := range menuItems {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExecuteMenuItem runs the action behind a menu path.
func (e *Editor) ExecuteMenuItem(menuPath string) error {
	fn, ok := menuItems[menuPath]
	if !ok {
		return fmt.Errorf("unknown menu item %q (known: %s)",
			menuPath, strings.Join(MenuItemNames(), ", "))
	}
	return fn(e)
}

// CreateAsset makes a typed asset and records the undo entry.
func (e *Editor) CreateAsset(assetType, path string) (*Asset, error) {
	asset, err := e.Assets.Create(assetType, path)
	if err != nil {
		return nil, err
	}
	e.undo.Record("Create Asset "+asset.Path, func() {
		e.Assets.Remove(asset.Path)
	})
	e.Logf("info", "Created %s asset at %s", asset.AssetType, asset.Path)
	return asset, nil
}

// CreatePrefabFromInstance snapshots the object at path into a prefab.
func (e *Editor) CreatePrefabFromInstance(path, assetPath string) (*Prefab, error) {
	obj, err := e.Scene.Find(path)
	if err != nil {
		return nil, err
	}
	prefab, err := e.Prefabs.CreateFromInstance(obj, assetPath)
	if err != nil {
		return nil, err
	}
	e.undo.Record("Create Prefab "+prefab.AssetPath, func() {
		e.Prefabs.Remove(prefab.AssetPath)
	})
	e.Logf("info", "Created prefab %s from %q", prefab.AssetPath, path)
	return prefab, nil
}

// InstantiatePrefab clones a prefab into the scene under parentPath.
func (e *Editor) InstantiatePrefab(assetPath, parentPath string) (*GameObject, error) {
	prefab, err := e.Prefabs.Get(assetPath)
	if err != nil {
		return nil, err
	}
	obj := prefab.Instantiate()
	// Disambiguate when a sibling of the same name exists; path-based
	// resolution requires unique names among siblings.
	obj.Name = e.uniqueName(obj.Name, parentPath)
	if err := e.Scene.Attach(obj, parentPath); err != nil {
		return nil, err
	}
	path := obj.Path()
	e.undo.Record("Instantiate Prefab "+prefab.Name, func() {
		_, _, _ = e.Scene.Detach(path)
	})
	e.Logf("info", "Instantiated prefab %s as %q", prefab.AssetPath, path)
	return obj, nil
}

func (e *Editor) uniqueName(name, parentPath string) string {
	siblings := e.Scene.roots
	if parentPath != "" {
		if parent, err := e.Scene.Find(parentPath); err == nil {
			siblings = parent.Children
		}
	}
	taken := map[string]bool{}
	for _, s := range siblings {
		taken[s.Name] = true
	}
	if !taken[name] {
		return name
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s (%d)", name, i)
		if !taken[candidate] {
			return candidate
		}
	}
}

func removePath(paths []string, path string) []string {
	for i, p := range paths {
		if p == path {
			return append(paths[:i], paths[i+1:]...)
		}
	}
	return paths
}

func componentIndex(list []*Component, comp *Component) int {
	for i, c := range list {
		if c == comp {
			return i
		}
	}
	return -1
}

func removeComponent(list []*Component, comp *Component) []*Component {
	for i, c := range list {
		if c == comp {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func insertComponent(list []*Component, comp *Component, idx int) []*Component {
	if idx < 0 || idx >= len(list) {
		return append(list, comp)
	}
	list = append(list, nil)
	copy(list[idx+1:], list[idx:])
	list[idx] = comp
	return list
}

// restoreComponent copies prev's value back into comp in place, so
// references held by the object stay valid.
func restoreComponent(comp, prev *Component) {
	src := prev.Clone()
	// Overwrite the pointed-to struct value.
	dst := comp.value
	copyStruct(dst, src.value)
}
