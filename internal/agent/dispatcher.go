package agent

import (
	"fmt"
	"log"
	"strings"

	"github.com/polyforge/scenebridge/internal/protocol"
	"github.com/polyforge/scenebridge/internal/scene"
)

// handlerFunc executes one command against the editor and returns the
// result payload or an error.
type handlerFunc func(p protocol.Params) (map[string]any, error)

// Dispatcher maps category.action keys to handlers. The table is total
// over the documented command set; unknown keys produce a structured
// error response, never a crash.
type Dispatcher struct {
	editor *scene.Editor
	table  map[string]handlerFunc
}

// NewDispatcher builds the command table for an editor.
func NewDispatcher(editor *scene.Editor) *Dispatcher {
	d := &Dispatcher{editor: editor}
	d.table = map[string]handlerFunc{
		protocol.CategoryScene + "." + protocol.ActionGetHierarchy: d.sceneGetHierarchy,
		protocol.CategoryScene + "." + protocol.ActionCreate:       d.sceneCreate,
		protocol.CategoryScene + "." + protocol.ActionSave:         d.sceneSave,

		protocol.CategoryGameObject + "." + protocol.ActionCreate:          d.gameObjectCreate,
		protocol.CategoryGameObject + "." + protocol.ActionCreatePrimitive: d.gameObjectCreatePrimitive,
		protocol.CategoryGameObject + "." + protocol.ActionFind:            d.gameObjectFind,
		protocol.CategoryGameObject + "." + protocol.ActionDestroy:         d.gameObjectDestroy,
		protocol.CategoryGameObject + "." + protocol.ActionSetActive:       d.gameObjectSetActive,
		protocol.CategoryGameObject + "." + protocol.ActionSetTransform:    d.gameObjectSetTransform,
		protocol.CategoryGameObject + "." + protocol.ActionGetSelected:     d.gameObjectGetSelected,

		protocol.CategoryComponent + "." + protocol.ActionAdd:         d.componentAdd,
		protocol.CategoryComponent + "." + protocol.ActionRemove:      d.componentRemove,
		protocol.CategoryComponent + "." + protocol.ActionGetAll:      d.componentGetAll,
		protocol.CategoryComponent + "." + protocol.ActionSetProperty: d.componentSetProperty,

		protocol.CategoryPrefab + "." + protocol.ActionCreateFromInstance: d.prefabCreateFromInstance,
		protocol.CategoryPrefab + "." + protocol.ActionInstantiate:        d.prefabInstantiate,
		protocol.CategoryPrefab + "." + protocol.ActionList:               d.prefabList,

		protocol.CategoryAsset + "." + protocol.ActionCreate: d.assetCreate,
		protocol.CategoryAsset + "." + protocol.ActionFind:   d.assetFind,

		protocol.CategoryEditor + "." + protocol.ActionPlay:            d.editorPlay,
		protocol.CategoryEditor + "." + protocol.ActionPause:           d.editorPause,
		protocol.CategoryEditor + "." + protocol.ActionStop:            d.editorStop,
		protocol.CategoryEditor + "." + protocol.ActionExecuteMenuItem: d.editorExecuteMenuItem,
		protocol.CategoryEditor + "." + protocol.ActionUndo:            d.editorUndo,

		protocol.CategoryProject + "." + protocol.ActionRefresh: d.projectRefresh,
	}
	return d
}

// Dispatch runs one request and always produces a response. A panicking
// handler becomes a failed response; the connection survives.
func (d *Dispatcher) Dispatch(req *protocol.Request) (resp *protocol.Response) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Agent] handler panic for %s: %v", req.Key(), r)
			resp = protocol.NewErrorResponse(req.ID, fmt.Sprintf("internal error executing %s: %v", req.Key(), r))
		}
	}()

	handler, ok := d.table[req.Key()]
	if !ok {
		return protocol.NewErrorResponse(req.ID, fmt.Sprintf(
			"unknown command %q (valid categories: %s)",
			req.Key(), strings.Join(protocol.ValidCategories(), ", ")))
	}

	result, err := handler(req.Params)
	if err != nil {
		return protocol.NewErrorResponse(req.ID, err.Error())
	}
	return protocol.NewResponse(req.ID, result)
}

// optVector3 reads an optional bracketed vector parameter. Absent keys
// yield nil; present but malformed values are errors.
func optVector3(p protocol.Params, key string) (*protocol.Vector3, error) {
	if !p.Has(key) {
		return nil, nil
	}
	v, err := p.Vector3(key)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (d *Dispatcher) sceneGetHierarchy(p protocol.Params) (map[string]any, error) {
	nodes := d.editor.Scene.Hierarchy()
	out := make([]any, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, hierarchyNodeMap(n))
	}
	return map[string]any{
		"scene":     d.editor.Scene.Name,
		"path":      d.editor.Scene.Path,
		"dirty":     d.editor.Scene.Dirty,
		"hierarchy": out,
	}, nil
}

func hierarchyNodeMap(n *scene.HierarchyNode) map[string]any {
	children := make([]any, 0, len(n.Children))
	for _, c := range n.Children {
		children = append(children, hierarchyNodeMap(c))
	}
	return map[string]any{
		"name":       n.Name,
		"path":       n.Path,
		"active":     n.Active,
		"components": n.Components,
		"children":   children,
	}
}

func (d *Dispatcher) sceneCreate(p protocol.Params) (map[string]any, error) {
	name, err := p.Require("name")
	if err != nil {
		return nil, err
	}
	if err := d.editor.NewScene(name); err != nil {
		return nil, err
	}
	return map[string]any{"scene": name}, nil
}

func (d *Dispatcher) sceneSave(p protocol.Params) (map[string]any, error) {
	path, err := d.editor.SaveScene(p.StringOr("path", ""))
	if err != nil {
		return nil, err
	}
	return map[string]any{"path": path}, nil
}

func (d *Dispatcher) gameObjectCreate(p protocol.Params) (map[string]any, error) {
	name, err := p.Require("name")
	if err != nil {
		return nil, err
	}
	obj, err := d.editor.CreateGameObject(name, p.StringOr("parentPath", ""))
	if err != nil {
		return nil, err
	}
	return map[string]any{"path": obj.Path()}, nil
}

func (d *Dispatcher) gameObjectCreatePrimitive(p protocol.Params) (map[string]any, error) {
	primitiveType, err := p.Require("primitiveType")
	if err != nil {
		return nil, err
	}
	obj, err := d.editor.CreatePrimitive(p.StringOr("name", ""), primitiveType, p.StringOr("parentPath", ""))
	if err != nil {
		return nil, err
	}
	return map[string]any{"path": obj.Path(), "primitiveType": primitiveType}, nil
}

func (d *Dispatcher) gameObjectFind(p protocol.Params) (map[string]any, error) {
	name, err := p.Require("name")
	if err != nil {
		return nil, err
	}
	paths := d.editor.Scene.FindByName(name)
	return map[string]any{"paths": paths, "count": len(paths)}, nil
}

func (d *Dispatcher) gameObjectDestroy(p protocol.Params) (map[string]any, error) {
	path, err := p.Require("gameObjectPath")
	if err != nil {
		return nil, err
	}
	if err := d.editor.DestroyGameObject(path); err != nil {
		return nil, err
	}
	return map[string]any{"destroyed": path}, nil
}

func (d *Dispatcher) gameObjectSetActive(p protocol.Params) (map[string]any, error) {
	path, err := p.Require("gameObjectPath")
	if err != nil {
		return nil, err
	}
	active, err := p.Bool("active")
	if err != nil {
		return nil, err
	}
	if err := d.editor.SetActive(path, active); err != nil {
		return nil, err
	}
	return map[string]any{"path": path, "active": active}, nil
}

func (d *Dispatcher) gameObjectSetTransform(p protocol.Params) (map[string]any, error) {
	path, err := p.Require("gameObjectPath")
	if err != nil {
		return nil, err
	}
	position, err := optVector3(p, "position")
	if err != nil {
		return nil, err
	}
	rotation, err := optVector3(p, "rotation")
	if err != nil {
		return nil, err
	}
	scale, err := optVector3(p, "scale")
	if err != nil {
		return nil, err
	}
	if position == nil && rotation == nil && scale == nil {
		return nil, fmt.Errorf("setTransform requires at least one of position, rotation, scale")
	}
	if err := d.editor.SetTransform(path, position, rotation, scale); err != nil {
		return nil, err
	}
	return map[string]any{"path": path}, nil
}

func (d *Dispatcher) gameObjectGetSelected(p protocol.Params) (map[string]any, error) {
	paths := d.editor.SelectedPaths()
	return map[string]any{"paths": paths, "count": len(paths)}, nil
}

func (d *Dispatcher) componentAdd(p protocol.Params) (map[string]any, error) {
	path, err := p.Require("gameObjectPath")
	if err != nil {
		return nil, err
	}
	typeName, err := p.Require("componentType")
	if err != nil {
		return nil, err
	}
	comp, err := d.editor.AddComponent(path, typeName)
	if err != nil {
		return nil, err
	}
	return map[string]any{"path": path, "componentType": comp.TypeName()}, nil
}

func (d *Dispatcher) componentRemove(p protocol.Params) (map[string]any, error) {
	path, err := p.Require("gameObjectPath")
	if err != nil {
		return nil, err
	}
	typeName, err := p.Require("componentType")
	if err != nil {
		return nil, err
	}
	if err := d.editor.RemoveComponent(path, typeName); err != nil {
		return nil, err
	}
	return map[string]any{"path": path, "componentType": typeName}, nil
}

func (d *Dispatcher) componentGetAll(p protocol.Params) (map[string]any, error) {
	path, err := p.Require("gameObjectPath")
	if err != nil {
		return nil, err
	}
	obj, err := d.editor.Scene.Find(path)
	if err != nil {
		return nil, err
	}
	components := make([]any, 0, len(obj.Components))
	for _, comp := range obj.Components {
		components = append(components, map[string]any{
			"type":       comp.TypeName(),
			"properties": comp.Properties(),
		})
	}
	return map[string]any{"path": path, "components": components}, nil
}

func (d *Dispatcher) componentSetProperty(p protocol.Params) (map[string]any, error) {
	path, err := p.Require("gameObjectPath")
	if err != nil {
		return nil, err
	}
	typeName, err := p.Require("componentType")
	if err != nil {
		return nil, err
	}
	property, err := p.Require("property")
	if err != nil {
		return nil, err
	}
	value, err := p.Require("value")
	if err != nil {
		return nil, err
	}
	if err := d.editor.SetComponentProperty(path, typeName, property, value); err != nil {
		return nil, err
	}
	return map[string]any{"path": path, "componentType": typeName, "property": property}, nil
}

func (d *Dispatcher) prefabCreateFromInstance(p protocol.Params) (map[string]any, error) {
	path, err := p.Require("gameObjectPath")
	if err != nil {
		return nil, err
	}
	assetPath, err := p.Require("prefabPath")
	if err != nil {
		return nil, err
	}
	prefab, err := d.editor.CreatePrefabFromInstance(path, assetPath)
	if err != nil {
		return nil, err
	}
	return map[string]any{"name": prefab.Name, "assetPath": prefab.AssetPath}, nil
}

func (d *Dispatcher) prefabInstantiate(p protocol.Params) (map[string]any, error) {
	assetPath, err := p.Require("prefabPath")
	if err != nil {
		return nil, err
	}
	obj, err := d.editor.InstantiatePrefab(assetPath, p.StringOr("parentPath", ""))
	if err != nil {
		return nil, err
	}
	return map[string]any{"path": obj.Path()}, nil
}

func (d *Dispatcher) prefabList(p protocol.Params) (map[string]any, error) {
	prefabs := d.editor.Prefabs.List()
	out := make([]any, 0, len(prefabs))
	for _, pf := range prefabs {
		out = append(out, map[string]any{"name": pf.Name, "assetPath": pf.AssetPath})
	}
	return map[string]any{"prefabs": out, "count": len(out)}, nil
}

func (d *Dispatcher) assetCreate(p protocol.Params) (map[string]any, error) {
	assetType, err := p.Require("assetType")
	if err != nil {
		return nil, err
	}
	path, err := p.Require("path")
	if err != nil {
		return nil, err
	}
	asset, err := d.editor.CreateAsset(assetType, path)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"guid":      asset.GUID,
		"name":      asset.Name,
		"path":      asset.Path,
		"assetType": asset.AssetType,
	}, nil
}

func (d *Dispatcher) assetFind(p protocol.Params) (map[string]any, error) {
	assets := d.editor.Assets.Find(p.StringOr("filter", ""))
	out := make([]any, 0, len(assets))
	for _, a := range assets {
		out = append(out, map[string]any{
			"guid":      a.GUID,
			"name":      a.Name,
			"path":      a.Path,
			"assetType": a.AssetType,
		})
	}
	return map[string]any{"assets": out, "count": len(out)}, nil
}

func (d *Dispatcher) editorPlay(p protocol.Params) (map[string]any, error) {
	if err := d.editor.Play(); err != nil {
		return nil, err
	}
	return map[string]any{"state": d.editor.PlayState()}, nil
}

func (d *Dispatcher) editorPause(p protocol.Params) (map[string]any, error) {
	if err := d.editor.Pause(); err != nil {
		return nil, err
	}
	return map[string]any{"state": d.editor.PlayState()}, nil
}

func (d *Dispatcher) editorStop(p protocol.Params) (map[string]any, error) {
	if err := d.editor.Stop(); err != nil {
		return nil, err
	}
	return map[string]any{"state": d.editor.PlayState()}, nil
}

func (d *Dispatcher) editorExecuteMenuItem(p protocol.Params) (map[string]any, error) {
	menuPath, err := p.Require("menuPath")
	if err != nil {
		return nil, err
	}
	if err := d.editor.ExecuteMenuItem(menuPath); err != nil {
		return nil, err
	}
	return map[string]any{"menuPath": menuPath}, nil
}

func (d *Dispatcher) editorUndo(p protocol.Params) (map[string]any, error) {
	label, err := d.editor.Undo()
	if err != nil {
		return nil, err
	}
	return map[string]any{"undone": label}, nil
}

func (d *Dispatcher) projectRefresh(p protocol.Params) (map[string]any, error) {
	return map[string]any{"refreshCount": d.editor.RefreshProject()}, nil
}
