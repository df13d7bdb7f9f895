package protocol

import "sort"

// Command categories.
const (
	CategoryScene      = "scene"
	CategoryGameObject = "gameObject"
	CategoryComponent  = "component"
	CategoryPrefab     = "prefab"
	CategoryAsset      = "asset"
	CategoryEditor     = "editor"
	CategoryProject    = "project"
)

// Scene actions.
const (
	ActionGetHierarchy = "getHierarchy"
	ActionCreate       = "create"
	ActionSave         = "save"
)

// GameObject actions.
const (
	ActionCreatePrimitive = "createPrimitive"
	ActionFind            = "find"
	ActionDestroy         = "destroy"
	ActionSetActive       = "setActive"
	ActionSetTransform    = "setTransform"
	ActionGetSelected     = "getSelected"
	// ActionCreate reused from scene
)

// Component actions.
const (
	ActionAdd         = "add"
	ActionRemove      = "remove"
	ActionGetAll      = "getAll"
	ActionSetProperty = "setProperty"
)

// Prefab actions.
const (
	ActionCreateFromInstance = "createFromInstance"
	ActionInstantiate        = "instantiate"
	ActionList               = "list"
)

// Editor actions.
const (
	ActionPlay            = "play"
	ActionPause           = "pause"
	ActionStop            = "stop"
	ActionExecuteMenuItem = "executeMenuItem"
	ActionUndo            = "undo"
)

// Project actions.
const (
	ActionRefresh = "refresh"
)

// Event names pushed by the agent.
const (
	EventConsoleLog      = "console.log"
	EventPlayModeChanged = "playModeChanged"
	EventError           = "error"
)

// commandSet is the documented category.action space. The agent's dispatch
// table must be total over this set; the CLI uses it for validation.
var commandSet = map[string]bool{
	CategoryScene + "." + ActionGetHierarchy: true,
	CategoryScene + "." + ActionCreate:       true,
	CategoryScene + "." + ActionSave:         true,

	CategoryGameObject + "." + ActionCreate:          true,
	CategoryGameObject + "." + ActionCreatePrimitive: true,
	CategoryGameObject + "." + ActionFind:            true,
	CategoryGameObject + "." + ActionDestroy:         true,
	CategoryGameObject + "." + ActionSetActive:       true,
	CategoryGameObject + "." + ActionSetTransform:    true,
	CategoryGameObject + "." + ActionGetSelected:     true,

	CategoryComponent + "." + ActionAdd:         true,
	CategoryComponent + "." + ActionRemove:      true,
	CategoryComponent + "." + ActionGetAll:      true,
	CategoryComponent + "." + ActionSetProperty: true,

	CategoryPrefab + "." + ActionCreateFromInstance: true,
	CategoryPrefab + "." + ActionInstantiate:        true,
	CategoryPrefab + "." + ActionList:               true,

	CategoryAsset + "." + ActionCreate: true,
	CategoryAsset + "." + ActionFind:   true,

	CategoryEditor + "." + ActionPlay:            true,
	CategoryEditor + "." + ActionPause:           true,
	CategoryEditor + "." + ActionStop:            true,
	CategoryEditor + "." + ActionExecuteMenuItem: true,
	CategoryEditor + "." + ActionUndo:            true,

	CategoryProject + "." + ActionRefresh: true,
}

// IsKnownCommand reports whether key is in the documented command set.
func IsKnownCommand(key string) bool {
	return commandSet[key]
}

// KnownCommands returns the documented command keys, sorted.
func KnownCommands() []string {
	keys := make([]string, 0, len(commandSet))
	for k := range commandSet {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ValidCategories returns the documented categories, sorted.
func ValidCategories() []string {
	return []string{
		CategoryAsset, CategoryComponent, CategoryEditor,
		CategoryGameObject, CategoryPrefab, CategoryProject, CategoryScene,
	}
}
