// Package scene implements the live, undo-aware object graph the agent
// mutates on behalf of the controller. The graph is owned by the engine
// main loop: all mutation happens on the tick executor, so the types here
// carry no locks.
package scene

import (
	"fmt"
	"sort"
	"strings"

	"github.com/polyforge/scenebridge/internal/protocol"
)

// GameObject is a node in the scene hierarchy. Objects are addressed by
// slash-separated name paths ("Parent/Child"); raw pointers never cross
// the wire because they would not survive a domain reload.
type GameObject struct {
	Name       string
	Active     bool
	Components []*Component
	Children   []*GameObject

	parent *GameObject
}

// NewGameObject creates a detached object with the default Transform.
func NewGameObject(name string) *GameObject {
	return &GameObject{
		Name:       name,
		Active:     true,
		Components: []*Component{newTransformComponent()},
	}
}

// Transform returns the object's transform component. Every object has one.
func (g *GameObject) Transform() *Transform {
	for _, c := range g.Components {
		if t, ok := c.value.(*Transform); ok {
			return t
		}
	}
	// Unreachable for objects built through NewGameObject; repaired here so
	// a hand-built test object cannot panic the dispatcher.
	c := newTransformComponent()
	g.Components = append(g.Components, c)
	return c.value.(*Transform)
}

// Path returns the slash-separated hierarchy path from the root.
func (g *GameObject) Path() string {
	if g.parent == nil {
		return g.Name
	}
	return g.parent.Path() + "/" + g.Name
}

// Component returns the component with the given type name, or nil.
func (g *GameObject) Component(typeName string) *Component {
	for _, c := range g.Components {
		if strings.EqualFold(c.TypeName(), typeName) {
			return c
		}
	}
	return nil
}

// Scene is a named hierarchy of game objects.
type Scene struct {
	Name  string
	Path  string
	Dirty bool

	roots []*GameObject
}

// NewScene creates an empty scene.
func NewScene(name string) *Scene {
	return &Scene{Name: name}
}

// Roots returns the top-level objects in declaration order.
func (s *Scene) Roots() []*GameObject {
	return s.roots
}

// Find resolves a hierarchy path against the live graph. Resolution happens
// on every call; nothing caches object identity across calls.
func (s *Scene) Find(path string) (*GameObject, error) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty object path")
	}

	var current *GameObject
	candidates := s.roots
	for _, part := range parts {
		current = nil
		for _, obj := range candidates {
			if obj.Name == part {
				current = obj
				break
			}
		}
		if current == nil {
			return nil, fmt.Errorf("game object %q not found", path)
		}
		candidates = current.Children
	}
	return current, nil
}

// Attach places obj under the parent at parentPath, or at the root when
// parentPath is empty.
func (s *Scene) Attach(obj *GameObject, parentPath string) error {
	if parentPath == "" {
		obj.parent = nil
		s.roots = append(s.roots, obj)
		s.Dirty = true
		return nil
	}
	parent, err := s.Find(parentPath)
	if err != nil {
		return err
	}
	obj.parent = parent
	parent.Children = append(parent.Children, obj)
	s.Dirty = true
	return nil
}

// Detach removes the object at path from the graph and returns it together
// with its former parent path, so the removal can be undone.
func (s *Scene) Detach(path string) (*GameObject, string, error) {
	obj, err := s.Find(path)
	if err != nil {
		return nil, "", err
	}

	parentPath := ""
	if obj.parent == nil {
		s.roots = removeObject(s.roots, obj)
	} else {
		parentPath = obj.parent.Path()
		obj.parent.Children = removeObject(obj.parent.Children, obj)
		obj.parent = nil
	}
	s.Dirty = true
	return obj, parentPath, nil
}

func removeObject(list []*GameObject, obj *GameObject) []*GameObject {
	for i, o := range list {
		if o == obj {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, "/") {
		p = strings.TrimSpace(p)
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// FindByName returns the paths of every object with the given name,
// depth-first. Used by gameObject.find, which matches names, not paths.
func (s *Scene) FindByName(name string) []string {
	var paths []string
	var walk func(obj *GameObject)
	walk = func(obj *GameObject) {
		if obj.Name == name {
			paths = append(paths, obj.Path())
		}
		for _, child := range obj.Children {
			walk(child)
		}
	}
	for _, root := range s.roots {
		walk(root)
	}
	return paths
}

// HierarchyNode is a serializable snapshot of one object for
// scene.getHierarchy responses.
type HierarchyNode struct {
	Name       string           `json:"name"`
	Path       string           `json:"path"`
	Active     bool             `json:"active"`
	Components []string         `json:"components"`
	Children   []*HierarchyNode `json:"children,omitempty"`
}

// Hierarchy returns a snapshot of the whole graph.
func (s *Scene) Hierarchy() []*HierarchyNode {
	nodes := make([]*HierarchyNode, 0, len(s.roots))
	for _, root := range s.roots {
		nodes = append(nodes, snapshotNode(root))
	}
	return nodes
}

func snapshotNode(obj *GameObject) *HierarchyNode {
	types := make([]string, 0, len(obj.Components))
	for _, c := range obj.Components {
		types = append(types, c.TypeName())
	}
	sort.Strings(types)

	node := &HierarchyNode{
		Name:       obj.Name,
		Path:       obj.Path(),
		Active:     obj.Active,
		Components: types,
	}
	for _, child := range obj.Children {
		node.Children = append(node.Children, snapshotNode(child))
	}
	return node
}

// SetTransform applies the given position/rotation/scale. Nil fields are
// left untouched, matching the optional wire parameters.
func (g *GameObject) SetTransform(position, rotation, scale *protocol.Vector3) {
	t := g.Transform()
	if position != nil {
		t.Position = *position
	}
	if rotation != nil {
		t.Rotation = *rotation
	}
	if scale != nil {
		t.Scale = *scale
	}
}
