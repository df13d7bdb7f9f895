package scene

import (
	"fmt"
	"sort"
	"strings"
)

// primitiveShapes maps primitive type names to their mesh and the collider
// component that matches the shape.
var primitiveShapes = map[string]struct {
	mesh     string
	collider string
}{
	"Cube":     {"Cube", "BoxCollider"},
	"Sphere":   {"Sphere", "SphereCollider"},
	"Capsule":  {"Capsule", "CapsuleCollider"},
	"Cylinder": {"Cylinder", "CapsuleCollider"},
	"Plane":    {"Plane", "MeshCollider"},
	"Quad":     {"Quad", "MeshCollider"},
}

// PrimitiveTypeNames returns the supported primitive types, sorted.
func PrimitiveTypeNames() []string {
	names := make([]string, 0, len(primitiveShapes))
	for name := range primitiveShapes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewPrimitive creates a detached object carrying the primitive's mesh
// renderer and matching collider. The name defaults to the primitive type.
func NewPrimitive(name, primitiveType string) (*GameObject, error) {
	shape, ok := primitiveShapes[primitiveType]
	if !ok {
		for canonical, s := range primitiveShapes {
			if strings.EqualFold(canonical, primitiveType) {
				primitiveType, shape, ok = canonical, s, true
				break
			}
		}
	}
	if !ok {
		return nil, fmt.Errorf("unknown primitive type %q (known: %s)",
			primitiveType, strings.Join(PrimitiveTypeNames(), ", "))
	}

	if name == "" {
		name = primitiveType
	}
	obj := NewGameObject(name)

	renderer, _ := NewComponent("MeshRenderer")
	renderer.value.(*MeshRenderer).Mesh = shape.mesh
	obj.Components = append(obj.Components, renderer)

	collider, _ := NewComponent(shape.collider)
	obj.Components = append(obj.Components, collider)

	return obj, nil
}
