package scene

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/polyforge/scenebridge/internal/protocol"
)

// Component wraps one typed component instance attached to a game object.
// Property assignment goes through the typed property table first and falls
// back to reflection over exported fields for anything the table does not
// cover.
type Component struct {
	typeName string
	value    any // pointer to the component struct
}

// TypeName returns the component's type name as used on the wire.
func (c *Component) TypeName() string { return c.typeName }

// Value returns the underlying component struct pointer.
func (c *Component) Value() any { return c.value }

// Transform holds an object's position, rotation (euler degrees) and scale.
type Transform struct {
	Position protocol.Vector3
	Rotation protocol.Vector3
	Scale    protocol.Vector3
}

// Rigidbody adds physics simulation parameters.
type Rigidbody struct {
	Mass        float64
	Drag        float64
	AngularDrag float64
	UseGravity  bool
	IsKinematic bool
}

// Light is a scene light source.
type Light struct {
	LightType string // Directional, Point, Spot
	Intensity float64
	Range     float64
	Color     string
}

// Camera renders the scene.
type Camera struct {
	FieldOfView  float64
	Orthographic bool
	NearClip     float64
	FarClip      float64
}

// BoxCollider is an axis-aligned box collision shape.
type BoxCollider struct {
	Center    protocol.Vector3
	Size      protocol.Vector3
	IsTrigger bool
}

// SphereCollider is a spherical collision shape.
type SphereCollider struct {
	Center    protocol.Vector3
	Radius    float64
	IsTrigger bool
}

// CapsuleCollider is a capsule collision shape.
type CapsuleCollider struct {
	Center    protocol.Vector3
	Radius    float64
	Height    float64
	IsTrigger bool
}

// MeshCollider collides against the rendered mesh.
type MeshCollider struct {
	Convex    bool
	IsTrigger bool
}

// MeshRenderer draws a mesh with a material.
type MeshRenderer struct {
	Mesh        string
	Material    string
	CastShadows bool
}

// AudioSource plays an audio clip.
type AudioSource struct {
	Clip        string
	Volume      float64
	Pitch       float64
	Loop        bool
	PlayOnAwake bool
}

// componentFactories builds fresh instances with engine defaults, keyed by
// canonical type name.
var componentFactories = map[string]func() any{
	"Transform": func() any {
		return &Transform{Scale: protocol.Vector3{X: 1, Y: 1, Z: 1}}
	},
	"Rigidbody": func() any {
		return &Rigidbody{Mass: 1, UseGravity: true}
	},
	"Light": func() any {
		return &Light{LightType: "Point", Intensity: 1, Range: 10, Color: "#FFFFFF"}
	},
	"Camera": func() any {
		return &Camera{FieldOfView: 60, NearClip: 0.3, FarClip: 1000}
	},
	"BoxCollider": func() any {
		return &BoxCollider{Size: protocol.Vector3{X: 1, Y: 1, Z: 1}}
	},
	"SphereCollider": func() any {
		return &SphereCollider{Radius: 0.5}
	},
	"CapsuleCollider": func() any {
		return &CapsuleCollider{Radius: 0.5, Height: 2}
	},
	"MeshCollider": func() any {
		return &MeshCollider{}
	},
	"MeshRenderer": func() any {
		return &MeshRenderer{Material: "Default-Material", CastShadows: true}
	},
	"AudioSource": func() any {
		return &AudioSource{Volume: 1, Pitch: 1, PlayOnAwake: true}
	},
}

// NewComponent instantiates a component by type name. Lookup is exact
// first, then case-insensitive, so "rigidbody" resolves too.
func NewComponent(typeName string) (*Component, error) {
	if factory, ok := componentFactories[typeName]; ok {
		return &Component{typeName: typeName, value: factory()}, nil
	}
	for canonical, factory := range componentFactories {
		if strings.EqualFold(canonical, typeName) {
			return &Component{typeName: canonical, value: factory()}, nil
		}
	}
	return nil, fmt.Errorf("unknown component type %q (known: %s)",
		typeName, strings.Join(ComponentTypeNames(), ", "))
}

func newTransformComponent() *Component {
	c, _ := NewComponent("Transform")
	return c
}

// ComponentTypeNames returns the registered component types, sorted.
func ComponentTypeNames() []string {
	names := make([]string, 0, len(componentFactories))
	for name := range componentFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// propertySetter applies one wire-string value to a component instance.
type propertySetter func(value any, raw string) error

// typedProperties is the engine's native typed-property system: the
// preferred assignment path, keyed by component type then property name.
// It covers the properties whose names differ from the struct fields or
// whose parsing needs engine semantics; everything else falls back to
// reflection.
var typedProperties = map[string]map[string]propertySetter{
	"Transform": {
		"position": func(v any, raw string) error {
			vec, err := protocol.ParseVector3(raw)
			if err != nil {
				return err
			}
			v.(*Transform).Position = vec
			return nil
		},
		"rotation": func(v any, raw string) error {
			vec, err := protocol.ParseVector3(raw)
			if err != nil {
				return err
			}
			v.(*Transform).Rotation = vec
			return nil
		},
		"scale": func(v any, raw string) error {
			vec, err := protocol.ParseVector3(raw)
			if err != nil {
				return err
			}
			v.(*Transform).Scale = vec
			return nil
		},
	},
	"Light": {
		"type": func(v any, raw string) error {
			switch raw {
			case "Directional", "Point", "Spot":
				v.(*Light).LightType = raw
				return nil
			}
			return fmt.Errorf("unknown light type %q (expected Directional, Point or Spot)", raw)
		},
	},
}

// SetProperty assigns a property from its wire-string representation.
func (c *Component) SetProperty(name, raw string) error {
	if table, ok := typedProperties[c.typeName]; ok {
		if setter, ok := table[strings.ToLower(name)]; ok {
			if err := setter(c.value, raw); err != nil {
				return fmt.Errorf("property %q on %s: %v", name, c.typeName, err)
			}
			return nil
		}
	}
	return c.setByReflection(name, raw)
}

// setByReflection is the fallback for properties the typed table does not
// expose: exported struct fields matched case-insensitively, values coerced
// from the wire string by field kind.
func (c *Component) setByReflection(name, raw string) error {
	elem := reflect.ValueOf(c.value).Elem()
	typ := elem.Type()

	var field reflect.Value
	for i := 0; i < typ.NumField(); i++ {
		if strings.EqualFold(typ.Field(i).Name, name) {
			field = elem.Field(i)
			break
		}
	}
	if !field.IsValid() {
		return fmt.Errorf("component %s has no property %q", c.typeName, name)
	}
	if !field.CanSet() {
		return fmt.Errorf("property %q on %s is not settable", name, c.typeName)
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("property %q on %s: expected boolean, got %q", name, c.typeName, raw)
		}
		field.SetBool(b)
	case reflect.Float64, reflect.Float32:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return fmt.Errorf("property %q on %s: expected number, got %q", name, c.typeName, raw)
		}
		field.SetFloat(f)
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return fmt.Errorf("property %q on %s: expected integer, got %q", name, c.typeName, raw)
		}
		field.SetInt(n)
	case reflect.Struct:
		if field.Type() == reflect.TypeOf(protocol.Vector3{}) {
			vec, err := protocol.ParseVector3(raw)
			if err != nil {
				return fmt.Errorf("property %q on %s: %v", name, c.typeName, err)
			}
			field.Set(reflect.ValueOf(vec))
			return nil
		}
		return fmt.Errorf("property %q on %s has unsupported type %s", name, c.typeName, field.Type())
	default:
		return fmt.Errorf("property %q on %s has unsupported kind %s", name, c.typeName, field.Kind())
	}
	return nil
}

// Properties returns a snapshot of all exported properties, keyed by the
// lower-camel wire name. Vector fields serialize in their bracketed form.
func (c *Component) Properties() map[string]any {
	props := map[string]any{}
	elem := reflect.ValueOf(c.value).Elem()
	typ := elem.Type()
	for i := 0; i < typ.NumField(); i++ {
		name := wireName(typ.Field(i).Name)
		val := elem.Field(i).Interface()
		if vec, ok := val.(protocol.Vector3); ok {
			props[name] = vec.String()
		} else {
			props[name] = val
		}
	}
	return props
}

// Clone deep-copies the component. All component structs are flat value
// types, so a struct copy suffices.
func (c *Component) Clone() *Component {
	src := reflect.ValueOf(c.value).Elem()
	dst := reflect.New(src.Type())
	dst.Elem().Set(src)
	return &Component{typeName: c.typeName, value: dst.Interface()}
}

// copyStruct overwrites the struct pointed to by dst with the value
// pointed to by src. Both must point to the same struct type.
func copyStruct(dst, src any) {
	reflect.ValueOf(dst).Elem().Set(reflect.ValueOf(src).Elem())
}

func wireName(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
