package scene

import (
	"testing"

	"github.com/polyforge/scenebridge/internal/protocol"
)

func TestNewComponent(t *testing.T) {
	c, err := NewComponent("Rigidbody")
	if err != nil {
		t.Fatalf("NewComponent failed: %v", err)
	}
	rb := c.Value().(*Rigidbody)
	if rb.Mass != 1 || !rb.UseGravity {
		t.Errorf("Unexpected defaults %+v", rb)
	}
}

func TestNewComponent_CaseInsensitive(t *testing.T) {
	c, err := NewComponent("rigidbody")
	if err != nil {
		t.Fatalf("NewComponent failed: %v", err)
	}
	if c.TypeName() != "Rigidbody" {
		t.Errorf("Expected canonical type name, got %s", c.TypeName())
	}
}

func TestNewComponent_Unknown(t *testing.T) {
	if _, err := NewComponent("FluxCapacitor"); err == nil {
		t.Error("Expected error for unknown type")
	}
}

func TestSetProperty_TypedTable(t *testing.T) {
	c := newTransformComponent()
	if err := c.SetProperty("position", "[1,2,3]"); err != nil {
		t.Fatalf("SetProperty failed: %v", err)
	}
	tr := c.Value().(*Transform)
	if tr.Position != (protocol.Vector3{X: 1, Y: 2, Z: 3}) {
		t.Errorf("Position = %+v", tr.Position)
	}

	if err := c.SetProperty("position", "not-a-vector"); err == nil {
		t.Error("Expected vector parse error")
	}
}

func TestSetProperty_LightType(t *testing.T) {
	c, _ := NewComponent("Light")
	if err := c.SetProperty("type", "Directional"); err != nil {
		t.Fatalf("SetProperty failed: %v", err)
	}
	if c.Value().(*Light).LightType != "Directional" {
		t.Error("Light type not applied")
	}
	if err := c.SetProperty("type", "Disco"); err == nil {
		t.Error("Expected unknown enum value to be rejected")
	}
}

func TestSetProperty_ReflectionFallback(t *testing.T) {
	c, _ := NewComponent("Rigidbody")

	cases := []struct {
		prop, raw string
		check     func(rb *Rigidbody) bool
	}{
		{"mass", "3.5", func(rb *Rigidbody) bool { return rb.Mass == 3.5 }},
		{"useGravity", "false", func(rb *Rigidbody) bool { return !rb.UseGravity }},
		{"isKinematic", "true", func(rb *Rigidbody) bool { return rb.IsKinematic }},
		{"Drag", "0.2", func(rb *Rigidbody) bool { return rb.Drag == 0.2 }},
	}
	for _, tc := range cases {
		if err := c.SetProperty(tc.prop, tc.raw); err != nil {
			t.Errorf("SetProperty(%s) failed: %v", tc.prop, err)
			continue
		}
		if !tc.check(c.Value().(*Rigidbody)) {
			t.Errorf("SetProperty(%s, %s) not applied", tc.prop, tc.raw)
		}
	}
}

func TestSetProperty_ReflectionVector(t *testing.T) {
	c, _ := NewComponent("BoxCollider")
	if err := c.SetProperty("size", "[2,2,2]"); err != nil {
		t.Fatalf("SetProperty failed: %v", err)
	}
	if c.Value().(*BoxCollider).Size != (protocol.Vector3{X: 2, Y: 2, Z: 2}) {
		t.Error("Vector property not applied via reflection")
	}
}

func TestSetProperty_Errors(t *testing.T) {
	c, _ := NewComponent("Rigidbody")
	if err := c.SetProperty("mass", "heavy"); err == nil {
		t.Error("Expected coercion error")
	}
	if err := c.SetProperty("noSuchProperty", "1"); err == nil {
		t.Error("Expected unknown property error")
	}
}

func TestProperties_Snapshot(t *testing.T) {
	c, _ := NewComponent("Camera")
	props := c.Properties()
	if props["fieldOfView"] != 60.0 {
		t.Errorf("fieldOfView = %v", props["fieldOfView"])
	}
	if props["orthographic"] != false {
		t.Errorf("orthographic = %v", props["orthographic"])
	}
}

func TestClone_Isolation(t *testing.T) {
	c, _ := NewComponent("Rigidbody")
	clone := c.Clone()
	c.SetProperty("mass", "9")
	if clone.Value().(*Rigidbody).Mass == 9 {
		t.Error("Clone shares state with the original")
	}
}

func TestNewPrimitive_Unknown(t *testing.T) {
	if _, err := NewPrimitive("X", "Dodecahedron"); err == nil {
		t.Error("Expected error for unknown primitive")
	}
}

func TestNewPrimitive_DefaultName(t *testing.T) {
	obj, err := NewPrimitive("", "Sphere")
	if err != nil {
		t.Fatalf("NewPrimitive failed: %v", err)
	}
	if obj.Name != "Sphere" {
		t.Errorf("Expected default name Sphere, got %s", obj.Name)
	}
	if obj.Component("SphereCollider") == nil {
		t.Error("Expected SphereCollider")
	}
}

func TestUndoStack_Bound(t *testing.T) {
	u := NewUndoStack(3)
	for i := 0; i < 5; i++ {
		u.Record("op", func() {})
	}
	if u.Len() != 3 {
		t.Errorf("Expected bounded stack of 3, got %d", u.Len())
	}
}
