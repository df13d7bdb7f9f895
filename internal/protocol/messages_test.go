package protocol

import (
	"strings"
	"testing"
)

func TestParse_Request(t *testing.T) {
	data := []byte(`{"id":"abc","type":"request","category":"gameObject","action":"createPrimitive","params":{"name":"Player","primitiveType":"Capsule"}}`)

	msg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if msg.Request == nil {
		t.Fatal("Expected request message")
	}
	if msg.Response != nil || msg.Event != nil {
		t.Error("Expected exactly one variant to be set")
	}
	if msg.Request.Key() != "gameObject.createPrimitive" {
		t.Errorf("Expected key gameObject.createPrimitive, got %s", msg.Request.Key())
	}
	name, _ := msg.Request.Params.String("name")
	if name != "Player" {
		t.Errorf("Expected name Player, got %s", name)
	}
}

func TestParse_RequestWithoutParams(t *testing.T) {
	data := []byte(`{"id":"abc","type":"request","category":"project","action":"refresh"}`)

	msg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if msg.Request.Params == nil {
		t.Error("Expected params to default to an empty map")
	}
}

func TestParse_Response(t *testing.T) {
	data := []byte(`{"id":"abc","type":"response","success":false,"error":"component not found"}`)

	msg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if msg.Response == nil {
		t.Fatal("Expected response message")
	}
	if msg.Response.Success {
		t.Error("Expected success=false")
	}
	if msg.Response.Error != "component not found" {
		t.Errorf("Unexpected error message: %s", msg.Response.Error)
	}
}

func TestParse_Event(t *testing.T) {
	data := []byte(`{"id":"e1","type":"event","event":"playModeChanged","data":{"state":"playing"}}`)

	msg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if msg.Event == nil {
		t.Fatal("Expected event message")
	}
	pm := DecodePlayModeChange(msg.Event.Data)
	if pm.State != PlayStatePlaying {
		t.Errorf("Expected playing, got %s", pm.State)
	}
}

func TestParse_Malformed(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"not json", "not json at all"},
		{"missing id", `{"type":"request","category":"scene","action":"save"}`},
		{"unknown type", `{"id":"x","type":"bogus"}`},
		{"request missing action", `{"id":"x","type":"request","category":"scene"}`},
		{"event missing name", `{"id":"x","type":"event","data":{}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.data)); err == nil {
				t.Errorf("Expected parse error for %q", tc.data)
			}
		})
	}
}

func TestEncode_ResponseRoundTrip(t *testing.T) {
	resp := NewResponse("id-1", map[string]any{"path": "Player"})
	data, err := Encode(resp)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	msg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if msg.Response == nil || !msg.Response.Success {
		t.Fatal("Expected successful response")
	}
	if msg.Response.ID != "id-1" {
		t.Errorf("Expected id-1, got %s", msg.Response.ID)
	}
}

func TestEncode_FailedResponseKeepsSuccessField(t *testing.T) {
	data, err := Encode(NewErrorResponse("id-2", "nope"))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !strings.Contains(string(data), `"success":false`) {
		t.Errorf("Expected explicit success:false in frame: %s", data)
	}
}

func TestNewRequest_FreshIDs(t *testing.T) {
	a := NewRequest(CategoryScene, ActionSave, nil)
	b := NewRequest(CategoryScene, ActionSave, nil)
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("Expected distinct non-empty ids, got %q and %q", a.ID, b.ID)
	}
}

func TestIsKnownCommand(t *testing.T) {
	for _, key := range KnownCommands() {
		if !IsKnownCommand(key) {
			t.Errorf("KnownCommands entry %s not recognized", key)
		}
	}
	if IsKnownCommand("scene.explode") {
		t.Error("Unexpected command recognized")
	}
	if len(KnownCommands()) != 25 {
		t.Errorf("Expected 25 documented commands, got %d", len(KnownCommands()))
	}
}

func TestIsSupportedVersion(t *testing.T) {
	if !IsSupportedVersion("1.0") || !IsSupportedVersion("1.1") {
		t.Error("Expected 1.0 and 1.1 to be supported")
	}
	if IsSupportedVersion("2.0") {
		t.Error("Expected 2.0 to be unsupported")
	}
}
