package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/polyforge/scenebridge/internal/protocol"
	"github.com/polyforge/scenebridge/internal/scene"
)

// startTestAgent brings up an agent with a fast tick loop and returns it
// with its websocket URL.
func startTestAgent(t *testing.T, channel string) (*Server, string) {
	t.Helper()

	cfg := DefaultConfig(t.TempDir())
	cfg.Channel = channel
	cfg.SendInterval = time.Millisecond
	s := New(cfg, scene.NewEditor("Test"))
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go s.RunLoop(ctx, time.Millisecond)
	t.Cleanup(func() {
		cancel()
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer stopCancel()
		s.Stop(stopCtx)
	})

	url := fmt.Sprintf("ws://127.0.0.1:%d", s.Port())
	if channel != "" {
		url += "/" + channel
	}
	return s, url
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial %s failed: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendRequest(t *testing.T, conn *websocket.Conn, category, action string, params protocol.Params) *protocol.Request {
	t.Helper()
	req := protocol.NewRequest(category, action, params)
	data, err := protocol.Encode(req)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("WriteMessage failed: %v", err)
	}
	return req
}

// awaitResponse reads frames until the response for id arrives, collecting
// any events seen along the way.
func awaitResponse(t *testing.T, conn *websocket.Conn, id string) (*protocol.Response, []*protocol.Event) {
	t.Helper()
	var events []*protocol.Event
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage failed waiting for %s: %v", id, err)
		}
		msg, err := protocol.Parse(data)
		if err != nil {
			t.Fatalf("Agent sent malformed frame: %v", err)
		}
		if msg.Event != nil {
			events = append(events, msg.Event)
			continue
		}
		if msg.Response != nil && msg.Response.ID == id {
			return msg.Response, events
		}
	}
}

func TestServer_HealthEndpoint(t *testing.T) {
	s, _ := startTestAgent(t, "")

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/", s.Port()))
	if err != nil {
		t.Fatalf("Health request failed: %v", err)
	}
	defer resp.Body.Close()

	var health map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("Health decode failed: %v", err)
	}
	if health["status"] != "ok" {
		t.Errorf("Expected status ok, got %q", health["status"])
	}
	if health["version"] != protocol.ProtocolVersion {
		t.Errorf("Expected version %s, got %q", protocol.ProtocolVersion, health["version"])
	}
}

func TestServer_CommandRoundTrip(t *testing.T) {
	_, url := startTestAgent(t, "")
	conn := dial(t, url)

	req := sendRequest(t, conn, protocol.CategoryGameObject, protocol.ActionCreatePrimitive, protocol.Params{
		"name":          "Player",
		"primitiveType": "Capsule",
	})
	resp, _ := awaitResponse(t, conn, req.ID)
	if !resp.Success {
		t.Fatalf("createPrimitive failed: %s", resp.Error)
	}
	if resp.Result["path"] != "Player" {
		t.Errorf("Unexpected path %v", resp.Result["path"])
	}

	req = sendRequest(t, conn, protocol.CategoryGameObject, protocol.ActionSetTransform, protocol.Params{
		"gameObjectPath": "Player",
		"position":       "[0,1,0]",
	})
	resp, _ = awaitResponse(t, conn, req.ID)
	if !resp.Success {
		t.Fatalf("setTransform failed: %s", resp.Error)
	}

	req = sendRequest(t, conn, protocol.CategoryComponent, protocol.ActionGetAll, protocol.Params{
		"gameObjectPath": "Player",
	})
	resp, _ = awaitResponse(t, conn, req.ID)
	if !resp.Success {
		t.Fatalf("getAll failed: %s", resp.Error)
	}

	components, _ := resp.Result["components"].([]any)
	var transform map[string]any
	for _, c := range components {
		m, _ := c.(map[string]any)
		if m["type"] == "Transform" {
			transform = m
		}
	}
	if transform == nil {
		t.Fatalf("Expected a Transform component in %v", components)
	}
	props, _ := transform["properties"].(map[string]any)
	if props["position"] != "[0,1,0]" {
		t.Errorf("Expected position [0,1,0], got %v", props["position"])
	}
}

func TestServer_UnknownCommandKeepsConnection(t *testing.T) {
	_, url := startTestAgent(t, "")
	conn := dial(t, url)

	req := sendRequest(t, conn, "scene", "explode", nil)
	resp, _ := awaitResponse(t, conn, req.ID)
	if resp.Success {
		t.Fatal("Expected unknown command to fail")
	}
	if !strings.Contains(resp.Error, "scene.explode") {
		t.Errorf("Expected error to name the command, got %q", resp.Error)
	}

	// The connection must survive and keep serving.
	req = sendRequest(t, conn, protocol.CategoryProject, protocol.ActionRefresh, nil)
	resp, _ = awaitResponse(t, conn, req.ID)
	if !resp.Success {
		t.Errorf("Connection unusable after unknown command: %s", resp.Error)
	}
}

func TestServer_SetPropertyOnMissingComponentFails(t *testing.T) {
	_, url := startTestAgent(t, "")
	conn := dial(t, url)

	req := sendRequest(t, conn, protocol.CategoryGameObject, protocol.ActionCreate, protocol.Params{
		"name": "Empty",
	})
	resp, _ := awaitResponse(t, conn, req.ID)
	if !resp.Success {
		t.Fatalf("create failed: %s", resp.Error)
	}

	req = sendRequest(t, conn, protocol.CategoryComponent, protocol.ActionSetProperty, protocol.Params{
		"gameObjectPath": "Empty",
		"componentType":  "Rigidbody",
		"property":       "mass",
		"value":          "2.5",
	})
	resp, _ = awaitResponse(t, conn, req.ID)
	if resp.Success {
		t.Fatal("Expected setProperty on a missing component to fail")
	}
	if !strings.Contains(resp.Error, "Rigidbody") {
		t.Errorf("Expected explanatory error, got %q", resp.Error)
	}

	// Connection state is unaffected.
	req = sendRequest(t, conn, protocol.CategoryProject, protocol.ActionRefresh, nil)
	resp, _ = awaitResponse(t, conn, req.ID)
	if !resp.Success {
		t.Errorf("Connection unusable after failed command: %s", resp.Error)
	}
}

func TestServer_SecondClientRejected(t *testing.T) {
	_, url := startTestAgent(t, "")
	first := dial(t, url)

	second := dial(t, url)
	second.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := second.ReadMessage()
	if err != nil {
		t.Fatalf("Expected a rejection event before close, got read error: %v", err)
	}
	msg, err := protocol.Parse(data)
	if err != nil {
		t.Fatalf("Rejection frame malformed: %v", err)
	}
	if msg.Event == nil || msg.Event.Name != protocol.EventError {
		t.Fatalf("Expected error event, got %+v", msg)
	}

	// The second connection is then closed by the agent.
	if _, _, err := second.ReadMessage(); err == nil {
		t.Error("Expected second connection to be closed")
	}

	// The first connection keeps working.
	req := sendRequest(t, first, protocol.CategoryProject, protocol.ActionRefresh, nil)
	resp, _ := awaitResponse(t, first, req.ID)
	if !resp.Success {
		t.Errorf("First connection broken by rejected second client: %s", resp.Error)
	}
}

func TestServer_ChannelPathEnforced(t *testing.T) {
	s, url := startTestAgent(t, "bridge")

	if _, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://127.0.0.1:%d/wrong", s.Port()), nil); err == nil {
		t.Error("Expected upgrade on the wrong channel to fail")
	}

	conn := dial(t, url)
	req := sendRequest(t, conn, protocol.CategoryProject, protocol.ActionRefresh, nil)
	resp, _ := awaitResponse(t, conn, req.ID)
	if !resp.Success {
		t.Errorf("Channel connection unusable: %s", resp.Error)
	}
}

func TestServer_PlayModeEventPushed(t *testing.T) {
	_, url := startTestAgent(t, "")
	conn := dial(t, url)

	req := sendRequest(t, conn, protocol.CategoryEditor, protocol.ActionPlay, nil)
	resp, events := awaitResponse(t, conn, req.ID)
	if !resp.Success {
		t.Fatalf("play failed: %s", resp.Error)
	}
	if resp.Result["state"] != protocol.PlayStatePlaying {
		t.Errorf("Expected playing, got %v", resp.Result["state"])
	}

	// The playModeChanged event may land before or after the response.
	found := false
	for _, ev := range events {
		if ev.Name == protocol.EventPlayModeChanged {
			found = true
		}
	}
	if !found {
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		for !found {
			_, data, err := conn.ReadMessage()
			if err != nil {
				t.Fatalf("Never received playModeChanged event: %v", err)
			}
			msg, err := protocol.Parse(data)
			if err != nil {
				continue
			}
			if msg.Event != nil && msg.Event.Name == protocol.EventPlayModeChanged {
				pm := protocol.DecodePlayModeChange(msg.Event.Data)
				if pm.State != protocol.PlayStatePlaying {
					t.Errorf("Expected state playing, got %s", pm.State)
				}
				found = true
			}
		}
	}
}

func TestDispatcher_TotalOverDocumentedCommands(t *testing.T) {
	d := NewDispatcher(scene.NewEditor(""))
	for _, key := range protocol.KnownCommands() {
		if _, ok := d.table[key]; !ok {
			t.Errorf("No handler for documented command %s", key)
		}
	}
	if len(d.table) != len(protocol.KnownCommands()) {
		t.Errorf("Dispatch table has %d entries, documented set has %d",
			len(d.table), len(protocol.KnownCommands()))
	}
}

func TestDispatcher_PanicBecomesFailedResponse(t *testing.T) {
	d := NewDispatcher(scene.NewEditor(""))
	d.table["scene.boom"] = func(p protocol.Params) (map[string]any, error) {
		panic("kaboom")
	}

	req := protocol.NewRequest("scene", "boom", nil)
	resp := d.Dispatch(req)
	if resp.Success {
		t.Fatal("Expected panicking handler to produce a failed response")
	}
	if !strings.Contains(resp.Error, "kaboom") {
		t.Errorf("Expected panic message in error, got %q", resp.Error)
	}
	if resp.ID != req.ID {
		t.Errorf("Response id %s does not match request id %s", resp.ID, req.ID)
	}
}

func TestDispatcher_MissingRequiredParam(t *testing.T) {
	d := NewDispatcher(scene.NewEditor(""))

	resp := d.Dispatch(protocol.NewRequest(protocol.CategoryGameObject, protocol.ActionDestroy, nil))
	if resp.Success {
		t.Fatal("Expected destroy without gameObjectPath to fail")
	}
	if !strings.Contains(resp.Error, "gameObjectPath") {
		t.Errorf("Expected error to name the missing parameter, got %q", resp.Error)
	}
}
