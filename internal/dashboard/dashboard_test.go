package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/edgeboard/edgeboard/internal/schema"
	"github.com/edgeboard/edgeboard/internal/store"
)

// newTestServer starts a dashboard server on a free port backed by a
// fresh store and returns both plus the base URL.
func newTestServer(t *testing.T) (*Server, *store.Store, string) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	if _, err := st.Load(); err != nil {
		t.Fatalf("failed to load store: %v", err)
	}

	server := NewServer(&Config{
		Port:   0,
		Store:  st,
		Logger: log.New(io.Discard, "", 0),
	})
	if err := server.Start(); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	t.Cleanup(func() { _ = server.Stop() })

	return server, st, "http://" + server.GetAddr()
}

// doJSON issues a request with an optional JSON body and decodes the
// JSON response into out when out is non-nil.
func doJSON(t *testing.T, method, url string, body interface{}, out interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
	}
	return resp
}

// TestServerStartStop tests basic server lifecycle.
func TestServerStartStop(t *testing.T) {
	server, _, _ := newTestServer(t)

	if server.GetAddr() == ":0" {
		t.Error("server did not bind a concrete port")
	}
	if count := server.ClientCount(); count != 0 {
		t.Errorf("expected 0 clients, got %d", count)
	}
}

// TestHealthEndpoint tests the health check response.
func TestHealthEndpoint(t *testing.T) {
	_, _, base := newTestServer(t)

	var health map[string]interface{}
	resp := doJSON(t, "GET", base+"/health", nil, &health)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health returned %d", resp.StatusCode)
	}
	if health["status"] != "ok" {
		t.Errorf("status = %v, want ok", health["status"])
	}
}

// TestSetupEndpoints tests the setup list, create, patch, and delete
// flow over HTTP.
func TestSetupEndpoints(t *testing.T) {
	_, st, base := newTestServer(t)

	var listed []schema.Setup
	doJSON(t, "GET", base+"/api/setups", nil, &listed)
	if len(listed) != len(st.Setups()) {
		t.Fatalf("listed %d setups, store has %d", len(listed), len(st.Setups()))
	}

	var created schema.Setup
	resp := doJSON(t, "POST", base+"/api/setups",
		map[string]interface{}{"name": "Opening drive", "color": "emerald"}, &created)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create returned %d", resp.StatusCode)
	}
	if created.ID == "" || created.Name != "Opening drive" {
		t.Fatalf("unexpected created setup: %+v", created)
	}

	var patched schema.Setup
	resp = doJSON(t, "PATCH", base+"/api/setups/"+created.ID,
		map[string]interface{}{"description": "go with the crowd"}, &patched)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch returned %d", resp.StatusCode)
	}
	if patched.Description != "go with the crowd" {
		t.Errorf("description = %q", patched.Description)
	}
	if patched.Name != "Opening drive" {
		t.Errorf("patch clobbered name: %q", patched.Name)
	}

	req, _ := http.NewRequest("DELETE", base+"/api/setups/"+created.ID, nil)
	delResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	delResp.Body.Close()
	if delResp.StatusCode != http.StatusNoContent {
		t.Errorf("delete returned %d", delResp.StatusCode)
	}
	if _, ok := st.Setup(created.ID); ok {
		t.Error("setup still in store after delete")
	}
}

// TestBulletEndpoints tests bullet append and remove over HTTP.
func TestBulletEndpoints(t *testing.T) {
	_, st, base := newTestServer(t)
	id := st.Setups()[0].ID
	before := len(st.Setups()[0].BulletPoints)

	var setup schema.Setup
	resp := doJSON(t, "POST", base+"/api/setups/"+id+"/bullets",
		map[string]string{"text": "wait for the retest"}, &setup)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("append returned %d", resp.StatusCode)
	}
	if len(setup.BulletPoints) != before+1 {
		t.Fatalf("bullets = %d, want %d", len(setup.BulletPoints), before+1)
	}

	index := len(setup.BulletPoints) - 1
	resp = doJSON(t, "DELETE", fmt.Sprintf("%s/api/setups/%s/bullets/%d", base, id, index), nil, &setup)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("remove returned %d", resp.StatusCode)
	}
	if len(setup.BulletPoints) != before {
		t.Errorf("bullets = %d, want %d", len(setup.BulletPoints), before)
	}
}

// TestCycleMetricEndpoint tests cycling over HTTP and the unknown
// metric rejection.
func TestCycleMetricEndpoint(t *testing.T) {
	_, _, base := newTestServer(t)

	var got MentalUpdateData
	resp := doJSON(t, "POST", base+"/api/mental/energy/cycle", nil, &got)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cycle returned %d", resp.StatusCode)
	}
	if got.State.Energy != schema.LevelHigh {
		t.Errorf("energy = %q, want high", got.State.Energy)
	}
	if got.Readiness == 0 {
		t.Error("readiness missing from response")
	}

	resp = doJSON(t, "POST", base+"/api/mental/vibes/cycle", nil, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown metric returned %d, want 400", resp.StatusCode)
	}
}

// TestStatsEndpoint tests the aggregate counts.
func TestStatsEndpoint(t *testing.T) {
	_, st, base := newTestServer(t)

	var stats StatsData
	doJSON(t, "GET", base+"/api/stats", nil, &stats)

	if stats.Setups != len(st.Setups()) {
		t.Errorf("stats.Setups = %d, want %d", stats.Setups, len(st.Setups()))
	}
	if stats.Rules != len(st.Rules()) {
		t.Errorf("stats.Rules = %d, want %d", stats.Rules, len(st.Rules()))
	}
	mental := st.Mental()
	if stats.Readiness != mental.Score() {
		t.Errorf("stats.Readiness = %d, want %d", stats.Readiness, mental.Score())
	}
}

// TestUploadImages_Multipart tests the upload endpoint end to end: one
// valid PNG is appended, one text part is skipped and reported.
func TestUploadImages_Multipart(t *testing.T) {
	_, st, base := newTestServer(t)
	id := st.Setups()[0].ID

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {`form-data; name="images"; filename="chart.png"`},
		"Content-Type":        {"image/png"},
	})
	if err != nil {
		t.Fatalf("failed to create part: %v", err)
	}
	img := image.NewRGBA(image.Rect(0, 0, 60, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 60; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 80, B: 40, A: 255})
		}
	}
	if err := png.Encode(part, img); err != nil {
		t.Fatalf("failed to encode PNG: %v", err)
	}

	part, err = mw.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {`form-data; name="images"; filename="notes.txt"`},
		"Content-Type":        {"text/plain"},
	})
	if err != nil {
		t.Fatalf("failed to create part: %v", err)
	}
	fmt.Fprint(part, "not an image")
	mw.Close()

	req, _ := http.NewRequest("POST", base+"/api/setups/"+id+"/images", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload returned %d", resp.StatusCode)
	}

	var result struct {
		Appended int `json:"appended"`
		Skipped  []struct {
			Name   string `json:"Name"`
			Reason string `json:"Reason"`
		} `json:"skipped"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Appended != 1 {
		t.Errorf("appended = %d, want 1", result.Appended)
	}
	if len(result.Skipped) != 1 || result.Skipped[0].Name != "notes.txt" {
		t.Errorf("skipped = %+v, want notes.txt", result.Skipped)
	}

	setup, _ := st.Setup(id)
	if len(setup.Images) != 1 {
		t.Fatalf("store has %d images, want 1", len(setup.Images))
	}
}

// TestWebSocketBroadcast tests that a connected client receives the
// welcome stats and then an update message when a record mutates.
func TestWebSocketBroadcast(t *testing.T) {
	server, st, base := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws://" + server.GetAddr() + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("failed to connect WebSocket: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	readMessage := func() Message {
		t.Helper()
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("failed to read message: %v", err)
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("invalid message %s: %v", data, err)
		}
		return msg
	}

	welcome := readMessage()
	if welcome.Type != MessageTypeStats {
		t.Fatalf("welcome type = %q, want stats", welcome.Type)
	}

	id := st.Setups()[0].ID
	doJSON(t, "PATCH", base+"/api/setups/"+id,
		map[string]string{"name": "Renamed live"}, nil)

	// The mutation broadcasts a setup_update followed by fresh stats.
	found := false
	for i := 0; i < 4 && !found; i++ {
		msg := readMessage()
		if msg.Type != MessageTypeSetupUpdate {
			continue
		}
		found = true

		var data SetupUpdateData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			t.Fatalf("invalid setup_update payload: %v", err)
		}
		if data.Setup.Name != "Renamed live" {
			t.Errorf("broadcast setup name = %q", data.Setup.Name)
		}
	}
	if !found {
		t.Fatal("no setup_update message received")
	}
}
