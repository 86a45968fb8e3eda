package transport

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/tilescape/engine/reconciler"
	"github.com/Carmen-Shannon/tilescape/engine/scene"
	"github.com/Carmen-Shannon/tilescape/engine/world"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

type fakeBackend struct {
	mu        sync.Mutex
	descs     []scene.Descriptor
	states    []world.State
	entries   []reconciler.Entry
	exportErr error
}

func (b *fakeBackend) Submit(desc scene.Descriptor) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.descs = append(b.descs, desc)
}

func (b *fakeBackend) SubmitState(s world.State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.states = append(b.states, s)
}

func (b *fakeBackend) Entries() []reconciler.Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]reconciler.Entry(nil), b.entries...)
}

func (b *fakeBackend) Export(w io.Writer) error {
	if b.exportErr != nil {
		return b.exportErr
	}
	_, err := w.Write([]byte("glTF"))
	return err
}

func (b *fakeBackend) counts() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.descs), len(b.states)
}

func newTestServer(t *testing.T, b *fakeBackend) (Server, *httptest.Server) {
	t.Helper()
	s := NewServer(b, WithAccessLog(io.Discard))
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func wsURL(ts *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + path
}

const sceneJSON = `{"primitives":[{"key":"a","shape":"box","size":[1,1,1],"material":"base","position":[0,0,0]},{"key":"b","shape":"box","size":[1,1,1],"material":"lava","position":[0,0,0]}]}`

// TestSceneSocket verifies snapshots pushed over the websocket reach the backend and are acknowledged.
func TestSceneSocket(t *testing.T) {
	b := &fakeBackend{}
	s, ts := newTestServer(t, b)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/ws/scene"), nil)
	if err != nil {
		t.Fatalf("Expected to connect, got %v", err)
	}
	defer conn.Close()

	testCases := []struct {
		name  string
		msg   string
		kind  string
		error bool
	}{
		{"descriptor", sceneJSON, "descriptor", false},
		{"state", `{"blocks":[{"x":0,"y":0,"z":0,"type":"base"}]}`, "state", false},
		{"malformed", `{"primitives":`, "", true},
	}
	for _, tc := range testCases {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(tc.msg)); err != nil {
			t.Fatalf("Expected to send %s, got %v", tc.name, err)
		}
		var ack Ack
		if err := conn.ReadJSON(&ack); err != nil {
			t.Fatalf("Expected an ack for %s, got %v", tc.name, err)
		}
		if ack.ID == "" || ack.Kind != tc.kind || (ack.Error != "") != tc.error {
			t.Errorf("Expected %s ack of kind %q, got %+v", tc.name, tc.kind, ack)
		}
	}

	descs, states := b.counts()
	if descs != 1 || states != 1 || s.Received() != 2 {
		t.Errorf("Expected 1 descriptor and 1 state, got %d and %d (%d received)", descs, states, s.Received())
	}
}

// TestScenePost verifies the HTTP submit path for both encodings.
func TestScenePost(t *testing.T) {
	b := &fakeBackend{}
	_, ts := newTestServer(t, b)

	resp, err := http.Post(ts.URL+"/api/scene", "application/json", strings.NewReader(sceneJSON))
	if err != nil {
		t.Fatal(err)
	}
	var ack Ack
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted || ack.Primitives != 1 || len(ack.Dropped) != 1 {
		t.Errorf("Expected 202 with 1 primitive and 1 dropped, got %d %+v", resp.StatusCode, ack)
	}

	resp, err = http.Post(ts.URL+"/api/scene", "application/yaml", strings.NewReader("blocks: []\n"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("Expected 202 for a yaml state, got %d", resp.StatusCode)
	}

	resp, err = http.Post(ts.URL+"/api/scene", "application/json", strings.NewReader(`{"nothing":1}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for an unknown document, got %d", resp.StatusCode)
	}

	if descs, states := b.counts(); descs != 1 || states != 1 {
		t.Errorf("Expected 1 descriptor and 1 state, got %d and %d", descs, states)
	}
}

// TestPoolAndExport verifies the read endpoints.
func TestPoolAndExport(t *testing.T) {
	b := &fakeBackend{entries: []reconciler.Entry{
		{Key: "player:0", Label: "player:0", Role: scene.RolePlayer, Material: scene.MaterialPlayer},
	}}
	_, ts := newTestServer(t, b)

	resp, err := http.Get(ts.URL + "/api/pool")
	if err != nil {
		t.Fatal(err)
	}
	var got []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if len(got) != 1 || got[0]["key"] != "player:0" || got[0]["role"] != "player" || got[0]["material"] != "player" {
		t.Errorf("Expected the player entry, got %v", got)
	}

	resp, err = http.Get(ts.URL + "/api/export.glb")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "glTF" || resp.Header.Get("Content-Type") != "model/gltf-binary" {
		t.Errorf("Expected the exported scene, got %q", body)
	}

	b.exportErr = errors.New("no scene")
	resp, err = http.Get(ts.URL + "/api/export.glb")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected 500 for a failed export, got %d", resp.StatusCode)
	}

	resp, err = http.Post(ts.URL+"/api/pool", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for POST /api/pool, got %d", resp.StatusCode)
	}
}

// TestFPSSocket verifies reports reach subscribers, including the latest one on connect.
func TestFPSSocket(t *testing.T) {
	b := &fakeBackend{}
	s, ts := newTestServer(t, b)

	s.PublishFPS(58.5)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/ws/fps"), nil)
	if err != nil {
		t.Fatalf("Expected to connect, got %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var report FPSReport
	if err := conn.ReadJSON(&report); err != nil {
		t.Fatalf("Expected the replayed report, got %v", err)
	}
	if report.FPS != 58.5 {
		t.Errorf("Expected 58.5, got %v", report.FPS)
	}

	deadline := time.Now().Add(5 * time.Second)
	for s.Hub().Len() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.Hub().Len() != 1 {
		t.Fatalf("Expected 1 subscriber, got %d", s.Hub().Len())
	}

	s.PublishFPS(30)
	if err := conn.ReadJSON(&report); err != nil {
		t.Fatalf("Expected a live report, got %v", err)
	}
	if report.FPS != 30 {
		t.Errorf("Expected 30, got %v", report.FPS)
	}

	conn.Close()
	deadline = time.Now().Add(5 * time.Second)
	for s.Hub().Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.Hub().Len() != 0 {
		t.Errorf("Expected the subscriber to be removed, got %d", s.Hub().Len())
	}
}

// TestHubBroadcastRejectsUnencodable verifies encoding errors are reported.
func TestHubBroadcastRejectsUnencodable(t *testing.T) {
	if err := NewHub().Broadcast(func() {}); err == nil {
		t.Error("Expected an error for an unencodable message")
	}
}
