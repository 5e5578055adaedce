package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"
)

type sseConn struct {
	resp   *http.Response
	reader *bufio.Reader
	cancel context.CancelFunc
}

func (c *sseConn) close() {
	c.cancel()
	c.resp.Body.Close()
}

// nextFrame blocks until a data frame arrives, skipping comments.
func (c *sseConn) nextFrame(t *testing.T) map[string]any {
	t.Helper()
	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		line = strings.TrimSpace(line)
		if data, ok := strings.CutPrefix(line, "data: "); ok {
			var frame map[string]any
			if err := json.Unmarshal([]byte(data), &frame); err != nil {
				t.Fatalf("frame not valid JSON: %v", err)
			}
			return frame
		}
	}
}

// nextLine blocks until any non-empty line arrives, comments included.
func (c *sseConn) nextLine(t *testing.T) string {
	t.Helper()
	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
}

func (env *testEnv) openListener(t *testing.T, assetID, token string) *sseConn {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		env.baseURL+"/listen/equipment/"+assetID+"?token="+token, nil)
	if err != nil {
		cancel()
		t.Fatalf("new request: %v", err)
	}
	resp, err := env.client.Do(req)
	if err != nil {
		cancel()
		t.Fatalf("open stream: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		cancel()
		t.Fatalf("stream status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		cancel()
		t.Fatalf("content type = %q", ct)
	}
	conn := &sseConn{resp: resp, reader: bufio.NewReader(resp.Body), cancel: cancel}
	t.Cleanup(conn.close)
	return conn
}

func waitForCondition(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestEquipmentScanPublishesToListeners(t *testing.T) {
	env := newTestAPI(t)
	token := env.login("tech1", "p@ss")

	conn := env.openListener(t, "ASSET-E1", token)

	connected := conn.nextFrame(t)
	if connected["type"] != "connected" || connected["equipment_id"] != "ASSET-E1" {
		t.Fatalf("unexpected first frame: %v", connected)
	}

	waitForCondition(t, func() bool { return env.stream.Listeners("ASSET-E1") == 1 })

	resp := env.get("/scan/equipment/ASSET-E1", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("scan status = %d", resp.StatusCode)
	}

	scan := conn.nextFrame(t)
	if scan["equipment_id"] != "ASSET-E1" || scan["scan_type"] != "equipment" {
		t.Fatalf("unexpected scan frame: %v", scan)
	}
	if scan["name"] != "Infusion Pump" {
		t.Fatalf("scan snapshot missing asset fields: %v", scan)
	}
}

func TestSequentialScansArriveInOrder(t *testing.T) {
	env := newTestAPI(t)
	token := env.login("tech1", "p@ss")

	conn := env.openListener(t, "ASSET-E1", token)
	_ = conn.nextFrame(t) // connected

	waitForCondition(t, func() bool { return env.stream.Listeners("ASSET-E1") == 1 })

	for i := 0; i < 2; i++ {
		resp := env.get("/scan/equipment/ASSET-E1", nil, nil)
		resp.Body.Close()
	}

	first := conn.nextFrame(t)
	second := conn.nextFrame(t)
	ts1, _ := first["timestamp"].(string)
	ts2, _ := second["timestamp"].(string)
	if ts1 == "" || ts2 == "" || ts1 > ts2 {
		t.Fatalf("frames out of order: %q then %q", ts1, ts2)
	}
}

func TestListenerRegistryCleansUpOnDisconnect(t *testing.T) {
	env := newTestAPI(t)
	token := env.login("tech1", "p@ss")

	conn := env.openListener(t, "ASSET-E1", token)
	_ = conn.nextFrame(t)
	waitForCondition(t, func() bool { return env.stream.Listeners("ASSET-E1") == 1 })

	conn.close()
	waitForCondition(t, func() bool { return env.stream.Assets() == 0 })
}

func TestStreamSendsKeepaliveWhenIdle(t *testing.T) {
	env := newTestAPI(t)
	env.api.keepaliveInterval = 50 * time.Millisecond
	token := env.login("tech1", "p@ss")

	conn := env.openListener(t, "ASSET-E1", token)
	_ = conn.nextFrame(t)

	line := conn.nextLine(t)
	if !strings.HasPrefix(line, ":") {
		t.Fatalf("expected a keepalive comment, got %q", line)
	}
}

func TestListenRequiresToken(t *testing.T) {
	env := newTestAPI(t)
	resp := env.get("/listen/equipment/ASSET-E1", nil, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}
