package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Jasonwill2004/ScribeAI/internal/aggregator"
	"github.com/Jasonwill2004/ScribeAI/internal/chunkstore"
	"github.com/Jasonwill2004/ScribeAI/internal/logger"
	"github.com/Jasonwill2004/ScribeAI/internal/metrics"
	"github.com/Jasonwill2004/ScribeAI/internal/models"
	"github.com/Jasonwill2004/ScribeAI/internal/pipeline"
	"github.com/Jasonwill2004/ScribeAI/internal/repository"
	"github.com/Jasonwill2004/ScribeAI/internal/summarizer"
	"github.com/Jasonwill2004/ScribeAI/internal/transcriber"
	"github.com/Jasonwill2004/ScribeAI/pkg/client"
	"github.com/Jasonwill2004/ScribeAI/pkg/protocol"
)

type concatAggregator struct{}

func (concatAggregator) Aggregate(ctx context.Context, paths []string, outputPath string) (aggregator.Result, error) {
	var all []byte
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return aggregator.Result{}, err
		}
		all = append(all, data...)
	}
	if err := os.WriteFile(outputPath, all, 0644); err != nil {
		return aggregator.Result{}, err
	}
	return aggregator.Result{Path: outputPath, Size: int64(len(all))}, nil
}

type statWatcher struct{}

func (statWatcher) WaitStable(ctx context.Context, path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// fixedTranscriber returns a canned transcript. When gate is set it waits for
// gate to close first.
type fixedTranscriber struct {
	gate chan struct{}
}

func (f fixedTranscriber) Transcribe(ctx context.Context, audioPath string, opts transcriber.Options) (transcriber.Result, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return transcriber.Result{}, ctx.Err()
		}
	}
	return transcriber.Result{Text: "we agreed to ship on friday", DurationMs: 4000}, nil
}

type testServer struct {
	impl     *implServer
	pipeline pipeline.Pipeline
	metrics  *metrics.Metrics
	http     *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWith(t, fixedTranscriber{})
}

func newTestServerWith(t *testing.T, tr transcriber.Transcriber) *testServer {
	t.Helper()
	log := logger.Discard()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	repo, err := repository.Open(context.Background(), ":memory:", log)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}

	p := pipeline.New(pipeline.Config{
		TempDir:         t.TempDir(),
		MaxConcurrent:   2,
		FinalizeTimeout: time.Minute,
		Summary:         summarizer.Options{MaxLength: 2000, IncludeKeyPoints: true, IncludeActionItems: true, IncludeTopics: true},
	}, pipeline.Deps{
		Repo:        repo,
		Store:       chunkstore.New(t.TempDir(), log),
		Aggregator:  concatAggregator{},
		Watcher:     statWatcher{},
		Transcriber: tr,
		Summarizer:  summarizer.New(summarizer.NewStub(), log),
		Metrics:     m,
		Logger:      log,
	})

	srv := New(Config{
		HeartbeatTimeout: time.Minute,
		SweepInterval:    time.Hour,
		TempDir:          t.TempDir(),
	}, p, m, reg, log).(*implServer)
	ts := httptest.NewServer(srv.Handler())

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
		ts.Close()
		p.Shutdown(ctx)
		repo.Close()
	})
	return &testServer{impl: srv, pipeline: p, metrics: m, http: ts}
}

func (ts *testServer) wsURL() string {
	return "ws" + strings.TrimPrefix(ts.http.URL, "http") + "/ws"
}

func (ts *testServer) dial(t *testing.T) *client.Client {
	t.Helper()
	c := client.New(ts.wsURL(), client.Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

// nextEvent returns the next server event named event, skipping others.
func nextEvent(t *testing.T, c *client.Client, event string) protocol.Frame {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case f := <-c.Events():
			if f.Event == event {
				return f
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %q event", event)
			return protocol.Frame{}
		}
	}
}

func chunk(sessionID string, idx int) protocol.ChunkPayload {
	return protocol.ChunkPayload{
		SessionID:  sessionID,
		ChunkIndex: &idx,
		AudioData:  []byte{0x1A, 0x45, 0xDF, 0xA3, byte(idx)},
	}
}

func startSession(t *testing.T, c *client.Client) string {
	t.Helper()
	ack, err := c.EmitAck(context.Background(), protocol.EventStart, protocol.StartPayload{UserID: "u1", Title: "Standup"})
	if err != nil {
		t.Fatalf("start error = %v", err)
	}
	if ack.SessionID == "" {
		t.Fatal("start ack has no sessionId")
	}
	if ack.Status != string(models.SessionRecording) {
		t.Errorf("start ack status = %q, want %q", ack.Status, models.SessionRecording)
	}
	return ack.SessionID
}

func TestSessionLifecycleOverWebsocket(t *testing.T) {
	ts := newTestServer(t)
	c := ts.dial(t)
	ctx := context.Background()

	id := startSession(t, c)
	for i := 0; i < 2; i++ {
		ack, err := c.EmitAck(ctx, protocol.EventChunk, chunk(id, i))
		if err != nil {
			t.Fatalf("chunk %d error = %v", i, err)
		}
		if ack.ChunkIndex == nil || *ack.ChunkIndex != i {
			t.Errorf("chunk ack index = %v, want %d", ack.ChunkIndex, i)
		}
		if ack.ChunkID == "" {
			t.Errorf("chunk ack has no chunkId")
		}
	}

	ack, err := c.EmitAck(ctx, protocol.EventEnd, protocol.SessionPayload{SessionID: id})
	if err != nil {
		t.Fatalf("end error = %v", err)
	}
	if ack.Status != string(models.SessionProcessing) {
		t.Errorf("end ack status = %q, want %q", ack.Status, models.SessionProcessing)
	}

	var transcript protocol.TranscriptPayload
	if err := json.Unmarshal(nextEvent(t, c, protocol.EventTranscript).Data, &transcript); err != nil {
		t.Fatalf("decode transcript: %v", err)
	}
	if transcript.Text != "we agreed to ship on friday" {
		t.Errorf("transcript text = %q", transcript.Text)
	}

	var done protocol.CompletedPayload
	if err := json.Unmarshal(nextEvent(t, c, protocol.EventCompleted).Data, &done); err != nil {
		t.Fatalf("decode completed: %v", err)
	}
	if done.SessionID != id {
		t.Errorf("completed sessionId = %q, want %q", done.SessionID, id)
	}
	if !strings.HasPrefix(done.Summary, models.StubMarker) {
		t.Errorf("completed summary = %q, want stub summary", done.Summary)
	}
	if done.DownloadReference != pipeline.DownloadReference(id) {
		t.Errorf("downloadReference = %q, want %q", done.DownloadReference, pipeline.DownloadReference(id))
	}
	if done.KeyPoints == nil || done.ActionItems == nil || done.Topics == nil {
		t.Errorf("completed lists must be present, got %+v", done)
	}

	select {
	case f := <-c.Events():
		if f.Event == protocol.EventCompleted {
			t.Errorf("completed emitted twice")
		}
	case <-time.After(100 * time.Millisecond):
	}

	sess, err := ts.pipeline.Session(ctx, id)
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	if sess.State != models.SessionCompleted {
		t.Errorf("state = %s, want %s", sess.State, models.SessionCompleted)
	}

	resp, err := http.Get(ts.http.URL + done.DownloadReference)
	if err != nil {
		t.Fatalf("GET transcript: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET transcript status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(string(body), "we agreed to ship on friday") {
		t.Errorf("transcript body missing text:\n%s", body)
	}

	resp, err = http.Get(ts.http.URL + done.DownloadReference + "?format=docx")
	if err != nil {
		t.Fatalf("GET docx: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET docx status = %d, want 200", resp.StatusCode)
	}
	if !strings.HasPrefix(string(body), "PK") {
		t.Errorf("docx body is not a zip archive")
	}

	if got := testutil.ToFloat64(ts.metrics.Events.WithLabelValues(protocol.EventChunk, "ok")); got != 2 {
		t.Errorf("chunk ok events = %v, want 2", got)
	}
}

func TestChunkWhilePausedIsRejected(t *testing.T) {
	ts := newTestServer(t)
	c := ts.dial(t)
	ctx := context.Background()

	id := startSession(t, c)
	if _, err := c.EmitAck(ctx, protocol.EventPause, protocol.SessionPayload{SessionID: id}); err != nil {
		t.Fatalf("pause error = %v", err)
	}

	ack, err := c.EmitAck(ctx, protocol.EventChunk, chunk(id, 0))
	if err == nil {
		t.Fatal("chunk while paused succeeded, want rejection")
	}
	if ack.Success || ack.Error == "" {
		t.Errorf("ack = %+v, want failure with message", ack)
	}

	var payload protocol.ErrorPayload
	if err := json.Unmarshal(nextEvent(t, c, protocol.EventError).Data, &payload); err != nil {
		t.Fatalf("decode error event: %v", err)
	}
	if payload.SessionID != id {
		t.Errorf("error sessionId = %q, want %q", payload.SessionID, id)
	}

	if _, err := c.EmitAck(ctx, protocol.EventResume, protocol.SessionPayload{SessionID: id}); err != nil {
		t.Fatalf("resume error = %v", err)
	}
	if _, err := c.EmitAck(ctx, protocol.EventChunk, chunk(id, 0)); err != nil {
		t.Errorf("chunk after resume error = %v", err)
	}
}

func TestInvalidRequests(t *testing.T) {
	ts := newTestServer(t)
	c := ts.dial(t)

	tests := []struct {
		name  string
		event string
		data  any
	}{
		{name: "unknown event", event: "rewind", data: map[string]string{}},
		{name: "missing user", event: protocol.EventStart, data: protocol.StartPayload{}},
		{name: "missing chunk index", event: protocol.EventChunk, data: map[string]string{"sessionId": "s1"}},
		{name: "malformed payload", event: protocol.EventEnd, data: "not an object"},
		{name: "unknown session", event: protocol.EventEnd, data: protocol.SessionPayload{SessionID: "missing"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack, err := c.EmitAck(context.Background(), tt.event, tt.data)
			if err == nil {
				t.Fatalf("%s succeeded, want failure", tt.event)
			}
			if ack.Success {
				t.Errorf("ack.Success = true, want false")
			}
		})
	}

	// The connection survives bad requests.
	if _, err := c.EmitAck(context.Background(), protocol.EventHeartbeat, protocol.HeartbeatPayload{}); err != nil {
		t.Errorf("heartbeat after failures error = %v", err)
	}
}

func TestMalformedFramesKeepConnection(t *testing.T) {
	ts := newTestServer(t)
	ws, _, err := websocket.DefaultDialer.Dial(ts.wsURL(), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer ws.Close()

	readFrame := func() protocol.Frame {
		t.Helper()
		var f protocol.Frame
		ws.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := ws.ReadJSON(&f); err != nil {
			t.Fatalf("ReadJSON() error = %v", err)
		}
		return f
	}

	bad := []string{
		"not json at all",
		`{"id":"one","event":"heartbeat","data":{}}`,
	}
	for _, msg := range bad {
		if err := ws.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			t.Fatalf("WriteMessage(%q) error = %v", msg, err)
		}
		if f := readFrame(); f.Event != protocol.EventError {
			t.Errorf("reply to %q = %q event, want %q", msg, f.Event, protocol.EventError)
		}
	}

	req, err := protocol.NewRequest(7, protocol.EventHeartbeat, protocol.HeartbeatPayload{Timestamp: 1})
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.WriteJSON(req); err != nil {
		t.Fatalf("WriteJSON(heartbeat) error = %v", err)
	}
	f := readFrame()
	if f.Ack == nil || *f.Ack != 7 {
		t.Fatalf("frame after malformed input = %+v, want ack 7", f)
	}
	var ack protocol.AckPayload
	if err := json.Unmarshal(f.Data, &ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if !ack.Success {
		t.Errorf("heartbeat ack = %+v, want success", ack)
	}
}

func TestReconnectedClientReceivesCompletion(t *testing.T) {
	gate := make(chan struct{})
	ts := newTestServerWith(t, fixedTranscriber{gate: gate})
	ctx := context.Background()

	first := ts.dial(t)
	id := startSession(t, first)
	if _, err := first.EmitAck(ctx, protocol.EventChunk, chunk(id, 0)); err != nil {
		t.Fatalf("chunk error = %v", err)
	}
	if _, err := first.EmitAck(ctx, protocol.EventEnd, protocol.SessionPayload{SessionID: id}); err != nil {
		t.Fatalf("end error = %v", err)
	}
	first.Close()

	second := ts.dial(t)
	ack, err := second.EmitAck(ctx, protocol.EventHeartbeat, protocol.HeartbeatPayload{SessionID: id, Timestamp: 1})
	if err != nil {
		t.Fatalf("heartbeat error = %v", err)
	}
	if ack.SessionID != id {
		t.Errorf("heartbeat ack sessionId = %q, want %q", ack.SessionID, id)
	}
	close(gate)

	var done protocol.CompletedPayload
	if err := json.Unmarshal(nextEvent(t, second, protocol.EventCompleted).Data, &done); err != nil {
		t.Fatalf("decode completed: %v", err)
	}
	if done.SessionID != id || done.SummaryID == "" {
		t.Errorf("completed = %+v, want session %s with a summary id", done, id)
	}
}

func TestHeartbeatAck(t *testing.T) {
	ts := newTestServer(t)
	c := ts.dial(t)

	before := protocol.Millis(time.Now())
	ack, err := c.EmitAck(context.Background(), protocol.EventHeartbeat, protocol.HeartbeatPayload{Timestamp: before})
	if err != nil {
		t.Fatalf("heartbeat error = %v", err)
	}
	if ack.ServerTime < before {
		t.Errorf("serverTime = %d, want >= %d", ack.ServerTime, before)
	}
}

func TestSweepDisconnectsSilentClients(t *testing.T) {
	ts := newTestServer(t)
	c := ts.dial(t)
	id := startSession(t, c)

	if n := ts.impl.sweep(time.Now()); n != 0 {
		t.Errorf("sweep() closed %d fresh connections, want 0", n)
	}
	if n := ts.impl.sweep(time.Now().Add(2 * time.Minute)); n != 1 {
		t.Fatalf("sweep() closed %d connections, want 1", n)
	}

	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("client was not disconnected")
	}

	sess, err := ts.pipeline.Session(context.Background(), id)
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	if sess.State != models.SessionRecording {
		t.Errorf("state after disconnect = %s, want %s", sess.State, models.SessionRecording)
	}
	if got := testutil.ToFloat64(ts.metrics.HeartbeatDisconnects); got != 1 {
		t.Errorf("heartbeat disconnects = %v, want 1", got)
	}

	// A reconnecting client resumes the same session.
	c2 := ts.dial(t)
	if _, err := c2.EmitAck(context.Background(), protocol.EventChunk, chunk(id, 0)); err != nil {
		t.Errorf("chunk after reconnect error = %v", err)
	}
}

func TestHTTPEndpoints(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{name: "health", method: http.MethodGet, path: "/health", want: http.StatusOK},
		{name: "transcript of unknown session", method: http.MethodGet, path: "/api/sessions/missing/transcript", want: http.StatusNotFound},
		{name: "delete unknown session", method: http.MethodDelete, path: "/api/sessions/missing", want: http.StatusNotFound},
		{name: "metrics", method: http.MethodGet, path: "/metrics", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, ts.http.URL+tt.path, nil)
			if err != nil {
				t.Fatal(err)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("%s %s: %v", tt.method, tt.path, err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("%s %s status = %d, want %d", tt.method, tt.path, resp.StatusCode, tt.want)
			}
		})
	}
}

func TestTranscriptUnsupportedFormat(t *testing.T) {
	ts := newTestServer(t)
	c := ts.dial(t)
	id := startSession(t, c)

	resp, err := http.Get(ts.http.URL + pipeline.DownloadReference(id) + "?format=pdf")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
