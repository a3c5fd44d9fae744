package phoenix

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// replyFunc decides the automatic reply to a client frame. ok=false leaves
// the frame unanswered.
type replyFunc func(m Message) (status string, response any, ok bool)

func joinOK(m Message) (string, any, bool) {
	if m.Event == EventJoin || m.Event == EventLeave {
		return "ok", map[string]any{}, true
	}
	return "", nil, false
}

type fakeServer struct {
	srv    *httptest.Server
	frames chan Message
	done   chan struct{}

	mu      sync.Mutex
	reply   replyFunc
	conns   []*websocket.Conn
	queries []url.Values
	paths   []string
	beats   int
}

func newFakeServer(t *testing.T, reply replyFunc) *fakeServer {
	t.Helper()
	fs := &fakeServer{
		frames: make(chan Message, 256),
		done:   make(chan struct{}),
		reply:  reply,
	}
	fs.srv = httptest.NewServer(http.HandlerFunc(fs.handle))
	t.Cleanup(fs.close)
	return fs
}

func (fs *fakeServer) endpoint() string {
	return "ws" + fs.srv.URL[len("http"):] + "/socket"
}

func (fs *fakeServer) handle(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	fs.mu.Lock()
	fs.conns = append(fs.conns, ws)
	fs.queries = append(fs.queries, r.URL.Query())
	fs.paths = append(fs.paths, r.URL.Path)
	fs.mu.Unlock()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		m, err := Decode(data)
		if err != nil {
			continue
		}
		if m.Topic == TopicPhoenix && m.Event == EventHeartbeat {
			fs.mu.Lock()
			fs.beats++
			fs.mu.Unlock()
			fs.writeTo(ws, replyFrame(m, "ok", map[string]any{}))
			continue
		}
		select {
		case fs.frames <- m:
		case <-fs.done:
			return
		}
		fs.mu.Lock()
		reply := fs.reply
		fs.mu.Unlock()
		if reply == nil {
			continue
		}
		if status, response, ok := reply(m); ok {
			fs.writeTo(ws, replyFrame(m, status, response))
		}
	}
}

func (fs *fakeServer) writeTo(ws *websocket.Conn, m Message) {
	data, err := Encode(m)
	if err != nil {
		return
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	_ = ws.WriteMessage(websocket.TextMessage, data)
}

// send writes m on the most recent connection.
func (fs *fakeServer) send(m Message) {
	fs.mu.Lock()
	ws := fs.conns[len(fs.conns)-1]
	fs.mu.Unlock()
	fs.writeTo(ws, m)
}

// drop closes every server side connection.
func (fs *fakeServer) drop() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, ws := range fs.conns {
		_ = ws.Close()
	}
}

func (fs *fakeServer) request(i int) (path string, query url.Values) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.paths[i], fs.queries[i]
}

func (fs *fakeServer) connCount() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return len(fs.conns)
}

func (fs *fakeServer) heartbeats() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.beats
}

func (fs *fakeServer) close() {
	close(fs.done)
	fs.drop()
	fs.srv.Close()
}

func (fs *fakeServer) next(t *testing.T) Message {
	t.Helper()
	select {
	case m := <-fs.frames:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for client frame")
		return Message{}
	}
}

func (fs *fakeServer) expectNone(t *testing.T, within time.Duration) {
	t.Helper()
	select {
	case m := <-fs.frames:
		t.Fatalf("unexpected frame %+v", m)
	case <-time.After(within):
	}
}

func replyFrame(m Message, status string, response any) Message {
	payload, _ := json.Marshal(map[string]any{"status": status, "response": response})
	return Message{JoinRef: m.JoinRef, Ref: m.Ref, Topic: m.Topic, Event: EventReply, Payload: payload}
}

func rawJSON(v any) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}
