package signal

import (
	"bytes"
	"encoding/json"
	"reflect"
	"sync"
	"testing"

	"github.com/JohnAlva/livekit-video-calls/internal/app"
	"github.com/JohnAlva/livekit-video-calls/internal/core"
)

// fakeConn captures frames instead of writing to a socket.
type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	closed bool
}

func (f *fakeConn) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeConn) events(t *testing.T) []map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, 0, len(f.frames))
	for _, fr := range f.frames {
		var m map[string]any
		if err := json.Unmarshal(fr, &m); err != nil {
			t.Fatalf("bad frame %q: %v", fr, err)
		}
		out = append(out, m)
	}
	return out
}

func (f *fakeConn) lastOfType(t *testing.T, typ string) map[string]any {
	t.Helper()
	var found map[string]any
	for _, ev := range f.events(t) {
		if ev["type"] == typ {
			found = ev
		}
	}
	if found == nil {
		t.Fatalf("no %q event delivered, got %v", typ, f.events(t))
	}
	return found
}

func (f *fakeConn) countOfType(t *testing.T, typ string) int {
	t.Helper()
	n := 0
	for _, ev := range f.events(t) {
		if ev["type"] == typ {
			n++
		}
	}
	return n
}

func newTestController() *SignalWSController {
	return NewSignalWSController(app.NewRegistry(), app.NewRoomTracker(), 0, 0, "*")
}

func connect(ctl *SignalWSController, id core.ConnID) *fakeConn {
	c := &fakeConn{}
	ctl.Registry.Register(id, c)
	return c
}

func send(ctl *SignalWSController, id core.ConnID, c *fakeConn, msg string) {
	ctl.handleSignal(id, c, []byte(msg))
}

func userlist(t *testing.T, ev map[string]any) []string {
	t.Helper()
	raw, ok := ev["users"].([]any)
	if !ok {
		t.Fatalf("userlist without users array: %v", ev)
	}
	out := make([]string, 0, len(raw))
	for _, u := range raw {
		out = append(out, u.(string))
	}
	return out
}

func TestLogin_BroadcastsUserList(t *testing.T) {
	ctl := newTestController()
	a := connect(ctl, "A")
	b := connect(ctl, "B")

	send(ctl, "A", a, `{"type":"login","name":"alice"}`)

	if ack := a.lastOfType(t, "login"); ack["success"] != true {
		t.Fatalf("login ack = %v; want success true", ack)
	}
	for name, c := range map[string]*fakeConn{"A": a, "B": b} {
		if got := userlist(t, c.lastOfType(t, "userlist")); !reflect.DeepEqual(got, []string{"alice"}) {
			t.Fatalf("%s userlist = %v; want [alice]", name, got)
		}
	}

	send(ctl, "B", b, `{"type":"login","name":"bob"}`)

	want := []string{"alice", "bob"}
	for name, c := range map[string]*fakeConn{"A": a, "B": b} {
		if got := userlist(t, c.lastOfType(t, "userlist")); !reflect.DeepEqual(got, want) {
			t.Fatalf("%s userlist = %v; want %v", name, got, want)
		}
	}
}

func TestLogin_EmptyNameErrors(t *testing.T) {
	ctl := newTestController()
	a := connect(ctl, "A")

	send(ctl, "A", a, `{"type":"login"}`)

	if ev := a.lastOfType(t, "error"); ev["error"] != "name required" {
		t.Fatalf("error event = %v; want name required", ev)
	}
	if n := a.countOfType(t, "userlist"); n != 0 {
		t.Fatalf("failed login must not broadcast a userlist, got %d", n)
	}
}

func TestCallUser_RoutesToTargetOnly(t *testing.T) {
	ctl := newTestController()
	a := connect(ctl, "A")
	b := connect(ctl, "B")
	c := connect(ctl, "C")
	send(ctl, "A", a, `{"type":"login","name":"alice"}`)
	send(ctl, "B", b, `{"type":"login","name":"bob"}`)

	send(ctl, "A", a, `{"type":"call_user","to":"bob"}`)

	ev := b.lastOfType(t, "incoming_call")
	if ev["from"] != "A" || ev["name"] != "alice" {
		t.Fatalf("incoming_call = %v; want from A, name alice", ev)
	}
	if n := c.countOfType(t, "incoming_call"); n != 0 {
		t.Fatalf("bystander received incoming_call")
	}
}

func TestCallUser_UnknownNameErrors(t *testing.T) {
	ctl := newTestController()
	a := connect(ctl, "A")
	b := connect(ctl, "B")
	send(ctl, "A", a, `{"type":"login","name":"alice"}`)

	send(ctl, "A", a, `{"type":"call_user","to":"nobody"}`)

	if ev := a.lastOfType(t, "error"); ev["error"] != "user not found" {
		t.Fatalf("error event = %v; want user not found", ev)
	}
	if n := b.countOfType(t, "incoming_call"); n != 0 {
		t.Fatalf("no incoming_call may be delivered on a lookup miss")
	}
}

func TestCallUser_RebindRoutesToNewConnection(t *testing.T) {
	ctl := newTestController()
	a := connect(ctl, "A")
	b := connect(ctl, "B")
	c := connect(ctl, "C")
	send(ctl, "A", a, `{"type":"login","name":"alice"}`)
	send(ctl, "B", b, `{"type":"login","name":"bob"}`)
	// C takes over the name bob.
	send(ctl, "C", c, `{"type":"login","name":"bob"}`)

	send(ctl, "A", a, `{"type":"call_user","to":"bob"}`)

	if n := b.countOfType(t, "incoming_call"); n != 0 {
		t.Fatalf("call routed to the evicted connection")
	}
	if ev := c.lastOfType(t, "incoming_call"); ev["from"] != "A" {
		t.Fatalf("incoming_call = %v; want from A", ev)
	}
}

func TestCallAccepted_DeliveredByConnID(t *testing.T) {
	ctl := newTestController()
	a := connect(ctl, "A")
	b := connect(ctl, "B")

	send(ctl, "B", b, `{"type":"call_accepted","to":"A"}`)

	if ev := a.lastOfType(t, "call_accepted"); ev["from"] != "B" {
		t.Fatalf("call_accepted = %v; want from B", ev)
	}

	// Missing target is dropped without an error event.
	send(ctl, "B", b, `{"type":"call_accepted"}`)
	if n := b.countOfType(t, "error"); n != 0 {
		t.Fatalf("call_accepted without target must be silent")
	}
}

func TestSignalRelay_PayloadVerbatim(t *testing.T) {
	ctl := newTestController()
	a := connect(ctl, "A")
	b := connect(ctl, "B")

	payload := `{"type":"offer","sdp":"v=0\r\no=- 46117 2 IN IP4 127.0.0.1"}`
	send(ctl, "A", a, `{"type":"signal","to":"B","signal":`+payload+`}`)

	var got struct {
		Type   string          `json:"type"`
		From   string          `json:"from"`
		Signal json.RawMessage `json:"signal"`
	}
	b.mu.Lock()
	frame := b.frames[len(b.frames)-1]
	b.mu.Unlock()
	if err := json.Unmarshal(frame, &got); err != nil {
		t.Fatalf("bad signal_received frame: %v", err)
	}
	if got.Type != "signal_received" || got.From != "A" {
		t.Fatalf("frame = %+v; want signal_received from A", got)
	}
	if !bytes.Equal(got.Signal, []byte(payload)) {
		t.Fatalf("signal payload = %s; want byte-identical %s", got.Signal, payload)
	}
}

func TestSignalRelay_MissingTargetSilent(t *testing.T) {
	ctl := newTestController()
	a := connect(ctl, "A")

	send(ctl, "A", a, `{"type":"signal","signal":{"x":1}}`)
	send(ctl, "A", a, `{"type":"signal","to":"ghost","signal":{"x":1}}`)

	if got := len(a.events(t)); got != 0 {
		t.Fatalf("sender received %d events; want none", got)
	}
}

func TestJoinRoom_NotifiesOtherMembers(t *testing.T) {
	ctl := newTestController()
	a := connect(ctl, "A")
	b := connect(ctl, "B")
	send(ctl, "A", a, `{"type":"login","name":"alice"}`)
	send(ctl, "A", a, `{"type":"join_room","room":"sala1"}`)

	// B joins anonymously; join_room before login is tolerated.
	send(ctl, "B", b, `{"type":"join_room","room":"sala1"}`)

	ev := a.lastOfType(t, "new_user")
	if ev["id"] != "B" || ev["name"] != "" {
		t.Fatalf("new_user = %v; want id B with unset name", ev)
	}
	if n := b.countOfType(t, "new_user"); n != 0 {
		t.Fatalf("joiner must not be notified about itself")
	}
}

func TestJoinRoom_EmptyNameIgnored(t *testing.T) {
	ctl := newTestController()
	a := connect(ctl, "A")

	send(ctl, "A", a, `{"type":"join_room","room":""}`)

	if got := len(a.events(t)); got != 0 {
		t.Fatalf("empty room join must be a silent no-op, got %v", a.events(t))
	}
}

func TestRoomChat_EchoesToAllMembersIncludingSender(t *testing.T) {
	ctl := newTestController()
	a := connect(ctl, "A")
	b := connect(ctl, "B")
	c := connect(ctl, "C")
	send(ctl, "A", a, `{"type":"login","name":"alice"}`)
	send(ctl, "A", a, `{"type":"join_room","room":"sala1"}`)
	send(ctl, "B", b, `{"type":"join_room","room":"sala1"}`)

	send(ctl, "A", a, `{"type":"room_chat","room":"sala1","message":"hola"}`)

	for name, conn := range map[string]*fakeConn{"A": a, "B": b} {
		ev := conn.lastOfType(t, "room_chat")
		if ev["from"] != "alice" || ev["message"] != "hola" {
			t.Fatalf("%s room_chat = %v; want from alice message hola", name, ev)
		}
	}
	if n := c.countOfType(t, "room_chat"); n != 0 {
		t.Fatalf("non-member received room chat")
	}
}

func TestDisconnect_CleansUpEverywhere(t *testing.T) {
	ctl := newTestController()
	a := connect(ctl, "A")
	b := connect(ctl, "B")
	send(ctl, "A", a, `{"type":"login","name":"alice"}`)
	send(ctl, "B", b, `{"type":"login","name":"bob"}`)
	send(ctl, "A", a, `{"type":"join_room","room":"r1"}`)
	send(ctl, "A", a, `{"type":"join_room","room":"r2"}`)
	send(ctl, "B", b, `{"type":"join_room","room":"r1"}`)

	ctl.onDisconnect("A")

	if got := userlist(t, b.lastOfType(t, "userlist")); !reflect.DeepEqual(got, []string{"bob"}) {
		t.Fatalf("userlist after disconnect = %v; want [bob]", got)
	}
	if _, ok := ctl.Registry.Lookup("alice"); ok {
		t.Fatalf("directory entry survived disconnect")
	}

	before := a.countOfType(t, "room_chat")
	send(ctl, "B", b, `{"type":"room_chat","room":"r1","message":"adios"}`)
	if after := a.countOfType(t, "room_chat"); after != before {
		t.Fatalf("disconnected member still receives room chat")
	}
	if ev := b.lastOfType(t, "room_chat"); ev["from"] != "bob" {
		t.Fatalf("room_chat = %v; want from bob", ev)
	}

	// Second teardown is a no-op.
	ctl.onDisconnect("A")
}

func TestUnknownAndMalformedMessagesIgnored(t *testing.T) {
	ctl := newTestController()
	a := connect(ctl, "A")

	send(ctl, "A", a, `{"type":"teleport"}`)
	send(ctl, "A", a, `not json at all`)

	if got := len(a.events(t)); got != 0 {
		t.Fatalf("junk input produced events: %v", a.events(t))
	}
	if _, ok := ctl.Registry.Conn("A"); !ok {
		t.Fatalf("junk input must not kill the connection")
	}
}
