package handler

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/kunduachyut/linkfro-chat-relay/internal/config"
	"github.com/kunduachyut/linkfro-chat-relay/internal/domain"
	"github.com/kunduachyut/linkfro-chat-relay/internal/hub"
)

// newFrameClient builds a connection handle the way Connect would, without a
// live transport. handleFrame only touches the send channel and the bound
// identity, so the nil conn never matters here.
func newFrameClient() *hub.Client {
	return hub.NewClient("c1", "P1", domain.RoleConsumer, "x", nil, nil, config.WebSocketConfig{SendBuffer: 8})
}

func readFrame(t *testing.T, c *hub.Client, out interface{}) {
	t.Helper()
	select {
	case data := <-c.Send:
		if err := json.Unmarshal(data, out); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("no frame on connection")
	}
}

func assertNoFrame(t *testing.T, c *hub.Client) {
	t.Helper()
	select {
	case data := <-c.Send:
		t.Fatalf("unexpected frame: %s", data)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHandleFrameRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		raw  []byte
	}{
		{"invalid json", []byte(`{"type":`)},
		{"unknown type", []byte(`{"type":"subscribe"}`)},
		{"bad mark_read payload", []byte(`{"type":"mark_read","up_to":"yesterday"}`)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewWSHandler(&fakeRelay{})
			client := newFrameClient()

			h.handleFrame(client, tc.raw)

			var frame domain.ErrorFrame
			readFrame(t, client, &frame)
			if frame.Type != domain.FrameTypeError || frame.Code != domain.ErrCodeMalformedMessage {
				t.Fatalf("unexpected frame: %+v", frame)
			}
		})
	}
}

func TestHandleFramePing(t *testing.T) {
	h := NewWSHandler(&fakeRelay{})
	client := newFrameClient()

	h.handleFrame(client, []byte(`{"type":"ping"}`))

	var frame domain.BaseFrame
	readFrame(t, client, &frame)
	if frame.Type != domain.FrameTypePong {
		t.Fatalf("frame type = %q, want pong", frame.Type)
	}
}

func TestHandleFrameMessageAck(t *testing.T) {
	ts := time.Now().UTC().Truncate(time.Millisecond)
	relay := &fakeRelay{sendMsg: &domain.Message{PurchaseID: "P1", Seq: 7, Timestamp: ts}}
	h := NewWSHandler(relay)
	client := newFrameClient()

	raw := []byte(`{"type":"message","role":"consumer","sender":"x","content":"hello"}`)
	h.handleFrame(client, raw)

	var ack domain.MessageSentFrame
	readFrame(t, client, &ack)
	if ack.Type != domain.FrameTypeMessageSent || ack.Seq != 7 || !ack.Timestamp.Equal(ts) {
		t.Fatalf("unexpected ack: %+v", ack)
	}
	if string(relay.sentRaw) != string(raw) {
		t.Fatalf("relay received %q", relay.sentRaw)
	}
}

func TestHandleFrameMessageError(t *testing.T) {
	relay := &fakeRelay{
		sendErr: fmt.Errorf("%w: asserted superadmin", domain.ErrRoleMismatch),
	}
	h := NewWSHandler(relay)
	client := newFrameClient()

	h.handleFrame(client, []byte(`{"type":"message","role":"superadmin","sender":"x","content":"hi"}`))

	var frame domain.ErrorFrame
	readFrame(t, client, &frame)
	if frame.Code != domain.ErrCodeRoleMismatch {
		t.Fatalf("error code = %q, want %q", frame.Code, domain.ErrCodeRoleMismatch)
	}
}

func TestHandleFrameMarkRead(t *testing.T) {
	relay := &fakeRelay{updated: 2}
	h := NewWSHandler(relay)
	client := newFrameClient()

	upTo := time.Now().UTC().Truncate(time.Second)
	raw, _ := json.Marshal(domain.MarkReadFrame{Type: domain.FrameTypeMarkRead, UpTo: upTo})
	h.handleFrame(client, raw)

	if relay.markedPurchase != "P1" || relay.markedRole != domain.RoleConsumer || !relay.markedUpTo.Equal(upTo) {
		t.Fatalf("relay called with (%q, %v, %v)", relay.markedPurchase, relay.markedRole, relay.markedUpTo)
	}
	// Acknowledgement reaches peers as a read receipt, not the caller.
	assertNoFrame(t, client)
}

func TestHandleFrameMarkReadFailure(t *testing.T) {
	relay := &fakeRelay{
		markReadErr: fmt.Errorf("%w: db gone", domain.ErrPersistence),
	}
	h := NewWSHandler(relay)
	client := newFrameClient()

	raw, _ := json.Marshal(domain.MarkReadFrame{Type: domain.FrameTypeMarkRead, UpTo: time.Now()})
	h.handleFrame(client, raw)

	var frame domain.ErrorFrame
	readFrame(t, client, &frame)
	if frame.Code != domain.ErrCodePersistence {
		t.Fatalf("error code = %q, want %q", frame.Code, domain.ErrCodePersistence)
	}
}
