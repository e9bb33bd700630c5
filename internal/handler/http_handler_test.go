package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kunduachyut/linkfro-chat-relay/internal/domain"
	"github.com/kunduachyut/linkfro-chat-relay/internal/hub"
)

// fakeRelay implements service.RelayService for handler tests.
type fakeRelay struct {
	history     map[string][]domain.Message
	historyErr  error
	markReadErr error
	sendMsg     *domain.Message
	sendErr     error

	sentRaw        []byte
	markedPurchase string
	markedRole     domain.Role
	markedUpTo     time.Time
	updated        int64
}

func (f *fakeRelay) Connect(ctx context.Context, purchaseID, role, sender string) (*hub.Client, error) {
	return nil, fmt.Errorf("not used")
}

func (f *fakeRelay) Send(ctx context.Context, client *hub.Client, raw []byte) (*domain.Message, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sentRaw = raw
	return f.sendMsg, nil
}

func (f *fakeRelay) Disconnect(ctx context.Context, client *hub.Client) {}

func (f *fakeRelay) MarkRead(ctx context.Context, purchaseID string, upTo time.Time, readerRole domain.Role) (int64, error) {
	if f.markReadErr != nil {
		return 0, f.markReadErr
	}
	f.markedPurchase = purchaseID
	f.markedRole = readerRole
	f.markedUpTo = upTo
	return f.updated, nil
}

func (f *fakeRelay) History(ctx context.Context, purchaseID string) ([]domain.Message, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.history[purchaseID], nil
}

func newTestRouter(relay *fakeRelay) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHTTPHandler(relay).RegisterRoutes(r)
	return r
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func doRequest(t *testing.T, r *gin.Engine, method, path string, body []byte) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return w, env
}

func TestGetMessages(t *testing.T) {
	relay := &fakeRelay{
		history: map[string][]domain.Message{
			"P1": {
				{PurchaseID: "P1", Seq: 1, Sender: "x", SenderRole: domain.RoleConsumer, Content: "hello"},
				{PurchaseID: "P1", Seq: 2, Sender: "y", SenderRole: domain.RoleSuperAdmin, Content: "hi"},
			},
		},
	}
	r := newTestRouter(relay)

	w, env := doRequest(t, r, http.MethodGet, "/api/v1/purchases/P1/messages", nil)
	if w.Code != http.StatusOK || !env.Success {
		t.Fatalf("status = %d, success = %v", w.Code, env.Success)
	}

	var resp domain.ChatHistoryResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if resp.PurchaseID != "P1" || len(resp.Messages) != 2 {
		t.Fatalf("unexpected history: %+v", resp)
	}
	if resp.Messages[0].Seq != 1 || resp.Messages[1].Seq != 2 {
		t.Fatalf("history out of order: %+v", resp.Messages)
	}
}

func TestGetMessagesEmptyHistory(t *testing.T) {
	r := newTestRouter(&fakeRelay{history: map[string][]domain.Message{}})

	w, env := doRequest(t, r, http.MethodGet, "/api/v1/purchases/P404/messages", nil)
	if w.Code != http.StatusOK || !env.Success {
		t.Fatalf("status = %d, success = %v", w.Code, env.Success)
	}
}

func TestGetMessagesStoreFailure(t *testing.T) {
	r := newTestRouter(&fakeRelay{
		historyErr: fmt.Errorf("%w: db gone", domain.ErrPersistence),
	})

	w, env := doRequest(t, r, http.MethodGet, "/api/v1/purchases/P1/messages", nil)
	if w.Code != http.StatusInternalServerError || env.Success {
		t.Fatalf("status = %d, success = %v", w.Code, env.Success)
	}
	if env.Error == nil || env.Error.Code != domain.ErrCodePersistence {
		t.Fatalf("unexpected error payload: %+v", env.Error)
	}
}

func TestMarkRead(t *testing.T) {
	relay := &fakeRelay{updated: 3}
	r := newTestRouter(relay)

	upTo := time.Now().UTC().Truncate(time.Second)
	body, _ := json.Marshal(gin.H{"reader_role": "superadmin", "up_to": upTo})

	w, env := doRequest(t, r, http.MethodPost, "/api/v1/purchases/P1/read", body)
	if w.Code != http.StatusOK || !env.Success {
		t.Fatalf("status = %d, success = %v, body = %s", w.Code, env.Success, w.Body.String())
	}

	var resp markReadResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if resp.Updated != 3 {
		t.Fatalf("updated = %d, want 3", resp.Updated)
	}
	if relay.markedPurchase != "P1" || relay.markedRole != domain.RoleSuperAdmin || !relay.markedUpTo.Equal(upTo) {
		t.Fatalf("relay called with (%q, %v, %v)", relay.markedPurchase, relay.markedRole, relay.markedUpTo)
	}
}

func TestMarkReadValidation(t *testing.T) {
	r := newTestRouter(&fakeRelay{})

	cases := []struct {
		name     string
		body     gin.H
		wantCode string
	}{
		{"missing fields", gin.H{}, domain.ErrCodeMalformedMessage},
		{"unknown role", gin.H{"reader_role": "auditor", "up_to": time.Now()}, domain.ErrCodeInvalidRole},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, _ := json.Marshal(tc.body)
			w, env := doRequest(t, r, http.MethodPost, "/api/v1/purchases/P1/read", body)
			if w.Code != http.StatusBadRequest || env.Success {
				t.Fatalf("status = %d, success = %v", w.Code, env.Success)
			}
			if env.Error == nil || env.Error.Code != tc.wantCode {
				t.Fatalf("error = %+v, want code %s", env.Error, tc.wantCode)
			}
		})
	}
}

func TestHealthCheck(t *testing.T) {
	r := newTestRouter(&fakeRelay{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}
