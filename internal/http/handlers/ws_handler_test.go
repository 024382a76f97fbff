package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/talentwire/go-interview-backend/internal/relay"
	"github.com/talentwire/go-interview-backend/internal/services"
)

func dialWS(t *testing.T, serverURL, path string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(serverURL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) relay.Frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f relay.Frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

func newWSServer(t *testing.T) (*httptest.Server, *services.InterviewService, *relay.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newHandlerDB(t)
	ivSvc := services.NewInterviewService(db, testInterviewRepo{}, nil)
	msgSvc := &services.MessageService{DB: db, MaxContentRunes: 4000}
	reg := relay.NewRegistry()
	h := New(ivSvc, msgSvc, stubSpeechSvc{}, reg, "")

	r := gin.New()
	r.GET("/chat/:id/ws", h.ChatWS)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server, ivSvc, reg
}

func TestChatWS_RejectsUnknownInterview(t *testing.T) {
	server, _, _ := newWSServer(t)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/chat/" + uuid.NewString() + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected handshake failure for unknown interview")
	}
	if resp == nil || resp.StatusCode != 404 {
		t.Fatalf("handshake status = %v", resp)
	}
}

func TestChatWS_PersistsAndBroadcasts(t *testing.T) {
	server, ivSvc, _ := newWSServer(t)
	iv := seedHandlerInterview(t, ivSvc)

	sender := dialWS(t, server.URL, "/chat/"+iv.ID+"/ws")
	receiver := dialWS(t, server.URL, "/chat/"+iv.ID+"/ws")

	if err := sender.WriteJSON(inboundFrame{Role: "candidate", Content: "hello room"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	// Sender gets the persisted echo, receiver gets the broadcast.
	echo := readFrame(t, sender)
	if echo.Type != relay.FrameMessage || echo.Message == nil || echo.Message.Content != "hello room" {
		t.Fatalf("echo frame: %#v", echo)
	}
	if echo.Message.ID == "" || echo.Message.Timestamp == "" {
		t.Fatalf("echo lacks persisted identity: %#v", echo.Message)
	}

	bcast := readFrame(t, receiver)
	if bcast.Type != relay.FrameMessage || bcast.Message.ID != echo.Message.ID {
		t.Fatalf("broadcast frame: %#v", bcast)
	}
}

func TestChatWS_InvalidFrameOnlyHitsOffender(t *testing.T) {
	server, ivSvc, _ := newWSServer(t)
	iv := seedHandlerInterview(t, ivSvc)

	offender := dialWS(t, server.URL, "/chat/"+iv.ID+"/ws")
	bystander := dialWS(t, server.URL, "/chat/"+iv.ID+"/ws")

	if err := offender.WriteJSON(inboundFrame{Role: "moderator", Content: "bad role"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	errFrame := readFrame(t, offender)
	if errFrame.Type != relay.FrameError || errFrame.Code != ErrCodeBadRequest {
		t.Fatalf("error frame: %#v", errFrame)
	}

	// The connection survives the rejection; a valid frame still works.
	if err := offender.WriteJSON(inboundFrame{Role: "candidate", Content: "recovered"}); err != nil {
		t.Fatalf("write after error: %v", err)
	}
	echo := readFrame(t, offender)
	if echo.Type != relay.FrameMessage || echo.Message.Content != "recovered" {
		t.Fatalf("echo after error: %#v", echo)
	}

	// The bystander saw only the valid message, never the error.
	seen := readFrame(t, bystander)
	if seen.Type != relay.FrameMessage || seen.Message.Content != "recovered" {
		t.Fatalf("bystander frame: %#v", seen)
	}
}

func TestChatWS_UnsubscribesOnClose(t *testing.T) {
	server, ivSvc, reg := newWSServer(t)
	iv := seedHandlerInterview(t, ivSvc)

	conn := dialWS(t, server.URL, "/chat/"+iv.ID+"/ws")

	deadline := time.After(2 * time.Second)
	for reg.Count(iv.ID) < 1 {
		select {
		case <-deadline:
			t.Fatal("subscriber never registered")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	_ = conn.Close()
	deadline = time.After(2 * time.Second)
	for reg.Count(iv.ID) != 0 {
		select {
		case <-deadline:
			t.Fatal("subscriber never unregistered")
		default:
			time.Sleep(time.Millisecond)
		}
	}
}
