package conversation

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/ava-relay/backend/internal/model/chat"
	conversationService "github.com/zhouzirui/ava-relay/backend/internal/service/conversation"
	"github.com/zhouzirui/ava-relay/backend/internal/service/relay"
	"github.com/zhouzirui/ava-relay/backend/internal/service/remote"
	"github.com/zhouzirui/ava-relay/backend/internal/service/session"
)

type remoteCall struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

func setupRouter(t *testing.T, upstream http.HandlerFunc) (*chi.Mux, *conversationService.Service) {
	t.Helper()
	api := httptest.NewServer(upstream)
	t.Cleanup(api.Close)

	convSvc := conversationService.NewService(session.NewMemoryStore())
	handler := New(convSvc, relay.New(remote.NewClient(api.URL, api.Client())))

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, convSvc
}

func openConversation(t *testing.T, r http.Handler) chat.Conversation {
	t.Helper()
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/conversations", nil))
	require.Equal(t, http.StatusCreated, resp.Code)

	var conv chat.Conversation
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &conv))
	require.NotEmpty(t, conv.ID)
	return conv
}

func sendMessage(t *testing.T, r http.Handler, convID, content string) (int, []chat.Message) {
	t.Helper()
	payload, _ := json.Marshal(map[string]string{"content": content})
	req := httptest.NewRequest(http.MethodPost, "/conversations/"+convID+"/messages", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	var body struct {
		Messages []chat.Message `json:"messages"`
	}
	if resp.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	}
	return resp.Code, body.Messages
}

func TestSendMessageRelaysReply(t *testing.T) {
	var calls []remoteCall
	r, _ := setupRouter(t, func(w http.ResponseWriter, req *http.Request) {
		var c remoteCall
		_ = json.NewDecoder(req.Body).Decode(&c)
		calls = append(calls, c)
		_, _ = w.Write([]byte(`{"response":"hello"}`))
	})
	conv := openConversation(t, r)

	code, messages := sendMessage(t, r, conv.ID, "Can Ava access my CRM?")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, messages, 1)
	require.Equal(t, "hello", messages[0].Content)
	require.Equal(t, chat.KindMessage, messages[0].Kind)

	code, _ = sendMessage(t, r, conv.ID, "second")
	require.Equal(t, http.StatusOK, code)

	require.Len(t, calls, 2)
	require.Equal(t, "Can Ava access my CRM?", calls[0].Message)
	require.NotEmpty(t, calls[0].SessionID)
	require.Equal(t, calls[0].SessionID, calls[1].SessionID)
}

func TestSendMessageMissingResponse(t *testing.T) {
	r, _ := setupRouter(t, func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	conv := openConversation(t, r)

	_, messages := sendMessage(t, r, conv.ID, "hi")
	require.Len(t, messages, 1)
	require.Equal(t, "No response received.", messages[0].Content)
}

func TestSendMessageUpstreamFailureIsChatError(t *testing.T) {
	r, _ := setupRouter(t, func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "unavailable", http.StatusBadGateway)
	})
	conv := openConversation(t, r)

	code, messages := sendMessage(t, r, conv.ID, "hi")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, messages, 1)
	require.Equal(t, chat.KindError, messages[0].Kind)
	require.True(t, strings.HasPrefix(messages[0].Content, "Error: HTTP error occurred:"))
}

func TestSendMessageValidation(t *testing.T) {
	r, _ := setupRouter(t, func(w http.ResponseWriter, req *http.Request) {})
	conv := openConversation(t, r)

	code, _ := sendMessage(t, r, conv.ID, "   ")
	require.Equal(t, http.StatusBadRequest, code)

	code, _ = sendMessage(t, r, "missing", "hi")
	require.Equal(t, http.StatusNotFound, code)

	req := httptest.NewRequest(http.MethodPost, "/conversations/"+conv.ID+"/messages", strings.NewReader("{"))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestTranscriptAndEnd(t *testing.T) {
	r, _ := setupRouter(t, func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte(`{"response":"hello"}`))
	})
	conv := openConversation(t, r)
	sendMessage(t, r, conv.ID, "hi")

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/conversations/"+conv.ID+"/messages", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	body, _ := io.ReadAll(resp.Body)
	var transcript struct {
		Messages []chat.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(body, &transcript))
	require.Len(t, transcript.Messages, 2)
	require.Equal(t, chat.AuthorUser, transcript.Messages[0].Author)
	require.Equal(t, chat.AuthorAssistant, transcript.Messages[1].Author)

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, "/conversations/"+conv.ID, nil))
	require.Equal(t, http.StatusNoContent, resp.Code)

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/conversations/"+conv.ID+"/messages", nil))
	require.Equal(t, http.StatusNotFound, resp.Code)
}
