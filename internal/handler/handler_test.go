package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/sales-consultant/internal/llm"
	"github.com/capitalize-ai/sales-consultant/internal/middleware"
	"github.com/capitalize-ai/sales-consultant/internal/model"
	"github.com/capitalize-ai/sales-consultant/internal/prompt"
	"github.com/capitalize-ai/sales-consultant/internal/service"
	"github.com/capitalize-ai/sales-consultant/internal/session"
	"github.com/capitalize-ai/sales-consultant/pkg/logger"
)

const testSessionID = "sess-test"

var testSessionConfig = middleware.SessionConfig{Secret: "test-secret", CookieName: "consultor_session"}

type stubClient struct {
	mu    sync.Mutex
	reply string
	calls int
}

func (c *stubClient) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return &llm.CompletionResponse{Content: c.reply}, nil
}

func (c *stubClient) Name() string     { return "stub" }
func (c *stubClient) Models() []string { return nil }

type fixture struct {
	t        *testing.T
	router   http.Handler
	sessions *session.Manager
	token    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.NewNop()

	sessions := session.NewManager(0, session.MemoryStoreFactory(0, 100), log)
	t.Cleanup(sessions.Close)

	gen := service.NewGeneratorService(&stubClient{reply: "resposta"}, service.GeneratorConfig{}, log)
	chat := service.NewChatService(gen, "contexto", nil, log)

	conversations := NewConversationHandler(sessions, log)
	messages := NewMessageHandler(sessions, chat, log)
	stream := NewStreamHandler(sessions, chat, 0, log)
	ui := NewUIHandler(sessions, chat, log)
	health := NewHealthHandler(nil, sessions)

	r := chi.NewRouter()
	r.Get("/health", health.Health)
	r.Get("/ready", health.Ready)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Session(testSessionConfig))
		r.Get("/", ui.Index)
		r.Post("/chat/new", ui.NewChat)
		r.Post("/chat/select", ui.Select)
		r.Post("/chat/send", ui.Send)
		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/prompts", messages.Prompts)
			r.Get("/usage", messages.Usage)
			r.Route("/conversations", func(r chi.Router) {
				r.Post("/", conversations.Create)
				r.Get("/", conversations.List)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", conversations.Get)
					r.Put("/select", conversations.Select)
					r.Get("/turns", conversations.Turns)
					r.Post("/messages", messages.Send)
					r.Post("/stream", stream.StreamWithMessage)
				})
			})
		})
	})

	token, err := middleware.IssueSessionToken(testSessionConfig.Secret, testSessionID)
	require.NoError(t, err)

	return &fixture{t: t, router: r, sessions: sessions, token: token}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+f.token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) form(path string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Authorization", "Bearer "+f.token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) state() *session.State {
	st, err := f.sessions.GetOrCreate(testSessionID)
	require.NoError(f.t, err)
	return st
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestConversations_ListSeedsOne(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/v1/conversations", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[model.ListConversationsResponse](t, rec)
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, model.DefaultTitle, resp.Conversations[0].Title)
	assert.Equal(t, resp.Conversations[0].ID, resp.CurrentID)
	assert.True(t, resp.Conversations[0].Current)
}

func TestConversations_CreateAndSelect(t *testing.T) {
	f := newFixture(t)
	first := f.state().CurrentID()

	rec := f.do(http.MethodPost, "/api/v1/conversations", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[model.Conversation](t, rec)
	assert.Equal(t, created.ID, f.state().CurrentID())

	rec = f.do(http.MethodPut, "/api/v1/conversations/"+first+"/select", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[model.ListConversationsResponse](t, rec)
	assert.Equal(t, first, resp.CurrentID)
	assert.Equal(t, []string{first, created.ID}, []string{resp.Conversations[0].ID, resp.Conversations[1].ID})
}

func TestConversations_NotFoundAndBadID(t *testing.T) {
	f := newFixture(t)
	unknown := uuid.Must(uuid.NewV7()).String()

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/v1/conversations/"+unknown, "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPut, "/api/v1/conversations/"+unknown+"/select", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/v1/conversations/"+unknown+"/turns", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/v1/conversations/nope", "").Code)
}

func TestMessages_SendAndReadBack(t *testing.T) {
	f := newFixture(t)
	id := f.state().CurrentID()

	rec := f.do(http.MethodPost, "/api/v1/conversations/"+id+"/messages", `{"content":"Preciso de ajuda agora"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decode[model.SendMessageResponse](t, rec)
	assert.Equal(t, "resposta", resp.AgentTurn.Content)
	assert.Equal(t, "Preciso ajuda", resp.Title)
	assert.False(t, resp.CacheHit)

	rec = f.do(http.MethodGet, "/api/v1/conversations/"+id+"/turns", "")
	require.Equal(t, http.StatusOK, rec.Code)
	turns := decode[model.ListTurnsResponse](t, rec)
	require.Len(t, turns.Turns, 2)
	assert.Equal(t, model.RoleUser, turns.Turns[0].Role)
	assert.Equal(t, model.RoleAgent, turns.Turns[1].Role)

	usage := decode[model.Usage](t, f.do(http.MethodGet, "/api/v1/usage", ""))
	assert.Equal(t, 1, usage.Interactions)
	assert.Equal(t, 1, usage.CacheEntries)
}

func TestMessages_RejectsBadInput(t *testing.T) {
	f := newFixture(t)
	id := f.state().CurrentID()

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/v1/conversations/"+id+"/messages", `{"content":"   "}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/v1/conversations/"+id+"/messages", `not json`).Code)

	unknown := uuid.Must(uuid.NewV7()).String()
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/api/v1/conversations/"+unknown+"/messages", `{"content":"oi"}`).Code)
}

func TestStream_RevealsReply(t *testing.T) {
	f := newFixture(t)
	id := f.state().CurrentID()

	rec := f.do(http.MethodPost, "/api/v1/conversations/"+id+"/stream", `{"content":"teste"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "event: thinking\n")
	assert.Contains(t, body, "event: user_message\n")
	assert.Contains(t, body, "event: message_complete\n")
	assert.Contains(t, body, "event: done\n")
	assert.Equal(t, len([]rune("resposta")), strings.Count(body, "event: token\n"))

	turns, err := f.state().Turns(id)
	require.NoError(t, err)
	assert.Len(t, turns, 2)
}

func TestStream_UnknownConversation(t *testing.T) {
	f := newFixture(t)
	unknown := uuid.Must(uuid.NewV7()).String()

	rec := f.do(http.MethodPost, "/api/v1/conversations/"+unknown+"/stream", `{"content":"teste"}`)
	assert.Contains(t, rec.Body.String(), "event: error\n")
	assert.Contains(t, rec.Body.String(), "conversation_not_found")
}

func TestTypeOut(t *testing.T) {
	var tokens []string
	err := typeOut(context.Background(), "ação", 0, func(token string, index int) error {
		assert.Equal(t, len(tokens), index)
		tokens = append(tokens, token)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "ç", "ã", "o"}, tokens)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	emitted := 0
	err = typeOut(ctx, "abc", 0, func(string, int) error {
		emitted++
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, emitted)
}

func TestPrompts(t *testing.T) {
	f := newFixture(t)

	prompts := decode[[]model.QuickPrompt](t, f.do(http.MethodGet, "/api/v1/prompts", ""))
	require.Len(t, prompts, 3)
	assert.Equal(t, "Vender Produto", prompts[0].Label)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/ready", "").Code)
}

func TestUI_RendersPage(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/?prompt=0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	body := rec.Body.String()
	assert.Contains(t, body, model.DefaultTitle)
	assert.Contains(t, body, prompt.QuickPrompts[1].Label)
	assert.Contains(t, body, "Me ajude a vender uma")
}

func TestUI_FormActions(t *testing.T) {
	f := newFixture(t)
	first := f.state().CurrentID()

	rec := f.form("/chat/send", url.Values{"content": {"teste"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	turns, err := f.state().Turns(first)
	require.NoError(t, err)
	require.Len(t, turns, 2)

	f.form("/chat/new", nil)
	assert.NotEqual(t, first, f.state().CurrentID())
	assert.Len(t, f.state().ListConversations(), 2)

	f.form("/chat/select", url.Values{"id": {"unknown"}})
	assert.NotEqual(t, first, f.state().CurrentID())

	f.form("/chat/select", url.Values{"id": {first}})
	assert.Equal(t, first, f.state().CurrentID())

	rec = f.do(http.MethodGet, "/", "")
	assert.Contains(t, rec.Body.String(), "resposta")
}

func TestUI_NewVisitorGetsCookie(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, rec.Result().Cookies(), 1)
	assert.Equal(t, 1, f.sessions.Count())
}
