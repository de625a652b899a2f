package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/zxsted/dialogmanager"
	"github.com/zxsted/dialogmanager/internal/logging"
	"github.com/zxsted/dialogmanager/internal/presentation/graph"
	"github.com/zxsted/dialogmanager/pkg/domain"
	"github.com/zxsted/dialogmanager/pkg/ports"
	"github.com/zxsted/dialogmanager/pkg/runner"
)

// Bot is the subset of *dialogmanager.Bot served over HTTP.
type Bot interface {
	Reply(ctx context.Context, input, conversationID string, opts ...dialogmanager.ReplyOption) (*dialogmanager.Result, error)
	Conversation(ctx context.Context, conversationID string) (*domain.ConversationState, error)
	Conversations(ctx context.Context) ([]string, error)
	ResetConversation(ctx context.Context, conversationID string) error
	Actions() []*domain.Action
}

// Server exposes a bot as a JSON API.
type Server struct {
	Bot     Bot
	Streams *StreamManager

	logger  *slog.Logger
	metrics http.Handler
	watcher ports.Watchable
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics mounts a Prometheus handler on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithWatcher streams catalog changes on GET /events.
func WithWatcher(w ports.Watchable) Option {
	return func(s *Server) {
		s.watcher = w
	}
}

// MessageRequest is the body of POST /conversations/{id}/messages.
type MessageRequest struct {
	Text     string `json:"text" validate:"required"`
	Language string `json:"language,omitempty" validate:"omitempty,bcp47_language_tag"`
}

// MessageResponse is the outcome of one turn.
type MessageResponse struct {
	ConversationID string                    `json:"conversation_id"`
	Replies        []any                     `json:"replies"`
	Action         string                    `json:"action,omitempty"`
	Blocked        string                    `json:"blocked,omitempty"`
	Chained        string                    `json:"chained,omitempty"`
	Completed      bool                      `json:"completed"`
	Ended          bool                      `json:"ended"`
	Fallback       bool                      `json:"fallback"`
	State          *domain.ConversationState `json:"state"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewServer creates a Server for the bot.
func NewServer(bot Bot, opts ...Option) *Server {
	s := &Server{
		Bot:     bot,
		Streams: NewStreamManager(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams.logger = s.logger
	return s
}

// NewHandler creates a new HTTP handler for the bot.
func NewHandler(bot Bot, opts ...Option) http.Handler {
	return NewServer(bot, opts...).Routes()
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/actions", s.GetActions)
	r.Get("/graph", s.GetGraph)
	r.Get("/events", s.SubscribeCatalog)

	r.Route("/conversations", func(r chi.Router) {
		r.Get("/", s.ListConversations)
		r.Post("/", s.PostNewConversation)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetConversation)
			r.Delete("/", s.DeleteConversation)
			r.Post("/messages", s.PostMessage)
			r.Get("/events", s.SubscribeConversation)
		})
	})

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PostMessage handles POST /conversations/{id}/messages.
func (s *Server) PostMessage(w http.ResponseWriter, r *http.Request) {
	s.handleMessage(w, r, chi.URLParam(r, "id"))
}

// PostNewConversation handles POST /conversations: it starts a
// conversation under a generated ID.
func (s *Server) PostNewConversation(w http.ResponseWriter, r *http.Request) {
	s.handleMessage(w, r, uuid.NewString())
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request, id string) {
	var body MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		s.logger.Warn("PostMessage: invalid request body", "error", err)
		return
	}
	if err := validateRequest(body); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	text, err := runner.SanitizeInput(strings.TrimSpace(body.Text))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid input: %v", err))
		s.logger.Warn("PostMessage: input rejected", "error", err, "size", len(body.Text))
		return
	}
	if text == "" {
		s.writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	var opts []dialogmanager.ReplyOption
	if body.Language != "" {
		opts = append(opts, dialogmanager.InLanguage(body.Language))
	}

	res, err := s.Bot.Reply(r.Context(), text, id, opts...)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("PostMessage: turn failed", "conversation_id", id, "error", err)
		}
		s.writeError(w, status, err.Error())
		return
	}

	resp := MessageResponse{
		ConversationID: id,
		Replies:        res.Replies,
		Action:         res.Action,
		Blocked:        res.Blocked,
		Chained:        res.Chained,
		Completed:      res.Completed,
		Ended:          res.Ended,
		Fallback:       res.Fallback,
		State:          res.State,
	}
	if resp.Replies == nil {
		resp.Replies = []any{}
	}

	if b, err := json.Marshal(resp); err == nil {
		s.Streams.Broadcast(id, string(b))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// statusFor maps turn errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNoIntentMatched), errors.Is(err, domain.ErrNoActionForIntent):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrClassifierUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// GetConversation handles GET /conversations/{id}.
func (s *Server) GetConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	state, err := s.Bot.Conversation(r.Context(), id)
	if errors.Is(err, domain.ErrSessionNotFound) {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("GetConversation failed", "conversation_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

// DeleteConversation handles DELETE /conversations/{id}.
func (s *Server) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Bot.ResetConversation(r.Context(), id); err != nil {
		s.logger.Error("DeleteConversation failed", "conversation_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListConversations handles GET /conversations.
func (s *Server) ListConversations(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Bot.Conversations(r.Context())
	if err != nil {
		s.logger.Error("ListConversations failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, ids)
}

// GetActions handles GET /actions.
func (s *Server) GetActions(w http.ResponseWriter, r *http.Request) {
	actions := s.Bot.Actions()
	infos := make([]domain.ActionInfo, 0, len(actions))
	for _, a := range actions {
		infos = append(infos, a.Describe())
	}
	s.writeJSON(w, http.StatusOK, infos)
}

// GetGraph handles GET /graph. With ?conversation=<id> the conversation
// state is overlaid on the diagram.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	var overlay *graph.GraphOverlay
	if id := r.URL.Query().Get("conversation"); id != "" {
		state, err := s.Bot.Conversation(r.Context(), id)
		if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		overlay = graph.OverlayFromState(state)
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, graph.GenerateMermaid(s.Bot.Actions(), overlay))
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "dialogmanager-http",
		"version": strings.TrimSpace(dialogmanager.Version),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, ErrorResponse{Error: msg})
}

// StreamManager handles active SSE connections.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // ConversationID -> Set of Channels
	logger      *slog.Logger
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logging.NewNop(),
	}
}

func (sm *StreamManager) Subscribe(conversationID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[conversationID]; !ok {
		sm.subscribers[conversationID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[conversationID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[conversationID]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, conversationID)
			}
		}
	}
}

func (sm *StreamManager) Broadcast(conversationID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[conversationID] {
		select {
		case ch <- msg:
		default:
			// Drop message if channel is full (slow client)
			sm.logger.Warn("SSE: client buffer full, dropping message", "conversation_id", conversationID)
		}
	}
}

// SubscribeConversation handles GET /conversations/{id}/events (SSE):
// every turn of the conversation is pushed as a MessageResponse.
func (s *Server) SubscribeConversation(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	id := chi.URLParam(r, "id")

	ch, cancel := s.Streams.Subscribe(id)
	defer cancel()

	startStream(w, flusher)
	s.logger.Info("SSE: subscribed to conversation", "conversation_id", id)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// SubscribeCatalog handles GET /events (SSE): the names of changed action
// documents, when the catalog is watchable.
func (s *Server) SubscribeCatalog(w http.ResponseWriter, r *http.Request) {
	if s.watcher == nil {
		s.writeError(w, http.StatusNotFound, "catalog is not watchable")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	events, err := s.watcher.Watch(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("watch error: %v", err))
		return
	}
	startStream(w, flusher)

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", event)
			flusher.Flush()
		}
	}
}

func startStream(w http.ResponseWriter, flusher http.Flusher) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
}
