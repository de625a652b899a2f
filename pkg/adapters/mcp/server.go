package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/zxsted/dialogmanager"
	"github.com/zxsted/dialogmanager/internal/logging"
	"github.com/zxsted/dialogmanager/pkg/domain"
	"github.com/zxsted/dialogmanager/pkg/runner"
)

// Resource URIs.
const (
	ActionsURI              = "dialog://actions"
	ConversationURITemplate = "dialog://conversations/{id}"
	conversationURIPrefix   = "dialog://conversations/"
)

// Bot is the subset of *dialogmanager.Bot exposed to MCP clients.
type Bot interface {
	Reply(ctx context.Context, input, conversationID string, opts ...dialogmanager.ReplyOption) (*dialogmanager.Result, error)
	Conversation(ctx context.Context, conversationID string) (*domain.ConversationState, error)
	Actions() []*domain.Action
}

// ReplyArgs are the arguments of the reply tool.
type ReplyArgs struct {
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text"`
	Language       string `json:"language,omitempty"`
}

// ReplyResponse is the structured result of the reply tool.
type ReplyResponse struct {
	Replies  []any  `json:"replies" jsonschema_description:"Replies to show to the user, in order"`
	Action   string `json:"action,omitempty" jsonschema_description:"Action that handled the message"`
	Blocked  string `json:"blocked,omitempty" jsonschema_description:"Action waiting for the user to pick among alternatives"`
	Chained  string `json:"chained,omitempty" jsonschema_description:"Action chained after the completed one"`
	Ended    bool   `json:"ended" jsonschema_description:"Indicates the conversation was reset"`
	Fallback bool   `json:"fallback" jsonschema_description:"Indicates nothing matched and the fallback reply was used"`
}

// ConversationArgs are the arguments of the get_conversation tool.
type ConversationArgs struct {
	ConversationID string `json:"conversation_id"`
}

// ActionsResponse is the structured result of the get_actions tool.
type ActionsResponse struct {
	Actions []domain.ActionInfo `json:"actions"`
}

// Server exposes a Bot as an MCP Server.
type Server struct {
	bot       Bot
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(bot Bot, opts ...Option) *Server {
	s := &Server{
		bot:       bot,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("dialogmanager-mcp", strings.TrimSpace(dialogmanager.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops it
// gracefully when ctx is canceled.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("shutdown signal received, stopping MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	replyTool := mcp.NewTool("reply",
		mcp.WithDescription("Send a user message to a conversation and get the bot replies."),
		mcp.WithString("conversation_id", mcp.Required(), mcp.Description("Conversation identifier; created on first use")),
		mcp.WithString("text", mcp.Required(), mcp.Description("User message")),
		mcp.WithString("language", mcp.Description("ISO language hint for the classifier (optional)")),
		mcp.WithOutputSchema[ReplyResponse](),
	)
	s.mcpServer.AddTool(replyTool, mcp.NewStructuredToolHandler(s.handleReply))

	actionsTool := mcp.NewTool("get_actions",
		mcp.WithDescription("List the registered actions with their notions and dependencies."),
		mcp.WithOutputSchema[ActionsResponse](),
	)
	s.mcpServer.AddTool(actionsTool, mcp.NewStructuredToolHandler(s.handleGetActions))

	s.mcpServer.AddTool(mcp.NewTool("get_conversation",
		mcp.WithDescription("Get the stored state of a conversation (memory, completed actions, last action)."),
		mcp.WithString("conversation_id", mcp.Required(), mcp.Description("Conversation identifier")),
	), s.handleGetConversation)
}

func (s *Server) handleReply(ctx context.Context, request mcp.CallToolRequest, args ReplyArgs) (ReplyResponse, error) {
	if args.ConversationID == "" {
		return ReplyResponse{}, errors.New("conversation_id is required")
	}
	clean, err := runner.SanitizeInput(strings.TrimSpace(args.Text))
	if err != nil {
		s.logger.Warn("MCP reply: input rejected", "error", err, "size", len(args.Text))
		return ReplyResponse{}, fmt.Errorf("input rejected: %w", err)
	}

	var opts []dialogmanager.ReplyOption
	if args.Language != "" {
		opts = append(opts, dialogmanager.InLanguage(args.Language))
	}

	res, err := s.bot.Reply(ctx, clean, args.ConversationID, opts...)
	if err != nil {
		return ReplyResponse{}, fmt.Errorf("reply failed: %w", err)
	}

	resp := ReplyResponse{
		Replies:  res.Replies,
		Action:   res.Action,
		Blocked:  res.Blocked,
		Chained:  res.Chained,
		Ended:    res.Ended,
		Fallback: res.Fallback,
	}
	if resp.Replies == nil {
		resp.Replies = []any{}
	}
	return resp, nil
}

func (s *Server) handleGetActions(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (ActionsResponse, error) {
	return ActionsResponse{Actions: s.describeActions()}, nil
}

func (s *Server) handleGetConversation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("conversation_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	state, err := s.bot.Conversation(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get conversation failed: %v", err)), nil
	}
	jsonBytes, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) describeActions() []domain.ActionInfo {
	actions := s.bot.Actions()
	infos := make([]domain.ActionInfo, 0, len(actions))
	for _, a := range actions {
		infos = append(infos, a.Describe())
	}
	return infos
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(ActionsURI, "Registered Actions",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.describeActions())
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      ActionsURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})

	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(ConversationURITemplate, "Conversation State",
		mcp.WithTemplateMIMEType("application/json"),
	), s.readConversation)
}

func (s *Server) readConversation(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := request.Params.URI
	id := strings.TrimPrefix(uri, conversationURIPrefix)
	if id == "" || id == uri {
		return nil, fmt.Errorf("invalid conversation uri: %s", uri)
	}
	state, err := s.bot.Conversation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	jsonBytes, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}
