package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"pipeforge/backend/internal/services"
	"pipeforge/backend/pkg/models"
)

type Server struct {
	mcpServer *server.MCPServer
	service   *services.TransformationService
}

func NewServer(service *services.TransformationService) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"Transformation Designer",
			"1.0.0",
			server.WithToolCapabilities(true),
		),
		service: service,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_transformations",
			mcp.WithDescription("List stored transformation revisions"),
			mcp.WithString("type", mcp.Description("Filter by kind: COMPONENT or WORKFLOW")),
			mcp.WithString("state", mcp.Description("Filter by state: DRAFT, RELEASED or DISABLED")),
		),
		s.handleList,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_transformation",
			mcp.WithDescription("Fetch one transformation revision by id"),
			mcp.WithString("id", mcp.Required(), mcp.Description("The revision id")),
		),
		s.handleGet,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"compile_transformation",
			mcp.WithDescription("Compile a transformation revision into an executable unit"),
			mcp.WithString("id", mcp.Required(), mcp.Description("The revision id")),
		),
		s.handleCompile,
	)
}

func (s *Server) handleList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		args = map[string]interface{}{}
	}

	filter := services.ListFilter{}
	if t, ok := args["type"].(string); ok {
		filter.Type = models.TransformationType(t)
	}
	if st, ok := args["state"].(string); ok {
		filter.State = models.State(st)
	}

	revisions, err := s.service.List(ctx, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list transformations: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(revisions)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleGet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errResult := requestID(request)
	if errResult != nil {
		return errResult, nil
	}

	rev, err := s.service.Get(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get transformation: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(rev)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleCompile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errResult := requestID(request)
	if errResult != nil {
		return errResult, nil
	}

	unit, err := s.service.CompileForExecution(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to compile transformation: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(unit)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func requestID(request mcp.CallToolRequest) (uuid.UUID, *mcp.CallToolResult) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return uuid.Nil, mcp.NewToolResultError("Invalid arguments type")
	}
	raw, ok := args["id"].(string)
	if !ok || raw == "" {
		return uuid.Nil, mcp.NewToolResultError("Missing required parameter: id")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, mcp.NewToolResultError(fmt.Sprintf("Invalid revision id: %v", err))
	}
	return id, nil
}

func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	// Use SSE server for /mcp/sse and /mcp/message endpoints
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))

	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		// Direct POST for tool calls
		if r.Method == http.MethodPost {
			sseServer.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	// SSE endpoints
	mux.HandleFunc("/mcp/sse", sseServer.ServeHTTP)
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)
}
