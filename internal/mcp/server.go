package mcp

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/study-bridge-go/internal/message"
)

// Tool names.
const (
	ToolGenerateSubtopics = "generate_subtopics"
	ToolAskQuestion       = "ask_question"
	ToolGenerateMCQ       = "generate_mcq"
)

// StudyService is the part of the bridge the tools call.
type StudyService interface {
	RequestSubtopics(ctx context.Context, topic string) (message.SubtopicList, error)
	AskQuestion(ctx context.Context, question, subtopic string) (string, error)
	RequestExercise(ctx context.Context, subtopic string) (*message.MCQ, error)
}

// Server serves the study tools over an MCP transport.
type Server struct {
	log    *slog.Logger
	svc    StudyService
	server *mcp.Server
}

// NewServer creates a server named name/version with the study tools registered.
func NewServer(log *slog.Logger, svc StudyService, name, version string) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		log: log.With("component", "mcp"),
		svc: svc,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    name,
			Version: version,
		}, nil),
	}

	s.server.AddTool(
		NewTool(ToolGenerateSubtopics,
			"Break a study topic into an ordered list of subtopics.",
			describe(SimpleSchema(map[string]string{"topic": "string"}), map[string]string{
				"topic": "Topic to outline, e.g. Photosynthesis",
			})),
		s.handleSubtopics,
	)

	s.server.AddTool(
		NewTool(ToolAskQuestion,
			"Answer a learner's question within a subtopic.",
			describe(SimpleSchema(map[string]string{"question": "string", "subtopic": "string"}), map[string]string{
				"question": "The learner's question",
				"subtopic": "Subtopic the question belongs to",
			})),
		s.handleAsk,
	)

	s.server.AddTool(
		NewTool(ToolGenerateMCQ,
			"Generate a four-option multiple-choice question on a subtopic.",
			describe(SimpleSchema(map[string]string{"subtopic": "string"}), map[string]string{
				"subtopic": "Subtopic to test",
			})),
		s.handleMCQ,
	)

	return s
}

// MCP returns the underlying SDK server.
func (s *Server) MCP() *mcp.Server {
	return s.server
}

// Run serves on transport until ctx is canceled or the client disconnects.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	s.log.Info("Serving study tools")

	return s.server.Run(ctx, transport)
}

func (s *Server) handleSubtopics(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := ParseArguments(req)
	if err != nil {
		return ErrorResult(err.Error()), nil
	}

	topic, err := StringArgument(args, "topic")
	if err != nil {
		return ErrorResult(err.Error()), nil
	}

	subtopics, err := s.svc.RequestSubtopics(ctx, topic)
	if err != nil {
		return s.failed(ToolGenerateSubtopics, err), nil
	}

	return JSONResult(map[string]any{"subtopics": subtopics})
}

func (s *Server) handleAsk(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := ParseArguments(req)
	if err != nil {
		return ErrorResult(err.Error()), nil
	}

	question, err := StringArgument(args, "question")
	if err != nil {
		return ErrorResult(err.Error()), nil
	}

	subtopic, err := StringArgument(args, "subtopic")
	if err != nil {
		return ErrorResult(err.Error()), nil
	}

	answer, err := s.svc.AskQuestion(ctx, question, subtopic)
	if err != nil {
		return s.failed(ToolAskQuestion, err), nil
	}

	return TextResult(answer), nil
}

func (s *Server) handleMCQ(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := ParseArguments(req)
	if err != nil {
		return ErrorResult(err.Error()), nil
	}

	subtopic, err := StringArgument(args, "subtopic")
	if err != nil {
		return ErrorResult(err.Error()), nil
	}

	mcq, err := s.svc.RequestExercise(ctx, subtopic)
	if err != nil {
		return s.failed(ToolGenerateMCQ, err), nil
	}

	return JSONResult(map[string]any{"mcq": mcq})
}

func (s *Server) failed(tool string, err error) *mcp.CallToolResult {
	s.log.Warn("Tool call failed", "tool", tool, "error", err)

	return ErrorResult(err.Error())
}
