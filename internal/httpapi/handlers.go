package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wagiedev/study-bridge-go/internal/message"
)

type subtopicsRequest struct {
	Topic string `json:"topic"`
}

type subtopicsResponse struct {
	Subtopics message.SubtopicList `json:"subtopics"`
}

type askRequest struct {
	Question string `json:"question"`
	Subtopic string `json:"subtopic"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

type mcqRequest struct {
	Subtopic string `json:"subtopic"`
}

type mcqResponse struct {
	MCQ *message.MCQ `json:"mcq"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleSubtopics(c echo.Context) error {
	var req subtopicsRequest
	if err := c.Bind(&req); err != nil {
		return s.fail(c, err)
	}

	subtopics, err := s.svc.RequestSubtopics(c.Request().Context(), req.Topic)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusOK, subtopicsResponse{Subtopics: subtopics})
}

func (s *Server) handleAsk(c echo.Context) error {
	var req askRequest
	if err := c.Bind(&req); err != nil {
		return s.fail(c, err)
	}

	answer, err := s.svc.AskQuestion(c.Request().Context(), req.Question, req.Subtopic)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusOK, askResponse{Answer: answer})
}

func (s *Server) handleGenerateMCQ(c echo.Context) error {
	var req mcqRequest
	if err := c.Bind(&req); err != nil {
		return s.fail(c, err)
	}

	mcq, err := s.svc.RequestExercise(c.Request().Context(), req.Subtopic)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusOK, mcqResponse{MCQ: mcq})
}

func (s *Server) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.svc.Status())
}

// fail answers every failure with 500 and the error text.
func (s *Server) fail(c echo.Context, err error) error {
	s.log.Error("Request failed", "path", c.Path(), "error", err)

	text := err.Error()
	if he, ok := errors.AsType[*echo.HTTPError](err); ok {
		if msg, ok := he.Message.(string); ok {
			text = msg
		}
	}

	return c.JSON(http.StatusInternalServerError, errorResponse{Error: text})
}
