// Package server exposes the ingestion, chat and quiz operations over a thin
// HTTP shell. Authentication and authorization live in front of this server;
// document-id sets and course/user identifiers arrive pre-authorized.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tutorlabs/tutord/internal/conversation"
	"github.com/tutorlabs/tutord/internal/extraction"
	"github.com/tutorlabs/tutord/internal/quiz"
)

// Ingester runs the ingestion path.
type Ingester interface {
	IngestFile(ctx context.Context, docID, path string) (int, error)
	Delete(ctx context.Context, docID string) error
}

// Chatter runs one answer turn.
type Chatter interface {
	Ask(ctx context.Context, req conversation.AskRequest) (string, error)
}

// QuizGenerator produces a quiz from one document.
type QuizGenerator interface {
	Generate(ctx context.Context, docID string, n int) ([]quiz.Question, error)
}

// Config configures the HTTP server.
type Config struct {
	Host string
	Port int
}

// Server is the HTTP shell.
type Server struct {
	echo   *echo.Echo
	config Config
	logger *zap.Logger

	ingester Ingester
	chatter  Chatter
	quizzes  QuizGenerator
}

// New creates the server and registers routes.
func New(cfg Config, ingester Ingester, chatter Chatter, quizzes QuizGenerator, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:     e,
		config:   cfg,
		logger:   logger.Named("server"),
		ingester: ingester,
		chatter:  chatter,
		quizzes:  quizzes,
	}

	e.GET("/healthz", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.POST("/documents", s.handleIngest)
	e.DELETE("/documents/:id", s.handleDelete)
	e.POST("/chat", s.handleChat)
	e.POST("/quiz", s.handleQuiz)

	return s
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("http server listening", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type ingestRequest struct {
	DocID string `json:"doc_id"`
	Path  string `json:"path"`
}

type ingestResponse struct {
	DocID  string `json:"doc_id"`
	Chunks int    `json:"chunks"`
}

func (s *Server) handleIngest(c echo.Context) error {
	var req ingestRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	if req.DocID == "" || req.Path == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "doc_id and path are required"})
	}

	chunks, err := s.ingester.IngestFile(c.Request().Context(), req.DocID, req.Path)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, extraction.ErrUnsupportedFormat) {
			status = http.StatusUnsupportedMediaType
		}
		s.logger.Error("ingest failed", zap.String("doc_id", req.DocID), zap.Error(err))
		return c.JSON(status, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusCreated, ingestResponse{DocID: req.DocID, Chunks: chunks})
}

func (s *Server) handleDelete(c echo.Context) error {
	docID := c.Param("id")
	if docID == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "document id is required"})
	}
	if err := s.ingester.Delete(c.Request().Context(), docID); err != nil {
		s.logger.Error("delete failed", zap.String("doc_id", docID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

type chatRequest struct {
	CourseID    string   `json:"course_id"`
	UserID      string   `json:"user_id"`
	Query       string   `json:"query"`
	DocumentIDs []string `json:"document_ids"`
}

type chatResponse struct {
	Answer string `json:"answer"`
}

func (s *Server) handleChat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	if req.CourseID == "" || req.UserID == "" || req.Query == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "course_id, user_id and query are required"})
	}

	answer, err := s.chatter.Ask(c.Request().Context(), conversation.AskRequest{
		CourseID:      req.CourseID,
		UserID:        req.UserID,
		Query:         req.Query,
		AllowedDocIDs: req.DocumentIDs,
	})
	if err != nil {
		s.logger.Error("chat failed",
			zap.String("course_id", req.CourseID),
			zap.String("user_id", req.UserID),
			zap.Error(err),
		)
		return c.JSON(http.StatusBadGateway, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, chatResponse{Answer: answer})
}

type quizRequest struct {
	DocumentID string `json:"document_id"`
	Count      int    `json:"count"`
}

type quizResponse struct {
	Quiz []quiz.Question `json:"quiz"`
}

func (s *Server) handleQuiz(c echo.Context) error {
	var req quizRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	if req.DocumentID == "" || req.Count < 1 {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "document_id and a positive count are required"})
	}

	questions, err := s.quizzes.Generate(c.Request().Context(), req.DocumentID, req.Count)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, quiz.ErrSchemaValidation) {
			status = http.StatusUnprocessableEntity
		}
		s.logger.Error("quiz generation failed", zap.String("doc_id", req.DocumentID), zap.Error(err))
		return c.JSON(status, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, quizResponse{Quiz: questions})
}
