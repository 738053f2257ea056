// Package server exposes the document QA service over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"document-qa/internal/cache"
	"document-qa/internal/config"
	"document-qa/internal/models"
	"document-qa/internal/parser"
	"document-qa/internal/rag"
	"document-qa/internal/summarize"
	"document-qa/internal/vectorindex"
)

const maxUpload = "64M"

// Service is the part of rag.RAG the handlers use.
type Service interface {
	IndexDocument(ctx context.Context, doc *parser.Document) (*rag.Index, error)
	Open(ctx context.Context, key string) (*rag.Index, error)
	Query(ctx context.Context, idx *rag.Index, query string) (*models.QueryResponse, error)
	Summarize(ctx context.Context, doc *parser.Document) (string, error)
	SearchLibrary(ctx context.Context, query string) (*models.QueryResponse, error)
}

type Server struct {
	echo *echo.Echo
	svc  Service
	addr string
}

type queryRequest struct {
	Query string `json:"query"`
}

type summaryResponse struct {
	Name    string `json:"name"`
	Summary string `json:"summary"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func New(svc Service, cfg config.ServerConfig) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(maxUpload))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("Request")
			return nil
		},
	}))

	s := &Server{echo: e, svc: svc, addr: cfg.Addr}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/health", s.health)
	s.echo.POST("/documents", s.indexDocument)
	s.echo.POST("/documents/:key/query", s.queryDocument)
	s.echo.POST("/summaries", s.summarize)
	s.echo.POST("/search", s.search)
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start() error {
	log.Info().Str("addr", s.addr).Msg("HTTP server listening")
	err := s.echo.Start(s.addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}

func (s *Server) indexDocument(c echo.Context) error {
	doc, cleanup, err := loadUpload(c)
	if err != nil {
		return err
	}
	defer cleanup()

	idx, err := s.svc.IndexDocument(c.Request().Context(), doc)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, idx.Result())
}

func (s *Server) queryDocument(c echo.Context) error {
	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	idx, err := s.svc.Open(ctx, c.Param("key"))
	if err != nil {
		return err
	}
	resp, err := s.svc.Query(ctx, idx, req.Query)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) summarize(c echo.Context) error {
	doc, cleanup, err := loadUpload(c)
	if err != nil {
		return err
	}
	defer cleanup()

	summary, err := s.svc.Summarize(c.Request().Context(), doc)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summaryResponse{Name: doc.Name, Summary: summary})
}

func (s *Server) search(c echo.Context) error {
	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	resp, err := s.svc.SearchLibrary(c.Request().Context(), req.Query)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// loadUpload copies the multipart "file" field to a temp file and extracts
// its text. The returned cleanup removes the temp file.
func loadUpload(c echo.Context) (*parser.Document, func(), error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, nil, echo.NewHTTPError(http.StatusBadRequest, "multipart field \"file\" is required")
	}
	name := filepath.Base(fh.Filename)
	if !parser.Supported(name) {
		return nil, nil, fmt.Errorf("%w: %s", parser.ErrUnsupportedFormat, filepath.Ext(name))
	}

	src, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "upload-*"+strings.ToLower(filepath.Ext(name)))
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { os.Remove(tmp.Name()) }
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		cleanup()
		return nil, nil, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return nil, nil, err
	}

	doc, err := parser.Load(tmp.Name(), name)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return doc, cleanup, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, parser.ErrUnsupportedFormat),
		errors.Is(err, rag.ErrEmptyQuery),
		errors.Is(err, cache.ErrInvalidKey),
		errors.Is(err, summarize.ErrEmptyText):
		return http.StatusBadRequest
	case errors.Is(err, cache.ErrNotFound), errors.Is(err, rag.ErrLibraryDisabled):
		return http.StatusNotFound
	case errors.Is(err, rag.ErrModelMismatch), errors.Is(err, vectorindex.ErrDimensionMismatch):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func errorHandler(err error, c echo.Context) {
	status, msg := statusFor(err), err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status, msg = he.Code, fmt.Sprint(he.Message)
	}

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("uri", c.Request().RequestURI).Msg("Request failed")
	} else {
		log.Debug().Err(err).Int("status", status).Msg("Request rejected")
	}

	if c.Response().Committed {
		return
	}
	if err := c.JSON(status, errorResponse{Error: msg}); err != nil {
		log.Error().Err(err).Msg("Writing error response")
	}
}
