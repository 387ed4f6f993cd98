package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/brstatements/fatura-extractor/internal/common"
	"github.com/brstatements/fatura-extractor/internal/llm"
)

// DocumentProcessor is the pipeline entry point the upload handler calls.
type DocumentProcessor interface {
	Process(ctx context.Context, pdfPath string) (*llm.StatementBatch, error)
}

// Server is the thin HTTP surface over the pipeline: one upload route, a
// health probe and static files. Errors reach the caller as one coarse
// success/failure message; detail stays in the logs.
type Server struct {
	app       *fiber.App
	processor DocumentProcessor
	cfg       common.ServerConfig
	logger    *slog.Logger
}

func New(cfg common.ServerConfig, processor DocumentProcessor, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	app := fiber.New(fiber.Config{
		BodyLimit:             cfg.MaxUploadMB << 20,
		DisableStartupMessage: true,
	})

	s := &Server{app: app, processor: processor, cfg: cfg, logger: logger}

	app.Post("/upload", s.handleUpload)
	app.Get("/healthz", s.handleHealth)
	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}
	return s, nil
}

func (s *Server) Listen() error {
	s.logger.Info("server.listen", "addr", s.cfg.Addr)
	return s.app.Listen(s.cfg.Addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// App exposes the fiber app for in-process testing.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleUpload(c *fiber.Ctx) error {
	start := time.Now()
	rid := uuid.New().String()

	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Nenhum arquivo foi enviado.")
	}

	// Request-scoped temp copy; removed on every exit path.
	dst := filepath.Join(s.cfg.UploadDir, "file-"+rid+filepath.Ext(fh.Filename))
	if err := c.SaveFile(fh, dst); err != nil {
		s.logger.Error("server.upload.save_failed", "req_id", rid, "error", err)
		return c.Status(fiber.StatusInternalServerError).SendString("Erro ao processar o arquivo.")
	}
	defer func() {
		if rmErr := os.Remove(dst); rmErr != nil {
			s.logger.Warn("server.upload.cleanup_failed", "req_id", rid, "path", dst, "error", rmErr)
		}
	}()

	s.logger.Info("server.upload.received",
		"req_id", rid,
		"filename", fh.Filename,
		"bytes", fh.Size,
	)

	ctx := common.WithRequestID(c.UserContext(), rid)
	batch, err := s.processor.Process(ctx, dst)
	if err != nil {
		s.logger.Error("server.upload.pipeline_failed",
			"req_id", rid,
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return c.Status(fiber.StatusInternalServerError).SendString("Erro ao processar o arquivo.")
	}

	s.logger.Info("server.upload.ok",
		"req_id", rid,
		"records", batch.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return c.SendString("Dados adicionados à planilha com sucesso.")
}
