package handler

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"objectvault/internal/storage"
)

// fiberSink adapts a Fiber response to the storage.DownloadSink protocol.
type fiberSink struct {
	c *fiber.Ctx
}

func (s *fiberSink) SetHeader(key, value string) { s.c.Set(key, value) }

func (s *fiberSink) WriteStatus(status int) { s.c.Status(status) }

func (s *fiberSink) Write(p []byte) (int, error) { return s.c.Write(p) }

// sendObject streams f to the response and maps download errors: not-found
// becomes a 404, faults before the status flush a 500, and mid-stream faults
// abort the body without a second status.
func sendObject(c *fiber.Ctx, f storage.ObjectFile, cacheTTL time.Duration) error {
	err := f.Download(c.UserContext(), &fiberSink{c: c}, cacheTTL)
	if err == nil {
		return nil
	}

	var streamErr *storage.StreamError
	if errors.As(err, &streamErr) {
		// The status is already out; all we can do is stop writing.
		log.Printf("download stream aborted: %v", streamErr)
		return nil
	}
	if errors.Is(err, storage.ErrObjectNotFound) {
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "object not found")
	}
	return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}
