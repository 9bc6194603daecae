package handler

import (
	"bytes"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"objectvault/internal/acl"
	"objectvault/internal/http/middleware"
	"objectvault/internal/service"
	"objectvault/internal/storage"
)

// downloadCacheTTL bounds the Cache-Control max-age on object downloads.
const downloadCacheTTL = time.Hour

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Keep handlers minimal; orchestration lives in the service layer.
func RegisterRoutes(app *fiber.App, provider storage.Provider, objSvc service.ObjectService) {
	// Liveness probe
	app.Get("/healthz", LivenessProbe())

	// Health with storage provider echo for diagnostics
	app.Get("/health", HealthCheck(provider))

	// Mint a PUT-scoped signed upload URL for a fresh entity
	app.Post("/api/objects/upload", EntityUploadURL(objSvc))

	// Normalize an uploaded object's URL and attach its ACL policy
	app.Put("/api/objects/acl", SetEntityACL(objSvc))

	// ACL-gated entity downloads
	app.Get("/objects/*", DownloadEntity(objSvc))

	// Public object downloads via the configured search prefixes
	app.Get("/public-objects/*", DownloadPublic(objSvc))
}

// RegisterLocalObjectRoutes attaches the serving half of the filesystem
// variant's signed URLs. Only wired when the active provider is local; cloud
// variants serve their signed URLs themselves.
func RegisterLocalObjectRoutes(app *fiber.App, p *storage.LocalProvider) {
	h := LocalObject(p)
	app.Get("/local-objects/:bucket/*", h)
	app.Head("/local-objects/:bucket/*", h)
	app.Put("/local-objects/:bucket/*", h)
	app.Delete("/local-objects/:bucket/*", h)
}

// LivenessProbe reports process liveness only.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// HealthCheck reports health plus the active storage provider name.
func HealthCheck(provider storage.Provider) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":          "healthy",
			"storageProvider": provider.Name(),
		})
	}
}

// EntityUploadURL mints a signed PUT URL for a new entity upload.
func EntityUploadURL(objSvc service.ObjectService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		url, err := objSvc.EntityUploadURL(c.UserContext())
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(fiber.Map{"uploadURL": url})
	}
}

// setEntityACLRequest is the body of PUT /api/objects/acl.
type setEntityACLRequest struct {
	ObjectURL  string `json:"objectURL"`
	Visibility string `json:"visibility"`
}

// SetEntityACL normalizes the uploaded object's URL and persists its ACL
// policy, owned by the calling user.
func SetEntityACL(objSvc service.ObjectService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := middleware.UserIDFromCtx(c)
		if userID == "" {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		}

		var req setEntityACLRequest
		if err := c.BodyParser(&req); err != nil || req.ObjectURL == "" {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "objectURL is required")
		}

		visibility := acl.VisibilityPrivate
		if req.Visibility == string(acl.VisibilityPublic) {
			visibility = acl.VisibilityPublic
		}

		path, err := objSvc.TrySetEntityACLPolicy(c.UserContext(), req.ObjectURL, acl.Policy{
			Owner:      userID,
			Visibility: visibility,
		})
		if err != nil {
			if errors.Is(err, storage.ErrObjectNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "object not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(fiber.Map{"objectPath": path})
	}
}

// DownloadEntity resolves a canonical entity path, enforces its ACL policy
// for the calling user and streams the object.
func DownloadEntity(objSvc service.ObjectService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		objectPath := "/objects/" + c.Params("*")

		f, err := objSvc.EntityFile(c.UserContext(), objectPath)
		if err != nil {
			if errors.Is(err, storage.ErrObjectNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "object not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}

		userID := middleware.UserIDFromCtx(c)
		ok, err := objSvc.CanAccessEntity(c.UserContext(), userID, f, acl.PermissionRead)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		if !ok {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "access denied")
		}

		return sendObject(c, f, downloadCacheTTL)
	}
}

// DownloadPublic serves objects found under the configured public search
// prefixes. No ACL check: presence under a public prefix is the grant.
func DownloadPublic(objSvc service.ObjectService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f, err := objSvc.SearchPublicObject(c.UserContext(), c.Params("*"))
		if err != nil {
			if errors.Is(err, storage.ErrObjectNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "object not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return sendObject(c, f, downloadCacheTTL)
	}
}

// LocalObject serves the filesystem variant's signed URLs. The token must
// match the signature, expiry, method and object of the request.
func LocalObject(p *storage.LocalProvider) fiber.Handler {
	return func(c *fiber.Ctx) error {
		bucket := c.Params("bucket")
		name := c.Params("*")

		if err := p.VerifyToken(c.Query("token"), c.Method(), bucket, name); err != nil {
			return writeError(c, fiber.StatusForbidden, "FORBIDDEN", "invalid or expired signed url")
		}

		switch c.Method() {
		case fiber.MethodPut:
			contentType := c.Get(fiber.HeaderContentType)
			if contentType == "" {
				contentType = "application/octet-stream"
			}
			if err := p.Put(c.UserContext(), bucket, name, bytes.NewReader(c.Body()), contentType); err != nil {
				return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
			return c.SendStatus(fiber.StatusOK)

		case fiber.MethodGet:
			return sendObject(c, p.Object(bucket, name), downloadCacheTTL)

		case fiber.MethodHead:
			meta, err := p.Object(bucket, name).Metadata(c.UserContext())
			if err != nil {
				if errors.Is(err, storage.ErrObjectNotFound) {
					return c.SendStatus(fiber.StatusNotFound)
				}
				return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
			contentType := meta.ContentType
			if contentType == "" {
				contentType = "application/octet-stream"
			}
			// Same headers a GET through the signed URL would stream.
			c.Set(fiber.HeaderContentType, contentType)
			c.Set(fiber.HeaderContentLength, strconv.FormatInt(meta.Size, 10))
			c.Status(fiber.StatusOK)
			return nil

		case fiber.MethodDelete:
			if err := p.Object(bucket, name).Delete(c.UserContext()); err != nil {
				if errors.Is(err, storage.ErrObjectNotFound) {
					return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "object not found")
				}
				return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
			return c.SendStatus(fiber.StatusNoContent)
		}

		return writeError(c, fiber.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	}
}
