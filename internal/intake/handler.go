package intake

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes the intake form over HTTP.
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

// NewHandler builds the intake HTTP handler.
func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Info serves a short usage page for anyone opening the endpoint in a browser.
func (h *Handler) Info(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Status(http.StatusOK).SendString(`<h1>Welcome!</h1>
<p>Please submit the form to register a new user with a loan and a document.</p>
<p>Use the POST method with Content-Type: multipart/form-data.</p>
<p>Fields: full_name, email, phone, loan_amount, file (image/jpeg, under 2MB)</p>
`)
}

// Submit handles one multipart form submission.
func (h *Handler) Submit(c *fiber.Ctx) error {
	fields := make(map[string]string)
	var file *multipart.FileHeader

	// A broken or absent multipart body is treated as an empty submission so
	// it surfaces through the regular input-error shape, not a transport 400.
	if form, err := c.MultipartForm(); err == nil {
		for key, values := range form.Value {
			if len(values) > 0 {
				fields[key] = values[0]
			}
		}
		if uploads := form.File[FileField]; len(uploads) > 0 {
			file = uploads[0]
		}
	}

	result, err := h.svc.Submit(c.UserContext(), Submission{Fields: fields, File: file})
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			return c.Status(http.StatusConflict).JSON(fiber.Map{
				"status":  "error",
				"message": "User with this email already exists.",
			})
		}

		h.logger.Error("submission failed", slog.Any("error", err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "Failed to save user data: " + err.Error(),
		})
	}

	if len(result.Errors) > 0 {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status": "error",
			"errors": result.Errors,
		})
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"status": "success",
		"data":   fiber.Map{"user_id": result.UserID},
	})
}
