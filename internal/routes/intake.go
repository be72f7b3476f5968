package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/loanform/loanform/internal/intake"
	"github.com/loanform/loanform/internal/middleware"
)

// RegisterIntakeRoutes wires the form endpoints. Any method other than GET
// and POST gets Fiber's default 405, not the JSON error shape.
func RegisterIntakeRoutes(app *fiber.App, h *intake.Handler, d Deps) {
	app.Get("/", h.Info)
	app.Post("/",
		middleware.NoCache(),
		middleware.SubmitRateLimit(d.Cache, d.Cfg.SubmitPerMin),
		h.Submit,
	)
}
