package main

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"microgrid-console/internal/api"
	"microgrid-console/internal/domain"
	"microgrid-console/internal/session"
	"microgrid-console/internal/sync"
	"microgrid-console/internal/view"
)

type consoleDeps struct {
	sessions *session.Store
	sched    *sync.Synchronizer
	backend  string
	poll     time.Duration
	history  int
}

func registerRoutes(app *fiber.App, d *consoleDeps) {
	app.Get("/healthz", d.handleHealthz)
	app.Get("/api/session", d.handleSession)
	app.Get("/api/views", d.handleViewList)
	app.Get("/api/views/:name", d.handleView)
	app.Post("/api/alerts/:id/resolve", d.handleResolve)
	app.Post("/api/refresh", d.handleRefresh)
	app.Post("/api/logout", d.handleLogout)
}

func (d *consoleDeps) handleHealthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "backend": d.backend})
}

func (d *consoleDeps) handleSession(c *fiber.Ctx) error {
	user, ok := d.sessions.Current()
	payload := fiber.Map{"authenticated": ok}
	if ok {
		payload["user"] = user
	}
	if msg := d.sessions.Err(); msg != "" {
		payload["login_error"] = msg
	}
	return c.JSON(payload)
}

func (d *consoleDeps) handleViewList(c *fiber.Ctx) error {
	user, ok := d.sessions.Current()
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "not authenticated"})
	}
	return c.JSON(fiber.Map{"views": view.VisibleViews(user.Role)})
}

func (d *consoleDeps) handleView(c *fiber.Ctx) error {
	user, ok := d.sessions.Current()
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "not authenticated"})
	}

	// Unknown and role-hidden views are indistinguishable on purpose.
	name := view.ID(c.Params("name"))
	if !view.Visible(name, user.Role) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown view"})
	}

	snap := d.sched.Snapshot()
	if !snap.Ready {
		payload := fiber.Map{"status": "loading"}
		if snap.Err != "" {
			payload = fiber.Map{"status": "retrying", "error": snap.Err}
		}
		return c.Status(fiber.StatusServiceUnavailable).JSON(payload)
	}

	envelope := fiber.Map{"view": name, "last_sync": snap.LastSync}
	if snap.Err != "" {
		// Stale but renderable: the last cycle failed after an earlier
		// success, so views keep serving with a warning attached.
		envelope["banner"] = snap.Err
	}

	switch name {
	case view.Overview:
		envelope["data"] = view.BuildOverview(snap)
	case view.Alerts:
		filter := domain.AlertFilter{
			ActiveOnly: c.QueryBool("active_only"),
			Severity:   domain.Severity(c.Query("severity")),
			Search:     c.Query("search"),
		}
		envelope["data"] = view.BuildAlerts(snap, filter)
	case view.Analytics:
		envelope["data"] = view.BuildAnalytics(snap)
	case view.Forecasts:
		envelope["data"] = view.BuildForecasts(snap)
	case view.Insights:
		envelope["data"] = view.BuildInsights(snap)
	case view.Settings:
		envelope["data"] = view.BuildSettings(user, d.backend, d.poll, d.history)
	}
	return c.JSON(envelope)
}

func (d *consoleDeps) handleResolve(c *fiber.Ctx) error {
	if _, ok := d.sessions.Current(); !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "not authenticated"})
	}
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid alert id"})
	}

	if err := d.sched.ResolveAlert(c.UserContext(), id); err != nil {
		var authErr *api.AuthError
		var netErr *api.NetworkError
		switch {
		case errors.As(err, &authErr):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
		case errors.As(err, &netErr):
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
		default:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
	}
	return c.JSON(fiber.Map{"status": "resolved", "alert_id": id})
}

func (d *consoleDeps) handleRefresh(c *fiber.Ctx) error {
	d.sched.Refresh()
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "refresh queued"})
}

func (d *consoleDeps) handleLogout(c *fiber.Ctx) error {
	d.sched.Stop()
	if err := d.sessions.Logout(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "logged out"})
}
