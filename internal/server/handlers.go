package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/naka-gawa/repo-stats/internal/domain"
	"github.com/naka-gawa/repo-stats/internal/profile"
	"github.com/naka-gawa/repo-stats/internal/sink"
)

// StatsResponse is the body returned after a pipeline run.
type StatsResponse struct {
	Summary  *domain.Summary    `json:"summary,omitempty"`
	Columns  []string           `json:"columns"`
	Rows     []domain.ReportRow `json:"rows"`
	Progress []string           `json:"progress,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// PostStats runs the pipeline for ?account=, falling back to the profile's account.
func (h *Handler) PostStats(c *fiber.Ctx) error {
	account := strings.TrimSpace(c.Query("account"))
	if account == "" && h.profiles != nil {
		stored, err := h.profiles.Account()
		if err != nil {
			h.log.Errorw("failed to read profile", "error", err.Error())
			return writeError(c, err)
		}
		account = stored
	}

	ctx, cancel := h.runContext(c)
	defer cancel()

	out := &sink.Memory{}
	summary, err := h.updater.Aggregate(ctx, account, out)
	if err != nil {
		h.log.Errorw("failed to update stats", "account", account, "error", err.Error())
		return writeError(c, err)
	}
	return c.Status(http.StatusOK).JSON(StatsResponse{
		Summary:  summary,
		Columns:  out.Columns,
		Rows:     out.Rows,
		Progress: out.Progress,
	})
}

// GetStats returns the stored report of an account.
func (h *Handler) GetStats(c *fiber.Ctx) error {
	if h.snapshots == nil {
		return c.Status(http.StatusNotFound).JSON(ErrorResponse{Error: "no report store configured"})
	}
	account := c.Params("account")
	rows, err := h.snapshots.Snapshot(c.UserContext(), account)
	if err != nil {
		h.log.Errorw("failed to read snapshot", "account", account, "error", err.Error())
		return writeError(c, err)
	}
	if len(rows) == 0 {
		return writeError(c, domain.ErrNoRepositories)
	}
	return c.Status(http.StatusOK).JSON(StatsResponse{Columns: domain.Columns, Rows: rows})
}

// PostProfileInit bootstraps the profile file.
func (h *Handler) PostProfileInit(c *fiber.Ctx) error {
	if h.profiles == nil {
		return c.Status(http.StatusNotFound).JSON(ErrorResponse{Error: "no profile configured"})
	}
	p, err := h.profiles.Init()
	if err != nil {
		h.log.Errorw("failed to initialize profile", "error", err.Error())
		return writeError(c, err)
	}
	return c.Status(http.StatusOK).JSON(p)
}

func (h *Handler) runContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(c.UserContext())
	}
	return context.WithTimeout(c.UserContext(), h.timeout)
}

func writeError(c *fiber.Ctx, err error) error {
	status := http.StatusInternalServerError
	msg := err.Error()

	var fetchErr *domain.FetchError
	switch {
	case errors.Is(err, domain.ErrMissingAccount):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNoRepositories), errors.Is(err, domain.ErrAccountNotFound):
		status = http.StatusNotFound
	case errors.As(err, &fetchErr):
		status = http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	return c.Status(status).JSON(ErrorResponse{Error: msg})
}

var _ Profiles = (*profile.Store)(nil)
