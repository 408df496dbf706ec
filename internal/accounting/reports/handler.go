package reports

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
)

// ErrUnknownReport indicates an unsupported report name.
var ErrUnknownReport = errors.New("reports: unknown report")

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{report}", h.Get)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "report")
	report, err := h.service.Build(r.Context(), name)
	if errors.Is(err, ErrUnknownReport) {
		httpx.Problem(w, http.StatusNotFound, "Unknown Report", err.Error())
		return
	}
	if err != nil {
		h.logger.Error("build report", slog.String("report", name), slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Report Unavailable", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}
