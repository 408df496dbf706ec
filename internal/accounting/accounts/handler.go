package accounts

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
)

type Handler struct {
	registry  *Registry
	logger    *slog.Logger
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, registry *Registry) *Handler {
	return &Handler{logger: logger, registry: registry, validator: validator.New()}
}

// MountRoutes registers chart of accounts routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Ensure)
	r.Get("/{code}", h.Get)
	r.Post("/{code}/deactivate", h.setActive(false))
	r.Post("/{code}/activate", h.setActive(true))
}

type ensureRequest struct {
	Code           string          `json:"code" validate:"required,max=16"`
	Name           string          `json:"name" validate:"required,max=120"`
	Type           AccountType     `json:"type" validate:"required,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.registry.List(r.Context())
	if err != nil {
		h.logger.Error("list accounts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, accounts)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	acc, err := h.registry.GetAccount(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, acc)
}

func (h *Handler) Ensure(w http.ResponseWriter, r *http.Request) {
	var req ensureRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondInvalid(w, err)
		return
	}
	acc, err := h.registry.EnsureAccount(r.Context(), Spec{
		Code:           req.Code,
		Name:           req.Name,
		Type:           req.Type,
		OpeningBalance: req.OpeningBalance,
	})
	if err != nil {
		h.logger.Error("ensure account", slog.String("code", req.Code), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, acc)
}

func (h *Handler) setActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		acc, err := h.registry.SetActive(r.Context(), chi.URLParam(r, "code"), active)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, acc)
	}
}
