package departments

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/meridian-hr/meridian-hr/internal/platform/httpx"
)

// UpsertDepartmentRequest creates or updates a department.
type UpsertDepartmentRequest struct {
	Name           string  `json:"name" validate:"required,max=100"`
	HeadEmployeeID *string `json:"head_employee_id,omitempty" validate:"omitempty,uuid4"`
}

// Handler serves the department directory JSON API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes attaches department routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Put("/", h.upsert)
	r.Get("/{name}", h.get)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list departments", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"departments": list})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	dep, err := h.service.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dep)
}

func (h *Handler) upsert(w http.ResponseWriter, r *http.Request) {
	var req UpsertDepartmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	dep := Department{Name: req.Name}
	if req.HeadEmployeeID != nil {
		id, err := uuid.Parse(*req.HeadEmployeeID)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid head employee id")
			return
		}
		dep.HeadEmployeeID = &id
	}

	saved, err := h.service.Upsert(r.Context(), dep)
	if err != nil {
		h.logger.Error("upsert department", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, saved)
}
