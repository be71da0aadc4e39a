package separation

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/meridian-hr/meridian-hr/internal/platform/httpx"
)

// Handler serves the separation workflow JSON API.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	aggregator *Aggregator
	gate       *Gate
	validate   *validator.Validate
}

// NewHandler constructs a handler.
func NewHandler(logger *slog.Logger, service *Service, aggregator *Aggregator, gate *Gate) *Handler {
	return &Handler{
		logger:     logger,
		service:    service,
		aggregator: aggregator,
		gate:       gate,
		validate:   validator.New(),
	}
}

// MountRoutes attaches the workflow routes at the router root. The routes
// span three prefixes, so mounting happens here rather than under a single
// chi.Route group.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/separations", func(r chi.Router) {
		r.Post("/", h.initiate)
		r.Get("/{id}", h.get)
		r.Post("/{id}/decision", h.decide)
		r.Post("/{id}/clearance", h.createChecklist)
		r.Post("/{id}/revocation", h.revoke)
	})
	r.Route("/clearances", func(r chi.Router) {
		r.Get("/{id}", h.getChecklist)
		r.Post("/{id}/signoffs", h.signOff)
	})
	r.Get("/employees/{id}/separations", h.trackByEmployee)
}

func (h *Handler) initiate(w http.ResponseWriter, r *http.Request) {
	var req InitiateSeparationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	subjectID, _ := uuid.Parse(req.SubjectID)
	contractID, _ := uuid.Parse(req.ContractID)
	created, err := h.service.Initiate(r.Context(), InitiateInput{
		SubjectID:              subjectID,
		ContractID:             contractID,
		Initiator:              Initiator(req.Initiator),
		Reason:                 req.Reason,
		EmployeeComments:       req.EmployeeComments,
		ProposedSeparationDate: req.ProposedSeparationDate,
	})
	if err != nil {
		h.logger.Error("initiate separation", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid separation request id")
		return
	}
	req, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, req)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid separation request id")
		return
	}
	var req DecisionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	updated, err := h.service.Decide(r.Context(), id, RequestStatus(req.Decision), req.HRComments)
	if err != nil {
		h.logger.Error("decide separation", slog.String("request", id.String()), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) trackByEmployee(w http.ResponseWriter, r *http.Request) {
	subjectID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid employee id")
		return
	}
	selfService := r.URL.Query().Get("self") == "true"

	list, err := h.service.TrackByEmployee(r.Context(), subjectID, selfService)
	if err != nil {
		h.logger.Error("track separations", slog.String("subject", subjectID.String()), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"separations": list,
		"total":       len(list),
	})
}

func (h *Handler) createChecklist(w http.ResponseWriter, r *http.Request) {
	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid separation request id")
		return
	}
	var req ChecklistRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	input := ChecklistInput{
		RequestID:    requestID,
		Departments:  req.Departments,
		CardReturned: req.CardReturned,
	}
	for _, eq := range req.EquipmentItems {
		input.EquipmentItems = append(input.EquipmentItems, EquipmentItem{
			EquipmentID: eq.EquipmentID,
			Name:        eq.Name,
			Returned:    eq.Returned,
			Condition:   eq.Condition,
		})
	}

	created, err := h.aggregator.InitiateChecklist(r.Context(), input)
	if err != nil {
		h.logger.Error("create checklist", slog.String("request", requestID.String()), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) getChecklist(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid checklist id")
		return
	}
	checklist, summary, err := h.aggregator.GetChecklist(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"checklist": checklist,
		"summary":   summary,
	})
}

func (h *Handler) signOff(w http.ResponseWriter, r *http.Request) {
	checklistID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid checklist id")
		return
	}
	var req SignOffRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	approverID, _ := uuid.Parse(req.ApproverID)
	result, err := h.aggregator.ApplyDepartmentSignOff(r.Context(), SignOffInput{
		ChecklistID: checklistID,
		Department:  req.Department,
		Status:      ItemStatus(req.Status),
		ApproverID:  approverID,
		Comments:    req.Comments,
	})
	if err != nil {
		h.logger.Error("apply sign-off", slog.String("checklist", checklistID.String()), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid separation request id")
		return
	}
	var req RevokeRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
			return
		}
	}

	result, err := h.gate.Revoke(r.Context(), requestID, req.Reason)
	if err != nil {
		h.logger.Error("revoke access", slog.String("request", requestID.String()), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
