package handlers

import (
	"encoding/json"
	"net/http"

	"textile-backend/internal/models"
	"textile-backend/internal/services"
	"textile-backend/pkg/utils"
)

type DispatchHandler struct {
	Service *services.DispatchService
}

func NewDispatchHandler(s *services.DispatchService) *DispatchHandler {
	return &DispatchHandler{Service: s}
}

func (h *DispatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequest(w, "Invalid request body")
		return
	}
	d, err := h.Service.Create(r.Context(), &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, d)
}

func (h *DispatchHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.Service.List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, records)
}

func (h *DispatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	d, err := h.Service.Get(r.Context(), id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, d)
}

func (h *DispatchHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req models.DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequest(w, "Invalid request body")
		return
	}
	d, err := h.Service.Update(r.Context(), id, &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, d)
}

func (h *DispatchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Service.Delete(r.Context(), id); err != nil {
		utils.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reconcile groups dispatch records by lot identity and flags the ones
// with no matching lot
func (h *DispatchHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	groups, err := h.Service.Reconcile(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, groups)
}
