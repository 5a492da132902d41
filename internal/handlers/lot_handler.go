package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"textile-backend/internal/models"
	"textile-backend/internal/services"
	"textile-backend/pkg/utils"
)

type LotHandler struct {
	Service *services.LotService
}

func NewLotHandler(s *services.LotService) *LotHandler {
	return &LotHandler{Service: s}
}

func (h *LotHandler) CreateLot(w http.ResponseWriter, r *http.Request) {
	var req models.CreateLotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequest(w, "Invalid request body")
		return
	}

	lot, err := h.Service.CreateLot(r.Context(), &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, lot)
}

// ListLots serves GET /api/lots?status=&q=
func (h *LotHandler) ListLots(w http.ResponseWriter, r *http.Request) {
	filter := models.LotFilter{Query: r.URL.Query().Get("q")}
	if s := r.URL.Query().Get("status"); s != "" {
		st, ok := models.ParseStage(s)
		if !ok {
			utils.BadRequest(w, "Unknown status "+s)
			return
		}
		filter.Status = st
	}
	h.list(w, r, filter)
}

func (h *LotHandler) ListByStatus(w http.ResponseWriter, r *http.Request) {
	st, ok := models.ParseStage(mux.Vars(r)["status"])
	if !ok {
		utils.BadRequest(w, "Unknown status "+mux.Vars(r)["status"])
		return
	}
	h.list(w, r, models.LotFilter{Status: st, Query: r.URL.Query().Get("q")})
}

// ListCompleted returns lots that have moved past the given stage
func (h *LotHandler) ListCompleted(w http.ResponseWriter, r *http.Request) {
	st, ok := models.ParseStage(mux.Vars(r)["stage"])
	if !ok {
		utils.BadRequest(w, "Unknown stage "+mux.Vars(r)["stage"])
		return
	}
	h.list(w, r, models.LotFilter{CompletedStage: st, Query: r.URL.Query().Get("q")})
}

func (h *LotHandler) list(w http.ResponseWriter, r *http.Request, filter models.LotFilter) {
	lots, err := h.Service.ListLots(r.Context(), filter)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, lots)
}

func (h *LotHandler) GetLot(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	lot, err := h.Service.GetLot(r.Context(), id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, lot)
}

func (h *LotHandler) UpdateLot(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req models.UpdateLotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequest(w, "Invalid request body")
		return
	}
	lot, err := h.Service.UpdateLot(r.Context(), id, &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, lot)
}

func (h *LotHandler) DeleteLot(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Service.DeleteLot(r.Context(), id); err != nil {
		utils.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *LotHandler) AppendEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req models.AppendEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequest(w, "Invalid request body")
		return
	}
	entry, err := h.Service.AppendEntry(r.Context(), id, &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, entry)
}

func (h *LotHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req models.UpdateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequest(w, "Invalid request body")
		return
	}
	entry, err := h.Service.UpdateEntry(r.Context(), id, &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, entry)
}

func (h *LotHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Service.DeleteEntry(r.Context(), id); err != nil {
		utils.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Advance moves a lot to the stage named in the body
func (h *LotHandler) Advance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req models.AdvanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequest(w, "Invalid request body")
		return
	}
	target, valid := models.ParseStage(req.Status)
	if !valid {
		utils.BadRequest(w, "Unknown status "+req.Status)
		return
	}
	lot, err := h.Service.Advance(r.Context(), id, target)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, lot)
}

// SetStatus serves POST /api/lots/status with {lotId, status}
func (h *LotHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req models.StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.BadRequest(w, "Invalid request body")
		return
	}
	lot, err := h.Service.SetStatus(r.Context(), &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, lot)
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := mux.Vars(r)["id"]
	id, err := uuid.Parse(raw)
	if err != nil {
		utils.BadRequest(w, "Invalid id "+raw)
		return uuid.Nil, false
	}
	return id, true
}
