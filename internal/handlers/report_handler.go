package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"textile-backend/internal/services"
	"textile-backend/pkg/utils"
)

type ReportHandler struct {
	Service *services.ReportService
}

func NewReportHandler(s *services.ReportService) *ReportHandler {
	return &ReportHandler{Service: s}
}

// GetReport serves GET /api/reports/{view}?q=
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.Service.LotReport(r.Context(), mux.Vars(r)["view"], r.URL.Query().Get("q"))
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, report)
}

// ListViews names the available report views
func (h *ReportHandler) ListViews(w http.ResponseWriter, r *http.Request) {
	utils.JSON(w, http.StatusOK, map[string][]string{"views": services.ReportViews})
}
