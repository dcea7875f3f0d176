package web

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/shipbatch/internal/core"
	"github.com/JonMunkholm/shipbatch/internal/export"
	"github.com/JonMunkholm/shipbatch/internal/rates"
	"github.com/JonMunkholm/shipbatch/internal/web/templates"
)

func (s *Server) handlePricing(w http.ResponseWriter, r *http.Request) {
	respondOK(w, r, rates.Table())
}

// handleCalculate prices a weight given in ?weight= (unit ?unit=oz|lb) on
// one ?service=, or on every service when none is named.
func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	weight, err := strconv.ParseFloat(strings.TrimSpace(q.Get("weight")), 64)
	if err != nil {
		s.respondError(w, r, core.InputError(core.CodeValidationError, "Weight must be a number"))
		return
	}
	weightOz := rates.NormalizeWeight(weight, q.Get("unit"))

	if service := q.Get("service"); service != "" {
		svc, _ := rates.ParseService(service)
		respondOK(w, r, rates.Rate(weightOz, svc))
		return
	}
	respondOK(w, r, rates.AllRates(weightOz))
}

func (s *Server) handleBatchRates(w http.ResponseWriter, r *http.Request) {
	br, err := s.service.RatesForBatch(r.Context(), chi.URLParam(r, "batchId"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondOK(w, r, br)
}

func (s *Server) handleRowRates(w http.ResponseWriter, r *http.Request) {
	rr, err := s.service.RatesForRow(r.Context(), chi.URLParam(r, "batchId"), chi.URLParam(r, "rowId"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondOK(w, r, rr)
}

// selectRequest is the body of the selection endpoints.
type selectRequest struct {
	ServiceType string `json:"serviceType"`
	Strategy    string `json:"strategy"`
}

func (s *Server) handleSelectShipping(w http.ResponseWriter, r *http.Request) {
	var body selectRequest
	if err := decodeJSON(r, &body); err != nil {
		s.respondError(w, r, err)
		return
	}
	row, err := s.service.SelectShipping(r.Context(), chi.URLParam(r, "batchId"), chi.URLParam(r, "rowId"), body.ServiceType)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondMessage(w, r, http.StatusOK, "Shipping service selected", row)
}

// handleBulkSelect applies one service to every row; serviceType defaults to
// ground and strategy to all.
func (s *Server) handleBulkSelect(w http.ResponseWriter, r *http.Request) {
	body := selectRequest{ServiceType: string(rates.Ground), Strategy: core.StrategyAll}
	if err := decodeJSON(r, &body); err != nil {
		s.respondError(w, r, err)
		return
	}
	res, err := s.service.BulkSelectShipping(r.Context(), chi.URLParam(r, "batchId"), body.ServiceType, body.Strategy)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondMessage(w, r, http.StatusOK, fmt.Sprintf("Updated %d rows", res.Updated), res)
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	res, err := s.service.Purchase(r.Context(), chi.URLParam(r, "batchId"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondMessage(w, r, http.StatusOK, "Labels purchased successfully", res)
}

func (s *Server) handleGetLabel(w http.ResponseWriter, r *http.Request) {
	label, err := s.service.Label(r.Context(), chi.URLParam(r, "batchId"), chi.URLParam(r, "rowId"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondOK(w, r, label)
}

// handleDownloadLabels serves the labels of a purchased batch as a printable
// HTML sheet (the default) or as a csv, xlsx, or json manifest.
func (s *Server) handleDownloadLabels(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchId")
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))

	sheet, err := s.service.Labels(r.Context(), batchID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if format == "" || format == "html" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := templates.LabelSheet(sheet).Render(r.Context(), w); err != nil {
			s.respondError(w, r, err)
		}
		return
	}

	f, err := export.ParseFormat(format)
	if err != nil {
		s.respondError(w, r, core.InputError(core.CodeValidationError, "%v", err))
		return
	}

	// Render fully before writing so a failure can still become an error response.
	var buf bytes.Buffer
	if err := export.Write(&buf, sheet, f); err != nil {
		s.respondError(w, r, fmt.Errorf("write %s manifest: %w", f, err))
		return
	}
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(batchID, f)))
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleListPackages(w http.ResponseWriter, r *http.Request) {
	list, err := s.service.ListSavedPackages(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondOK(w, r, list)
}

func (s *Server) handleCreatePackage(w http.ResponseWriter, r *http.Request) {
	var in core.SavedPackageInput
	if err := decodeJSON(r, &in); err != nil {
		s.respondError(w, r, err)
		return
	}
	pkg, err := s.service.CreateSavedPackage(r.Context(), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondMessage(w, r, http.StatusCreated, "Package saved", pkg)
}

func (s *Server) handleGetPackage(w http.ResponseWriter, r *http.Request) {
	pkg, err := s.service.GetSavedPackage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondOK(w, r, pkg)
}

func (s *Server) handleUpdatePackage(w http.ResponseWriter, r *http.Request) {
	var p core.SavedPackagePatch
	if err := decodeJSON(r, &p); err != nil {
		s.respondError(w, r, err)
		return
	}
	pkg, err := s.service.UpdateSavedPackage(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondMessage(w, r, http.StatusOK, "Package updated", pkg)
}

func (s *Server) handleDeletePackage(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteSavedPackage(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondMessage(w, r, http.StatusOK, "Package deleted", nil)
}

func (s *Server) handleSetDefaultPackage(w http.ResponseWriter, r *http.Request) {
	pkg, err := s.service.SetDefaultPackage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondMessage(w, r, http.StatusOK, "Default package updated", pkg)
}
