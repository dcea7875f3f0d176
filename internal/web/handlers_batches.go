package web

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/shipbatch/internal/core"
)

// multipartOverhead is allowed on top of the file size limit for the
// multipart envelope and other form fields.
const multipartOverhead = 1 << 20

// uploadResponse is a created batch with its ingest diagnostics.
type uploadResponse struct {
	*core.Batch
	Ingest core.IngestReport `json:"ingest"`
}

// handleUpload accepts a multipart "file" field holding a CSV or XLSX batch.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if limit := s.service.MaxFileSize(); limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, core.InputError(core.CodeFileTooLarge,
				"File exceeds the %d byte upload limit", s.service.MaxFileSize()))
			return
		}
		s.respondError(w, r, core.InputError(core.CodeValidationError, "Invalid upload form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, core.InputError(core.CodeValidationError, "No file uploaded"))
		return
	}
	defer file.Close()

	data, err := core.ReadUpload(file, s.service.MaxFileSize())
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	batch, report, err := s.service.CreateBatch(r.Context(), data, header.Filename)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondMessage(w, r, http.StatusCreated, "Batch uploaded successfully", uploadResponse{Batch: batch, Ingest: report})
}

func (s *Server) handleListBatches(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	list, err := s.service.ListBatches(r.Context(), core.ListOptions{
		Page:   page,
		Limit:  limit,
		Status: core.BatchStatus(r.URL.Query().Get("status")),
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, envelope{Success: true, Data: list.Batches, Pagination: &list.Pagination})
}

func (s *Server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	batch, err := s.service.GetBatch(r.Context(), chi.URLParam(r, "batchId"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondOK(w, r, batch)
}

func (s *Server) handleBatchStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context(), chi.URLParam(r, "batchId"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondOK(w, r, stats)
}

func (s *Server) handleUpdateRow(w http.ResponseWriter, r *http.Request) {
	var u core.RowUpdate
	if err := decodeJSON(r, &u); err != nil {
		s.respondError(w, r, err)
		return
	}
	row, err := s.service.UpdateRow(r.Context(), chi.URLParam(r, "batchId"), chi.URLParam(r, "rowId"), u)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondMessage(w, r, http.StatusOK, "Row updated", row)
}

func (s *Server) handleDeleteRow(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteRow(r.Context(), chi.URLParam(r, "batchId"), chi.URLParam(r, "rowId")); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondMessage(w, r, http.StatusOK, "Row deleted", nil)
}

func (s *Server) handleUpdateStep(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Step int `json:"step"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.respondError(w, r, err)
		return
	}
	batch, err := s.service.UpdateStep(r.Context(), chi.URLParam(r, "batchId"), body.Step)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondOK(w, r, batch)
}

func (s *Server) handleSetShipFrom(w http.ResponseWriter, r *http.Request) {
	var in core.ShipFromInput
	if err := decodeJSON(r, &in); err != nil {
		s.respondError(w, r, err)
		return
	}
	batch, err := s.service.SetShipFrom(r.Context(), chi.URLParam(r, "batchId"), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondMessage(w, r, http.StatusOK, "Ship-from address updated", batch)
}

func (s *Server) handleCancelBatch(w http.ResponseWriter, r *http.Request) {
	batch, err := s.service.Cancel(r.Context(), chi.URLParam(r, "batchId"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondMessage(w, r, http.StatusOK, "Batch cancelled", batch)
}

func (s *Server) handleDeleteBatch(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteBatch(r.Context(), chi.URLParam(r, "batchId")); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondMessage(w, r, http.StatusOK, "Batch deleted", nil)
}
