package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/shipbatch/internal/address"
	"github.com/JonMunkholm/shipbatch/internal/core"
)

func (s *Server) handleValidateAddress(w http.ResponseWriter, r *http.Request) {
	var a address.Address
	if err := decodeJSON(r, &a); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondOK(w, r, s.service.ValidateAddress(r.Context(), a))
}

func (s *Server) handleValidateBatch(w http.ResponseWriter, r *http.Request) {
	summary, err := s.service.ValidateBatch(r.Context(), chi.URLParam(r, "batchId"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondMessage(w, r, http.StatusOK, "Batch validated", summary)
}

// handleDefaultShipFrom returns the caller's default ship-from address, or
// null data when none is set.
func (s *Server) handleDefaultShipFrom(w http.ResponseWriter, r *http.Request) {
	def, err := s.service.DefaultShipFrom(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if def == nil {
		respondMessage(w, r, http.StatusOK, "No default ship-from address", nil)
		return
	}
	respondOK(w, r, def)
}

func (s *Server) handleListSavedAddresses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := s.service.ListSavedAddresses(r.Context(), core.AddressType(q.Get("type")), q.Get("search"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondOK(w, r, list)
}

func (s *Server) handleCreateSavedAddress(w http.ResponseWriter, r *http.Request) {
	var in core.SavedAddressInput
	if err := decodeJSON(r, &in); err != nil {
		s.respondError(w, r, err)
		return
	}
	saved, err := s.service.CreateSavedAddress(r.Context(), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondMessage(w, r, http.StatusCreated, "Address saved", saved)
}

func (s *Server) handleGetSavedAddress(w http.ResponseWriter, r *http.Request) {
	saved, err := s.service.GetSavedAddress(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondOK(w, r, saved)
}

func (s *Server) handleUpdateSavedAddress(w http.ResponseWriter, r *http.Request) {
	var p core.SavedAddressPatch
	if err := decodeJSON(r, &p); err != nil {
		s.respondError(w, r, err)
		return
	}
	saved, err := s.service.UpdateSavedAddress(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondMessage(w, r, http.StatusOK, "Address updated", saved)
}

func (s *Server) handleDeleteSavedAddress(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteSavedAddress(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondMessage(w, r, http.StatusOK, "Address deleted", nil)
}

func (s *Server) handleSetDefaultAddress(w http.ResponseWriter, r *http.Request) {
	saved, err := s.service.SetDefaultAddress(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondMessage(w, r, http.StatusOK, "Default address updated", saved)
}
