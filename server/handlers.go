package server

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/logger"

	"github.com/Ashenafi-pixel/lixi-wheel-server/ledger"
	"github.com/Ashenafi-pixel/lixi-wheel-server/phone"
	"github.com/Ashenafi-pixel/lixi-wheel-server/prize"
)

const maxBodyBytes = 1 << 16

type prizeBody struct {
	Label  prize.Label `json:"label"`
	Amount int64       `json:"amount"`
}

type registerResponse struct {
	ParticipantID   string     `json:"participantId"`
	Name            string     `json:"name"`
	PhoneMasked     string     `json:"phoneMasked"`
	HasSpun         bool       `json:"hasSpun"`
	IsExistingPhone bool       `json:"isExistingPhone"`
	ExistingPrize   *prizeBody `json:"existingPrize,omitempty"`
}

type spinResponse struct {
	Status ledger.Status `json:"status"`
	Prize  prizeBody     `json:"prize"`
}

type prizesResponse struct {
	TotalWeight int64           `json:"totalWeight"`
	Segments    []prize.Segment `json:"segments"`
}

type entriesResponse struct {
	Entries []ledger.Entry `json:"entries"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body", CodeInvalidInput)
		return false
	}
	return true
}

// register implements POST /api/register.
func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if errs := req.validate(); errs != nil {
		writeFieldErrors(w, "invalid registration", errs)
		return
	}
	res, err := s.ledger.Register(r.Context(), req.Name, req.Phone)
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidPhone) {
			writeFieldErrors(w, "invalid registration", fieldErrors{"phone": {"phone number is invalid"}})
			return
		}
		logger.Errorf("lixi: register %s: %v", phone.Mask(req.Phone), err)
		writeError(w, http.StatusInternalServerError, "could not register right now", CodeInternal)
		return
	}
	resp := registerResponse{
		ParticipantID:   res.Participant.ID,
		Name:            res.Participant.Name,
		PhoneMasked:     phone.Mask(res.Participant.NormalizedPhone),
		HasSpun:         res.HasSpun(),
		IsExistingPhone: res.IsExistingPhone,
	}
	if res.Allocation != nil {
		resp.ExistingPrize = &prizeBody{Label: res.Allocation.PrizeLabel, Amount: res.Allocation.PrizeAmount}
	}
	writeJSON(w, http.StatusOK, resp)
}

// spin implements POST /api/spin.
func (s *Server) spin(w http.ResponseWriter, r *http.Request) {
	var req spinRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if errs := req.validate(); errs != nil {
		writeFieldErrors(w, "invalid spin request", errs)
		return
	}
	res, err := s.ledger.Allocate(r.Context(), req.ParticipantID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			writeError(w, http.StatusNotFound, "participant not found", CodeParticipantNotFound)
			return
		}
		logger.Errorf("lixi: spin %s: %v", req.ParticipantID, err)
		writeError(w, http.StatusInternalServerError, "could not spin right now", CodeInternal)
		return
	}
	writeJSON(w, http.StatusOK, spinResponse{
		Status: res.Status,
		Prize:  prizeBody{Label: res.Allocation.PrizeLabel, Amount: res.Allocation.PrizeAmount},
	})
}

// prizes implements GET /api/prizes: the catalog with its wheel geometry.
func (s *Server) prizes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, prizesResponse{
		TotalWeight: s.catalog.TotalWeight(),
		Segments:    s.catalog.Segments(),
	})
}

// adminEntries implements GET /api/admin/entries, gated by X-Admin-Passcode.
func (s *Server) adminEntries(w http.ResponseWriter, r *http.Request) {
	want := s.cfg.AdminPasscode
	if want == "" {
		writeError(w, http.StatusInternalServerError, "ADMIN_PASSCODE is not configured", CodeAdminNotConfigured)
		return
	}
	got := r.Header.Get("X-Admin-Passcode")
	if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
		writeError(w, http.StatusUnauthorized, "wrong admin passcode", CodeUnauthorized)
		return
	}
	entries, err := s.ledger.ListEntries(r.Context())
	if err != nil {
		logger.Errorf("lixi: list entries: %v", err)
		writeError(w, http.StatusInternalServerError, "could not load entries", CodeInternal)
		return
	}
	if entries == nil {
		entries = []ledger.Entry{}
	}
	writeJSON(w, http.StatusOK, entriesResponse{Entries: entries})
}
