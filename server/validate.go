package server

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Ashenafi-pixel/lixi-wheel-server/phone"
)

const (
	minNameLen  = 2
	maxNameLen  = 60
	minPhoneLen = 8
	maxPhoneLen = 20
)

// fieldErrors maps a request field to its validation messages.
type fieldErrors map[string][]string

func (f fieldErrors) add(field, msg string) { f[field] = append(f[field], msg) }

type registerRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// validate trims the request in place.
func (r *registerRequest) validate() fieldErrors {
	errs := fieldErrors{}
	r.Name = strings.TrimSpace(r.Name)
	r.Phone = strings.TrimSpace(r.Phone)
	switch n := utf8.RuneCountInString(r.Name); {
	case n < minNameLen:
		errs.add("name", "name must be at least 2 characters")
	case n > maxNameLen:
		errs.add("name", "name must be at most 60 characters")
	}
	if l := utf8.RuneCountInString(r.Phone); l < minPhoneLen || l > maxPhoneLen {
		errs.add("phone", "phone number is invalid")
	} else if !phone.Valid(r.Phone) {
		errs.add("phone", "phone number must be a 10-digit local number starting with 0")
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

type spinRequest struct {
	ParticipantID string `json:"participantId"`
}

func (r *spinRequest) validate() fieldErrors {
	r.ParticipantID = strings.TrimSpace(r.ParticipantID)
	if _, err := uuid.Parse(r.ParticipantID); err != nil || len(r.ParticipantID) != 36 {
		return fieldErrors{"participantId": {"participantId must be a UUID"}}
	}
	return nil
}
