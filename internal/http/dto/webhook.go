package dto

import (
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/triage"
)

const (
	WebhookStatusOK        = "ok"
	WebhookStatusDuplicate = "duplicate_ignored"
)

type WebhookResponse struct {
	Status    string                  `json:"status"`
	Integrity *triage.IntegrityReport `json:"integrity,omitempty"`
	AI        *triage.Result          `json:"ai,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
