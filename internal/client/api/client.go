// Package api talks to the server over its JSON/HTTP contract. Request and
// response shapes match the server exactly; transport and rejection
// outcomes are translated to the sentinel errors in internal/common.
package api

import (
	"context"

	"github.com/rlaurindo/presenca-sync/internal/client/models"
)

// Pinger is the slice of the client the connectivity monitor needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Client is the full remote surface consumed by the sync core.
type Client interface {
	Pinger

	// ListEvents fetches the reference event list. No auth required.
	ListEvents(ctx context.Context) ([]models.Event, error)

	// User-scoped reads; require a token.
	ListAccounts(ctx context.Context) ([]models.Account, error)
	ListRegistrations(ctx context.Context) ([]models.Registration, error)
	ListAttendance(ctx context.Context) ([]models.AttendanceRecord, error)

	// CreateAttendance submits one check-in and returns the server-assigned
	// identifier. A duplicate yields common.ErrorConflict.
	CreateAttendance(ctx context.Context, req CreateAttendanceRequest) (int64, error)

	// SyncAttendance submits the whole queue in one round trip.
	SyncAttendance(ctx context.Context, items []BulkItem) ([]BulkResult, error)

	// SetToken installs an already-resolved bearer token. The token is
	// opaque to this package.
	SetToken(token string)
}

// CreateAttendanceRequest is the body of POST /presencas.
type CreateAttendanceRequest struct {
	RegistrationID int64  `json:"inscricao_id"`
	EventID        int64  `json:"evento_id,omitempty"`
	AccountID      int64  `json:"usuario_id,omitempty"`
	CheckinAt      string `json:"data_checkin,omitempty"`
}

// BulkItem is one element of the POST /sincronizar-presencas payload.
type BulkItem struct {
	RegistrationID int64  `json:"inscricao_id"`
	EventID        int64  `json:"evento_id"`
	AccountID      int64  `json:"usuario_id"`
	CheckinAt      string `json:"data_checkin"`
	MarkingType    string `json:"tipo_marcacao"`
	Notes          string `json:"observacoes"`
}

// BulkResult is the per-item outcome reported by the bulk endpoint.
type BulkResult struct {
	RegistrationID int64  `json:"inscricao_id"`
	Success        bool   `json:"sucesso"`
	AttendanceID   int64  `json:"presenca_id,omitempty"`
	Error          string `json:"erro,omitempty"`
	Action         string `json:"acao,omitempty"`
}
