package domain

import (
	"context"
	"encoding/json"
	"time"
)

// AuditLog represents an audit trail entry for compliance and debugging
type AuditLog struct {
	ID           string
	ActorID      string // Who performed the action
	Action       string // What action (transfer.create, campaign.transition, etc.)
	ResourceType string
	ResourceID   string
	IPAddress    string
	UserAgent    string
	RequestID    string
	BeforeState  JSON
	AfterState   JSON
	Status       string
	ErrorMessage string
	CreatedAt    time.Time
}

// JSON is a type alias for JSON data
type JSON map[string]any

type AuditAction string

const (
	AuditActionAccountOpen       AuditAction = "account.open"
	AuditActionAccountArchive    AuditAction = "account.archive"
	AuditActionTransferCreate    AuditAction = "transfer.create"
	AuditActionWithdrawal        AuditAction = "account.withdraw"
	AuditActionCampaignTransit   AuditAction = "campaign.transition"
	AuditActionCampaignSettle    AuditAction = "campaign.settle"
	AuditActionCampaignReadiness AuditAction = "campaign.readiness"
)

type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailure AuditStatus = "failure"
)

// AuditFilter defines filters for querying audit logs
type AuditFilter struct {
	ActorID      string
	Action       string
	ResourceType string
	ResourceID   string
	StartDate    *time.Time
	EndDate      *time.Time
	Limit        int
	Offset       int
}

// MarshalState converts a domain object to JSON for audit logging
func MarshalState(v any) JSON {
	if v == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return JSON{"error": "failed to marshal state"}
	}

	var result JSON
	if err := json.Unmarshal(data, &result); err != nil {
		return JSON{"error": "failed to unmarshal state"}
	}

	return result
}

// RequestMeta identifies the caller of an operation for the audit trail.
type RequestMeta struct {
	ActorID   string
	RequestID string
	IPAddress string
	UserAgent string
}

type requestMetaKey struct{}

// WithRequestMeta attaches caller metadata to ctx.
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFromContext returns the caller metadata, defaulting the actor to
// "system" for internal callers.
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(requestMetaKey{}).(RequestMeta)
	if meta.ActorID == "" {
		meta.ActorID = "system"
	}
	return meta
}

// NewAuditLog builds a successful audit row stamped with the caller metadata.
func NewAuditLog(ctx context.Context, id string, action AuditAction, resourceType, resourceID string, before, after any, at time.Time) *AuditLog {
	meta := RequestMetaFromContext(ctx)
	return &AuditLog{
		ID:           id,
		ActorID:      meta.ActorID,
		Action:       string(action),
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
		RequestID:    meta.RequestID,
		BeforeState:  MarshalState(before),
		AfterState:   MarshalState(after),
		Status:       string(AuditStatusSuccess),
		CreatedAt:    at,
	}
}
