package requests

import (
	"strings"
	"time"

	"sentinel-desk/core/ident"
	"sentinel-desk/core/store"
)

// Submission is the loosely-typed inbound report payload. UserInfo,
// FormData and Details arrive as free-form JSON objects; only the
// fields the core reads are inspected, the rest is preserved verbatim.
type Submission struct {
	UserID   string         `json:"userId"`
	UserInfo store.Document `json:"userInfo"`
	Type     string         `json:"type"`
	Reason   string         `json:"reason"`
	FormData store.Document `json:"formData"`
	Details  store.Document `json:"details"`
}

var validRequestTypes = map[string]struct{}{
	"phishing-email":     {},
	"suspicious-website": {},
	"social-engineering": {},
	"malware":            {},
	"data-breach":        {},
	"identity-theft":     {},
	"phishing-report":    {},
	"other":              {},
}

var validPriorities = map[string]struct{}{
	"low":      {},
	"medium":   {},
	"high":     {},
	"critical": {},
}

// MapSeverity is the total severity-to-priority function: a recognized
// severity maps to itself, anything else (absent, wrong type, unknown
// value) maps to medium. It never fails.
func MapSeverity(raw any) string {
	if s, ok := raw.(string); ok {
		val := strings.ToLower(strings.TrimSpace(s))
		if _, known := validPriorities[val]; known {
			return val
		}
	}
	return "medium"
}

// NormalizeSubmission validates the inbound payload and reshapes it
// into the persisted row: a fresh id, scalar columns, canonical JSON
// blobs (empty object, never null) and status=open with matching
// creation timestamps.
func NormalizeSubmission(sub Submission) (*store.Request, error) {
	var verr ValidationError
	if len(sub.UserInfo) == 0 {
		verr.Missing = append(verr.Missing, "userInfo")
	}
	reqType := strings.ToLower(strings.TrimSpace(sub.Type))
	if reqType == "" {
		verr.Missing = append(verr.Missing, "type")
	} else if _, ok := validRequestTypes[reqType]; !ok {
		verr.Invalid = append(verr.Invalid, "type")
	}
	if strings.TrimSpace(sub.Reason) == "" {
		verr.Missing = append(verr.Missing, "reason")
	}
	if len(verr.Missing) > 0 || len(verr.Invalid) > 0 {
		return nil, &verr
	}
	formData := sub.FormData
	if formData == nil {
		formData = store.Document{}
	}
	details := sub.Details
	if details == nil {
		details = store.Document{}
	}
	now := time.Now().UTC()
	return &store.Request{
		ID:            ident.NewRequestID(),
		OwnerID:       ownerID(sub),
		SubmitterInfo: sub.UserInfo,
		FormData:      formData,
		RequestType:   reqType,
		Details:       details,
		Reason:        strings.TrimSpace(sub.Reason),
		Status:        StatusOpen,
		Priority:      MapSeverity(formData["severity"]),
		CreatedAt:     now,
		UpdatedAt:     now,
		Comments:      []store.Comment{},
	}, nil
}

// ownerID prefers the explicit userId, then identifying fields inside
// the submitter blob, so ownership survives clients that only send
// userInfo.
func ownerID(sub Submission) string {
	if v := strings.TrimSpace(sub.UserID); v != "" {
		return v
	}
	for _, key := range []string{"userId", "email"} {
		if s, ok := sub.UserInfo[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return "anonymous"
}
