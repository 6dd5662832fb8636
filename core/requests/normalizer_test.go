package requests

import (
	"errors"
	"strings"
	"testing"

	"sentinel-desk/core/store"
)

func validSubmission() Submission {
	return Submission{
		UserID:   "u-1",
		UserInfo: store.Document{"name": "Alice", "email": "alice@example.com", "department": "Finance"},
		Type:     "phishing-email",
		Reason:   "Received a suspicious invoice",
		FormData: store.Document{"severity": "high", "sender": "bad@actor.test"},
	}
}

func TestSeverityToPriorityMappingIsTotal(t *testing.T) {
	cases := map[any]string{
		"low":      "low",
		"medium":   "medium",
		"HIGH":     "high",
		" critical ": "critical",
		"urgent":   "medium",
		"":         "medium",
		nil:        "medium",
		42:         "medium",
	}
	for in, want := range cases {
		if got := MapSeverity(in); got != want {
			t.Fatalf("MapSeverity(%v) = %s, want %s", in, got, want)
		}
	}
}

func TestNormalizeAppliesSeverity(t *testing.T) {
	req, err := NormalizeSubmission(validSubmission())
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if req.Priority != "high" {
		t.Fatalf("priority = %s, want high", req.Priority)
	}
	if req.Status != StatusOpen {
		t.Fatalf("initial status = %s", req.Status)
	}
	if !req.CreatedAt.Equal(req.UpdatedAt) {
		t.Fatalf("createdAt and updatedAt must match at creation")
	}
	if !strings.HasPrefix(req.ID, "REQ-") {
		t.Fatalf("id = %s", req.ID)
	}
	if req.OwnerID != "u-1" {
		t.Fatalf("ownerId = %s", req.OwnerID)
	}
}

func TestNormalizeDefaultsPriorityWithoutSeverity(t *testing.T) {
	sub := validSubmission()
	sub.FormData = nil
	req, err := NormalizeSubmission(sub)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if req.Priority != "medium" {
		t.Fatalf("priority = %s, want medium", req.Priority)
	}
	if req.FormData == nil || req.Details == nil {
		t.Fatalf("blobs must default to empty documents, not nil")
	}
}

func TestNormalizeNamesEveryMissingField(t *testing.T) {
	_, err := NormalizeSubmission(Submission{})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"userInfo", "type", "reason"} {
		found := false
		for _, m := range verr.Missing {
			if m == field {
				found = true
			}
		}
		if !found {
			t.Fatalf("missing field %s not reported in %v", field, verr.Missing)
		}
	}
}

func TestNormalizeRejectsUnknownType(t *testing.T) {
	sub := validSubmission()
	sub.Type = "ufo-sighting"
	_, err := NormalizeSubmission(sub)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Invalid) != 1 || verr.Invalid[0] != "type" {
		t.Fatalf("invalid fields = %v", verr.Invalid)
	}
}

func TestOwnerFallsBackToSubmitterEmail(t *testing.T) {
	sub := validSubmission()
	sub.UserID = ""
	req, err := NormalizeSubmission(sub)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if req.OwnerID != "alice@example.com" {
		t.Fatalf("ownerId = %s", req.OwnerID)
	}
}
