package requests

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sentinel-desk/config"
	"sentinel-desk/core/ident"
	"sentinel-desk/core/notify"
	"sentinel-desk/core/store"
	"sentinel-desk/core/utils"
)

const (
	StatusOpen       = "open"
	StatusInProgress = "in-progress"
	StatusResolved   = "resolved"
	StatusClosed     = "closed"
)

func KnownStatuses() []string {
	return []string{StatusOpen, StatusInProgress, StatusResolved, StatusClosed}
}

var validStatuses = map[string]struct{}{
	StatusOpen:       {},
	StatusInProgress: {},
	StatusResolved:   {},
	StatusClosed:     {},
}

// IsTerminalStatus reports whether a status ends the lifecycle for the
// purposes of the resolution-time rollup.
func IsTerminalStatus(status string) bool {
	return status == StatusResolved || status == StatusClosed
}

// Viewer is the resolved caller identity a read operation scopes by.
type Viewer struct {
	UserID   string
	IsITTeam bool
}

// StatusChange is the inbound status-transition payload. Any status in
// the closed enum is accepted from any current status; ordering rules
// live with the callers.
type StatusChange struct {
	Status     string `json:"status"`
	Notes      string `json:"notes"`
	UpdatedBy  string `json:"updatedBy"`
	IsInternal bool   `json:"isInternal"`
}

// Service orchestrates the request lifecycle: create, read scopes,
// statistics and status transitions with their audit comment.
type Service struct {
	cfg      *config.AppConfig
	store    store.RequestsStore
	notifier *notify.Notifier
	logger   *utils.Logger
}

func NewService(cfg *config.AppConfig, rs store.RequestsStore, notifier *notify.Notifier, logger *utils.Logger) *Service {
	return &Service{cfg: cfg, store: rs, notifier: notifier, logger: logger}
}

// Create validates and persists a new report, then fires the webhook
// notification. The notification is best-effort: its failure is logged
// inside the notifier and never changes the reported outcome.
func (s *Service) Create(ctx context.Context, sub Submission) (*store.Request, error) {
	req, err := NormalizeSubmission(sub)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateRequest(ctx, req); err != nil {
		if s.logger != nil {
			s.logger.Errorf("create request %s: %v", req.ID, err)
		}
		return nil, &PersistenceError{Op: "create request", Err: err}
	}
	if s.notifier != nil {
		s.notifier.NotifyNewRequest(ctx, req)
	}
	return req, nil
}

// List returns requests with aggregated comments, newest first. A
// non-IT viewer only sees requests they own; IT-team sees everything.
func (s *Service) List(ctx context.Context, viewer Viewer) ([]store.Request, error) {
	filter := store.RequestFilter{}
	if !viewer.IsITTeam {
		filter.OwnerID = viewer.UserID
	}
	items, err := s.store.ListWithComments(ctx, filter)
	if err != nil {
		if s.logger != nil {
			s.logger.Errorf("list requests: %v", err)
		}
		return nil, &PersistenceError{Op: "list requests", Err: err}
	}
	if items == nil {
		items = []store.Request{}
	}
	return items, nil
}

func (s *Service) Get(ctx context.Context, id string) (*store.Request, error) {
	req, err := s.store.GetWithComments(ctx, id)
	if err != nil {
		if s.logger != nil {
			s.logger.Errorf("get request %s: %v", id, err)
		}
		return nil, &PersistenceError{Op: "get request", Err: err}
	}
	if req == nil {
		return nil, ErrNotFound
	}
	return req, nil
}

func (s *Service) Stats(ctx context.Context) (*Statistics, error) {
	rows, err := s.store.ListStatRows(ctx)
	if err != nil {
		if s.logger != nil {
			s.logger.Errorf("stat rows: %v", err)
		}
		return nil, &PersistenceError{Op: "statistics", Err: err}
	}
	return BuildStatistics(rows, time.Now()), nil
}

// UpdateStatus persists the transition, then appends the audit comment
// when notes were supplied. The comment is only attempted after the
// status write succeeded; a comment failure does not roll the status
// back, it is logged and the update still reports success.
func (s *Service) UpdateStatus(ctx context.Context, id string, change StatusChange) (*store.Request, error) {
	status := strings.ToLower(strings.TrimSpace(change.Status))
	if status == "" {
		return nil, &ValidationError{Missing: []string{"status"}}
	}
	if _, ok := validStatuses[status]; !ok {
		return nil, &ValidationError{Invalid: []string{"status"}}
	}
	var completedAt *time.Time
	if IsTerminalStatus(status) {
		now := time.Now().UTC()
		completedAt = &now
	}
	found, err := s.store.UpdateStatus(ctx, id, status, completedAt)
	if err != nil {
		if s.logger != nil {
			s.logger.Errorf("update status %s: %v", id, err)
		}
		return nil, &PersistenceError{Op: "update status", Err: err}
	}
	if !found {
		return nil, ErrNotFound
	}
	if notes := strings.TrimSpace(change.Notes); notes != "" {
		author := strings.TrimSpace(change.UpdatedBy)
		if author == "" {
			author = s.systemActor()
		}
		comment := &store.Comment{
			ID:         ident.NewCommentID(),
			RequestID:  id,
			AuthorID:   author,
			AuthorName: author,
			Message:    fmt.Sprintf("Status changed to %s. Notes: %s", status, notes),
			IsInternal: change.IsInternal,
		}
		if err := s.store.AddComment(ctx, comment); err != nil && s.logger != nil {
			s.logger.Errorf("audit comment for %s: %v", id, err)
		}
	}
	updated, err := s.store.GetWithComments(ctx, id)
	if err != nil {
		if s.logger != nil {
			s.logger.Errorf("refetch request %s: %v", id, err)
		}
		return nil, &PersistenceError{Op: "refetch request", Err: err}
	}
	if updated == nil {
		return nil, ErrNotFound
	}
	return updated, nil
}

func (s *Service) systemActor() string {
	if s.cfg != nil && strings.TrimSpace(s.cfg.Requests.SystemActor) != "" {
		return s.cfg.Requests.SystemActor
	}
	return "IT Support Team"
}
