package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"
)

// Document is a loosely-typed JSON blob column. Shapes vary per request
// type, so only the fields the core actually reads are ever inspected;
// everything else passes through verbatim.
type Document map[string]any

// DocumentToJSON serializes a document for storage. A nil document
// serializes as an empty object so the stored column is always
// parseable.
func DocumentToJSON(d Document) string {
	if d == nil {
		return "{}"
	}
	b, err := json.Marshal(d)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// ParseDocument is total: blank or unparsable input degrades to an
// empty document instead of failing the read path.
func ParseDocument(raw string) Document {
	if strings.TrimSpace(raw) == "" {
		return Document{}
	}
	var d Document
	if err := json.Unmarshal([]byte(raw), &d); err != nil || d == nil {
		return Document{}
	}
	return d
}

type Request struct {
	ID            string     `json:"id"`
	OwnerID       string     `json:"ownerId"`
	SubmitterInfo Document   `json:"submitterInfo"`
	FormData      Document   `json:"formData"`
	RequestType   string     `json:"requestType"`
	Details       Document   `json:"details"`
	Reason        string     `json:"reason"`
	Status        string     `json:"status"`
	Priority      string     `json:"priority"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	Comments      []Comment  `json:"comments"`
}

type Comment struct {
	ID         string    `json:"id"`
	RequestID  string    `json:"requestId"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Message    string    `json:"message"`
	IsInternal bool      `json:"isInternal"`
	CreatedAt  time.Time `json:"createdAt"`
}

type RequestFilter struct {
	OwnerID string
	Status  string
	Limit   int
}

// StatRow carries the scalar columns the statistics rollup needs.
type StatRow struct {
	Status      string
	RequestType string
	Priority    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

type RequestsStore interface {
	CreateRequest(ctx context.Context, req *Request) error
	ListWithComments(ctx context.Context, filter RequestFilter) ([]Request, error)
	GetWithComments(ctx context.Context, id string) (*Request, error)
	UpdateStatus(ctx context.Context, id, status string, completedAt *time.Time) (bool, error)
	AddComment(ctx context.Context, c *Comment) error
	ListStatRows(ctx context.Context) ([]StatRow, error)
	ListStale(ctx context.Context, olderThan time.Time, limit int) ([]Request, error)
}

type requestsStore struct {
	db *DB
}

func NewRequestsStore(db *DB) RequestsStore {
	return &requestsStore{db: db}
}

func (s *requestsStore) CreateRequest(ctx context.Context, req *Request) error {
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	if req.UpdatedAt.IsZero() {
		req.UpdatedAt = req.CreatedAt
	}
	if strings.TrimSpace(req.Status) == "" {
		req.Status = "open"
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO requests(id, owner_id, submitter_info, form_data, request_type, details, reason, status, priority, completed_at, created_at, updated_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`),
		req.ID, req.OwnerID, DocumentToJSON(req.SubmitterInfo), DocumentToJSON(req.FormData), req.RequestType,
		DocumentToJSON(req.Details), req.Reason, req.Status, req.Priority, nullableTime(req.CompletedAt), req.CreatedAt, req.UpdatedAt)
	return err
}

const requestWithCommentsSelect = `
	SELECT r.id, r.owner_id, r.submitter_info, r.form_data, r.request_type, r.details, r.reason, r.status, r.priority, r.completed_at, r.created_at, r.updated_at,
	       c.id, c.author_id, c.author_name, c.message, c.is_internal, c.created_at
	FROM requests r
	LEFT JOIN comments c ON c.request_id = r.id`

// ListWithComments aggregates each request with its comments in one
// outer-join pass. A request without comments still comes back with an
// empty (never nil) comment slice; the placeholder null row from the
// join is skipped while grouping.
func (s *requestsStore) ListWithComments(ctx context.Context, filter RequestFilter) ([]Request, error) {
	query := requestWithCommentsSelect
	var clauses []string
	var args []any
	if strings.TrimSpace(filter.OwnerID) != "" {
		clauses = append(clauses, "r.owner_id=?")
		args = append(args, filter.OwnerID)
	}
	if strings.TrimSpace(filter.Status) != "" {
		clauses = append(clauses, "r.status=?")
		args = append(args, filter.Status)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY r.created_at DESC, r.id DESC, c.created_at ASC, c.id ASC"
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	requests, err := groupRequestRows(rows)
	if err != nil {
		return nil, err
	}
	if filter.Limit > 0 && len(requests) > filter.Limit {
		requests = requests[:filter.Limit]
	}
	return requests, nil
}

func (s *requestsStore) GetWithComments(ctx context.Context, id string) (*Request, error) {
	query := requestWithCommentsSelect + " WHERE r.id=? ORDER BY c.created_at ASC, c.id ASC"
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(query), id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	requests, err := groupRequestRows(rows)
	if err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		return nil, nil
	}
	return &requests[0], nil
}

// UpdateStatus persists the new status and refreshes updated_at. The
// completed_at stamp is only written once: a later transition keeps the
// first terminal timestamp. Returns false when the id does not exist.
func (s *requestsStore) UpdateStatus(ctx context.Context, id, status string, completedAt *time.Time) (bool, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE requests SET status=?, updated_at=?, completed_at=COALESCE(completed_at, ?)
		WHERE id=?`),
		status, now, nullableTime(completedAt), id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *requestsStore) AddComment(ctx context.Context, c *Comment) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO comments(id, request_id, author_id, author_name, message, is_internal, created_at)
		VALUES(?,?,?,?,?,?,?)`),
		c.ID, c.RequestID, c.AuthorID, c.AuthorName, c.Message, boolToInt(c.IsInternal), c.CreatedAt)
	return err
}

func (s *requestsStore) ListStatRows(ctx context.Context) ([]StatRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, request_type, priority, created_at, updated_at, completed_at FROM requests`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []StatRow
	for rows.Next() {
		var row StatRow
		var completed sql.NullTime
		if err := rows.Scan(&row.Status, &row.RequestType, &row.Priority, &row.CreatedAt, &row.UpdatedAt, &completed); err != nil {
			return nil, err
		}
		if completed.Valid {
			t := completed.Time
			row.CompletedAt = &t
		}
		res = append(res, row)
	}
	return res, rows.Err()
}

// ListStale returns non-terminal requests untouched since the cutoff,
// oldest first. Used by the reminder scheduler only.
func (s *requestsStore) ListStale(ctx context.Context, olderThan time.Time, limit int) ([]Request, error) {
	query := `
		SELECT id, owner_id, submitter_info, form_data, request_type, details, reason, status, priority, completed_at, created_at, updated_at
		FROM requests
		WHERE status IN ('open', 'in-progress') AND updated_at < ?
		ORDER BY updated_at ASC`
	args := []any{olderThan}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Request
	for rows.Next() {
		req, err := scanRequestColumns(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, req)
	}
	return res, rows.Err()
}

func groupRequestRows(rows *sql.Rows) ([]Request, error) {
	var res []Request
	index := map[string]int{}
	for rows.Next() {
		var req Request
		var submitterRaw, formRaw, detailsRaw string
		var completed sql.NullTime
		var cID, cAuthorID, cAuthorName, cMessage sql.NullString
		var cInternal sql.NullInt64
		var cCreated sql.NullTime
		if err := rows.Scan(&req.ID, &req.OwnerID, &submitterRaw, &formRaw, &req.RequestType, &detailsRaw,
			&req.Reason, &req.Status, &req.Priority, &completed, &req.CreatedAt, &req.UpdatedAt,
			&cID, &cAuthorID, &cAuthorName, &cMessage, &cInternal, &cCreated); err != nil {
			return nil, err
		}
		pos, seen := index[req.ID]
		if !seen {
			req.SubmitterInfo = ParseDocument(submitterRaw)
			req.FormData = ParseDocument(formRaw)
			req.Details = ParseDocument(detailsRaw)
			if completed.Valid {
				t := completed.Time
				req.CompletedAt = &t
			}
			req.Comments = []Comment{}
			res = append(res, req)
			pos = len(res) - 1
			index[req.ID] = pos
		}
		if cID.Valid {
			res[pos].Comments = append(res[pos].Comments, Comment{
				ID:         cID.String,
				RequestID:  req.ID,
				AuthorID:   cAuthorID.String,
				AuthorName: cAuthorName.String,
				Message:    cMessage.String,
				IsInternal: cInternal.Valid && cInternal.Int64 == 1,
				CreatedAt:  cCreated.Time,
			})
		}
	}
	return res, rows.Err()
}

func scanRequestColumns(rows *sql.Rows) (Request, error) {
	var req Request
	var submitterRaw, formRaw, detailsRaw string
	var completed sql.NullTime
	if err := rows.Scan(&req.ID, &req.OwnerID, &submitterRaw, &formRaw, &req.RequestType, &detailsRaw,
		&req.Reason, &req.Status, &req.Priority, &completed, &req.CreatedAt, &req.UpdatedAt); err != nil {
		return req, err
	}
	req.SubmitterInfo = ParseDocument(submitterRaw)
	req.FormData = ParseDocument(formRaw)
	req.Details = ParseDocument(detailsRaw)
	if completed.Valid {
		t := completed.Time
		req.CompletedAt = &t
	}
	req.Comments = []Comment{}
	return req, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
