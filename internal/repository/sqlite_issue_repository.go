package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/feedx-service/internal/domain"
)

const sqliteIssueColumns = `id, issue_id, user_id, type, category, specify_category, description, sent_to,
        faculty_name, anonymous, proof_files, status, escalated, escalated_to, escalation_reason,
        escalated_at, resolution_message, resolved_at, created_at, updated_at`

type sqliteIssueRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteIssueRepository returns an implementation over the embedded store.
func NewSQLiteIssueRepository(db *sql.DB) IssueRepository {
	return &sqliteIssueRepository{db: db, now: time.Now}
}

func (r *sqliteIssueRepository) Create(ctx context.Context, issue *domain.Issue) error {
	proofFiles, err := encodeProofFiles(issue.ProofFiles)
	if err != nil {
		return err
	}
	id := uuid.NewString()
	now := r.now().UTC()

	var status string
	err = r.db.QueryRowContext(ctx,
		`INSERT INTO issues (id, issue_id, user_id, type, category, specify_category, description,
                             sent_to, faculty_name, anonymous, proof_files, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         RETURNING status`,
		id, issue.IssueID, issue.UserID, string(issue.Type), issue.Category, issue.SpecifyCategory,
		issue.Description, issue.SentTo, issue.FacultyName, issue.Anonymous, proofFiles,
		now.UnixNano(), now.UnixNano(),
	).Scan(&status)
	if err != nil {
		return fmt.Errorf("creating issue: %w", err)
	}

	issue.ID = id
	issue.Status = domain.IssueStatus(status)
	issue.Escalated = false
	issue.CreatedAt = now
	issue.UpdatedAt = now
	return nil
}

func (r *sqliteIssueRepository) GetByID(ctx context.Context, id string) (*domain.Issue, error) {
	issue, err := scanSQLiteIssue(r.db.QueryRowContext(ctx,
		`SELECT `+sqliteIssueColumns+` FROM issues WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting issue: %w", err)
	}
	return issue, nil
}

func (r *sqliteIssueRepository) ListByUser(ctx context.Context, userID string, statuses []domain.IssueStatus) ([]domain.Issue, error) {
	return r.List(ctx, IssueFilter{UserID: &userID, Statuses: statuses, Order: OrderCreatedDesc})
}

func (r *sqliteIssueRepository) List(ctx context.Context, filter IssueFilter) ([]domain.Issue, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.UserID != nil {
		clauses = append(clauses, "user_id = ?")
		args = append(args, *filter.UserID)
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Escalated != nil {
		clauses = append(clauses, "escalated = ?")
		args = append(args, *filter.Escalated)
	}
	if filter.Type != nil {
		clauses = append(clauses, "type = ?")
		args = append(args, string(*filter.Type))
	}

	order := "created_at DESC"
	if filter.Order == OrderResolvedDesc {
		order = "resolved_at IS NULL, resolved_at DESC, created_at DESC"
	}
	query := fmt.Sprintf(`SELECT %s FROM issues WHERE %s ORDER BY %s`,
		sqliteIssueColumns, strings.Join(clauses, " AND "), order)
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, max(filter.Offset, 0))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing issues: %w", err)
	}
	defer rows.Close()

	var issues []domain.Issue
	for rows.Next() {
		issue, err := scanSQLiteIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning issue: %w", err)
		}
		issues = append(issues, *issue)
	}
	return issues, rows.Err()
}

func (r *sqliteIssueRepository) Escalate(ctx context.Context, id string, record EscalationRecord) error {
	at := record.At.UTC().UnixNano()
	args := append([]any{nullIfBlank(record.EscalatedTo), record.Reason, at, at, id}, activeStatusArgs()...)
	result, err := r.db.ExecContext(ctx,
		`UPDATE issues SET escalated = 1, escalated_to = ?, escalation_reason = ?, escalated_at = ?, updated_at = ?
         WHERE id = ? AND escalated = 0 AND status IN (?, ?, ?)`, args...)
	if err != nil {
		return fmt.Errorf("escalating issue: %w", err)
	}
	return r.checkAffected(ctx, result, id)
}

func (r *sqliteIssueRepository) UpdateStatus(ctx context.Context, id string, change StatusChange) error {
	var resolvedAt *int64
	if change.ResolvedAt != nil {
		n := change.ResolvedAt.UTC().UnixNano()
		resolvedAt = &n
	}
	result, err := r.db.ExecContext(ctx,
		`UPDATE issues SET status = ?, resolution_message = COALESCE(?, resolution_message),
             resolved_at = COALESCE(?, resolved_at), updated_at = ?
         WHERE id = ? AND status = ?`,
		string(change.To), change.Message, resolvedAt, change.At.UTC().UnixNano(), id, string(change.From))
	if err != nil {
		return fmt.Errorf("updating issue status: %w", err)
	}
	return r.checkAffected(ctx, result, id)
}

func (r *sqliteIssueRepository) checkAffected(ctx context.Context, result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	var exists int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM issues WHERE id = ?`, id).Scan(&exists); err != nil {
		return fmt.Errorf("checking issue: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}
	return ErrConflict
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteIssue(row rowScanner) (*domain.Issue, error) {
	var (
		issue                                    domain.Issue
		issueID, escalatedTo, reason, resolution sql.NullString
		proofFiles                               sql.NullString
		escalatedAt, resolvedAt                  sql.NullInt64
		createdAt, updatedAt                     int64
		issueType, status                        string
	)
	if err := row.Scan(
		&issue.ID,
		&issueID,
		&issue.UserID,
		&issueType,
		&issue.Category,
		&issue.SpecifyCategory,
		&issue.Description,
		&issue.SentTo,
		&issue.FacultyName,
		&issue.Anonymous,
		&proofFiles,
		&status,
		&issue.Escalated,
		&escalatedTo,
		&reason,
		&escalatedAt,
		&resolution,
		&resolvedAt,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	issue.Type = domain.IssueType(issueType)
	issue.Status = domain.IssueStatus(status)
	issue.IssueID = stringPtr(issueID)
	issue.EscalatedTo = stringPtr(escalatedTo)
	issue.EscalationReason = stringPtr(reason)
	issue.ResolutionMessage = stringPtr(resolution)
	issue.EscalatedAt = timePtr(escalatedAt)
	issue.ResolvedAt = timePtr(resolvedAt)
	issue.CreatedAt = time.Unix(0, createdAt).UTC()
	issue.UpdatedAt = time.Unix(0, updatedAt).UTC()

	if proofFiles.Valid {
		if err := json.Unmarshal([]byte(proofFiles.String), &issue.ProofFiles); err != nil {
			return nil, fmt.Errorf("decoding proof files: %w", err)
		}
	}
	return &issue, nil
}

func encodeProofFiles(files []string) (*string, error) {
	if len(files) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(files)
	if err != nil {
		return nil, fmt.Errorf("encoding proof files: %w", err)
	}
	s := string(data)
	return &s, nil
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func timePtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.Unix(0, n.Int64).UTC()
	return &t
}
