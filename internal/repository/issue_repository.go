package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/feedx-service/internal/domain"
)

const issueColumns = `id, issue_id, user_id, type, category, specify_category, description, sent_to,
               faculty_name, anonymous, proof_files, status, escalated, escalated_to, escalation_reason,
               escalated_at, resolution_message, resolved_at, created_at, updated_at`

type issueRepository struct {
	pool *pgxpool.Pool
}

// NewIssueRepository returns a Postgres-backed implementation.
func NewIssueRepository(pool *pgxpool.Pool) IssueRepository {
	return &issueRepository{pool: pool}
}

func (r *issueRepository) Create(ctx context.Context, issue *domain.Issue) error {
	const query = `
        INSERT INTO issues (issue_id, user_id, type, category, specify_category, description,
                            sent_to, faculty_name, anonymous, proof_files)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, status, escalated, created_at, updated_at`
	var proofFiles []string
	if len(issue.ProofFiles) > 0 {
		proofFiles = issue.ProofFiles
	}
	err := r.pool.QueryRow(ctx, query,
		issue.IssueID,
		issue.UserID,
		issue.Type,
		issue.Category,
		issue.SpecifyCategory,
		issue.Description,
		issue.SentTo,
		issue.FacultyName,
		issue.Anonymous,
		proofFiles,
	).Scan(&issue.ID, &issue.Status, &issue.Escalated, &issue.CreatedAt, &issue.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating issue: %w", err)
	}
	return nil
}

func (r *issueRepository) GetByID(ctx context.Context, id string) (*domain.Issue, error) {
	if !isUUID(id) {
		return nil, ErrNotFound
	}
	query := `SELECT ` + issueColumns + ` FROM issues WHERE id=$1`
	issue, err := scanIssue(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting issue: %w", err)
	}
	return issue, nil
}

func (r *issueRepository) ListByUser(ctx context.Context, userID string, statuses []domain.IssueStatus) ([]domain.Issue, error) {
	return r.List(ctx, IssueFilter{UserID: &userID, Statuses: statuses, Order: OrderCreatedDesc})
}

func (r *issueRepository) List(ctx context.Context, filter IssueFilter) ([]domain.Issue, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		clauses = append(clauses, fmt.Sprintf("user_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Escalated != nil {
		args = append(args, *filter.Escalated)
		clauses = append(clauses, fmt.Sprintf("escalated=$%d", len(args)))
	}
	if filter.Type != nil {
		args = append(args, *filter.Type)
		clauses = append(clauses, fmt.Sprintf("type=$%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM issues WHERE %s ORDER BY %s`,
		issueColumns, strings.Join(clauses, " AND "), orderClause(filter.Order))
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing issues: %w", err)
	}
	defer rows.Close()

	var result []domain.Issue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning issue: %w", err)
		}
		result = append(result, *issue)
	}
	return result, rows.Err()
}

func (r *issueRepository) Escalate(ctx context.Context, id string, record EscalationRecord) error {
	if !isUUID(id) {
		return ErrNotFound
	}
	const query = `
        UPDATE issues SET escalated=TRUE, escalated_to=$2, escalation_reason=$3, escalated_at=$4, updated_at=$4
        WHERE id=$1 AND escalated=FALSE AND status IN ($5,$6,$7)`
	args := append([]any{id, nullIfBlank(record.EscalatedTo), record.Reason, record.At}, activeStatusArgs()...)
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("escalating issue: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return r.missOrConflict(ctx, id)
	}
	return nil
}

func (r *issueRepository) UpdateStatus(ctx context.Context, id string, change StatusChange) error {
	if !isUUID(id) {
		return ErrNotFound
	}
	const query = `
        UPDATE issues SET status=$2, resolution_message=COALESCE($3, resolution_message),
            resolved_at=COALESCE($4, resolved_at), updated_at=$5
        WHERE id=$1 AND status=$6`
	cmd, err := r.pool.Exec(ctx, query, id, change.To, change.Message, change.ResolvedAt, change.At, change.From)
	if err != nil {
		return fmt.Errorf("updating issue status: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return r.missOrConflict(ctx, id)
	}
	return nil
}

func (r *issueRepository) missOrConflict(ctx context.Context, id string) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM issues WHERE id=$1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("checking issue: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrConflict
}

func scanIssue(row pgx.Row) (*domain.Issue, error) {
	var issue domain.Issue
	if err := row.Scan(
		&issue.ID,
		&issue.IssueID,
		&issue.UserID,
		&issue.Type,
		&issue.Category,
		&issue.SpecifyCategory,
		&issue.Description,
		&issue.SentTo,
		&issue.FacultyName,
		&issue.Anonymous,
		&issue.ProofFiles,
		&issue.Status,
		&issue.Escalated,
		&issue.EscalatedTo,
		&issue.EscalationReason,
		&issue.EscalatedAt,
		&issue.ResolutionMessage,
		&issue.ResolvedAt,
		&issue.CreatedAt,
		&issue.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &issue, nil
}

func orderClause(order IssueOrder) string {
	if order == OrderResolvedDesc {
		return "resolved_at DESC NULLS LAST, created_at DESC"
	}
	return "created_at DESC"
}

func nullIfBlank(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// Ids arrive from URL paths; a malformed one would otherwise surface as a
// uuid cast error from Postgres.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
