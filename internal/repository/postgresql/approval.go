package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/approval"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type approvalRepositoryImpl struct {
	db *database.DB
}

func NewApprovalRepository(db *database.DB) approval.ItemRepository {
	return &approvalRepositoryImpl{db: db}
}

const approvalSelect = `
	SELECT a.id, a.company_id, a.kind, a.subject_id, a.employee_id, a.title, a.reason, a.proof_url,
		   a.distance_detected, a.subject_date, a.status, a.decision_note, a.decided_by, a.decided_at,
		   a.created_at, a.updated_at, e.full_name
	FROM approval_items a
	LEFT JOIN employees e ON e.id = a.employee_id
`

func scanApproval(row pgx.Row) (approval.Item, error) {
	var it approval.Item
	err := row.Scan(
		&it.ID,
		&it.CompanyID,
		&it.Kind,
		&it.SubjectID,
		&it.EmployeeID,
		&it.Title,
		&it.Reason,
		&it.ProofURL,
		&it.DistanceDetected,
		&it.SubjectDate,
		&it.Status,
		&it.DecisionNote,
		&it.DecidedBy,
		&it.DecidedAt,
		&it.CreatedAt,
		&it.UpdatedAt,
		&it.EmployeeName,
	)
	return it, err
}

func collectApprovals(rows pgx.Rows) ([]approval.Item, error) {
	defer rows.Close()
	var items []approval.Item
	for rows.Next() {
		it, err := scanApproval(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Create implements approval.ItemRepository.
func (r *approvalRepositoryImpl) Create(ctx context.Context, it approval.Item) (approval.Item, error) {
	q := GetQuerier(ctx, r.db)

	status := it.Status
	if status == "" {
		status = approval.StatusPending
	}

	query := `
		INSERT INTO approval_items (
			company_id, kind, subject_id, employee_id, title, reason, proof_url,
			distance_detected, subject_date, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	var id string
	err := q.QueryRow(ctx, query,
		it.CompanyID,
		it.Kind,
		it.SubjectID,
		it.EmployeeID,
		it.Title,
		it.Reason,
		it.ProofURL,
		it.DistanceDetected,
		it.SubjectDate,
		status,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err, "uk_approval_items_subject") {
			return approval.Item{}, approval.ErrDuplicateSubject
		}
		return approval.Item{}, fmt.Errorf("failed to create approval item: %w", err)
	}

	return r.GetByID(ctx, id, it.CompanyID)
}

func (r *approvalRepositoryImpl) get(ctx context.Context, query, id, companyID string) (approval.Item, error) {
	q := GetQuerier(ctx, r.db)

	it, err := scanApproval(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return approval.Item{}, approval.ErrItemNotFound
		}
		return approval.Item{}, fmt.Errorf("failed to get approval item with id %s: %w", id, err)
	}
	return it, nil
}

// GetByID implements approval.ItemRepository.
func (r *approvalRepositoryImpl) GetByID(ctx context.Context, id string, companyID string) (approval.Item, error) {
	return r.get(ctx, approvalSelect+` WHERE a.id = $1 AND a.company_id = $2`, id, companyID)
}

// GetByIDForUpdate implements approval.ItemRepository. Only the item row is locked.
func (r *approvalRepositoryImpl) GetByIDForUpdate(ctx context.Context, id string, companyID string) (approval.Item, error) {
	return r.get(ctx, approvalSelect+` WHERE a.id = $1 AND a.company_id = $2 FOR UPDATE OF a`, id, companyID)
}

// ExistsForSubject implements approval.ItemRepository.
func (r *approvalRepositoryImpl) ExistsForSubject(ctx context.Context, kind approval.Kind, subjectID string, companyID string) (bool, error) {
	q := GetQuerier(ctx, r.db)

	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM approval_items WHERE company_id = $1 AND kind = $2 AND subject_id = $3)`,
		companyID, kind, subjectID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check approval subject: %w", err)
	}
	return exists, nil
}

// SaveDecision implements approval.ItemRepository.
func (r *approvalRepositoryImpl) SaveDecision(ctx context.Context, it approval.Item) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE approval_items
		SET status = $1, decision_note = $2, decided_by = $3, decided_at = $4, updated_at = $5
		WHERE id = $6 AND company_id = $7 AND status = 'PENDING'
	`

	tag, err := q.Exec(ctx, query,
		it.Status,
		it.DecisionNote,
		it.DecidedBy,
		it.DecidedAt,
		it.UpdatedAt,
		it.ID,
		it.CompanyID,
	)
	if err != nil {
		return fmt.Errorf("failed to save decision for approval item %s: %w", it.ID, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := q.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM approval_items WHERE id = $1 AND company_id = $2)`,
			it.ID, it.CompanyID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check approval item %s: %w", it.ID, err)
		}
		if !exists {
			return approval.ErrItemNotFound
		}
		return approval.ErrAlreadyDecided
	}
	return nil
}

// List implements approval.ItemRepository.
func (r *approvalRepositoryImpl) List(ctx context.Context, filter approval.ItemFilter, companyID string) ([]approval.Item, int64, error) {
	q := GetQuerier(ctx, r.db)

	where := "a.company_id = $1"
	args := []interface{}{companyID}
	if filter.Kind != nil {
		args = append(args, *filter.Kind)
		where += fmt.Sprintf(" AND a.kind = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		where += fmt.Sprintf(" AND a.status = $%d", len(args))
	}
	if filter.EmployeeID != nil {
		args = append(args, *filter.EmployeeID)
		where += fmt.Sprintf(" AND a.employee_id = $%d", len(args))
	}

	var total int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM approval_items a WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count approval items: %w", err)
	}

	query := approvalSelect + " WHERE " + where + " ORDER BY a.created_at DESC, a.id DESC"
	query, args = withPage(query, args, filter.Page, filter.Limit)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list approval items: %w", err)
	}
	items, err := collectApprovals(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListDisputesInPeriod implements approval.ItemRepository.
func (r *approvalRepositoryImpl) ListDisputesInPeriod(ctx context.Context, companyID string, from, to time.Time, statuses []approval.Status) ([]approval.Item, error) {
	q := GetQuerier(ctx, r.db)

	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}

	query := approvalSelect + `
		WHERE a.company_id = $1
		  AND a.kind = 'attendance_dispute'
		  AND a.subject_date BETWEEN $2 AND $3
		  AND a.status = ANY($4)
		ORDER BY a.created_at, a.id
	`

	rows, err := q.Query(ctx, query, companyID, from, to, names)
	if err != nil {
		return nil, fmt.Errorf("failed to list disputes in period: %w", err)
	}
	return collectApprovals(rows)
}
