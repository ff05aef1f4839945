package recommendation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/azcops/azcops/pkg/models/domain"
	"github.com/azcops/azcops/pkg/store/duckdb"
	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("recommendation not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ListFilter narrows List results. Zero values mean "no constraint".
type ListFilter struct {
	TenantID         string
	SubscriptionDBID string
	Status           domain.RecommendationStatus
	Category         domain.RuleCategory
	Limit            int
}

// Store persists recommendations and enforces their lifecycle. Engine writes
// only ever touch open recommendations; human dispositions are preserved
// across re-runs.
type Store interface {
	UpsertFromEngine(ctx context.Context, subscriptionDBID string, scored domain.ScoredFinding) (domain.UpsertOutcome, error)
	OpenKeys(ctx context.Context, subscriptionDBID string) (map[string]struct{}, error)
	TransitionStatus(ctx context.Context, id string, to domain.RecommendationStatus) (domain.Recommendation, error)
	Get(ctx context.Context, id string) (domain.Recommendation, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Recommendation, error)
}

type recommendationStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &recommendationStore{db: db, now: time.Now}, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *recommendationStore) execer(ctx context.Context) execer {
	if tx := duckdb.GetTransaction(ctx); tx != nil {
		return tx
	}
	return s.db
}

// DedupKey identifies a finding for open-recommendation deduplication.
func DedupKey(ruleID, resourceID string) string {
	return ruleID + "|" + resourceID
}

// UpsertFromEngine writes one scored finding. An existing open recommendation
// for the same (rule, resource) is refreshed in place; a recommendation in any
// other status is left untouched so re-ingestion never reverses a human
// decision.
func (s *recommendationStore) UpsertFromEngine(ctx context.Context, subscriptionDBID string, scored domain.ScoredFinding) (domain.UpsertOutcome, error) {
	ex := s.execer(ctx)
	f := scored.Finding

	var (
		id     string
		status string
	)
	err := ex.QueryRowContext(ctx, `
		SELECT id, status FROM recommendations
		WHERE subscription_db_id = ? AND rule_id = ? AND resource_id = ?
		ORDER BY created_at DESC
		LIMIT 1
	`, subscriptionDBID, f.RuleID, f.ResourceID).Scan(&id, &status)

	now := s.now().UTC()
	switch {
	case err == sql.ErrNoRows:
		_, err = ex.ExecContext(ctx, `
			INSERT INTO recommendations (
				id, tenant_id, subscription_db_id, rule_id, category,
				resource_id, resource_name, resource_type, title, description,
				estimated_monthly_savings, confidence_score, risk_level, effort_level,
				priority_score, status, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), f.TenantID, subscriptionDBID, f.RuleID, string(f.Category),
			f.ResourceID, f.ResourceName, f.ResourceType, f.ShortDescription, f.Detail,
			f.EstimatedMonthlySavings, f.ConfidenceScore, string(f.RiskLevel), string(f.EffortLevel),
			scored.PriorityScore, string(domain.StatusOpen), now, now,
		)
		if err != nil {
			return "", fmt.Errorf("insert recommendation %s/%s: %w", f.RuleID, f.ResourceID, err)
		}
		return domain.UpsertInserted, nil

	case err != nil:
		return "", fmt.Errorf("lookup recommendation %s/%s: %w", f.RuleID, f.ResourceID, err)

	case domain.RecommendationStatus(status) == domain.StatusOpen:
		_, err = ex.ExecContext(ctx, `
			UPDATE recommendations SET
				title = ?, description = ?,
				estimated_monthly_savings = ?, confidence_score = ?,
				risk_level = ?, effort_level = ?, priority_score = ?,
				updated_at = ?
			WHERE id = ?`,
			f.ShortDescription, f.Detail,
			f.EstimatedMonthlySavings, f.ConfidenceScore,
			string(f.RiskLevel), string(f.EffortLevel), scored.PriorityScore,
			now, id,
		)
		if err != nil {
			return "", fmt.Errorf("refresh recommendation %s: %w", id, err)
		}
		return domain.UpsertUpdated, nil

	default:
		return domain.UpsertSkipped, nil
	}
}

func (s *recommendationStore) OpenKeys(ctx context.Context, subscriptionDBID string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rule_id, resource_id FROM recommendations
		WHERE subscription_db_id = ? AND status = ?
	`, subscriptionDBID, string(domain.StatusOpen))
	if err != nil {
		return nil, fmt.Errorf("query open recommendations: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var ruleID, resourceID string
		if err := rows.Scan(&ruleID, &resourceID); err != nil {
			return nil, err
		}
		keys[DedupKey(ruleID, resourceID)] = struct{}{}
	}
	return keys, rows.Err()
}

func (s *recommendationStore) TransitionStatus(ctx context.Context, id string, to domain.RecommendationStatus) (domain.Recommendation, error) {
	ex := s.execer(ctx)

	current, err := s.Get(ctx, id)
	if err != nil {
		return domain.Recommendation{}, err
	}

	if !domain.CanTransition(current.Status, to) {
		return domain.Recommendation{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, to)
	}

	now := s.now().UTC()
	_, err = ex.ExecContext(ctx,
		`UPDATE recommendations SET status = ?, updated_at = ? WHERE id = ?`,
		string(to), now, id)
	if err != nil {
		return domain.Recommendation{}, fmt.Errorf("update status for %s: %w", id, err)
	}

	current.Status = to
	current.UpdatedAt = now
	return current, nil
}

const selectColumns = `
	id, tenant_id, subscription_db_id, rule_id, category,
	resource_id, COALESCE(resource_name, ''), COALESCE(resource_type, ''),
	title, COALESCE(description, ''),
	estimated_monthly_savings, confidence_score, risk_level, effort_level,
	priority_score, status, created_at, updated_at`

func (s *recommendationStore) Get(ctx context.Context, id string) (domain.Recommendation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM recommendations WHERE id = ?`, id)

	rec, err := scanRecommendation(row)
	if err == sql.ErrNoRows {
		return domain.Recommendation{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return domain.Recommendation{}, fmt.Errorf("get recommendation %s: %w", id, err)
	}
	return rec, nil
}

func (s *recommendationStore) List(ctx context.Context, filter ListFilter) ([]domain.Recommendation, error) {
	query := `SELECT ` + selectColumns + ` FROM recommendations WHERE 1=1`
	args := make([]any, 0, 4)

	if filter.TenantID != "" {
		query += " AND tenant_id = ?"
		args = append(args, filter.TenantID)
	}
	if filter.SubscriptionDBID != "" {
		query += " AND subscription_db_id = ?"
		args = append(args, filter.SubscriptionDBID)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.Category != "" {
		query += " AND category = ?"
		args = append(args, string(filter.Category))
	}
	query += " ORDER BY priority_score DESC, created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	defer rows.Close()

	recs := make([]domain.Recommendation, 0)
	for rows.Next() {
		rec, err := scanRecommendation(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecommendation(row rowScanner) (domain.Recommendation, error) {
	var (
		rec                                domain.Recommendation
		category, riskLevel, effort, state string
	)
	err := row.Scan(
		&rec.ID, &rec.TenantID, &rec.SubscriptionDBID, &rec.RuleID, &category,
		&rec.ResourceID, &rec.ResourceName, &rec.ResourceType,
		&rec.Title, &rec.Description,
		&rec.EstimatedMonthlySavings, &rec.ConfidenceScore, &riskLevel, &effort,
		&rec.PriorityScore, &state, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return domain.Recommendation{}, err
	}
	rec.Category = domain.RuleCategory(category)
	rec.RiskLevel = domain.RiskLevel(riskLevel)
	rec.EffortLevel = domain.EffortLevel(effort)
	rec.Status = domain.RecommendationStatus(state)
	return rec, nil
}
