package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/incident-service/internal/domain"
)

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a one-shot field has already been set.
	ErrConflict = errors.New("record already in requested state")
)

// IncidentFilter narrows List. Nil fields do not filter.
type IncidentFilter struct {
	NameContains *string
	Category     *string
}

// IncidentRepository encapsulates incident persistence. Every mutating call is
// atomic for a single record.
type IncidentRepository interface {
	Create(ctx context.Context, incident *domain.Incident) error
	GetByID(ctx context.Context, id string) (*domain.Incident, error)
	// List returns matching incidents in insertion order.
	List(ctx context.Context, filter IncidentFilter) ([]domain.Incident, error)
	// SetMilestone records m at the given instant (never earlier than SubmittedAt)
	// only if it is unset; ErrConflict otherwise.
	SetMilestone(ctx context.Context, id string, m domain.Milestone, at time.Time) (*domain.Incident, error)
	// MarkBreached flips the breach flag once. It reports false when the flag was already set.
	MarkBreached(ctx context.Context, id string, at time.Time) (bool, error)
}

type incidentRepository struct {
	pool *pgxpool.Pool
}

// NewIncidentRepository returns a Postgres-backed implementation.
func NewIncidentRepository(pool *pgxpool.Pool) IncidentRepository {
	return &incidentRepository{pool: pool}
}

const incidentColumns = `id, reporter_name, reporter_email, description, category, entities,
               priority, submitted_at, acknowledged_at, resolved_at, is_sla_breached, breached_at`

func (r *incidentRepository) Create(ctx context.Context, incident *domain.Incident) error {
	entities, err := json.Marshal(nonNilEntities(incident.Entities))
	if err != nil {
		return fmt.Errorf("encode entities: %w", err)
	}
	const query = `
        INSERT INTO incidents (reporter_name, reporter_email, description, category, entities, priority, submitted_at)
        VALUES ($1,$2,$3,$4,$5::jsonb,$6,$7)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		incident.ReporterName,
		incident.ReporterEmail,
		incident.Description,
		incident.Category,
		string(entities),
		incident.Priority,
		incident.SubmittedAt,
	).Scan(&incident.ID)
}

func (r *incidentRepository) GetByID(ctx context.Context, id string) (*domain.Incident, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id=$1`
	incident, err := scanIncident(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return incident, err
}

func (r *incidentRepository) List(ctx context.Context, filter IncidentFilter) ([]domain.Incident, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.NameContains != nil && *filter.NameContains != "" {
		args = append(args, *filter.NameContains)
		clauses = append(clauses, fmt.Sprintf("POSITION(LOWER($%d) IN LOWER(reporter_name)) > 0", len(args)))
	}
	if filter.Category != nil && *filter.Category != "" {
		args = append(args, *filter.Category)
		clauses = append(clauses, fmt.Sprintf("category=$%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM incidents WHERE %s ORDER BY seq ASC`,
		incidentColumns, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Incident{}
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *incident)
	}
	return result, rows.Err()
}

func (r *incidentRepository) SetMilestone(ctx context.Context, id string, m domain.Milestone, at time.Time) (*domain.Incident, error) {
	column, err := milestoneColumn(m)
	if err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	// The IS NULL guard makes the check-then-set a single atomic statement.
	query := fmt.Sprintf(`
        UPDATE incidents SET %[1]s = GREATEST($2::timestamptz, submitted_at)
        WHERE id=$1 AND %[1]s IS NULL
        RETURNING %[2]s`, column, incidentColumns)

	incident, err := scanIncident(r.pool.QueryRow(ctx, query, id, at))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.missingOrConflict(ctx, id)
	}
	return incident, err
}

func (r *incidentRepository) MarkBreached(ctx context.Context, id string, at time.Time) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, ErrNotFound
	}
	const query = `
        UPDATE incidents SET is_sla_breached=TRUE, breached_at=$2
        WHERE id=$1 AND is_sla_breached=FALSE`
	cmd, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return false, err
	}
	if cmd.RowsAffected() == 1 {
		return true, nil
	}
	if err := r.missingOrConflict(ctx, id); errors.Is(err, ErrNotFound) {
		return false, err
	}
	return false, nil
}

func (r *incidentRepository) missingOrConflict(ctx context.Context, id string) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM incidents WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrConflict
}

func milestoneColumn(m domain.Milestone) (string, error) {
	switch m {
	case domain.MilestoneAcknowledged:
		return "acknowledged_at", nil
	case domain.MilestoneResolved:
		return "resolved_at", nil
	}
	return "", fmt.Errorf("unknown milestone %q", m)
}

func scanIncident(row pgx.Row) (*domain.Incident, error) {
	var (
		incident domain.Incident
		entities []byte
	)
	if err := row.Scan(
		&incident.ID,
		&incident.ReporterName,
		&incident.ReporterEmail,
		&incident.Description,
		&incident.Category,
		&entities,
		&incident.Priority,
		&incident.SubmittedAt,
		&incident.AcknowledgedAt,
		&incident.ResolvedAt,
		&incident.IsSLABreached,
		&incident.BreachedAt,
	); err != nil {
		return nil, err
	}
	if len(entities) > 0 {
		if err := json.Unmarshal(entities, &incident.Entities); err != nil {
			return nil, fmt.Errorf("decode entities for %s: %w", incident.ID, err)
		}
	}
	incident.SubmittedAt = incident.SubmittedAt.UTC()
	incident.AcknowledgedAt = utcPtr(incident.AcknowledgedAt)
	incident.ResolvedAt = utcPtr(incident.ResolvedAt)
	incident.BreachedAt = utcPtr(incident.BreachedAt)
	return &incident, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func nonNilEntities(entities []domain.Entity) []domain.Entity {
	if entities == nil {
		return []domain.Entity{}
	}
	return entities
}
