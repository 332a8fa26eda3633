package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // migrate driver
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/skillmatch/internal/adapters/repository/migrations"
	"github.com/okian/skillmatch/internal/domain/model"
	"github.com/okian/skillmatch/pkg/metrics"
)

// PostgresStore is a Store backed by PostgreSQL. Tags live in TEXT[] columns
// with GIN indexes so FindByTags can use the && overlap operator.
type PostgresStore struct {
	pool *pgxpool.Pool
	opts options
}

// NewPostgresStore opens a pool for connString and verifies connectivity.
func NewPostgresStore(ctx context.Context, connString string, opts ...Option) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{pool: pool, opts: defaultOptions()}
	for _, opt := range opts {
		opt(&s.opts)
	}
	return s, nil
}

// RunMigrations applies all embedded SQL migrations.
func RunMigrations(connString string) error {
	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, connString)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const skillColumns = `id, owner_id, name, category, proficiency, role, description,
	experience, goals, agenda, tags, created_at, updated_at`

const sessionColumns = `id, host_id, title, description, date, start_time, end_time,
	skill_category, status, is_teaching, max_participants, is_public, teach_skill_id,
	teach_skill_name, sub_topics, meeting_link, focus_keywords, tags, created_at, updated_at`

func scanSkill(row pgx.Row) (*model.Skill, error) {
	var sk model.Skill
	err := row.Scan(
		&sk.ID,
		&sk.OwnerID,
		&sk.Name,
		&sk.Category,
		&sk.Proficiency,
		&sk.Role,
		&sk.Description,
		&sk.Experience,
		&sk.Goals,
		&sk.Agenda,
		&sk.Tags,
		&sk.CreatedAt,
		&sk.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sk, nil
}

func scanSession(row pgx.Row) (*model.Session, error) {
	var ss model.Session
	err := row.Scan(
		&ss.ID,
		&ss.HostID,
		&ss.Title,
		&ss.Description,
		&ss.Date,
		&ss.StartTime,
		&ss.EndTime,
		&ss.SkillCategory,
		&ss.Status,
		&ss.IsTeaching,
		&ss.MaxParticipants,
		&ss.IsPublic,
		&ss.TeachSkillID,
		&ss.TeachSkillName,
		&ss.SubTopics,
		&ss.MeetingLink,
		&ss.FocusKeywords,
		&ss.Tags,
		&ss.CreatedAt,
		&ss.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ss, nil
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

// CreateSkill inserts a skill with a fresh id and empty tags.
func (s *PostgresStore) CreateSkill(ctx context.Context, in *model.Skill) (*model.Skill, error) {
	defer observe("create_skill", time.Now())

	now := s.opts.now()
	query := `
		INSERT INTO skills (id, owner_id, name, category, proficiency, role, description,
			experience, goals, agenda, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, '{}', $11, $11)
		RETURNING ` + skillColumns

	sk, err := scanSkill(s.pool.QueryRow(ctx, query,
		s.opts.newID(),
		in.OwnerID,
		in.Name,
		in.Category,
		in.Proficiency,
		string(in.Role),
		in.Description,
		in.Experience,
		in.Goals,
		nonNil(in.Agenda),
		now,
	))
	if err != nil {
		return nil, fmt.Errorf("create skill: %w", err)
	}
	return sk, nil
}

// GetSkill loads a skill by id.
func (s *PostgresStore) GetSkill(ctx context.Context, id string) (*model.Skill, error) {
	defer observe("get_skill", time.Now())

	sk, err := scanSkill(s.pool.QueryRow(ctx, `SELECT `+skillColumns+` FROM skills WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("skill %s: %w", id, err)
	}
	return sk, nil
}

// UpdateSkill rewrites editable columns; owner_id, tags and created_at are kept.
func (s *PostgresStore) UpdateSkill(ctx context.Context, in *model.Skill) (*model.Skill, error) {
	defer observe("update_skill", time.Now())

	query := `
		UPDATE skills
		SET name = $2, category = $3, proficiency = $4, role = $5, description = $6,
			experience = $7, goals = $8, agenda = $9, updated_at = $10
		WHERE id = $1
		RETURNING ` + skillColumns

	sk, err := scanSkill(s.pool.QueryRow(ctx, query,
		in.ID,
		in.Name,
		in.Category,
		in.Proficiency,
		string(in.Role),
		in.Description,
		in.Experience,
		in.Goals,
		nonNil(in.Agenda),
		s.opts.now(),
	))
	if err != nil {
		return nil, fmt.Errorf("skill %s: %w", in.ID, err)
	}
	return sk, nil
}

// DeleteSkill removes a skill.
func (s *PostgresStore) DeleteSkill(ctx context.Context, id string) error {
	defer observe("delete_skill", time.Now())

	tag, err := s.pool.Exec(ctx, `DELETE FROM skills WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete skill %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("skill %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListSkillsByOwner returns the owner's skills, optionally filtered by role.
func (s *PostgresStore) ListSkillsByOwner(ctx context.Context, ownerID string, role model.Role) ([]*model.Skill, error) {
	defer observe("list_skills", time.Now())

	rows, err := s.pool.Query(ctx, `
		SELECT `+skillColumns+` FROM skills
		WHERE owner_id = $1 AND ($2::text = '' OR role = $2::text)
		ORDER BY created_at, id`, ownerID, string(role))
	if err != nil {
		return nil, fmt.Errorf("list skills: %w", err)
	}
	defer rows.Close()

	out := make([]*model.Skill, 0)
	for rows.Next() {
		sk, err := scanSkill(rows)
		if err != nil {
			return nil, fmt.Errorf("list skills: %w", err)
		}
		out = append(out, sk)
	}
	return out, rows.Err()
}

// CreateSession inserts a session with a fresh id and empty tags.
func (s *PostgresStore) CreateSession(ctx context.Context, in *model.Session) (*model.Session, error) {
	defer observe("create_session", time.Now())

	status := in.Status
	if status == "" {
		status = model.StatusUpcoming
	}
	query := `
		INSERT INTO sessions (id, host_id, title, description, date, start_time, end_time,
			skill_category, status, is_teaching, max_participants, is_public, teach_skill_id,
			teach_skill_name, sub_topics, meeting_link, focus_keywords, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, '{}', $18, $18)
		RETURNING ` + sessionColumns

	ss, err := scanSession(s.pool.QueryRow(ctx, query,
		s.opts.newID(),
		in.HostID,
		in.Title,
		in.Description,
		in.Date,
		in.StartTime,
		in.EndTime,
		in.SkillCategory,
		string(status),
		in.IsTeaching,
		in.MaxParticipants,
		in.IsPublic,
		in.TeachSkillID,
		in.TeachSkillName,
		nonNil(in.SubTopics),
		in.MeetingLink,
		nonNil(in.FocusKeywords),
		s.opts.now(),
	))
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return ss, nil
}

// GetSession loads a session by id.
func (s *PostgresStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	defer observe("get_session", time.Now())

	ss, err := scanSession(s.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	return ss, nil
}

// UpdateSession rewrites editable columns; host_id, tags and created_at are kept.
func (s *PostgresStore) UpdateSession(ctx context.Context, in *model.Session) (*model.Session, error) {
	defer observe("update_session", time.Now())

	query := `
		UPDATE sessions
		SET title = $2, description = $3, date = $4, start_time = $5, end_time = $6,
			skill_category = $7, status = COALESCE(NULLIF($8, ''), status), is_teaching = $9,
			max_participants = $10, is_public = $11, teach_skill_id = $12, teach_skill_name = $13,
			sub_topics = $14, meeting_link = $15, focus_keywords = $16, updated_at = $17
		WHERE id = $1
		RETURNING ` + sessionColumns

	ss, err := scanSession(s.pool.QueryRow(ctx, query,
		in.ID,
		in.Title,
		in.Description,
		in.Date,
		in.StartTime,
		in.EndTime,
		in.SkillCategory,
		string(in.Status),
		in.IsTeaching,
		in.MaxParticipants,
		in.IsPublic,
		in.TeachSkillID,
		in.TeachSkillName,
		nonNil(in.SubTopics),
		in.MeetingLink,
		nonNil(in.FocusKeywords),
		s.opts.now(),
	))
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", in.ID, err)
	}
	return ss, nil
}

// DeleteSession removes a session.
func (s *PostgresStore) DeleteSession(ctx context.Context, id string) error {
	defer observe("delete_session", time.Now())

	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListSessionsByOwner returns the sessions hosted by hostID.
func (s *PostgresStore) ListSessionsByOwner(ctx context.Context, hostID string) ([]*model.Session, error) {
	defer observe("list_sessions", time.Now())

	rows, err := s.pool.Query(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE host_id = $1
		ORDER BY created_at, id`, hostID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	out := make([]*model.Session, 0)
	for rows.Next() {
		ss, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		out = append(out, ss)
	}
	return out, rows.Err()
}

// FindSessions counts the matches, then reads one page of them.
func (s *PostgresStore) FindSessions(ctx context.Context, f SessionFilter) ([]*model.Session, int, error) {
	defer observe("find_sessions", time.Now())

	where, args := sessionWhere(f)

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM sessions`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}

	order := ` ORDER BY created_at DESC, id DESC`
	if f.Order == OrderSchedule {
		order = ` ORDER BY date, start_time, created_at, id`
	}
	query := `SELECT ` + sessionColumns + ` FROM sessions` + where + order
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("find sessions: %w", err)
	}
	defer rows.Close()

	out := make([]*model.Session, 0)
	for rows.Next() {
		ss, err := scanSession(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("find sessions: %w", err)
		}
		out = append(out, ss)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("find sessions: %w", err)
	}
	return out, total, nil
}

func sessionWhere(f SessionFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.PublicOnly {
		conds = append(conds, "is_public")
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if text := strings.TrimSpace(f.Text); text != "" {
		args = append(args, "%"+likeEscaper.Replace(text)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR skill_category ILIKE $%d OR description ILIKE $%d)", n, n, n))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// likeEscaper neutralises LIKE wildcards in user text.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func tableFor(kind model.Kind) (string, error) {
	switch kind {
	case model.KindSkill:
		return "skills", nil
	case model.KindSession:
		return "sessions", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// UpdateTags replaces the tag array of one entity.
func (s *PostgresStore) UpdateTags(ctx context.Context, kind model.Kind, id string, tags []string) error {
	defer observe("update_tags", time.Now())

	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `UPDATE `+table+` SET tags = $2 WHERE id = $1`, id, nonNil(tags))
	if err != nil {
		return fmt.Errorf("update tags %s %s: %w", kind, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}

// FindByTags uses the GIN-indexed && operator as the any-of prefilter.
func (s *PostgresStore) FindByTags(ctx context.Context, q TagQuery) ([]model.Taggable, error) {
	defer observe("find_by_tags", time.Now())

	out := make([]model.Taggable, 0)
	if len(q.AnyOf) == 0 {
		return out, nil
	}

	switch q.Kind {
	case model.KindSkill:
		rows, err := s.pool.Query(ctx, `
			SELECT `+skillColumns+` FROM skills
			WHERE tags && $1 AND owner_id <> $2 AND ($3::text = '' OR role = $3::text)
			ORDER BY created_at, id`, q.AnyOf, q.ExcludeOwner, string(q.Role))
		if err != nil {
			return nil, fmt.Errorf("find skills by tags: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			sk, err := scanSkill(rows)
			if err != nil {
				return nil, fmt.Errorf("find skills by tags: %w", err)
			}
			out = append(out, sk)
		}
		return out, rows.Err()

	case model.KindSession:
		rows, err := s.pool.Query(ctx, `
			SELECT `+sessionColumns+` FROM sessions
			WHERE tags && $1 AND host_id <> $2
			ORDER BY created_at, id`, q.AnyOf, q.ExcludeOwner)
		if err != nil {
			return nil, fmt.Errorf("find sessions by tags: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			ss, err := scanSession(rows)
			if err != nil {
				return nil, fmt.Errorf("find sessions by tags: %w", err)
			}
			out = append(out, ss)
		}
		return out, rows.Err()
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, q.Kind)
}

// Count returns the number of rows of kind.
func (s *PostgresStore) Count(ctx context.Context, kind model.Kind) (int, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM `+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	metrics.UpdateStoreEntities(string(kind), n)
	return n, nil
}

var _ Store = (*PostgresStore)(nil)
