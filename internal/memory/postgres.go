package memory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cogcore/internal/pipeline"
)

// NewPostgresSource returns a Postgres-backed Source over the given pool.
func NewPostgresSource(pool *pgxpool.Pool) Source {
	return &pgSource{pool: pool}
}

type pgSource struct {
	pool *pgxpool.Pool
}

// Init creates the durable tables this source reads and writes. Every table
// carries organization_id as its first indexed column.
func (s *pgSource) Init(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS conversation_turns (
    id UUID PRIMARY KEY,
    organization_id TEXT NOT NULL,
    room_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    sender_name TEXT NOT NULL,
    body TEXT NOT NULL,
    sent_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS conversation_turns_org_room_idx ON conversation_turns(organization_id, room_id, sent_at DESC);

CREATE TABLE IF NOT EXISTS conversation_summaries (
    organization_id TEXT NOT NULL,
    room_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    summary TEXT NOT NULL DEFAULT '',
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (organization_id, room_id, user_id)
);

CREATE TABLE IF NOT EXISTS user_preferences (
    organization_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    key TEXT NOT NULL,
    value TEXT NOT NULL,
    PRIMARY KEY (organization_id, user_id, key)
);

CREATE TABLE IF NOT EXISTS persons (
    id UUID PRIMARY KEY,
    organization_id TEXT NOT NULL,
    name TEXT NOT NULL,
    aliases TEXT[] NOT NULL DEFAULT '{}',
    honorific TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS persons_org_idx ON persons(organization_id);

CREATE TABLE IF NOT EXISTS tasks (
    id UUID PRIMARY KEY,
    organization_id TEXT NOT NULL,
    assigned_to TEXT NOT NULL,
    body TEXT NOT NULL,
    limit_date TIMESTAMPTZ,
    status TEXT NOT NULL DEFAULT 'open',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS tasks_org_assignee_idx ON tasks(organization_id, assigned_to, created_at DESC);

CREATE TABLE IF NOT EXISTS goals (
    id UUID PRIMARY KEY,
    organization_id TEXT NOT NULL,
    owner_id TEXT NOT NULL,
    title TEXT NOT NULL,
    why TEXT NOT NULL DEFAULT '',
    active BOOLEAN NOT NULL DEFAULT TRUE
);
CREATE INDEX IF NOT EXISTS goals_org_owner_idx ON goals(organization_id, owner_id);

CREATE TABLE IF NOT EXISTS insights (
    id UUID PRIMARY KEY,
    organization_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    summary TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS insights_org_user_idx ON insights(organization_id, user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS episodes (
    id UUID PRIMARY KEY,
    organization_id TEXT NOT NULL,
    user_id TEXT NOT NULL DEFAULT '',
    type TEXT NOT NULL,
    summary TEXT NOT NULL,
    entities TEXT[] NOT NULL DEFAULT '{}',
    keywords TEXT[] NOT NULL DEFAULT '{}',
    importance DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS episodes_org_user_idx ON episodes(organization_id, user_id, created_at DESC);
`)
	return err
}

func (s *pgSource) GetRecentConversation(ctx context.Context, orgID, roomID, userID string, limit int) ([]pipeline.ConversationTurn, error) {
	if err := requireOrgID(orgID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultRecentConversationWindow
	}
	rows, err := s.pool.Query(ctx, `
SELECT sender_name, body, sent_at FROM (
    SELECT sender_name, body, sent_at
    FROM conversation_turns
    WHERE organization_id = $1 AND room_id = $2
    ORDER BY sent_at DESC
    LIMIT $3
) sub
ORDER BY sent_at ASC`, orgID, roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pipeline.ConversationTurn
	for rows.Next() {
		var t pipeline.ConversationTurn
		if err := rows.Scan(&t.SenderName, &t.Text, &t.SentAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *pgSource) GetConversationSummary(ctx context.Context, orgID, roomID, userID string) (string, error) {
	if err := requireOrgID(orgID); err != nil {
		return "", err
	}
	row := s.pool.QueryRow(ctx, `
SELECT summary FROM conversation_summaries
WHERE organization_id = $1 AND room_id = $2 AND user_id = $3`, orgID, roomID, userID)
	var summary string
	if err := row.Scan(&summary); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return summary, nil
}

func (s *pgSource) GetUserPreferences(ctx context.Context, orgID, userID string) (pipeline.Preferences, error) {
	if err := requireOrgID(orgID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
SELECT key, value FROM user_preferences
WHERE organization_id = $1 AND user_id = $2`, orgID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prefs := pipeline.Preferences{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		prefs[k] = v
	}
	return prefs, rows.Err()
}

func (s *pgSource) GetPersonInfo(ctx context.Context, orgID string) ([]pipeline.Person, error) {
	if err := requireOrgID(orgID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
SELECT id, name, aliases, honorific FROM persons
WHERE organization_id = $1`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pipeline.Person
	for rows.Next() {
		var p pipeline.Person
		var id uuid.UUID
		if err := rows.Scan(&id, &p.Name, &p.Aliases, &p.Honorific); err != nil {
			return nil, err
		}
		p.PersonID = id.String()
		p.OrgID = orgID
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *pgSource) GetRecentTasks(ctx context.Context, orgID, userID string, limit int) ([]pipeline.Task, error) {
	if err := requireOrgID(orgID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultRecentConversationWindow
	}
	rows, err := s.pool.Query(ctx, `
SELECT id, body, assigned_to, limit_date, status
FROM tasks
WHERE organization_id = $1 AND assigned_to = $2 AND status <> 'done'
ORDER BY created_at DESC
LIMIT $3`, orgID, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pipeline.Task
	for rows.Next() {
		var t pipeline.Task
		var id uuid.UUID
		if err := rows.Scan(&id, &t.Body, &t.AssignedTo, &t.LimitDate, &t.Status); err != nil {
			return nil, err
		}
		t.TaskID = id.String()
		t.OrgID = orgID
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *pgSource) GetActiveGoals(ctx context.Context, orgID, userID string) ([]pipeline.Goal, error) {
	if err := requireOrgID(orgID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
SELECT id, title, why, active
FROM goals
WHERE organization_id = $1 AND owner_id = $2 AND active = TRUE`, orgID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pipeline.Goal
	for rows.Next() {
		var g pipeline.Goal
		var id uuid.UUID
		if err := rows.Scan(&id, &g.Title, &g.Why, &g.Active); err != nil {
			return nil, err
		}
		g.GoalID = id.String()
		g.OrgID = orgID
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *pgSource) GetRecentInsights(ctx context.Context, orgID, userID string, limit int) ([]pipeline.Insight, error) {
	if err := requireOrgID(orgID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultRecentConversationWindow
	}
	rows, err := s.pool.Query(ctx, `
SELECT id, summary, created_at
FROM insights
WHERE organization_id = $1 AND user_id = $2
ORDER BY created_at DESC
LIMIT $3`, orgID, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pipeline.Insight
	for rows.Next() {
		var in pipeline.Insight
		var id uuid.UUID
		if err := rows.Scan(&id, &in.Summary, &in.CreatedAt); err != nil {
			return nil, err
		}
		in.InsightID = id.String()
		in.OrgID = orgID
		out = append(out, in)
	}
	return out, rows.Err()
}

func (s *pgSource) GetRecentEpisodes(ctx context.Context, orgID, userID string, limit int) ([]pipeline.Episode, error) {
	if err := requireOrgID(orgID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultRecentConversationWindow
	}
	rows, err := s.pool.Query(ctx, `
SELECT id, type, summary, entities, keywords, importance, created_at
FROM episodes
WHERE organization_id = $1 AND user_id = $2
ORDER BY created_at DESC
LIMIT $3`, orgID, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pipeline.Episode
	for rows.Next() {
		var ep pipeline.Episode
		var id uuid.UUID
		if err := rows.Scan(&id, &ep.Type, &ep.Summary, &ep.Entities, &ep.Keywords, &ep.Importance, &ep.CreatedAt); err != nil {
			return nil, err
		}
		ep.EpisodeID = id.String()
		ep.OrgID = orgID
		out = append(out, ep)
	}
	return out, rows.Err()
}

func (s *pgSource) AppendEpisode(ctx context.Context, ep pipeline.Episode) error {
	if err := requireOrgID(ep.OrgID); err != nil {
		return err
	}
	id := ep.EpisodeID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := ep.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO episodes (id, organization_id, user_id, type, summary, entities, keywords, importance, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, ep.OrgID, ep.UserID, ep.Type, ep.Summary, ep.Entities, ep.Keywords, ep.Importance, createdAt)
	return err
}

func (s *pgSource) CreateTask(ctx context.Context, t pipeline.Task) (pipeline.Task, error) {
	id := uuid.New()
	_, err := s.pool.Exec(ctx, `
INSERT INTO tasks (id, organization_id, assigned_to, body, limit_date, status)
VALUES ($1, $2, $3, $4, $5, $6)`,
		id, t.OrgID, t.AssignedTo, t.Body, t.LimitDate, t.Status)
	if err != nil {
		return pipeline.Task{}, err
	}
	t.TaskID = id.String()
	return t, nil
}

func (s *pgSource) CreateGoal(ctx context.Context, userID string, g pipeline.Goal) (pipeline.Goal, error) {
	id := uuid.New()
	_, err := s.pool.Exec(ctx, `
INSERT INTO goals (id, organization_id, owner_id, title, why, active)
VALUES ($1, $2, $3, $4, $5, $6)`,
		id, g.OrgID, userID, g.Title, g.Why, g.Active)
	if err != nil {
		return pipeline.Goal{}, err
	}
	g.GoalID = id.String()
	return g, nil
}

func (s *pgSource) SetPreference(ctx context.Context, orgID, userID, key, value string) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO user_preferences (organization_id, user_id, key, value)
VALUES ($1, $2, $3, $4)
ON CONFLICT (organization_id, user_id, key) DO UPDATE SET value = EXCLUDED.value`,
		orgID, userID, key, value)
	return err
}
