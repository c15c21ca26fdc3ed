package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"cogcore/internal/pipeline"
)

// NewInMemorySource returns a map-backed Source for tests and local runs.
func NewInMemorySource() *InMemorySource {
	return &InMemorySource{
		conversations: map[string][]pipeline.ConversationTurn{},
		summaries:     map[string]string{},
		preferences:   map[string]pipeline.Preferences{},
		persons:       map[string][]pipeline.Person{},
		tasks:         map[string][]pipeline.Task{},
		goals:         map[string][]pipeline.Goal{},
		insights:      map[string][]pipeline.Insight{},
		episodes:      map[string][]pipeline.Episode{},
	}
}

// InMemorySource is a sync.RWMutex-guarded Source implementation. Tests seed
// it directly through the Seed* helpers rather than through a fake wire
// protocol.
type InMemorySource struct {
	mu            sync.RWMutex
	conversations map[string][]pipeline.ConversationTurn // keyed by org|room
	summaries     map[string]string                      // keyed by org|room|user
	preferences   map[string]pipeline.Preferences        // keyed by org|user
	persons       map[string][]pipeline.Person           // keyed by org
	tasks         map[string][]pipeline.Task             // keyed by org|user
	goals         map[string][]pipeline.Goal             // keyed by org|user
	insights      map[string][]pipeline.Insight          // keyed by org|user
	episodes      map[string][]pipeline.Episode          // keyed by org|user
}

func roomKey(orgID, roomID string) string    { return orgID + "|" + roomID }
func userKey(orgID, userID string) string    { return orgID + "|" + userID }
func roomUserKey(orgID, roomID, userID string) string { return orgID + "|" + roomID + "|" + userID }

func (s *InMemorySource) SeedConversation(orgID, roomID string, turns ...pipeline.ConversationTurn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[roomKey(orgID, roomID)] = append(s.conversations[roomKey(orgID, roomID)], turns...)
}

func (s *InMemorySource) SeedSummary(orgID, roomID, userID, summary string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[roomUserKey(orgID, roomID, userID)] = summary
}

func (s *InMemorySource) SeedPreferences(orgID, userID string, prefs pipeline.Preferences) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preferences[userKey(orgID, userID)] = prefs
}

func (s *InMemorySource) SeedPersons(orgID string, persons ...pipeline.Person) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persons[orgID] = append(s.persons[orgID], persons...)
}

func (s *InMemorySource) SeedTasks(orgID, userID string, tasks ...pipeline.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[userKey(orgID, userID)] = append(s.tasks[userKey(orgID, userID)], tasks...)
}

func (s *InMemorySource) SeedGoals(orgID, userID string, goals ...pipeline.Goal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals[userKey(orgID, userID)] = append(s.goals[userKey(orgID, userID)], goals...)
}

func (s *InMemorySource) SeedInsights(orgID, userID string, insights ...pipeline.Insight) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insights[userKey(orgID, userID)] = append(s.insights[userKey(orgID, userID)], insights...)
}

func (s *InMemorySource) GetRecentConversation(_ context.Context, orgID, roomID, userID string, limit int) ([]pipeline.ConversationTurn, error) {
	if err := requireOrgID(orgID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := s.conversations[roomKey(orgID, roomID)]
	if limit <= 0 || limit >= len(turns) {
		out := make([]pipeline.ConversationTurn, len(turns))
		copy(out, turns)
		return out, nil
	}
	out := make([]pipeline.ConversationTurn, limit)
	copy(out, turns[len(turns)-limit:])
	return out, nil
}

func (s *InMemorySource) GetConversationSummary(_ context.Context, orgID, roomID, userID string) (string, error) {
	if err := requireOrgID(orgID); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summaries[roomUserKey(orgID, roomID, userID)], nil
}

func (s *InMemorySource) GetUserPreferences(_ context.Context, orgID, userID string) (pipeline.Preferences, error) {
	if err := requireOrgID(orgID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	prefs := s.preferences[userKey(orgID, userID)]
	out := pipeline.Preferences{}
	for k, v := range prefs {
		out[k] = v
	}
	return out, nil
}

func (s *InMemorySource) GetPersonInfo(_ context.Context, orgID string) ([]pipeline.Person, error) {
	if err := requireOrgID(orgID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]pipeline.Person, len(s.persons[orgID]))
	copy(out, s.persons[orgID])
	return out, nil
}

func (s *InMemorySource) GetRecentTasks(_ context.Context, orgID, userID string, limit int) ([]pipeline.Task, error) {
	if err := requireOrgID(orgID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.tasks[userKey(orgID, userID)]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	out := make([]pipeline.Task, len(all))
	copy(out, all)
	return out, nil
}

func (s *InMemorySource) GetActiveGoals(_ context.Context, orgID, userID string) ([]pipeline.Goal, error) {
	if err := requireOrgID(orgID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []pipeline.Goal
	for _, g := range s.goals[userKey(orgID, userID)] {
		if g.Active {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *InMemorySource) GetRecentInsights(_ context.Context, orgID, userID string, limit int) ([]pipeline.Insight, error) {
	if err := requireOrgID(orgID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := append([]pipeline.Insight(nil), s.insights[userKey(orgID, userID)]...)
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (s *InMemorySource) GetRecentEpisodes(_ context.Context, orgID, userID string, limit int) ([]pipeline.Episode, error) {
	if err := requireOrgID(orgID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := append([]pipeline.Episode(nil), s.episodes[userKey(orgID, userID)]...)
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (s *InMemorySource) AppendEpisode(_ context.Context, ep pipeline.Episode) error {
	if err := requireOrgID(ep.OrgID); err != nil {
		return err
	}
	if ep.EpisodeID == "" {
		ep.EpisodeID = uuid.NewString()
	}
	if ep.CreatedAt.IsZero() {
		ep.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := userKey(ep.OrgID, ep.UserID)
	s.episodes[key] = append(s.episodes[key], ep)
	return nil
}

func (s *InMemorySource) CreateTask(_ context.Context, t pipeline.Task) (pipeline.Task, error) {
	if t.TaskID == "" {
		t.TaskID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := userKey(t.OrgID, t.AssignedTo)
	s.tasks[key] = append(s.tasks[key], t)
	return t, nil
}

func (s *InMemorySource) CreateGoal(_ context.Context, userID string, g pipeline.Goal) (pipeline.Goal, error) {
	if g.GoalID == "" {
		g.GoalID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := userKey(g.OrgID, userID)
	s.goals[key] = append(s.goals[key], g)
	return g, nil
}

func (s *InMemorySource) SetPreference(_ context.Context, orgID, userID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	uk := userKey(orgID, userID)
	prefs := s.preferences[uk]
	if prefs == nil {
		prefs = pipeline.Preferences{}
	}
	prefs[key] = value
	s.preferences[uk] = prefs
	return nil
}
