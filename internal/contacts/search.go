package contacts

import (
	"context"
	"strings"
	"sync"
	"unicode/utf8"

	"obrolan/server/internal/models"
	"obrolan/server/internal/store"
)

const (
	// MinSearchLength is the shortest query that reaches the store.
	MinSearchLength = 2
	// MaxSearchResults caps the number of candidates returned.
	MaxSearchResults = 20
)

// SearchIdentities finds users by name or email and tags each with its
// relation to the viewer. Short queries and store failures return an empty
// slice.
func (m *Manager) SearchIdentities(ctx context.Context, viewerID, query string) []models.ContactWithProfile {
	results := []models.ContactWithProfile{}

	q := strings.TrimSpace(query)
	if viewerID == "" || utf8.RuneCountInString(q) < MinSearchLength {
		return results
	}

	candidates, err := m.profiles.SearchProfiles(ctx, q, viewerID, MaxSearchResults)
	if err != nil {
		m.log.WithField("viewer", viewerID).WithError(err).Warn("profile search failed")
		return results
	}
	if len(candidates) == 0 {
		return results
	}

	edges, err := m.contacts.ListContacts(ctx, store.ContactFilter{Participant: viewerID})
	if err != nil {
		m.log.WithField("viewer", viewerID).WithError(err).Warn("edge lookup for search failed")
		return results
	}
	byCounterpart := make(map[string]*models.Contact, len(edges))
	for i := range edges {
		byCounterpart[edges[i].Counterpart(viewerID)] = &edges[i]
	}

	for i := range candidates {
		p := &candidates[i]
		if p.ID == viewerID {
			continue
		}
		entry := models.ContactWithProfile{
			Status:  models.RelationNone,
			Profile: p.ToResponse(),
		}
		if edge, ok := byCounterpart[p.ID]; ok {
			entry.Status = relationTag(edge, viewerID)
			if entry.Status != models.RelationNone {
				entry.RelationshipID = edge.ID
			}
		}
		results = append(results, entry)
		if len(results) == MaxSearchResults {
			break
		}
	}
	return results
}

// SearchSession serializes the searches of one client. Each new query
// cancels the one in flight, and a result whose query is no longer current
// is discarded.
type SearchSession struct {
	m        *Manager
	viewerID string

	mu     sync.Mutex
	seq    uint64
	term   string
	cancel context.CancelFunc
}

// NewSearchSession creates a SearchSession for viewerID
func (m *Manager) NewSearchSession(viewerID string) *SearchSession {
	return &SearchSession{m: m, viewerID: viewerID}
}

// Search runs query. ok is false when a newer query superseded this one and
// the results must be dropped.
func (s *SearchSession) Search(ctx context.Context, query string) (results []models.ContactWithProfile, ok bool) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.seq++
	seq := s.seq
	s.term = query
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	results = s.m.SearchIdentities(ctx, s.viewerID, query)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq || s.term != query {
		return nil, false
	}
	return results, true
}

// Current returns the latest query term
func (s *SearchSession) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.term
}

// Close cancels the search in flight, if any
func (s *SearchSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.seq++
}
