package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/estateops/agentledger/internal/apperrors"
	"github.com/estateops/agentledger/internal/core/domain"
	portsrepo "github.com/estateops/agentledger/internal/core/ports/repositories"
)

// SourceEventStore is an in-memory stand-in for the external payments
// collaborator. Tests and local runs seed it with events.
type SourceEventStore struct {
	mu        sync.RWMutex
	events    map[string]domain.SourceEvent // by event id
	companies map[string][]string           // company id -> recipient ids
}

// NewSourceEventStore creates an empty event store.
func NewSourceEventStore() *SourceEventStore {
	return &SourceEventStore{
		events:    make(map[string]domain.SourceEvent),
		companies: make(map[string][]string),
	}
}

var _ portsrepo.SourceEventRepository = (*SourceEventStore)(nil)

// Put seeds or replaces an event, registering its recipients under a company.
func (s *SourceEventStore) Put(companyID string, event domain.SourceEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events[event.ID] = event

	recipients := map[string]bool{event.RecipientID: true}
	if split := event.Commission.Split; split != nil {
		if split.OwnerID != "" {
			recipients[split.OwnerID] = true
		}
		if split.CollaboratorID != "" {
			recipients[split.CollaboratorID] = true
		}
	}
	for recipient := range recipients {
		if recipient == "" {
			continue
		}
		known := false
		for _, id := range s.companies[companyID] {
			if id == recipient {
				known = true
				break
			}
		}
		if !known {
			s.companies[companyID] = append(s.companies[companyID], recipient)
		}
	}
}

func (s *SourceEventStore) FindByID(_ context.Context, eventID string) (*domain.SourceEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event, ok := s.events[eventID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &event, nil
}

func (s *SourceEventStore) FindByRecipientID(_ context.Context, recipientID string) ([]domain.SourceEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := []domain.SourceEvent{}
	for _, event := range s.events {
		if event.RecipientID == recipientID {
			events = append(events, event)
			continue
		}
		if split := event.Commission.Split; split != nil {
			if split.OwnerID == recipientID || split.CollaboratorID == recipientID {
				events = append(events, event)
			}
		}
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].PaymentDate.Before(events[j].PaymentDate)
	})
	return events, nil
}

func (s *SourceEventStore) ListRecipientIDsByCompany(_ context.Context, companyID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]string, len(s.companies[companyID]))
	copy(result, s.companies[companyID])
	sort.Strings(result)
	return result, nil
}
