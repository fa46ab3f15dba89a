package adapters

import (
	"context"
	"sort"
	"sync"

	"github.com/juju/errors"

	"github.com/satriahrh/pronounce/domain/entities"
	"github.com/satriahrh/pronounce/domain/repositories"
)

// MemoryFeedbackRepository is an in-memory implementation of FeedbackRepository
type MemoryFeedbackRepository struct {
	mu      sync.RWMutex
	records map[string]*entities.FeedbackRecord // id -> record
	byUser  map[int64][]*entities.FeedbackRecord // user_id -> records in insertion order
}

var _ repositories.FeedbackRepository = (*MemoryFeedbackRepository)(nil)

// NewMemoryFeedbackRepository creates a new in-memory feedback repository
func NewMemoryFeedbackRepository() *MemoryFeedbackRepository {
	return &MemoryFeedbackRepository{
		records: make(map[string]*entities.FeedbackRecord),
		byUser:  make(map[int64][]*entities.FeedbackRecord),
	}
}

// Save implements FeedbackRepository interface
func (m *MemoryFeedbackRepository) Save(ctx context.Context, record *entities.FeedbackRecord) error {
	if record == nil {
		return errors.NotValidf("nil record")
	}
	if err := record.Validate(); err != nil {
		return errors.NewNotValid(err, "feedback record")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[record.ID]; exists {
		return errors.AlreadyExistsf("feedback record %s", record.ID)
	}

	// Store a copy to prevent external modifications
	recordCopy := *record
	m.records[record.ID] = &recordCopy
	m.byUser[record.UserID] = append(m.byUser[record.UserID], &recordCopy)
	return nil
}

// FindLatestByUserAndSentence implements FeedbackRepository interface
func (m *MemoryFeedbackRepository) FindLatestByUserAndSentence(ctx context.Context, userID, sentenceID int64) (*entities.FeedbackRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *entities.FeedbackRecord
	for _, record := range m.byUser[userID] {
		if record.IsDeleted || record.SentenceID != sentenceID {
			continue
		}
		// Later inserts win ties on CreatedAt
		if latest == nil || !record.CreatedAt.Before(latest.CreatedAt) {
			latest = record
		}
	}
	if latest == nil {
		return nil, errors.NotFoundf("feedback for user %d sentence %d", userID, sentenceID)
	}

	recordCopy := *latest
	return &recordCopy, nil
}

// FindAllByUser implements FeedbackRepository interface
func (m *MemoryFeedbackRepository) FindAllByUser(ctx context.Context, userID int64) ([]*entities.FeedbackRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*entities.FeedbackRecord, 0, len(m.byUser[userID]))
	for _, record := range m.byUser[userID] {
		if record.IsDeleted {
			continue
		}
		recordCopy := *record
		result = append(result, &recordCopy)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// SoftDelete implements FeedbackRepository interface
func (m *MemoryFeedbackRepository) SoftDelete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, exists := m.records[id]
	if !exists || record.IsDeleted {
		return errors.NotFoundf("feedback record %s", id)
	}
	record.IsDeleted = true
	return nil
}

// Count returns the number of stored records, deleted ones included
func (m *MemoryFeedbackRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
