package adapters

import (
	"context"
	"sync"

	"github.com/juju/errors"

	"github.com/satriahrh/pronounce/domain/entities"
	"github.com/satriahrh/pronounce/domain/repositories"
)

// MemoryOutboxRepository keeps parked records in process memory. It only
// survives as long as the process, which is enough for development.
type MemoryOutboxRepository struct {
	mu      sync.Mutex
	order   []string
	records map[string]*entities.FeedbackRecord
	causes  map[string]string
}

var _ repositories.OutboxRepository = (*MemoryOutboxRepository)(nil)

// NewMemoryOutboxRepository creates a new in-memory outbox
func NewMemoryOutboxRepository() *MemoryOutboxRepository {
	return &MemoryOutboxRepository{
		records: make(map[string]*entities.FeedbackRecord),
		causes:  make(map[string]string),
	}
}

// Park implements OutboxRepository interface
func (m *MemoryOutboxRepository) Park(ctx context.Context, record *entities.FeedbackRecord, cause string) error {
	if record == nil || record.ID == "" {
		return errors.NotValidf("record without id")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[record.ID]; !exists {
		m.order = append(m.order, record.ID)
	}
	recordCopy := *record
	m.records[record.ID] = &recordCopy
	m.causes[record.ID] = cause
	return nil
}

// Pending implements OutboxRepository interface, oldest first
func (m *MemoryOutboxRepository) Pending(ctx context.Context, limit int) ([]*entities.FeedbackRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := []*entities.FeedbackRecord{}
	for _, id := range m.order {
		if limit > 0 && len(result) >= limit {
			break
		}
		recordCopy := *m.records[id]
		result = append(result, &recordCopy)
	}
	return result, nil
}

// Remove implements OutboxRepository interface
func (m *MemoryOutboxRepository) Remove(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[id]; !exists {
		return errors.NotFoundf("outbox entry %s", id)
	}
	delete(m.records, id)
	delete(m.causes, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len returns the number of parked records
func (m *MemoryOutboxRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order)
}
