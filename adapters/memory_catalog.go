package adapters

import (
	"context"
	"sort"
	"sync"

	"github.com/juju/errors"

	"github.com/satriahrh/pronounce/domain/entities"
	"github.com/satriahrh/pronounce/domain/repositories"
)

// MemorySentenceRepository is an in-memory sentence catalog
type MemorySentenceRepository struct {
	mu        sync.RWMutex
	sentences map[int64]*entities.Sentence
}

var _ repositories.SentenceRepository = (*MemorySentenceRepository)(nil)

// NewMemorySentenceRepository creates a catalog holding the given sentences
func NewMemorySentenceRepository(sentences ...*entities.Sentence) *MemorySentenceRepository {
	m := &MemorySentenceRepository{sentences: make(map[int64]*entities.Sentence)}
	for _, s := range sentences {
		_ = m.Put(s)
	}
	return m
}

// Put adds or replaces a sentence
func (m *MemorySentenceRepository) Put(sentence *entities.Sentence) error {
	if sentence == nil {
		return errors.NotValidf("nil sentence")
	}
	if err := sentence.Validate(); err != nil {
		return errors.NewNotValid(err, "sentence")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sentenceCopy := *sentence
	m.sentences[sentence.ID] = &sentenceCopy
	return nil
}

// GetByID implements SentenceRepository interface
func (m *MemorySentenceRepository) GetByID(ctx context.Context, id int64) (*entities.Sentence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sentence, exists := m.sentences[id]
	if !exists || sentence.IsDeleted {
		return nil, errors.NotFoundf("sentence %d", id)
	}

	sentenceCopy := *sentence
	return &sentenceCopy, nil
}

// ListBySituation implements SentenceRepository interface
func (m *MemorySentenceRepository) ListBySituation(ctx context.Context, situation string) ([]*entities.Sentence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []*entities.Sentence{}
	for _, sentence := range m.sentences {
		if sentence.IsDeleted || sentence.Situation != situation {
			continue
		}
		sentenceCopy := *sentence
		result = append(result, &sentenceCopy)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// MemoryUserRepository is an in-memory user directory
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[int64]*entities.User
}

var _ repositories.UserRepository = (*MemoryUserRepository)(nil)

// NewMemoryUserRepository creates a directory holding the given users
func NewMemoryUserRepository(users ...*entities.User) *MemoryUserRepository {
	m := &MemoryUserRepository{users: make(map[int64]*entities.User)}
	for _, u := range users {
		_ = m.Put(u)
	}
	return m
}

// Put adds or replaces a user
func (m *MemoryUserRepository) Put(user *entities.User) error {
	if user == nil {
		return errors.NotValidf("nil user")
	}
	if err := user.Validate(); err != nil {
		return errors.NewNotValid(err, "user")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	userCopy := *user
	m.users[user.ID] = &userCopy
	return nil
}

// GetByID implements UserRepository interface
func (m *MemoryUserRepository) GetByID(ctx context.Context, id int64) (*entities.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, exists := m.users[id]
	if !exists || user.IsDeleted {
		return nil, errors.NotFoundf("user %d", id)
	}

	userCopy := *user
	return &userCopy, nil
}
