package adapters

import (
	"context"
	"testing"
	"time"

	"github.com/juju/errors"

	"github.com/satriahrh/pronounce/domain/entities"
)

func newRecord(userID, sentenceID int64, accuracy float64, createdAt time.Time) *entities.FeedbackRecord {
	r := entities.NewFeedbackRecord(userID, sentenceID, entities.ScoreSet{Accuracy: accuracy}, "feedback")
	r.CreatedAt = createdAt
	return r
}

func TestMemoryFeedbackRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryFeedbackRepository()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	first := newRecord(1, 42, 80, base)
	second := newRecord(1, 42, 90, base.Add(time.Minute))
	other := newRecord(1, 7, 60, base.Add(2*time.Minute))
	foreign := newRecord(2, 42, 10, base)

	for _, r := range []*entities.FeedbackRecord{second, first, other, foreign} {
		if err := repo.Save(ctx, r); err != nil {
			t.Fatalf("Failed to save record: %v", err)
		}
	}

	t.Run("DuplicateID", func(t *testing.T) {
		err := repo.Save(ctx, first)
		if !errors.Is(err, errors.AlreadyExists) {
			t.Errorf("Expected AlreadyExists, got %v", err)
		}
	})

	t.Run("RejectsPartialRecord", func(t *testing.T) {
		partial := entities.NewFeedbackRecord(1, 42, entities.ScoreSet{Accuracy: 1}, "")
		err := repo.Save(ctx, partial)
		if !errors.Is(err, errors.NotValid) {
			t.Errorf("Expected NotValid, got %v", err)
		}
	})

	t.Run("FindLatest", func(t *testing.T) {
		latest, err := repo.FindLatestByUserAndSentence(ctx, 1, 42)
		if err != nil {
			t.Fatalf("Failed to find latest: %v", err)
		}
		if latest.ID != second.ID {
			t.Errorf("Expected latest %s, got %s", second.ID, latest.ID)
		}
	})

	t.Run("FindAllOrdered", func(t *testing.T) {
		all, err := repo.FindAllByUser(ctx, 1)
		if err != nil {
			t.Fatalf("Failed to find all: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("Expected 3 records, got %d", len(all))
		}
		if all[0].ID != first.ID || all[1].ID != second.ID || all[2].ID != other.ID {
			t.Error("Expected records ordered by creation time")
		}
	})

	t.Run("SoftDeleteHidesRecord", func(t *testing.T) {
		if err := repo.SoftDelete(ctx, second.ID); err != nil {
			t.Fatalf("Failed to soft delete: %v", err)
		}

		latest, err := repo.FindLatestByUserAndSentence(ctx, 1, 42)
		if err != nil {
			t.Fatalf("Failed to find latest: %v", err)
		}
		if latest.ID != first.ID {
			t.Errorf("Expected deleted record to be skipped, got %s", latest.ID)
		}

		all, _ := repo.FindAllByUser(ctx, 1)
		if len(all) != 2 {
			t.Errorf("Expected 2 visible records, got %d", len(all))
		}

		if err := repo.SoftDelete(ctx, second.ID); !errors.Is(err, errors.NotFound) {
			t.Errorf("Expected NotFound on second delete, got %v", err)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := repo.FindLatestByUserAndSentence(ctx, 3, 42)
		if !errors.Is(err, errors.NotFound) {
			t.Errorf("Expected NotFound, got %v", err)
		}

		all, err := repo.FindAllByUser(ctx, 3)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(all) != 0 {
			t.Errorf("Expected no records, got %d", len(all))
		}
	})
}

func TestMemoryCatalog(t *testing.T) {
	ctx := context.Background()
	sentences := NewMemorySentenceRepository(
		&entities.Sentence{ID: 2, Content: "Where is the station?", Situation: "travel"},
		&entities.Sentence{ID: 1, Content: "A table for two, please.", Situation: "restaurant"},
		&entities.Sentence{ID: 3, Content: "How much is this?", Situation: "travel"},
		&entities.Sentence{ID: 4, Content: "Retired.", Situation: "travel", IsDeleted: true},
	)

	got, err := sentences.GetByID(ctx, 2)
	if err != nil {
		t.Fatalf("Failed to get sentence: %v", err)
	}
	if got.Content != "Where is the station?" {
		t.Errorf("Unexpected content %s", got.Content)
	}

	if _, err := sentences.GetByID(ctx, 4); !errors.Is(err, errors.NotFound) {
		t.Errorf("Expected deleted sentence to be NotFound, got %v", err)
	}

	travel, err := sentences.ListBySituation(ctx, "travel")
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(travel) != 2 || travel[0].ID != 2 || travel[1].ID != 3 {
		t.Errorf("Unexpected travel sentences: %+v", travel)
	}

	users := NewMemoryUserRepository(&entities.User{ID: 1, Name: "ana"})
	if _, err := users.GetByID(ctx, 1); err != nil {
		t.Errorf("Expected user 1, got %v", err)
	}
	if _, err := users.GetByID(ctx, 9); !errors.Is(err, errors.NotFound) {
		t.Errorf("Expected NotFound, got %v", err)
	}
}

func TestMemoryOutboxRepository(t *testing.T) {
	ctx := context.Background()
	outbox := NewMemoryOutboxRepository()

	a := entities.NewFeedbackRecord(1, 1, entities.ScoreSet{}, "a")
	b := entities.NewFeedbackRecord(1, 2, entities.ScoreSet{}, "b")

	if err := outbox.Park(ctx, a, "boom"); err != nil {
		t.Fatalf("Park failed: %v", err)
	}
	if err := outbox.Park(ctx, b, "boom"); err != nil {
		t.Fatalf("Park failed: %v", err)
	}
	// Parking twice keeps one entry
	if err := outbox.Park(ctx, a, "again"); err != nil {
		t.Fatalf("Park failed: %v", err)
	}

	pending, _ := outbox.Pending(ctx, 1)
	if len(pending) != 1 || pending[0].ID != a.ID {
		t.Fatalf("Expected oldest entry first, got %+v", pending)
	}

	if err := outbox.Remove(ctx, a.ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if outbox.Len() != 1 {
		t.Errorf("Expected 1 entry, got %d", outbox.Len())
	}
	if err := outbox.Remove(ctx, a.ID); !errors.Is(err, errors.NotFound) {
		t.Errorf("Expected NotFound, got %v", err)
	}
}
