package main

import (
	"context"

	"github.com/juju/errors"

	"github.com/satriahrh/pronounce/adapters/mongo"
	"github.com/satriahrh/pronounce/domain/entities"
)

func sampleUsers() []*entities.User {
	return []*entities.User{
		{ID: 1, Name: "demo"},
		{ID: 2, Name: "tester"},
	}
}

func sampleSentences() []*entities.Sentence {
	return []*entities.Sentence{
		{ID: 1, Content: "Could you tell me how to get to the station?", Situation: "travel"},
		{ID: 2, Content: "I would like a window seat, please.", Situation: "travel"},
		{ID: 3, Content: "Can I have the bill, please?", Situation: "restaurant"},
		{ID: 4, Content: "I'd like to order the soup of the day.", Situation: "restaurant"},
		{ID: 5, Content: "Nice to meet you, my name is Sam.", Situation: "greeting"},
		{ID: 6, Content: "I have an appointment at three o'clock.", Situation: "business"},
	}
}

func seedMongo(ctx context.Context, users *mongo.UserRepository, sentences *mongo.SentenceRepository) error {
	for _, u := range sampleUsers() {
		if err := users.Upsert(ctx, u); err != nil {
			return errors.Annotatef(err, "seeding user %d", u.ID)
		}
	}
	for _, s := range sampleSentences() {
		if err := sentences.Upsert(ctx, s); err != nil {
			return errors.Annotatef(err, "seeding sentence %d", s.ID)
		}
	}
	return nil
}
