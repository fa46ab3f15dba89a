package entities

import (
	"errors"
	"strings"
)

// User is the owner of feedback records
type User struct {
	ID        int64  `json:"id" bson:"_id"`
	Name      string `json:"name" bson:"name"`
	IsDeleted bool   `json:"is_deleted" bson:"is_deleted"`
}

// Sentence is the canonical target text a recording is measured against
type Sentence struct {
	ID        int64  `json:"id" bson:"_id"`
	Content   string `json:"content" bson:"content"`
	Situation string `json:"situation" bson:"situation"`
	VoiceURL  string `json:"voice_url,omitempty" bson:"voice_url,omitempty"`
	IsDeleted bool   `json:"is_deleted" bson:"is_deleted"`
}

// Domain validation methods
func (u *User) Validate() error {
	if u.ID <= 0 {
		return errors.New("user ID is required")
	}
	return nil
}

func (s *Sentence) Validate() error {
	if s.ID <= 0 {
		return errors.New("sentence ID is required")
	}
	if strings.TrimSpace(s.Content) == "" {
		return errors.New("content is required")
	}
	return nil
}
