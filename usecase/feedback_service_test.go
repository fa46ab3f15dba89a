package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/juju/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/satriahrh/pronounce/adapters"
	"github.com/satriahrh/pronounce/domain"
	"github.com/satriahrh/pronounce/domain/entities"
	"github.com/satriahrh/pronounce/domain/repositories"
)

type serviceFixture struct {
	service   *FeedbackService
	feedbacks *adapters.MemoryFeedbackRepository
	analyzer  *fakeAnalyzer
	generator *fakeGenerator
}

func setupService(t *testing.T) *serviceFixture {
	logger := zaptest.NewLogger(t)
	feedbacks := adapters.NewMemoryFeedbackRepository()
	users := adapters.NewMemoryUserRepository(&entities.User{ID: 1, Name: "ana"})
	sentences := adapters.NewMemorySentenceRepository(&entities.Sentence{
		ID: 42, Content: "Great job overall.", Situation: "school",
	})
	analyzer := &fakeAnalyzer{payload: scoresPayload()}
	generator := &fakeGenerator{stream: newSliceStream(nil, "Great ", "job ", "overall.")}
	relay := NewStreamRelay(feedbacks, adapters.NewMemoryOutboxRepository(), nil, time.Second, logger)

	return &serviceFixture{
		service: NewFeedbackService(users, sentences, analyzer, generator, relay,
			repositories.AudioConfig{SampleRate: 16000, Encoding: "LINEAR16", Language: "en-US"}, logger),
		feedbacks: feedbacks,
		analyzer:  analyzer,
		generator: generator,
	}
}

func validRequest() AnalysisRequest {
	return AnalysisRequest{UserID: 1, SentenceID: 42, Audio: []byte("RIFF....WAVE")}
}

func TestFeedbackService_EndToEnd(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	prepared, err := f.service.Prepare(ctx, validRequest())
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	want := entities.ScoreSet{Accuracy: 88, Fluency: 91, Completeness: 95, Pronunciation: 90}
	if prepared.Scores != want {
		t.Errorf("Expected scores %+v, got %+v", want, prepared.Scores)
	}
	if f.analyzer.lastRef != "Great job overall." {
		t.Errorf("Expected analyzer to receive the sentence text, got %q", f.analyzer.lastRef)
	}
	if f.generator.lastReq.SentenceText != "Great job overall." {
		t.Errorf("Expected generator to receive the sentence text, got %q", f.generator.lastReq.SentenceText)
	}

	sink := &recordingSink{}
	record, err := f.service.Stream(ctx, prepared, sink)
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	if len(sink.fragments) != 3 || sink.done != 1 {
		t.Errorf("Expected 3 fragments and a terminal event, got %d and %d", len(sink.fragments), sink.done)
	}

	stored, err := f.feedbacks.FindAllByUser(ctx, 1)
	if err != nil {
		t.Fatalf("FindAllByUser failed: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("Expected one record, got %d", len(stored))
	}
	if stored[0].ID != record.ID || stored[0].Feedback != "Great job overall." || stored[0].Accuracy != 88 || stored[0].SentenceID != 42 {
		t.Errorf("Unexpected stored record %+v", stored[0])
	}
}

func TestPreparedFeedback_Discard(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	stream := newSliceStream(nil, "unused")
	stream.closeErr = errors.New("connection reset")
	prepared := &PreparedFeedback{UserID: 1, SentenceID: 42, Stream: stream, logger: zap.New(core)}

	prepared.Discard()

	if !stream.closed {
		t.Error("Expected stream to be closed")
	}
	entries := logs.FilterMessage("Failed to close feedback stream").All()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 close failure log, got %d", len(entries))
	}
	if entries[0].Level != zap.DebugLevel {
		t.Errorf("Expected debug level, got %s", entries[0].Level)
	}

	var nilPrepared *PreparedFeedback
	nilPrepared.Discard()
	(&PreparedFeedback{}).Discard()
}

func TestFeedbackService_PrepareFailures(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(f *serviceFixture, req *AnalysisRequest)
		check    func(err error) bool
		analyzed bool
	}{
		{
			name:   "invalid user id",
			mutate: func(f *serviceFixture, req *AnalysisRequest) { req.UserID = 0 },
			check:  func(err error) bool { return errors.Is(err, errors.NotValid) },
		},
		{
			name:   "empty audio",
			mutate: func(f *serviceFixture, req *AnalysisRequest) { req.Audio = nil },
			check:  func(err error) bool { return errors.Is(err, errors.NotValid) },
		},
		{
			name:   "unknown user",
			mutate: func(f *serviceFixture, req *AnalysisRequest) { req.UserID = 99 },
			check:  func(err error) bool { return errors.Is(err, errors.NotFound) },
		},
		{
			name:   "unknown sentence",
			mutate: func(f *serviceFixture, req *AnalysisRequest) { req.SentenceID = 99 },
			check:  func(err error) bool { return errors.Is(err, errors.NotFound) },
		},
		{
			name:     "analyzer failure",
			mutate:   func(f *serviceFixture, req *AnalysisRequest) { f.analyzer.err = errBackend },
			check:    domain.IsUpstream,
			analyzed: true,
		},
		{
			name: "missing marker key",
			mutate: func(f *serviceFixture, req *AnalysisRequest) {
				f.analyzer.payload = entities.AnalysisPayload{"result_properties": map[string]any{"Other": "{}"}}
			},
			check:    func(err error) bool { return errors.Is(err, errors.NotFound) },
			analyzed: true,
		},
		{
			name:     "generator failure",
			mutate:   func(f *serviceFixture, req *AnalysisRequest) { f.generator.err = errBackend },
			check:    domain.IsUpstream,
			analyzed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupService(t)
			req := validRequest()
			tt.mutate(f, &req)

			prepared, err := f.service.Prepare(context.Background(), req)
			if err == nil {
				t.Fatal("Expected error")
			}
			if prepared != nil {
				t.Error("Expected no prepared feedback")
			}
			if !tt.check(err) {
				t.Errorf("Unexpected error kind: %v", err)
			}
			if (f.analyzer.calls > 0) != tt.analyzed {
				t.Errorf("Expected analyzer called=%v, got %d calls", tt.analyzed, f.analyzer.calls)
			}
			if f.feedbacks.Count() != 0 {
				t.Error("Expected nothing persisted")
			}
		})
	}
}

func TestFeedbackService_AudioDefaults(t *testing.T) {
	f := setupService(t)
	got := f.service.audioConfig(repositories.AudioConfig{Language: "id-ID"})
	if got.SampleRate != 16000 || got.Encoding != "LINEAR16" || got.Language != "id-ID" {
		t.Errorf("Unexpected audio config %+v", got)
	}
}
