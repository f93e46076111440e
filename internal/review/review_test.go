package review

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kokou-stm/kalanso/internal/llm"
	"github.com/kokou-stm/kalanso/internal/question"
	"github.com/kokou-stm/kalanso/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := store.Open(store.DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func imageItem() store.ReviewItem {
	return store.ReviewItem{
		ID:           "r1",
		AttemptID:    "att",
		LearnerID:    "ana",
		AssessmentID: "wood-joints-1",
		QuestionID:   "q8",
		QuestionType: string(question.TypeImageUpload),
		MaxPoints:    20,
		Payload:      []byte(`{"questionId":"q8","uploadedImages":[{"url":"file:///a.jpg","filename":"a.jpg","angle":"front"}],"requiresCoachReview":true}`),
		Status:       "pending_review",
		CreatedAt:    time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func imageQuestion() *question.ImageUpload {
	return &question.ImageUpload{
		Base:           question.Base{ID: "q8", Points: 20, Prompt: "Photograph your dovetail joint."},
		RequiredAngles: []string{"front", "top"},
		Rubric: []question.RubricItem{
			{Criterion: "Tight fit", Points: 10},
			{Criterion: "Clean baseline", Description: "No saw marks past the line", Points: 10},
		},
	}
}

func draft(points float64) llm.MockResponse {
	return llm.MockResponse{Content: json.RawMessage(fmt.Sprintf(
		`{"summary":"Photos cannot be inspected.","suggestedPoints":%g,"rubric":[{"criterion":"Tight fit","met":false,"note":"not visible"}]}`,
		points))}
}

func TestDrafterClampsSuggestedPoints(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"within range", 12, 12},
		{"above max", 35, 20},
		{"zero", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDrafter(llm.NewMockProvider(draft(tt.in)), DefaultDrafterConfig())
			got, err := d.Draft(context.Background(), imageItem(), imageQuestion())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.SuggestedPoints)
			require.Len(t, got.Rubric, 1)
			assert.False(t, got.Rubric[0].Met)
		})
	}
}

func TestDrafterRejectsInvalidDraft(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`{"summary":"x","suggestedPoints":-3,"rubric":[]}`)})
	_, err := NewDrafter(mock, DefaultDrafterConfig()).Draft(context.Background(), imageItem(), nil)
	var inv *llm.ErrInvalidResponse
	assert.ErrorAs(t, err, &inv)
}

func TestPromptCarriesContext(t *testing.T) {
	mock := llm.NewMockProvider(draft(5))
	_, err := NewDrafter(mock, DefaultDrafterConfig()).Draft(context.Background(), imageItem(), imageQuestion())
	require.NoError(t, err)

	require.Equal(t, 1, mock.CallCount())
	req := mock.Calls[0]
	assert.Equal(t, DraftSchema, req.Schema)
	msg := req.Messages[0].Content
	for _, want := range []string{"maximum 20 points", "Photograph your dovetail joint.", "front, top", "Clean baseline: No saw marks", "a.jpg (angle: front)"} {
		assert.Contains(t, msg, want)
	}
}

func TestPromptForShortAnswer(t *testing.T) {
	minW, maxW := 2, 20
	q := &question.ShortAnswer{
		Base:         question.Base{ID: "q3", Points: 5, Prompt: "Why glue end grain poorly?"},
		MinWords:     &minW,
		MaxWords:     &maxW,
		SampleAnswer: "End grain wicks glue away.",
	}
	item := store.ReviewItem{ID: "r2", QuestionID: "q3", QuestionType: "short_answer", MaxPoints: 5,
		Payload: []byte(`{"text":"it soaks up the glue","wordCount":5}`)}

	msg, err := buildPrompt(item, q)
	require.NoError(t, err)
	assert.Contains(t, msg, "Sample answer: End grain wicks glue away.")
	assert.Contains(t, msg, "2 to 20 words")
	assert.Contains(t, msg, "Text (5 words):\nit soaks up the glue")
}

func TestServiceDraftByIDStoresDraft(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	require.NoError(t, s.ReviewRepo().AddItems(ctx, []store.ReviewItem{imageItem()}))

	svc := NewService(llm.NewMockProvider(draft(14)), s.ReviewRepo(), Options{ProviderName: "mock"})
	defer svc.Close()

	def := &question.Assessment{Questions: []question.Question{imageQuestion()}}
	rec, err := svc.DraftByID(ctx, "r1", LookupIn(def))
	require.NoError(t, err)
	assert.Equal(t, 14.0, rec.SuggestedPoints)
	assert.Equal(t, "mock", rec.Model)

	drafts, err := s.ReviewRepo().Drafts(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "Photos cannot be inspected.", drafts[0].Summary)
	assert.JSONEq(t, `[{"criterion":"Tight fit","met":false,"note":"not visible"}]`, string(drafts[0].Rubric))

	// The review item itself is untouched.
	item, err := s.ReviewRepo().Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "pending_review", item.Status)

	_, err = svc.DraftByID(ctx, "missing", nil)
	assert.Error(t, err)
}

func TestServiceEnqueue(t *testing.T) {
	s := openStore(t)
	core, logs := observer.New(zapcore.WarnLevel)
	mock := llm.NewMockProvider(draft(3)) // second item finds an empty queue

	svc := NewService(mock, s.ReviewRepo(), Options{Logger: zap.New(core)})
	var stored []*store.ReviewDraft
	second := imageItem()
	second.ID = "r2"
	svc.Enqueue([]store.ReviewItem{imageItem(), second}, nil, func(d *store.ReviewDraft) { stored = append(stored, d) })
	svc.Close()

	require.Len(t, stored, 1)
	assert.Equal(t, "r1", stored[0].ReviewItemID)
	assert.Equal(t, 1, logs.FilterMessage("review draft failed").Len())

	// Enqueue after Close is a no-op.
	assert.NotPanics(t, func() { svc.Enqueue([]store.ReviewItem{imageItem()}, nil, nil) })
}
