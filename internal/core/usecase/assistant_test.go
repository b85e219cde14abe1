package usecase

import (
	"context"
	"testing"

	"github.com/kirillkom/fleet-claims/internal/core/domain"
)

func TestAssistantReplyKeywords(t *testing.T) {
	uc := NewAssistantUseCase()
	cases := []struct {
		message string
		first   string
	}{
		{message: "How do I upload files?", first: "Upload police report"},
		{message: "Which DOCUMENTS do you need", first: "Upload police report"},
		{message: "what about the repair", first: "Analyze damage photos"},
		{message: "this looks suspicious", first: "Review incident details"},
		{message: "hello", first: "Upload documents"},
	}
	for _, tc := range cases {
		reply, err := uc.Reply(context.Background(), tc.message)
		if err != nil {
			t.Fatalf("Reply(%q) error = %v", tc.message, err)
		}
		if len(reply.Suggestions) != 3 || reply.Suggestions[0] != tc.first {
			t.Fatalf("Reply(%q) suggestions = %v", tc.message, reply.Suggestions)
		}
		if reply.Content == "" {
			t.Fatalf("Reply(%q) returned empty content", tc.message)
		}
	}
}

func TestAssistantRejectsEmptyMessage(t *testing.T) {
	_, err := NewAssistantUseCase().Reply(context.Background(), "   ")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
