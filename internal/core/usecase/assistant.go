package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/kirillkom/fleet-claims/internal/core/domain"
)

type assistantRule struct {
	keywords []string
	reply    domain.AssistantReply
}

var assistantRules = []assistantRule{
	{
		keywords: []string{"upload", "document"},
		reply: domain.AssistantReply{
			Content: "Ready to add documents? For this kind of claim the most useful uploads are the police report, " +
				"photos of the damage, repair estimates and any medical reports that apply. Complete documents speed up processing.",
			Suggestions: []string{"Upload police report", "Take damage photos", "Get repair estimate"},
		},
	},
	{
		keywords: []string{"damage", "repair"},
		reply: domain.AssistantReply{
			Content: "This looks like a vehicle damage question. Uploaded damage photos are used to estimate repair cost " +
				"and to flag claims that need special handling. Do you want the damage photos analyzed?",
			Suggestions: []string{"Analyze damage photos", "Get repair estimate", "Check coverage"},
		},
	},
	{
		keywords: []string{"fraud", "suspicious"},
		reply: domain.AssistantReply{
			Content: "Suspicious patterns are flagged automatically during fraud detection, and a reviewer can raise the " +
				"risk level at any time. Which details of the claim look unusual?",
			Suggestions: []string{"Review incident details", "Check claimant history", "Verify documents"},
		},
	},
}

var defaultReply = domain.AssistantReply{
	Content: "I can help with document review, damage assessment, fraud checks and settlement questions for your claim. " +
		"What do you need?",
	Suggestions: []string{"Upload documents", "Review claim details", "Check processing status"},
}

// AssistantUseCase answers free-form questions with keyword-matched guidance.
type AssistantUseCase struct{}

func NewAssistantUseCase() *AssistantUseCase {
	return &AssistantUseCase{}
}

func (uc *AssistantUseCase) Reply(_ context.Context, message string) (domain.AssistantReply, error) {
	input := strings.ToLower(strings.TrimSpace(message))
	if input == "" {
		return domain.AssistantReply{}, domain.WrapError(domain.ErrInvalidInput, "assistant reply", errors.New("message is required"))
	}
	for _, rule := range assistantRules {
		for _, kw := range rule.keywords {
			if strings.Contains(input, kw) {
				return cloneReply(rule.reply), nil
			}
		}
	}
	return cloneReply(defaultReply), nil
}

func cloneReply(r domain.AssistantReply) domain.AssistantReply {
	r.Suggestions = append([]string(nil), r.Suggestions...)
	return r
}
