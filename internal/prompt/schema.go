package prompt

import (
	"contentpilot/internal/llmtool"
	"contentpilot/internal/types"
)

// exampleBrief is the schema-by-example brief shown to the backend.
func exampleBrief(id string) types.ContentBrief {
	return types.ContentBrief{
		BriefID:            id,
		ContentAngle:       "What the study's churn numbers mean for teams under 50 people",
		StrategicValue:     "Positions the company as the practical voice on retention for small teams",
		TargetChannels:     []string{"linkedin", "twitter"},
		ContentType:        types.ContentMultiModal,
		KeyMessage:         "Small teams lose customers in week one, not month six",
		BusinessConnection: "The product's onboarding checklist addresses the week-one drop-off the study reports",
		ContentComponents: types.ContentComponents{
			Primary: types.Component{Type: "post", Focus: "Three findings from the study and one action for each"},
			SupportingVisual: &types.VisualComponent{
				Type:         "chart",
				Requirements: "Bar chart of churn by week for the first six weeks",
			},
		},
		ChannelStrategies: map[string]types.ChannelStrategy{
			"linkedin": {Format: "text post with image", HookStrategy: "Open with the surprising week-one number", LengthEstimate: "150-200 words", EngagementGoal: "Comments sharing their own churn timing"},
			"twitter":  {Format: "thread", HookStrategy: "Single stat plus a question", LengthEstimate: "4-5 tweets", EngagementGoal: "Replies and bookmarks"},
		},
		CreationPrompts: map[string]string{
			"linkedin":              "Write a LinkedIn post for founders of small SaaS teams that opens with ...",
			"twitter":               "Write a 4-5 tweet thread that starts with the week-one churn statistic ...",
			types.VisualPromptKey: "Create a clean bar chart showing churn by week for weeks 1-6 ...",
		},
		CoordinationNotes: "Post the LinkedIn piece first; the thread links back to it and reuses the chart",
	}
}

// evaluationExample shows one viable and one rejected item.
func evaluationExample() types.BatchResult {
	return types.BatchResult{
		EvaluatedCount: 2,
		ViableCount:    1,
		TotalBriefs:    1,
		Results: []types.ViabilityResult{
			{
				ArticleID:    "item-1",
				ArticleTitle: "Study: most SaaS churn happens in the first week",
				Viable:       true,
				Briefs:       []types.ContentBrief{exampleBrief("item-1-brief-1")},
			},
			{
				ArticleID:       "item-2",
				ArticleTitle:    "Celebrity launches new fragrance",
				Viable:          false,
				RejectionReason: "Relevance: no credible link to the business's customers or product",
				Briefs:          []types.ContentBrief{},
			},
		},
	}
}

// regenerationExample shows a variation that keeps identity, channels and
// strategy and rewrites only the wording.
func regenerationExample() llmtool.PromptExample {
	orig := exampleBrief("item-1-brief-1")
	varied := exampleBrief("item-1-brief-1")
	varied.KeyMessage = "Most of your churn? It happens in week one"
	varied.CoordinationNotes = "Thread goes out first this time, LinkedIn post follows the same afternoon"
	varied.CreationPrompts = map[string]string{
		"linkedin":            "Write a relaxed, first-person LinkedIn post for small SaaS founders about losing users in week one ...",
		"twitter":             "Write a chatty 4-5 tweet thread that opens with \"be honest: when do your users leave?\" ...",
		types.VisualPromptKey: "Create a friendly, hand-drawn style bar chart of churn by week for weeks 1-6 ...",
	}
	return llmtool.PromptExample{
		InputJSON:  renderExample(map[string]any{"variationRequest": "more casual tone", "originalBrief": orig}),
		OutputJSON: renderExample(varied),
	}
}

func channelContentExample(briefID, channel string) types.ChannelContent {
	return types.ChannelContent{
		BriefID:           briefID,
		Channel:           channel,
		Content:           "Most SaaS churn happens in week one, not month six. Here is what we changed ...",
		Hashtags:          []string{"#saas", "#retention"},
		CallToAction:      "Tell us which week you lose the most users",
		VisualDescription: "Bar chart of churn by week, weeks 1-6",
	}
}

func renderExample(v any) string {
	out, err := llmtool.FormatJSON(v)
	if err != nil {
		return ""
	}
	return out
}
