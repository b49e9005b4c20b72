package llmclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"contentpilot/internal/llmtool"
	"contentpilot/internal/prompt"
	"contentpilot/internal/types"
)

// FakeResponse is one scripted reply.
type FakeResponse struct {
	Text  string
	Err   error
	Delay time.Duration
}

// FakeClient returns scripted replies in order and, once the script is
// exhausted, deterministic payloads synthesized from the prompt sections.
// It is used offline and in tests.
type FakeClient struct {
	mu      sync.Mutex
	script  []FakeResponse
	prompts []string
}

func NewFakeClient(script ...FakeResponse) *FakeClient {
	return &FakeClient{script: script}
}

func (f *FakeClient) Name() string                { return "Fake" }
func (f *FakeClient) Close() error                { return nil }
func (f *FakeClient) CountTokens(text string) int { return CountTokens(text) }

// Push appends replies to the script.
func (f *FakeClient) Push(rs ...FakeResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.script = append(f.script, rs...)
}

// Calls returns how many times Complete was invoked.
func (f *FakeClient) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

// Prompts returns a copy of every prompt received.
func (f *FakeClient) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

func (f *FakeClient) Complete(ctx context.Context, p string) (Completion, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, p)
	var next *FakeResponse
	if len(f.script) > 0 {
		r := f.script[0]
		f.script = f.script[1:]
		next = &r
	}
	f.mu.Unlock()

	if next != nil {
		if next.Delay > 0 {
			select {
			case <-ctx.Done():
				return Completion{}, Classify(f.Name(), ctx.Err())
			case <-time.After(next.Delay):
			}
		}
		if next.Err != nil {
			return Completion{}, next.Err
		}
		if strings.TrimSpace(next.Text) == "" {
			return Completion{}, Empty(f.Name())
		}
		return usageOrEstimate(Completion{Text: next.Text}, p), nil
	}

	if err := ctx.Err(); err != nil {
		return Completion{}, Classify(f.Name(), err)
	}
	obj, err := synthesize(p)
	if err != nil {
		return Completion{}, Rejected(f.Name(), 400, err)
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return Completion{}, Rejected(f.Name(), 500, err)
	}
	return usageOrEstimate(Completion{Text: string(b)}, p), nil
}

func synthesize(p string) (any, error) {
	if body := llmtool.SectionBody(p, prompt.SectionCandidates); body != "" {
		var items []types.CandidateItem
		if err := json.Unmarshal([]byte(body), &items); err != nil {
			return nil, fmt.Errorf("fake: decode candidates: %w", err)
		}
		return fakeBatch(items), nil
	}
	if body := llmtool.SectionBody(p, prompt.SectionOriginalBrief); body != "" {
		var b types.ContentBrief
		if err := json.Unmarshal([]byte(body), &b); err != nil {
			return nil, fmt.Errorf("fake: decode brief: %w", err)
		}
		return fakeVariant(b, llmtool.SectionBody(p, prompt.SectionVariation)), nil
	}
	if body := llmtool.SectionBody(p, prompt.SectionBrief); body != "" {
		var b types.ContentBrief
		if err := json.Unmarshal([]byte(body), &b); err != nil {
			return nil, fmt.Errorf("fake: decode brief: %w", err)
		}
		return fakeChannelContent(b, llmtool.SectionBody(p, prompt.SectionChannel)), nil
	}
	return nil, fmt.Errorf("fake: no known section in prompt")
}

// fakeBatch marks items with titles of three or more words viable.
func fakeBatch(items []types.CandidateItem) types.BatchResult {
	out := types.BatchResult{EvaluatedCount: len(items)}
	for _, it := range items {
		r := types.ViabilityResult{ArticleID: it.ID, ArticleTitle: it.Title, Briefs: []types.ContentBrief{}}
		if len(strings.Fields(it.Title)) < 3 {
			r.RejectionReason = "Substance: the title alone is too thin to support an authentic brief"
		} else {
			r.Viable = true
			r.Briefs = []types.ContentBrief{FakeBrief(it.ID+"-brief-1", it.Title)}
		}
		out.Results = append(out.Results, r)
	}
	out.Recount()
	return out
}

// FakeBrief builds an internally consistent two-channel brief.
func FakeBrief(id, topic string) types.ContentBrief {
	return types.ContentBrief{
		BriefID:            id,
		ContentAngle:       "Practical takeaways from: " + topic,
		StrategicValue:     "Shows the business understands its customers' current problems",
		TargetChannels:     []string{"linkedin", "twitter"},
		ContentType:        types.ContentSingleModal,
		KeyMessage:         "One concrete lesson from " + topic,
		BusinessConnection: "Connects the topic to the product's core use case",
		ContentComponents: types.ContentComponents{
			Primary: types.Component{Type: "post", Focus: "Three lessons and one action"},
		},
		ChannelStrategies: map[string]types.ChannelStrategy{
			"linkedin": {Format: "text post", HookStrategy: "Lead with the lesson", LengthEstimate: "150 words", EngagementGoal: "comments"},
			"twitter":  {Format: "thread", HookStrategy: "Question hook", LengthEstimate: "4 tweets", EngagementGoal: "replies"},
		},
		CreationPrompts: map[string]string{
			"linkedin": "Write a LinkedIn post about " + topic,
			"twitter":  "Write a 4-tweet thread about " + topic,
		},
		CoordinationNotes: "LinkedIn first, thread the next day",
	}
}

func fakeVariant(b types.ContentBrief, variation string) types.ContentBrief {
	if variation == "" {
		variation = "fresh wording"
	}
	out := b
	out.KeyMessage = strings.TrimSpace(b.KeyMessage + " (" + variation + ")")
	out.CreationPrompts = make(map[string]string, len(b.CreationPrompts))
	for k, v := range b.CreationPrompts {
		out.CreationPrompts[k] = "[" + variation + "] " + v
	}
	for _, ch := range b.TargetChannels {
		if _, ok := out.CreationPrompts[ch]; !ok {
			out.CreationPrompts[ch] = "[" + variation + "] write for " + ch
		}
	}
	return out
}

func fakeChannelContent(b types.ContentBrief, channel string) types.ChannelContent {
	out := types.ChannelContent{
		BriefID:      b.BriefID,
		Channel:      channel,
		Content:      b.KeyMessage + "\n\n" + b.ContentAngle,
		Hashtags:     []string{"#" + strings.ReplaceAll(channel, " ", "")},
		CallToAction: "Tell us what you think",
	}
	if b.ContentType == types.ContentMultiModal && b.ContentComponents.SupportingVisual != nil {
		out.VisualDescription = b.ContentComponents.SupportingVisual.Requirements
	}
	return out
}
