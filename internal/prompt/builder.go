package prompt

import (
	"errors"
	"fmt"
	"strings"

	"contentpilot/internal/llmtool"
	"contentpilot/internal/types"
)

var (
	ErrEmptyBatch      = errors.New("prompt: candidate batch is empty")
	ErrBatchTooLarge   = fmt.Errorf("prompt: candidate batch exceeds %d items", MaxCandidatesPerPrompt)
	ErrDuplicateID     = errors.New("prompt: duplicate candidate id")
	ErrMissingID       = errors.New("prompt: candidate id is empty")
	ErrUnknownStage    = errors.New("prompt: unknown stage")
	ErrPayloadMismatch = errors.New("prompt: payload does not match stage")
	ErrUnknownChannel  = errors.New("prompt: channel is not a target of the brief")
	ErrMissingBriefID  = errors.New("prompt: brief has no briefId")
)

// RegeneratePayload is the payload for StageRegenerateOne.
type RegeneratePayload struct {
	Brief            types.ContentBrief
	VariationRequest string
}

// ChannelPayload is the payload for StageGenerateChannelContent.
type ChannelPayload struct {
	Brief   types.ContentBrief
	Channel string
}

// Build renders the prompt for stage. payload must be []types.CandidateItem
// for StageEvaluateAndBrief, RegeneratePayload for StageRegenerateOne and
// ChannelPayload for StageGenerateChannelContent.
func Build(stage types.Stage, payload any, bc types.BusinessContext) (string, error) {
	switch stage {
	case types.StageEvaluateAndBrief:
		items, ok := payload.([]types.CandidateItem)
		if !ok {
			return "", fmt.Errorf("%w: %s wants []CandidateItem, got %T", ErrPayloadMismatch, stage, payload)
		}
		return EvaluateAndBrief(items, bc)
	case types.StageRegenerateOne:
		p, ok := payload.(RegeneratePayload)
		if !ok {
			return "", fmt.Errorf("%w: %s wants RegeneratePayload, got %T", ErrPayloadMismatch, stage, payload)
		}
		return RegenerateOne(p.Brief, p.VariationRequest, bc)
	case types.StageGenerateChannelContent:
		p, ok := payload.(ChannelPayload)
		if !ok {
			return "", fmt.Errorf("%w: %s wants ChannelPayload, got %T", ErrPayloadMismatch, stage, payload)
		}
		return ChannelContent(p.Brief, p.Channel, bc)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStage, stage)
	}
}

// EvaluationSpec composes the evaluate-and-brief prompt without rendering it.
func EvaluationSpec(items []types.CandidateItem, bc types.BusinessContext) (llmtool.StructuredPromptSpec, error) {
	if len(items) == 0 {
		return llmtool.StructuredPromptSpec{}, ErrEmptyBatch
	}
	if len(items) > MaxCandidatesPerPrompt {
		return llmtool.StructuredPromptSpec{}, fmt.Errorf("%w: got %d", ErrBatchTooLarge, len(items))
	}
	seen := make(map[string]struct{}, len(items))
	for i, it := range items {
		id := strings.TrimSpace(it.ID)
		if id == "" {
			return llmtool.StructuredPromptSpec{}, fmt.Errorf("%w: item %d", ErrMissingID, i)
		}
		if _, dup := seen[id]; dup {
			return llmtool.StructuredPromptSpec{}, fmt.Errorf("%w: %q", ErrDuplicateID, id)
		}
		seen[id] = struct{}{}
	}
	candidates, err := CandidatesBlock(items)
	if err != nil {
		return llmtool.StructuredPromptSpec{}, fmt.Errorf("prompt: encode candidates: %w", err)
	}

	spec := llmtool.StructuredPromptSpec{
		Purpose: "You are a content strategist for an early-stage business. Evaluate every candidate item for strategic viability against the business context, and expand each viable item into content briefs.",
		Background: fmt.Sprintf("The batch has %d candidate items. Return exactly one result per item, in the same order, keyed by the item's id.",
			len(items)),
		Sections: []llmtool.Section{
			{Title: SectionBusinessContext, Body: ContextBlock(bc)},
			{Title: SectionCandidates, Body: candidates},
			{Title: SectionCriteria, Body: CriteriaBlock()},
		},
		OutputFields: append([]llmtool.PromptField{
			{Name: "results[].articleId", Type: "string", Required: true, Description: "id of the candidate item"},
			{Name: "results[].articleTitle", Type: "string", Required: true},
			{Name: "results[].viable", Type: "bool", Required: true},
			{Name: "results[].rejectionReason", Type: "string", Description: "required when viable is false, omitted when true"},
		}, prefixFields("results[].briefs[].", llmtool.MustFieldsFromStruct(types.ContentBrief{}))...),
		Rules: []string{
			"Rejected items (viable=false) must have a non-empty rejectionReason and an empty briefs array.",
			"Viable items (viable=true) must have no rejectionReason and 1 to 3 briefs.",
			"Briefs for the same item must differ in contentAngle or targetChannels.",
			"briefId must be unique across the whole response; use <articleId>-brief-<n>.",
		},
		Assumptions: []string{
			"A business context value of \"" + types.NotSpecified + "\" is unknown, not absent from the business.",
			"Engagement numbers (upvotes, comments) are signals of audience interest, not of accuracy.",
		},
		OutputFormat: renderExample(evaluationExample()),
	}
	return llmtool.ApplyPresets(spec, llmtool.PresetStrictJSON(), llmtool.PresetNoInvent(), llmtool.PresetChannelConsistency()), nil
}

// EvaluateAndBrief renders the viability + brief generation prompt.
func EvaluateAndBrief(items []types.CandidateItem, bc types.BusinessContext) (string, error) {
	spec, err := EvaluationSpec(items, bc)
	if err != nil {
		return "", err
	}
	return llmtool.Render(spec)
}

// RegenerateOne renders the single-brief regeneration prompt. The backend is
// told to keep the brief's strategic intent and identity and vary only its
// surface expression.
func RegenerateOne(brief types.ContentBrief, variation string, bc types.BusinessContext) (string, error) {
	if strings.TrimSpace(brief.BriefID) == "" {
		return "", ErrMissingBriefID
	}
	original, err := llmtool.FormatJSON(brief)
	if err != nil {
		return "", fmt.Errorf("prompt: encode brief: %w", err)
	}
	variation = strings.TrimSpace(variation)
	if variation == "" {
		variation = "None given. Produce a fresh take on the wording while keeping the same plan."
	}

	spec := llmtool.StructuredPromptSpec{
		Purpose:    "Regenerate one content brief. Keep its strategic intent and vary only its surface expression.",
		Background: "The brief belongs to a larger batch; only this brief is being replaced.",
		Sections: []llmtool.Section{
			{Title: SectionBusinessContext, Body: ContextBlock(bc)},
			{Title: SectionOriginalBrief, Body: original},
			{Title: SectionVariation, Body: variation},
		},
		OutputFields: llmtool.MustFieldsFromStruct(types.ContentBrief{}),
		Rules: []string{
			fmt.Sprintf("Keep briefId exactly %q.", brief.BriefID),
			fmt.Sprintf("Keep targetChannels exactly %s.", strings.Join(brief.TargetChannels, ", ")),
			"Keep the strategic intent: same core contentAngle, strategicValue and businessConnection.",
			"Vary the surface: hooks, keyMessage wording, coordinationNotes and every creationPrompts entry must read differently from the original.",
			"Apply the variation request to tone and wording, not to the strategy.",
		},
		OutputFormat: "A single ContentBrief JSON object with the same shape as ORIGINAL_BRIEF.",
		Examples:     []llmtool.PromptExample{regenerationExample()},
	}
	return llmtool.Render(llmtool.ApplyPresets(spec, llmtool.PresetStrictJSON(), llmtool.PresetNoInvent(), llmtool.PresetChannelConsistency()))
}

// ChannelContent renders the prompt that turns one brief channel into
// finished copy.
func ChannelContent(brief types.ContentBrief, channel string, bc types.BusinessContext) (string, error) {
	if strings.TrimSpace(brief.BriefID) == "" {
		return "", ErrMissingBriefID
	}
	channel = types.NormalizeChannel(channel)
	if !brief.HasChannel(channel) {
		return "", fmt.Errorf("%w: %q not in %v", ErrUnknownChannel, channel, brief.TargetChannels)
	}
	encoded, err := llmtool.FormatJSON(brief)
	if err != nil {
		return "", fmt.Errorf("prompt: encode brief: %w", err)
	}

	rules := []string{
		fmt.Sprintf("Set briefId to %q and channel to %q.", brief.BriefID, channel),
		fmt.Sprintf("Follow channelStrategies.%s and creationPrompts.%s from the brief.", channel, channel),
		"Write publish-ready copy; no placeholders such as [link] or TBD.",
	}
	if brief.ContentType == types.ContentMultiModal {
		rules = append(rules, "Describe the supporting visual in visualDescription.")
	}

	spec := llmtool.StructuredPromptSpec{
		Purpose: "Write the finished post for one channel of a content brief.",
		Sections: []llmtool.Section{
			{Title: SectionBusinessContext, Body: ContextBlock(bc)},
			{Title: SectionBrief, Body: encoded},
			{Title: SectionChannel, Body: channel},
		},
		OutputFields: llmtool.MustFieldsFromStruct(types.ChannelContent{}),
		Rules:        rules,
		OutputFormat: renderExample(channelContentExample(brief.BriefID, channel)),
	}
	return llmtool.Render(llmtool.ApplyPresets(spec, llmtool.PresetStrictJSON(), llmtool.PresetNoInvent()))
}

func prefixFields(prefix string, fields []llmtool.PromptField) []llmtool.PromptField {
	out := make([]llmtool.PromptField, len(fields))
	for i, f := range fields {
		f.Name = prefix + f.Name
		out[i] = f
	}
	return out
}
