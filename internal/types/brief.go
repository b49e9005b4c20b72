package types

import "strings"

// ContentType distinguishes text-only briefs from ones with a visual.
type ContentType string

const (
	ContentSingleModal ContentType = "single_modal"
	ContentMultiModal  ContentType = "multi_modal"
)

// VisualPromptKey is the creationPrompts key for the supporting visual.
const VisualPromptKey = "visual"

// Component is the primary narrative piece of a brief.
type Component struct {
	Type  string `json:"type" prompt_desc:"narrative format, e.g. thread, article, post"`
	Focus string `json:"focus" prompt_desc:"what the narrative must cover"`
}

// VisualComponent is the optional supporting visual of a brief.
type VisualComponent struct {
	Type         string `json:"type" prompt_desc:"visual format, e.g. infographic, chart, carousel"`
	Requirements string `json:"requirements" prompt_desc:"what the visual must show"`
}

// ContentComponents groups the components a brief coordinates.
type ContentComponents struct {
	Primary          Component        `json:"primaryComponent"`
	SupportingVisual *VisualComponent `json:"supportingVisual,omitempty" prompt:"optional"`
}

// ChannelStrategy is per-platform tactical guidance for a brief.
type ChannelStrategy struct {
	Format         string `json:"format" prompt_desc:"post format on this channel"`
	HookStrategy   string `json:"hookStrategy" prompt_desc:"how the opening grabs attention"`
	LengthEstimate string `json:"lengthEstimate" prompt_desc:"expected length, e.g. 5-7 tweets, 800 words"`
	EngagementGoal string `json:"engagementGoal" prompt_desc:"what reaction the post should drive"`
}

// ContentBrief is a strategic plan for one piece of content, not final copy.
type ContentBrief struct {
	BriefID            string                     `json:"briefId" prompt_desc:"unique id within the batch"`
	ContentAngle       string                     `json:"contentAngle" prompt_desc:"the specific angle taken on the item"`
	StrategicValue     string                     `json:"strategicValue" prompt_desc:"why this matters for the business"`
	TargetChannels     []string                   `json:"targetChannels" prompt_desc:"lowercase channel names, e.g. twitter, linkedin, blog"`
	ContentType        ContentType                `json:"contentType" prompt_type:"single_modal|multi_modal"`
	KeyMessage         string                     `json:"keyMessage" prompt_desc:"one-sentence takeaway"`
	BusinessConnection string                     `json:"businessConnection" prompt_desc:"how the item ties to the business"`
	ContentComponents  ContentComponents          `json:"contentComponents"`
	ChannelStrategies  map[string]ChannelStrategy `json:"channelStrategies" prompt_desc:"one entry per target channel"`
	CreationPrompts    map[string]string          `json:"creationPrompts" prompt_desc:"ready-to-send generation instruction per target channel, plus visual when multi_modal"`
	CoordinationNotes  string                     `json:"coordinationNotes" prompt_desc:"how the components fit together"`
}

// MissingChannels returns the target channels lacking a strategy or a
// creation prompt. An empty result means the brief is internally consistent.
func (b ContentBrief) MissingChannels() []string {
	var missing []string
	for _, ch := range b.TargetChannels {
		_, hasStrategy := b.ChannelStrategies[ch]
		_, hasPrompt := b.CreationPrompts[ch]
		if !hasStrategy || !hasPrompt {
			missing = append(missing, ch)
		}
	}
	return missing
}

// HasChannel reports whether channel is one of the brief's targets.
func (b ContentBrief) HasChannel(channel string) bool {
	channel = NormalizeChannel(channel)
	for _, ch := range b.TargetChannels {
		if NormalizeChannel(ch) == channel {
			return true
		}
	}
	return false
}

// NormalizeChannel lowercases and trims a channel name and folds the
// common aliases the backend uses.
func NormalizeChannel(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "x", "x/twitter", "twitter/x", "tweet":
		return "twitter"
	case "linked in", "linked-in":
		return "linkedin"
	case "blog post", "blog_post", "article":
		return "blog"
	case "ig":
		return "instagram"
	}
	return n
}
