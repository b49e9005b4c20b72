package types

import (
	"encoding/json"
	"strings"
)

// UnmarshalJSON makes ContentType accept the spellings backends produce:
// "multi_modal" | "multimodal" | "multi-modal" | "text+visual" and
// "single_modal" | "singlemodal" | "text". Anything else maps to single_modal.
func (c *ContentType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*c = ContentSingleModal
		return nil
	}
	*c = ParseContentType(s)
	return nil
}

// ParseContentType folds a free-form content type into the two known values.
func ParseContentType(s string) ContentType {
	n := strings.ToLower(strings.TrimSpace(s))
	n = strings.NewReplacer("-", "_", " ", "_").Replace(n)
	switch n {
	case "multi_modal", "multimodal", "text+visual", "text_and_visual", "mixed":
		return ContentMultiModal
	default:
		return ContentSingleModal
	}
}

// UnmarshalJSON makes ContentComponents accept either:
// 1) object: {"primaryComponent":{...},"supportingVisual":{...}}
// 2) short keys: {"primary":{...},"visual":{...}}
// 3) string components: {"primaryComponent":"thread on X"}
func (cc *ContentComponents) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		*cc = ContentComponents{}
		return nil
	}
	if raw, ok := firstKey(m, "primaryComponent", "primary", "primary_component"); ok {
		cc.Primary = decodeComponent(raw)
	}
	if raw, ok := firstKey(m, "supportingVisual", "visual", "supporting_visual"); ok {
		if v := decodeVisual(raw); v != nil {
			cc.SupportingVisual = v
		}
	}
	return nil
}

// UnmarshalJSON lets a channel strategy arrive as a bare string, which is
// taken as the format.
func (s *ChannelStrategy) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = ChannelStrategy{Format: strings.TrimSpace(str)}
		return nil
	}
	type plain ChannelStrategy
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var alt struct {
		Hook   string `json:"hook"`
		Length string `json:"length"`
		Goal   string `json:"goal"`
	}
	_ = json.Unmarshal(data, &alt)
	*s = ChannelStrategy(p)
	if s.HookStrategy == "" {
		s.HookStrategy = alt.Hook
	}
	if s.LengthEstimate == "" {
		s.LengthEstimate = alt.Length
	}
	if s.EngagementGoal == "" {
		s.EngagementGoal = alt.Goal
	}
	return nil
}

func decodeComponent(raw json.RawMessage) Component {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return Component{Focus: strings.TrimSpace(s)}
	}
	var c struct {
		Type        string `json:"type"`
		Focus       string `json:"focus"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return Component{}
	}
	if c.Focus == "" {
		c.Focus = c.Description
	}
	return Component{Type: c.Type, Focus: c.Focus}
}

func decodeVisual(raw json.RawMessage) *VisualComponent {
	if string(raw) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if strings.TrimSpace(s) == "" {
			return nil
		}
		return &VisualComponent{Requirements: strings.TrimSpace(s)}
	}
	var v struct {
		Type         string `json:"type"`
		Requirements string `json:"requirements"`
		Description  string `json:"description"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	if v.Requirements == "" {
		v.Requirements = v.Description
	}
	if v.Type == "" && v.Requirements == "" {
		return nil
	}
	return &VisualComponent{Type: v.Type, Requirements: v.Requirements}
}

func firstKey(m map[string]json.RawMessage, keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		if raw, ok := m[k]; ok {
			return raw, true
		}
	}
	return nil, false
}
