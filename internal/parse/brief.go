package parse

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"contentpilot/internal/types"
)

var errNotObject = errors.New("not an object")

// decodeBrief builds a ContentBrief from a loosely shaped object.
func decodeBrief(v any) (types.ContentBrief, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return types.ContentBrief{}, errNotObject
	}
	b := types.ContentBrief{
		BriefID:            str(m, "briefId", "id"),
		ContentAngle:       str(m, "contentAngle", "angle"),
		StrategicValue:     str(m, "strategicValue"),
		ContentType:        types.ParseContentType(str(m, "contentType", "modality")),
		KeyMessage:         str(m, "keyMessage", "message"),
		BusinessConnection: str(m, "businessConnection"),
		CoordinationNotes:  str(m, "coordinationNotes", "notes"),
	}
	if tc, ok := lookup(m, "targetChannels", "channels"); ok {
		b.TargetChannels = channels(tc)
	}
	if cc, ok := lookup(m, "contentComponents", "components"); ok && cc != nil {
		if err := remarshal(cc, &b.ContentComponents); err != nil {
			return b, fmt.Errorf("contentComponents: %w", err)
		}
	}
	if cs, ok := lookup(m, "channelStrategies", "strategies"); ok {
		b.ChannelStrategies = map[string]types.ChannelStrategy{}
		for ch, raw := range channelMap(cs) {
			var s types.ChannelStrategy
			if err := remarshal(raw, &s); err == nil {
				b.ChannelStrategies[ch] = s
			}
		}
	}
	if cp, ok := lookup(m, "creationPrompts", "prompts"); ok {
		b.CreationPrompts = map[string]string{}
		for ch, raw := range channelMap(cp) {
			if p := promptText(raw); p != "" {
				b.CreationPrompts[ch] = p
			}
		}
	}
	if b.ContentComponents.SupportingVisual != nil && b.ContentType == types.ContentSingleModal {
		if _, ok := b.CreationPrompts[types.VisualPromptKey]; ok {
			b.ContentType = types.ContentMultiModal
		}
	}
	return b, nil
}

// promptText accepts a string or an object carrying the instruction.
func promptText(v any) string {
	if m, ok := v.(map[string]any); ok {
		return str(m, "prompt", "text", "instruction", "content")
	}
	return asString(v)
}

// briefDefect returns the warning for a brief that breaks its invariants,
// or nil when the brief is usable.
func briefDefect(articleID string, b types.ContentBrief) *types.DataQualityWarning {
	if len(b.TargetChannels) == 0 {
		return &types.DataQualityWarning{
			Code:      types.WarnMalformedBrief,
			ArticleID: articleID,
			BriefID:   b.BriefID,
			Message:   "brief has no target channels",
		}
	}
	if missing := b.MissingChannels(); len(missing) > 0 {
		return &types.DataQualityWarning{
			Code:      types.WarnChannelMismatch,
			ArticleID: articleID,
			BriefID:   b.BriefID,
			Message:   "target channels without strategy or creation prompt: " + strings.Join(missing, ", "),
		}
	}
	return nil
}

// briefIDs hands out batch-unique brief ids.
type briefIDs struct {
	seen map[string]bool
}

func newBriefIDs() *briefIDs { return &briefIDs{seen: map[string]bool{}} }

// claim keeps id when it is free, otherwise allocates <articleId>-brief-<n>.
// repaired reports whether the id changed.
func (s *briefIDs) claim(articleID, id string) (out string, repaired bool) {
	id = strings.TrimSpace(id)
	if id != "" && !s.seen[id] {
		s.seen[id] = true
		return id, false
	}
	for n := 1; ; n++ {
		cand := fmt.Sprintf("%s-brief-%d", strings.TrimSpace(articleID), n)
		if !s.seen[cand] {
			s.seen[cand] = true
			return cand, true
		}
	}
}

// fillFrom copies strategies and prompts the brief lacks from orig and
// returns the channels that were filled.
func fillFrom(b *types.ContentBrief, orig types.ContentBrief) []string {
	var filled []string
	for _, ch := range b.TargetChannels {
		got := false
		if _, ok := b.ChannelStrategies[ch]; !ok {
			if s, ok := orig.ChannelStrategies[ch]; ok {
				if b.ChannelStrategies == nil {
					b.ChannelStrategies = map[string]types.ChannelStrategy{}
				}
				b.ChannelStrategies[ch] = s
				got = true
			}
		}
		if _, ok := b.CreationPrompts[ch]; !ok {
			if p, ok := orig.CreationPrompts[ch]; ok {
				if b.CreationPrompts == nil {
					b.CreationPrompts = map[string]string{}
				}
				b.CreationPrompts[ch] = p
				got = true
			}
		}
		if got {
			filled = append(filled, ch)
		}
	}
	sort.Strings(filled)
	return filled
}
