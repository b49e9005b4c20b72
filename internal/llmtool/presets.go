package llmtool

// PromptPreset holds reusable constraints and rules for structured prompts.
type PromptPreset struct {
	Constraints []string
	Rules       []string
}

// ApplyPresets prepends preset constraints/rules to a structured prompt spec.
func ApplyPresets(spec StructuredPromptSpec, presets ...PromptPreset) StructuredPromptSpec {
	if len(presets) == 0 {
		return spec
	}
	var merged PromptPreset
	for _, p := range presets {
		merged.Constraints = append(merged.Constraints, p.Constraints...)
		merged.Rules = append(merged.Rules, p.Rules...)
	}
	spec.Constraints = append(merged.Constraints, spec.Constraints...)
	spec.Rules = append(merged.Rules, spec.Rules...)
	return spec
}

// PresetStrictJSON enforces a single JSON document as the whole reply.
func PresetStrictJSON() PromptPreset {
	return PromptPreset{
		Constraints: []string{
			"Return one JSON object only, with no text before or after it.",
			"Match the schema exactly; use camelCase keys as shown.",
			"No markdown fences, comments, or trailing commas.",
		},
	}
}

// PresetNoInvent keeps the model from fabricating facts about the business
// or the candidate items.
func PresetNoInvent() PromptPreset {
	return PromptPreset{
		Constraints: []string{
			"Do not invent business facts; where a field reads \"Not specified\", do not assume a value for it.",
			"Refer to candidate items only by the ids given in the input.",
		},
	}
}

// PresetChannelConsistency ties per-channel maps to the declared channels.
func PresetChannelConsistency() PromptPreset {
	return PromptPreset{
		Rules: []string{
			"Every channel in targetChannels must have an entry in channelStrategies and in creationPrompts.",
			"Use lowercase channel names (twitter, linkedin, blog, reddit, instagram, newsletter).",
			"When contentType is multi_modal, describe supportingVisual and add a \"visual\" entry to creationPrompts.",
		},
	}
}
