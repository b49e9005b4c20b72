package types

// ViabilityResult is the verdict for one candidate item.
// RejectionReason is set exactly when Viable is false; Briefs is empty then.
type ViabilityResult struct {
	ArticleID       string         `json:"articleId"`
	ArticleTitle    string         `json:"articleTitle"`
	Viable          bool           `json:"viable"`
	RejectionReason string         `json:"rejectionReason,omitempty"`
	Briefs          []ContentBrief `json:"briefs"`
}

// BatchResult is the top-level output of one brief-generation invocation.
// Counts are always recomputed from Results.
type BatchResult struct {
	RunID          string               `json:"runId,omitempty"`
	EvaluatedCount int                  `json:"evaluatedCount"`
	ViableCount    int                  `json:"viableCount"`
	TotalBriefs    int                  `json:"totalBriefs"`
	Results        []ViabilityResult    `json:"results"`
	Warnings       []DataQualityWarning `json:"warnings,omitempty"`
}

// Recount recomputes the summary counters from Results.
func (b *BatchResult) Recount() {
	b.ViableCount = 0
	b.TotalBriefs = 0
	for _, r := range b.Results {
		if r.Viable {
			b.ViableCount++
		}
		b.TotalBriefs += len(r.Briefs)
	}
}

// ReplaceBrief swaps the brief with the same BriefID in place. It returns
// false when no brief matches.
func (b *BatchResult) ReplaceBrief(brief ContentBrief) bool {
	for i := range b.Results {
		for j := range b.Results[i].Briefs {
			if b.Results[i].Briefs[j].BriefID == brief.BriefID {
				b.Results[i].Briefs[j] = brief
				return true
			}
		}
	}
	return false
}

// RegenerationRequest asks for one brief to be regenerated. Constructed per
// user action and consumed once.
type RegenerationRequest struct {
	TargetBrief      ContentBrief    `json:"brief"`
	BusinessContext  BusinessContext `json:"businessContext"`
	VariationRequest string          `json:"variationRequest,omitempty"`
}

// ChannelContent is finished copy for one channel of a brief.
type ChannelContent struct {
	BriefID           string   `json:"briefId" prompt_desc:"id of the brief this content belongs to"`
	Channel           string   `json:"channel" prompt_desc:"the channel the copy is written for"`
	Content           string   `json:"content" prompt_desc:"ready-to-publish copy"`
	Hashtags          []string `json:"hashtags" prompt:"optional"`
	CallToAction      string   `json:"callToAction" prompt:"optional"`
	VisualDescription string   `json:"visualDescription,omitempty" prompt:"optional" prompt_desc:"description of the visual when the brief is multi_modal"`
}

// WarningCode classifies a data-quality defect.
type WarningCode string

const (
	WarnChannelMismatch        WarningCode = "brief_channel_mismatch"
	WarnMissingRejection       WarningCode = "missing_rejection_reason"
	WarnUnexpectedRejection    WarningCode = "unexpected_rejection_reason"
	WarnBriefsOnRejected       WarningCode = "briefs_on_rejected_item"
	WarnCountMismatch          WarningCode = "count_mismatch"
	WarnUnknownArticle         WarningCode = "unknown_article"
	WarnDuplicateArticle       WarningCode = "duplicate_article"
	WarnMissingResult          WarningCode = "missing_result"
	WarnBriefID                WarningCode = "brief_id_repaired"
	WarnBriefLimit             WarningCode = "brief_limit_exceeded"
	WarnMalformedBrief         WarningCode = "malformed_brief"
	WarnEmptyViable            WarningCode = "viable_without_briefs"
	WarnRegenerationDrift      WarningCode = "regeneration_drift"
	WarnChannelContentMismatch WarningCode = "channel_content_mismatch"
)

// DataQualityWarning records a per-item or per-brief defect that was
// repaired or dropped instead of failing the stage.
type DataQualityWarning struct {
	Code      WarningCode `json:"code"`
	ArticleID string      `json:"articleId,omitempty"`
	BriefID   string      `json:"briefId,omitempty"`
	Message   string      `json:"message"`
}
