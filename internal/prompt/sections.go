// Package prompt renders the backend prompt for each pipeline stage as a
// composition of named sections.
package prompt

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"contentpilot/internal/llmtool"
	"contentpilot/internal/types"
)

// MaxCandidatesPerPrompt is the largest batch rendered into one prompt.
// Larger batches are rejected with ErrBatchTooLarge, never truncated.
const MaxCandidatesPerPrompt = 25

// Section titles. The fake backend and tests look these up by name.
const (
	SectionBusinessContext = "BUSINESS_CONTEXT"
	SectionCandidates      = "CANDIDATES"
	SectionCriteria        = "CRITERIA"
	SectionOriginalBrief   = "ORIGINAL_BRIEF"
	SectionVariation       = "VARIATION"
	SectionBrief           = "BRIEF"
	SectionChannel         = "CHANNEL"
)

// ContextBlock renders every BusinessContext slot, substituting
// types.NotSpecified for absent values so no slot is dropped.
func ContextBlock(bc types.BusinessContext) string {
	var b strings.Builder
	line := func(label, v string) {
		fmt.Fprintf(&b, "%s: %s\n", label, orNotSpecified(v))
	}
	line("Company name", bc.CompanyName)
	line("Industry", bc.Industry)
	line("Business stage", bc.BusinessStage)
	line("Value proposition", bc.ValueProposition)
	line("Target customer", bc.TargetCustomer)
	line("Key features", joinList(bc.KeyFeatures))
	line("Unique selling points", joinList(bc.UniqueSellingPoints))

	if len(bc.CategoryFields) == 0 {
		line("Category details", "")
	} else {
		b.WriteString("Category details:\n")
		keys := make([]string, 0, len(bc.CategoryFields))
		for k := range bc.CategoryFields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "  - %s: %s\n", k, orNotSpecified(bc.CategoryFields[k]))
		}
	}

	method := bc.ExtractionMethod
	if method == "" {
		method = types.ExtractionNone
	}
	fmt.Fprintf(&b, "Sources: user input=%s, website intelligence=%s, extraction method=%s",
		yesNo(bc.HasUserInput), yesNo(bc.HasWebsiteIntelligence), method)
	return b.String()
}

// CriteriaChecklist is the enumerated accept/reject checklist. An item is
// viable only when every entry holds.
func CriteriaChecklist() []string {
	return []string{
		"Substance: the item carries concrete material (data, an event, a clear argument, a how-to), not a bare headline, listicle filler, or advertisement.",
		"Relevance: there is a credible link between the item's topic and the business's industry, target customer, or value proposition.",
		"Authenticity: the business can add a genuine perspective without claiming expertise, results, or features it does not have.",
		"Brand safety: the topic is not a tragedy, partisan political issue, or controversy the business has no standing to comment on.",
		"Freshness: the item is not so dated that commenting on it would look out of touch; a missing publishedAt is not a reason to reject.",
		"Reddit engagement (reddit items only): upvotes and comments indicate real audience interest; low engagement alone is never sufficient grounds to reject.",
	}
}

// CriteriaBlock renders the checklist plus the verdict rule.
func CriteriaBlock() string {
	return llmtool.FormatNumbered(CriteriaChecklist()) +
		"\nMark an item viable only when every applicable criterion holds. Otherwise mark it not viable and name the failed criterion in rejectionReason."
}

// candidateView is the prompt-facing projection of a CandidateItem.
type candidateView struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url,omitempty"`
	Domain      string `json:"domain,omitempty"`
	PublishedAt string `json:"publishedAt,omitempty"`
	SourceType  string `json:"sourceType"`
	Upvotes     *int   `json:"upvotes,omitempty"`
	Comments    *int   `json:"comments,omitempty"`
}

// CandidatesBlock renders the batch as a JSON array in input order.
func CandidatesBlock(items []types.CandidateItem) (string, error) {
	views := make([]candidateView, 0, len(items))
	for _, it := range items {
		v := candidateView{
			ID:          it.ID,
			Title:       it.Title,
			URL:         it.URL,
			Domain:      it.Domain,
			PublishedAt: it.PublishedAt,
			SourceType:  string(it.SourceType),
		}
		if v.SourceType == "" {
			v.SourceType = string(types.SourceWeb)
		}
		if it.SourceType == types.SourceReddit {
			v.Upvotes = it.Upvotes
			v.Comments = it.Comments
		}
		views = append(views, v)
	}
	return llmtool.FormatJSON(views)
}

// CandidateIDs extracts the ids from a rendered [CANDIDATES] block body.
func CandidateIDs(body string) []string {
	var views []candidateView
	if err := json.Unmarshal([]byte(body), &views); err != nil {
		return nil
	}
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, v.ID)
	}
	return out
}

func orNotSpecified(v string) string {
	if strings.TrimSpace(v) == "" {
		return types.NotSpecified
	}
	return strings.TrimSpace(v)
}

func joinList(items []string) string {
	clean := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			clean = append(clean, s)
		}
	}
	return strings.Join(clean, "; ")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
