// Package bizctx merges the two business-context sources into one
// canonical BusinessContext.
package bizctx

import (
	"strings"

	"contentpilot/internal/types"
)

// Aggregate merges user-provided and website-extracted knowledge.
//
// Identity and positioning fields take the website value when it is
// non-empty and fall back to the user value. Business stage and category
// fields come only from the user. Both inputs may be nil. The result is a
// pure function of its inputs.
func Aggregate(user *types.UserInput, web *types.WebsiteIntelligence) types.BusinessContext {
	var u types.UserInput
	var w types.WebsiteIntelligence
	if user != nil {
		u = *user
	}
	if web != nil {
		w = *web
	}

	out := types.BusinessContext{
		CompanyName:         preferWeb(w.CompanyName, u.CompanyName),
		Industry:            preferWeb(w.Industry, u.Industry),
		BusinessStage:       strings.TrimSpace(u.BusinessStage),
		ValueProposition:    preferWeb(w.ValueProposition, u.ValueProposition),
		TargetCustomer:      preferWeb(w.TargetCustomer, u.TargetCustomer),
		KeyFeatures:         preferWebList(w.KeyFeatures, u.KeyFeatures),
		UniqueSellingPoints: preferWebList(w.UniqueSellingPoints, u.UniqueSellingPoints),
		CategoryFields:      normalizeFields(u.CategoryFields),
	}

	out.HasUserInput = user != nil && userHasData(u)
	out.HasWebsiteIntelligence = web != nil && webHasData(w)

	switch {
	case out.HasWebsiteIntelligence:
		out.ExtractionMethod = w.ExtractionMethod
		if out.ExtractionMethod == "" || out.ExtractionMethod == types.ExtractionNone {
			out.ExtractionMethod = types.ExtractionAIExtracted
		}
	case out.HasUserInput:
		out.ExtractionMethod = types.ExtractionManual
	default:
		out.ExtractionMethod = types.ExtractionNone
	}
	return out
}

// FromInput is Aggregate over the wire shape.
func FromInput(in types.ContextInput) types.BusinessContext {
	return Aggregate(in.UserInput, in.WebsiteIntelligence)
}

// IsEmpty reports whether no source contributed anything.
func IsEmpty(bc types.BusinessContext) bool {
	return !bc.HasUserInput && !bc.HasWebsiteIntelligence
}

func preferWeb(web, user string) string {
	if w := strings.TrimSpace(web); w != "" {
		return w
	}
	return strings.TrimSpace(user)
}

func preferWebList(web, user []string) []string {
	if w := cleanList(web); len(w) > 0 {
		return w
	}
	return cleanList(user)
}

// cleanList trims entries, drops blanks and removes case-insensitive
// duplicates while keeping first-seen order.
func cleanList(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		k := strings.ToLower(s)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func normalizeFields(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func userHasData(u types.UserInput) bool {
	return strings.TrimSpace(u.CompanyName) != "" ||
		strings.TrimSpace(u.Industry) != "" ||
		strings.TrimSpace(u.BusinessStage) != "" ||
		strings.TrimSpace(u.ValueProposition) != "" ||
		strings.TrimSpace(u.TargetCustomer) != "" ||
		len(cleanList(u.KeyFeatures)) > 0 ||
		len(cleanList(u.UniqueSellingPoints)) > 0 ||
		len(normalizeFields(u.CategoryFields)) > 0
}

func webHasData(w types.WebsiteIntelligence) bool {
	return strings.TrimSpace(w.CompanyName) != "" ||
		strings.TrimSpace(w.Industry) != "" ||
		strings.TrimSpace(w.ValueProposition) != "" ||
		strings.TrimSpace(w.TargetCustomer) != "" ||
		len(cleanList(w.KeyFeatures)) > 0 ||
		len(cleanList(w.UniqueSellingPoints)) > 0
}
