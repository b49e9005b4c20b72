package parse

import (
	"fmt"
	"strings"

	"contentpilot/internal/types"
)

const (
	reasonNotEvaluated = "Not evaluated by the backend"
	reasonNoReason     = "Rejected by the backend without a stated reason"
	reasonNoBriefs     = "No brief survived validation"
)

// locateResults finds the per-item verdicts: a top-level array, a known
// results key, or the same inside a wrapper object.
func locateResults(root any) ([]any, map[string]any, bool) {
	switch t := root.(type) {
	case []any:
		return t, nil, true
	case map[string]any:
		if v, ok := lookup(t, "results", "evaluations", "articles", "items", "viabilityResults"); ok {
			if arr, ok := v.([]any); ok {
				return arr, t, true
			}
		}
		for _, k := range []string{"data", "result", "response", "output", "batch"} {
			if inner, ok := lookup(t, k); ok {
				if arr, top, ok := locateResults(inner); ok {
					if top == nil {
						top = t
					}
					return arr, top, true
				}
			}
		}
		if _, ok := lookup(t, "articleId"); ok {
			return []any{t}, nil, true
		}
	}
	return nil, nil, false
}

type batchParser struct {
	pol   Policy
	ids   *briefIDs
	warns []types.DataQualityWarning
}

func (p *batchParser) warn(code types.WarningCode, articleID, briefID, format string, args ...any) {
	p.warns = append(p.warns, types.DataQualityWarning{
		Code:      code,
		ArticleID: articleID,
		BriefID:   briefID,
		Message:   fmt.Sprintf(format, args...),
	})
}

func parseBatch(root any, exp Expect, pol Policy) (Result, error) {
	const stage = types.StageEvaluateAndBrief
	entries, top, ok := locateResults(root)
	if !ok {
		return Result{}, invalid(stage, nil, "no results array in payload")
	}

	items := exp.Items
	if len(items) == 0 {
		items = itemsFromEntries(entries)
	}
	// Echoed ids come back trimmed, so index on the trimmed form.
	index := make(map[string]int, len(items))
	for i, it := range items {
		index[strings.TrimSpace(it.ID)] = i
	}

	p := &batchParser{pol: pol, ids: newBriefIDs()}
	rows := make([]map[string]any, len(items))
	matched := 0
	for pos, e := range entries {
		m, ok := e.(map[string]any)
		if !ok {
			p.warn(types.WarnMalformedBrief, "", "", "result entry %d is not an object", pos)
			continue
		}
		id := str(m, "articleId", "id", "itemId", "candidateId")
		i, known := index[id]
		if id == "" {
			i, known = pos, pos < len(items)
		}
		if !known {
			p.warn(types.WarnUnknownArticle, id, "", "result for unknown article dropped")
			continue
		}
		if rows[i] != nil {
			p.warn(types.WarnDuplicateArticle, items[i].ID, "", "duplicate result dropped")
			continue
		}
		rows[i] = m
		matched++
	}
	if matched == 0 {
		return Result{}, invalid(stage, nil, "no result matched any candidate item")
	}

	batch := &types.BatchResult{EvaluatedCount: len(items), Results: make([]types.ViabilityResult, 0, len(items))}
	for i, it := range items {
		if rows[i] == nil {
			p.warn(types.WarnMissingResult, it.ID, "", "backend returned no verdict")
			batch.Results = append(batch.Results, rejected(it, reasonNotEvaluated))
			continue
		}
		r, err := p.result(it, rows[i])
		if err != nil {
			return Result{}, err
		}
		batch.Results = append(batch.Results, r)
	}
	batch.Recount()
	p.checkStatedCounts(top, batch)

	batch.Warnings = p.warns
	return Result{Batch: batch, Warnings: p.warns}, nil
}

func rejected(it types.CandidateItem, reason string) types.ViabilityResult {
	return types.ViabilityResult{
		ArticleID:       it.ID,
		ArticleTitle:    it.Title,
		RejectionReason: reason,
		Briefs:          []types.ContentBrief{},
	}
}

// result enforces the verdict invariants for one item.
func (p *batchParser) result(it types.CandidateItem, m map[string]any) (types.ViabilityResult, error) {
	reason := str(m, "rejectionReason", "reason", "rejection")
	var rawBriefs []any
	if v, ok := lookup(m, "briefs", "contentBriefs", "brief"); ok {
		rawBriefs = asList(v)
	}
	vv, _ := lookup(m, "viable", "isViable", "viability")
	viable, ok := asBool(vv)
	if !ok {
		viable = len(rawBriefs) > 0 && reason == ""
	}
	if it.Title == "" {
		it.Title = str(m, "articleTitle", "title")
	}

	if !viable {
		if len(rawBriefs) > 0 {
			p.warn(types.WarnBriefsOnRejected, it.ID, "", "%d brief(s) on a rejected item discarded", len(rawBriefs))
		}
		if reason == "" {
			p.warn(types.WarnMissingRejection, it.ID, "", "rejected item had no reason")
			reason = reasonNoReason
		}
		return rejected(it, reason), nil
	}
	if reason != "" {
		p.warn(types.WarnUnexpectedRejection, it.ID, "", "rejection reason on a viable item cleared")
	}

	briefs := make([]types.ContentBrief, 0, len(rawBriefs))
	for n, raw := range rawBriefs {
		b, err := decodeBrief(raw)
		var defect *types.DataQualityWarning
		if err != nil {
			defect = &types.DataQualityWarning{Code: types.WarnMalformedBrief, ArticleID: it.ID, Message: fmt.Sprintf("brief %d: %v", n+1, err)}
		} else {
			defect = briefDefect(it.ID, b)
		}
		if defect != nil {
			if p.pol.Defects == DefectFail {
				return types.ViabilityResult{}, invalid(types.StageEvaluateAndBrief, nil, "article %s: %s", it.ID, defect.Message)
			}
			p.warns = append(p.warns, *defect)
			continue
		}
		briefs = append(briefs, b)
	}
	if len(briefs) > p.pol.MaxBriefsPerItem {
		p.warn(types.WarnBriefLimit, it.ID, "", "kept first %d of %d briefs", p.pol.MaxBriefsPerItem, len(briefs))
		briefs = briefs[:p.pol.MaxBriefsPerItem]
	}
	for i := range briefs {
		id, repaired := p.ids.claim(it.ID, briefs[i].BriefID)
		if repaired {
			p.warn(types.WarnBriefID, it.ID, id, "brief id %q replaced", briefs[i].BriefID)
		}
		briefs[i].BriefID = id
	}

	if len(briefs) == 0 {
		p.warn(types.WarnEmptyViable, it.ID, "", "viable item has no usable brief")
		if p.pol.DemoteEmptyViable {
			return rejected(it, reasonNoBriefs), nil
		}
	}
	return types.ViabilityResult{ArticleID: it.ID, ArticleTitle: it.Title, Viable: true, Briefs: briefs}, nil
}

// checkStatedCounts records a warning when the backend's own summary
// disagrees with the recomputed one. The recomputed values always win.
func (p *batchParser) checkStatedCounts(top map[string]any, b *types.BatchResult) {
	if top == nil {
		return
	}
	check := func(key string, got int) {
		v, ok := lookup(top, key)
		if !ok {
			return
		}
		if n, ok := asInt(v); ok && n != got {
			p.warn(types.WarnCountMismatch, "", "", "backend %s=%d, recomputed %d", key, n, got)
		}
	}
	check("evaluatedCount", b.EvaluatedCount)
	check("viableCount", b.ViableCount)
	check("totalBriefs", b.TotalBriefs)
}

// itemsFromEntries derives the item list when the caller has none.
func itemsFromEntries(entries []any) []types.CandidateItem {
	var items []types.CandidateItem
	seen := map[string]bool{}
	for i, e := range entries {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		id := str(m, "articleId", "id", "itemId", "candidateId")
		if id == "" {
			id = fmt.Sprintf("item-%d", i+1)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		items = append(items, types.CandidateItem{ID: id, Title: str(m, "articleTitle", "title")})
	}
	return items
}
