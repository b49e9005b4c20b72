// Package parse turns raw completion text into validated stage results.
// Whole-stage shape failures become *ValidationError; per-item defects are
// repaired or dropped and reported as data-quality warnings.
package parse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"contentpilot/internal/types"
	"contentpilot/internal/util/jsonutil"
)

// Expect carries what the prompt asked for, so results can be aligned
// and identities enforced.
type Expect struct {
	Items   []types.CandidateItem
	Brief   *types.ContentBrief
	Channel string
}

// Result holds the structured payload of one stage. Exactly one of Batch,
// Brief and Content is set, matching the stage.
type Result struct {
	Batch    *types.BatchResult
	Brief    *types.ContentBrief
	Content  *types.ChannelContent
	Warnings []types.DataQualityWarning
}

// ParseAndValidate extracts the JSON payload from raw, checks its shape
// for stage and enforces the cross-field invariants.
func ParseAndValidate(stage types.Stage, raw string, exp Expect, pol Policy) (Result, error) {
	root, err := decodeRoot(stage, raw)
	if err != nil {
		return Result{}, err
	}
	pol = pol.withDefaults()

	switch stage {
	case types.StageEvaluateAndBrief:
		return parseBatch(root, exp, pol)
	case types.StageRegenerateOne:
		return parseRegenerated(root, exp)
	case types.StageGenerateChannelContent:
		return parseChannelContent(root, exp)
	}
	return Result{}, fmt.Errorf("parse: unknown stage %q", stage)
}

func decodeRoot(stage types.Stage, raw string) (any, error) {
	payload, err := jsonutil.Extract(raw)
	if err != nil {
		return nil, invalid(stage, err, "no JSON payload in response")
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, invalid(stage, err, "undecodable JSON payload")
	}
	return root, nil
}

// unwrapObject returns the object that carries the payload, looking
// through one-element arrays and the given wrapper keys.
func unwrapObject(root any, wrappers ...string) (map[string]any, bool) {
	switch t := root.(type) {
	case []any:
		if len(t) == 1 {
			return unwrapObject(t[0], wrappers...)
		}
	case map[string]any:
		if inner, ok := lookup(t, wrappers...); ok {
			if m, ok := unwrapObject(inner, wrappers...); ok {
				return m, true
			}
		}
		return t, true
	}
	return nil, false
}

func parseRegenerated(root any, exp Expect) (Result, error) {
	const stage = types.StageRegenerateOne
	if exp.Brief == nil {
		return Result{}, fmt.Errorf("parse: %s needs the original brief", stage)
	}
	orig := *exp.Brief
	m, ok := unwrapObject(root, "brief", "contentBrief", "regeneratedBrief", "result", "data")
	if !ok {
		return Result{}, invalid(stage, nil, "payload is not a brief object")
	}
	b, err := decodeBrief(m)
	if err != nil {
		return Result{}, invalid(stage, err, "regenerated brief is malformed")
	}
	if b.ContentAngle == "" && b.KeyMessage == "" && len(b.CreationPrompts) == 0 {
		return Result{}, invalid(stage, nil, "regenerated brief is empty")
	}

	var warns []types.DataQualityWarning
	drift := func(msg string) {
		warns = append(warns, types.DataQualityWarning{Code: types.WarnRegenerationDrift, BriefID: orig.BriefID, Message: msg})
	}
	if b.BriefID != orig.BriefID {
		drift("briefId changed by the backend; restored")
		b.BriefID = orig.BriefID
	}
	if !sameSet(b.TargetChannels, orig.TargetChannels) {
		drift("targetChannels changed by the backend; restored")
	}
	b.TargetChannels = append([]string(nil), orig.TargetChannels...)
	b.ChannelStrategies = rekey(b.ChannelStrategies, orig.TargetChannels)
	b.CreationPrompts = rekey(b.CreationPrompts, orig.TargetChannels)
	if filled := fillFrom(&b, orig); len(filled) > 0 {
		warns = append(warns, types.DataQualityWarning{
			Code:    types.WarnChannelMismatch,
			BriefID: orig.BriefID,
			Message: fmt.Sprintf("kept original strategy or prompt for: %v", filled),
		})
	}
	if w := briefDefect("", b); w != nil {
		return Result{}, invalid(stage, nil, "%s", w.Message)
	}
	return Result{Brief: &b, Warnings: warns}, nil
}

func parseChannelContent(root any, exp Expect) (Result, error) {
	const stage = types.StageGenerateChannelContent
	m, ok := unwrapObject(root, "channelContent", "result", "data", "output")
	if !ok {
		return Result{}, invalid(stage, nil, "payload is not an object")
	}
	out := types.ChannelContent{
		BriefID:           str(m, "briefId"),
		Channel:           types.NormalizeChannel(str(m, "channel", "platform")),
		Content:           str(m, "content", "text", "post", "copy", "body"),
		CallToAction:      str(m, "callToAction", "cta"),
		VisualDescription: str(m, "visualDescription", "visual", "imageDescription"),
	}
	if out.Content == "" {
		return Result{}, invalid(stage, nil, "content is empty")
	}
	if v, ok := lookup(m, "hashtags", "tags"); ok {
		out.Hashtags = hashtags(v)
	}
	if out.Hashtags == nil {
		out.Hashtags = []string{}
	}

	var warns []types.DataQualityWarning
	want := types.NormalizeChannel(exp.Channel)
	var briefID string
	if exp.Brief != nil {
		briefID = exp.Brief.BriefID
	}
	if want != "" && out.Channel != want {
		if out.Channel != "" {
			warns = append(warns, types.DataQualityWarning{Code: types.WarnChannelContentMismatch, BriefID: briefID, Message: "channel changed by the backend; restored"})
		}
		out.Channel = want
	}
	if briefID != "" && out.BriefID != briefID {
		if out.BriefID != "" {
			warns = append(warns, types.DataQualityWarning{Code: types.WarnChannelContentMismatch, BriefID: briefID, Message: "briefId changed by the backend; restored"})
		}
		out.BriefID = briefID
	}
	return Result{Content: &out, Warnings: warns}, nil
}

// hashtags accepts a list or a whitespace/comma separated string and
// returns deduplicated tags with a leading '#'.
func hashtags(v any) []string {
	var raw []string
	if s, ok := v.(string); ok {
		raw = strings.FieldsFunc(s, func(r rune) bool { return r == ',' || unicode.IsSpace(r) })
	} else {
		raw = asStrings(v)
	}
	out := []string{}
	seen := map[string]bool{}
	for _, t := range raw {
		t = "#" + trimHash(t)
		if t == "#" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func trimHash(s string) string {
	return strings.TrimLeft(strings.TrimSpace(s), "#")
}

// rekey renames normalized channel keys back to the caller's spelling in
// targets. Keys matching no target are kept as they are.
func rekey[V any](m map[string]V, targets []string) map[string]V {
	if m == nil {
		return nil
	}
	spelling := make(map[string]string, len(targets))
	for _, t := range targets {
		if n := types.NormalizeChannel(t); spelling[n] == "" {
			spelling[n] = t
		}
	}
	out := make(map[string]V, len(m))
	for k, v := range m {
		if t, ok := spelling[k]; ok {
			k = t
		}
		if _, taken := out[k]; !taken {
			out[k] = v
		}
	}
	return out
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := append([]string(nil), a...)
	y := make([]string, len(b))
	for i, s := range b {
		y[i] = types.NormalizeChannel(s)
	}
	sort.Strings(x)
	sort.Strings(y)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}
