package types

// Stage names one backend round trip of the pipeline.
type Stage string

const (
	StageEvaluateAndBrief       Stage = "evaluateAndBrief"
	StageGenerateChannelContent Stage = "generateChannelContent"
	StageRegenerateOne          Stage = "regenerateOne"
)

func (s Stage) Valid() bool {
	switch s {
	case StageEvaluateAndBrief, StageGenerateChannelContent, StageRegenerateOne:
		return true
	}
	return false
}

// ChannelContentRequest asks for finished copy for one channel of a brief.
type ChannelContentRequest struct {
	Brief           ContentBrief    `json:"brief"`
	Channel         string          `json:"channel"`
	BusinessContext BusinessContext `json:"businessContext"`
}
