package handler

import (
	"context"
	"log/slog"
	"net/http"

	"contentpilot/internal/types"
)

// BriefService is the pipeline surface the HTTP layer calls.
// *pipeline.Pipeline implements it.
type BriefService interface {
	GenerateBriefs(ctx context.Context, items []types.CandidateItem, user *types.UserInput, web *types.WebsiteIntelligence) (types.BatchResult, error)
	GenerateBriefsWithContext(ctx context.Context, items []types.CandidateItem, bc types.BusinessContext) (types.BatchResult, error)
	Regenerate(ctx context.Context, req types.RegenerationRequest) (types.ContentBrief, error)
	GenerateChannelContent(ctx context.Context, req types.ChannelContentRequest) (types.ChannelContent, error)
}

type BriefsHandler struct {
	svc    BriefService
	logger *slog.Logger
}

func NewBriefsHandler(svc BriefService, logger *slog.Logger) *BriefsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BriefsHandler{svc: svc, logger: logger.With("component", "briefs_handler")}
}

// GenerateRequest is the body of POST /v1/briefs. When userInput or
// websiteIntelligence is present the business context is aggregated from
// them; otherwise businessContext is used as given.
type GenerateRequest struct {
	Items               []types.CandidateItem      `json:"items"`
	BusinessContext     *types.BusinessContext     `json:"businessContext,omitempty"`
	UserInput           *types.UserInput           `json:"userInput,omitempty"`
	WebsiteIntelligence *types.WebsiteIntelligence `json:"websiteIntelligence,omitempty"`
}

func (h *BriefsHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var in GenerateRequest
	if err := decodeBody(w, r, &in); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	var (
		out types.BatchResult
		err error
	)
	if in.UserInput != nil || in.WebsiteIntelligence != nil || in.BusinessContext == nil {
		out, err = h.svc.GenerateBriefs(r.Context(), in.Items, in.UserInput, in.WebsiteIntelligence)
	} else {
		out, err = h.svc.GenerateBriefsWithContext(r.Context(), in.Items, *in.BusinessContext)
	}
	if err != nil {
		h.logger.Warn("generate briefs failed", "items", len(in.Items), "error", err)
		writeError(w, err)
		return
	}
	w.Header().Set("X-Run-Id", out.RunID)
	writeJSON(w, http.StatusOK, out)
}

func (h *BriefsHandler) HandleRegenerate(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var in types.RegenerationRequest
	if err := decodeBody(w, r, &in); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	out, err := h.svc.Regenerate(r.Context(), in)
	if err != nil {
		h.logger.Warn("regenerate failed", "brief_id", in.TargetBrief.BriefID, "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *BriefsHandler) HandleChannelContent(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var in types.ChannelContentRequest
	if err := decodeBody(w, r, &in); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	out, err := h.svc.GenerateChannelContent(r.Context(), in)
	if err != nil {
		h.logger.Warn("channel content failed", "brief_id", in.Brief.BriefID, "channel", in.Channel, "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
