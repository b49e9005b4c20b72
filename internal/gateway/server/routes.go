package server

import (
	"log/slog"
	"net/http"

	"contentpilot/internal/gateway/handler"
	"contentpilot/internal/gateway/middleware"
)

func NewMux(
	briefs *handler.BriefsHandler,
	debug *handler.DebugHandler,
	corsOrigin string,
	logger *slog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	// Pipeline
	mux.HandleFunc("/v1/briefs", briefs.HandleGenerate)
	mux.HandleFunc("/v1/briefs/regenerate", briefs.HandleRegenerate)
	mux.HandleFunc("/v1/briefs/channel-content", briefs.HandleChannelContent)

	// Debug
	mux.HandleFunc("/debug/sink", debug.HandleSink)
	mux.HandleFunc("/debug/records", debug.HandleRecords)
	mux.HandleFunc("/debug/stream", debug.HandleStream)

	mux.HandleFunc("/healthz", handler.Healthz)

	return middleware.Chain(mux,
		middleware.Recover(logger),
		middleware.Logger(logger),
		middleware.CORS(corsOrigin),
		middleware.OTel("contentpilot"),
	)
}
