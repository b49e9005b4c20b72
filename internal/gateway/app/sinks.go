package app

import (
	"context"
	"fmt"
	"log/slog"

	"contentpilot/internal/gateway/config"
	"contentpilot/internal/telemetry"
)

type closer func(ctx context.Context) error

// debugSinks is the telemetry fan-out built from DEBUG_SINKS.
type debugSinks struct {
	sink    telemetry.Sink
	reader  telemetry.Reader
	hub     *telemetry.Hub
	closers []closer
}

// initSinks wires the memory sink and hub synchronously and every remote
// sink behind one Async queue, so backend I/O never slows the pipeline.
func initSinks(cfg config.DebugConfig, logger *slog.Logger) (*debugSinks, error) {
	ds := &debugSinks{hub: telemetry.NewHub()}
	local := []telemetry.Sink{ds.hub}
	var remote []telemetry.Sink

	fail := func(err error) (*debugSinks, error) {
		_ = ds.close(context.Background())
		return nil, err
	}

	if cfg.Enabled("memory") {
		mem, err := telemetry.NewMemorySink(cfg.MemoryRuns, 0)
		if err != nil {
			return fail(fmt.Errorf("memory sink: %w", err))
		}
		local = append(local, mem)
		ds.reader = mem
	}
	if cfg.Enabled("jsonl") {
		js, err := telemetry.NewJSONLSink(cfg.JSONLDir)
		if err != nil {
			return fail(fmt.Errorf("jsonl sink: %w", err))
		}
		remote = append(remote, js)
		ds.fallbackReader(js)
		logger.Info("debug sink enabled", "sink", "jsonl")
	}
	if cfg.Enabled("postgres") {
		pg, err := telemetry.OpenPostgresSink(cfg.PostgresDSN)
		if err != nil {
			return fail(fmt.Errorf("postgres sink: %w", err))
		}
		remote = append(remote, pg)
		ds.fallbackReader(pg)
		ds.closers = append(ds.closers, func(context.Context) error { return pg.Close() })
		logger.Info("debug sink enabled", "sink", "postgres")
	}
	if cfg.Enabled("s3") {
		s3, err := telemetry.NewS3Sink(telemetry.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			UseSSL:    cfg.S3.UseSSL,
		})
		if err != nil {
			return fail(fmt.Errorf("s3 sink: %w", err))
		}
		remote = append(remote, s3)
		logger.Info("debug sink enabled", "sink", "s3", "bucket", cfg.S3.Bucket, "endpoint", cfg.S3.Endpoint)
	}
	if cfg.Enabled("nats") {
		ns, err := telemetry.DialNATSSink(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			return fail(fmt.Errorf("nats sink: %w", err))
		}
		remote = append(remote, ns)
		ds.closers = append(ds.closers, func(context.Context) error { return ns.Close() })
		logger.Info("debug sink enabled", "sink", "nats")
	}
	if cfg.Enabled("redis") {
		rs, err := telemetry.DialRedisSink(cfg.RedisURL, cfg.RedisMaxItems)
		if err != nil {
			return fail(fmt.Errorf("redis sink: %w", err))
		}
		remote = append(remote, rs)
		ds.fallbackReader(rs)
		ds.closers = append(ds.closers, func(context.Context) error { return rs.Close() })
		logger.Info("debug sink enabled", "sink", "redis")
	}

	if len(remote) > 0 {
		async := telemetry.NewAsync(telemetry.Multi(remote...), 1024, logger)
		local = append(local, async)
		// Drain before the remote connections close.
		ds.closers = append([]closer{async.Close}, ds.closers...)
	}
	ds.sink = telemetry.Multi(local...)
	return ds, nil
}

func (ds *debugSinks) fallbackReader(r telemetry.Reader) {
	if ds.reader == nil {
		ds.reader = r
	}
}

func (ds *debugSinks) close(ctx context.Context) error {
	var first error
	for _, c := range ds.closers {
		if err := c(ctx); err != nil && first == nil {
			first = err
		}
	}
	ds.closers = nil
	return first
}
