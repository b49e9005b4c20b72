package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	llmclient "contentpilot/internal/llmClient"
	"contentpilot/internal/pipeline"
)

type Config struct {
	Port       string
	Env        string
	LogLevel   string
	LogFormat  string
	CORSOrigin string
	LLM        llmclient.ProviderConfig
	// CostPer1KTokens prices telemetry token counts.
	CostPer1KTokens float64
	Pipeline        pipeline.Config
	Debug           DebugConfig
}

type DebugConfig struct {
	Sinks         []string
	MemoryRuns    int
	JSONLDir      string
	PostgresDSN   string
	S3            S3Config
	NATSURL       string
	NATSSubject   string
	RedisURL      string
	RedisMaxItems int
}

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Enabled reports whether sink name was requested in DEBUG_SINKS.
func (d DebugConfig) Enabled(name string) bool {
	for _, s := range d.Sinks {
		if s == name {
			return true
		}
	}
	return false
}

// Load reads .env, the environment and command line flags, then applies
// the optional policy file named by PIPELINE_POLICY_FILE or -policy.
func Load(args []string) (*Config, error) {
	_ = godotenv.Load()
	return load(args, os.Getenv)
}

func load(args []string, getenv func(string) string) (*Config, error) {
	env := func(k string) string { return strings.TrimSpace(getenv(k)) }

	fs := flag.NewFlagSet("contentpilot", flag.ContinueOnError)
	port := fs.String("port", ":8081", "server port")
	policyFile := fs.String("policy", env("PIPELINE_POLICY_FILE"), "pipeline policy YAML file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if p := env("PORT"); p != "" {
		if strings.HasPrefix(p, ":") {
			*port = p
		} else {
			*port = ":" + p
		}
	}

	appEnv := firstNonEmpty(env("APP_ENV"), "local")
	cfg := &Config{
		Port:       *port,
		Env:        appEnv,
		LogLevel:   firstNonEmpty(env("LOG_LEVEL"), "info"),
		LogFormat:  firstNonEmpty(env("LOG_FORMAT"), "text"),
		CORSOrigin: firstNonEmpty(env("CORS_ORIGIN"), "*"),
		Pipeline:   pipeline.DefaultConfig(),
	}

	provider := strings.ToLower(firstNonEmpty(env("LLM_PROVIDER"), "gemini"))
	cfg.LLM = llmclient.ProviderConfig{
		Provider: provider,
		Model:    env("LLM_MODEL"),
		APIKey:   firstNonEmpty(env("LLM_API_KEY"), env(providerKeyEnv(provider))),
		BaseURL:  env("LLM_BASE_URL"),
	}

	var err error
	if cfg.CostPer1KTokens, err = parseFloat(env("LLM_COST_PER_1K_TOKENS"), 0); err != nil {
		return nil, fmt.Errorf("LLM_COST_PER_1K_TOKENS: %w", err)
	}
	if err := applyPipelineEnv(&cfg.Pipeline, env); err != nil {
		return nil, err
	}
	if *policyFile != "" {
		pol, err := LoadPolicyFile(*policyFile)
		if err != nil {
			return nil, err
		}
		if err := pol.Apply(&cfg.Pipeline); err != nil {
			return nil, fmt.Errorf("policy file %s: %w", *policyFile, err)
		}
	}

	cfg.Debug, err = loadDebug(appEnv, env)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func providerKeyEnv(provider string) string {
	switch provider {
	case "gemini", "google", "genai":
		return "GEMINI_API_KEY"
	case "anthropic", "claude":
		return "ANTHROPIC_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	case "groq":
		return "GROQ_API_KEY"
	}
	return "LLM_API_KEY"
}

func applyPipelineEnv(pc *pipeline.Config, env func(string) string) error {
	var err error
	if pc.Completion.Timeout, err = parseDuration(env("LLM_TIMEOUT"), pc.Completion.Timeout); err != nil {
		return fmt.Errorf("LLM_TIMEOUT: %w", err)
	}
	if pc.Completion.MaxRetries, err = parseInt(env("LLM_MAX_RETRIES"), pc.Completion.MaxRetries); err != nil {
		return fmt.Errorf("LLM_MAX_RETRIES: %w", err)
	}
	if pc.Completion.BaseDelay, err = parseDuration(env("LLM_RETRY_BASE_DELAY"), pc.Completion.BaseDelay); err != nil {
		return fmt.Errorf("LLM_RETRY_BASE_DELAY: %w", err)
	}
	if pc.Completion.MaxDelay, err = parseDuration(env("LLM_RETRY_MAX_DELAY"), pc.Completion.MaxDelay); err != nil {
		return fmt.Errorf("LLM_RETRY_MAX_DELAY: %w", err)
	}
	if pc.ValidationRetries, err = parseInt(env("LLM_VALIDATION_RETRIES"), pc.ValidationRetries); err != nil {
		return fmt.Errorf("LLM_VALIDATION_RETRIES: %w", err)
	}
	if raw := env("BRIEF_DEFECT_POLICY"); raw != "" {
		p := Policy{BriefDefectPolicy: raw}
		if err := p.Apply(pc); err != nil {
			return fmt.Errorf("BRIEF_DEFECT_POLICY: %w", err)
		}
	}
	return nil
}

func loadDebug(appEnv string, env func(string) string) (DebugConfig, error) {
	d := DebugConfig{
		Sinks:       splitList(firstNonEmpty(env("DEBUG_SINKS"), "memory")),
		JSONLDir:    env("DEBUG_JSONL_DIR"),
		PostgresDSN: env("DEBUG_PG_DSN"),
		NATSURL:     env("DEBUG_NATS_URL"),
		NATSSubject: env("DEBUG_NATS_SUBJECT"),
		RedisURL:    env("DEBUG_REDIS_URL"),
		S3: S3Config{
			Endpoint:  resolveS3Endpoint(appEnv, env),
			Region:    firstNonEmpty(env("DEBUG_S3_REGION"), "us-east-1"),
			AccessKey: firstNonEmpty(env("DEBUG_S3_ACCESS_KEY"), env("MINIO_ROOT_USER")),
			SecretKey: firstNonEmpty(env("DEBUG_S3_SECRET_KEY"), env("MINIO_ROOT_PASSWORD")),
			Bucket:    firstNonEmpty(env("DEBUG_S3_BUCKET"), "contentpilot-debug"),
			UseSSL:    resolveS3UseSSL(appEnv, env),
		},
	}
	var err error
	if d.MemoryRuns, err = parseInt(env("DEBUG_MEMORY_RUNS"), 256); err != nil {
		return d, fmt.Errorf("DEBUG_MEMORY_RUNS: %w", err)
	}
	if d.RedisMaxItems, err = parseInt(env("DEBUG_REDIS_MAX_RECORDS"), 500); err != nil {
		return d, fmt.Errorf("DEBUG_REDIS_MAX_RECORDS: %w", err)
	}
	for _, s := range d.Sinks {
		switch s {
		case "memory", "jsonl", "postgres", "s3", "nats", "redis":
		default:
			return d, fmt.Errorf("DEBUG_SINKS: unknown sink %q", s)
		}
	}
	return d, nil
}

func resolveS3Endpoint(appEnv string, env func(string) string) string {
	if strings.EqualFold(appEnv, "local") {
		return firstNonEmpty(env("DEBUG_S3_ENDPOINT"), "minio:9000")
	}
	return env("DEBUG_S3_ENDPOINT")
}

func resolveS3UseSSL(appEnv string, env func(string) string) bool {
	if strings.EqualFold(appEnv, "local") {
		return false
	}
	v, err := strconv.ParseBool(env("DEBUG_S3_USE_SSL"))
	if err != nil {
		return true
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseInt(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func parseFloat(raw string, def float64) (float64, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.ParseFloat(raw, 64)
}

// parseDuration accepts Go durations ("30s") or plain seconds ("30").
func parseDuration(raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(raw)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
