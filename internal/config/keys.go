package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kFloat
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "storage.data_dir", typ: kString, env: "LABNOTES_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "embedding.backend", typ: kString, env: "LABNOTES_EMBEDDING_BACKEND",
		apply:   func(cfg *Config, v any) { cfg.Embedding.Backend = v.(string) },
		extract: func(cfg Config) any { return cfg.Embedding.Backend },
	},
	{
		key: "embedding.base_url", typ: kString, env: "LABNOTES_EMBEDDING_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Embedding.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Embedding.BaseURL },
	},
	{
		key: "embedding.model", typ: kString, env: "LABNOTES_EMBEDDING_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Embedding.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Embedding.Model },
	},
	{
		key: "embedding.openai_model", typ: kString, env: "LABNOTES_EMBEDDING_OPENAI_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Embedding.OpenAIModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Embedding.OpenAIModel },
	},
	{
		key: "topics.threshold", typ: kFloat, env: "LABNOTES_TOPICS_THRESHOLD",
		apply:   func(cfg *Config, v any) { cfg.Topics.Threshold = v.(float64) },
		extract: func(cfg Config) any { return cfg.Topics.Threshold },
	},
	{
		key: "topics.max_suggestions", typ: kInt, env: "LABNOTES_TOPICS_MAX_SUGGESTIONS",
		apply:   func(cfg *Config, v any) { cfg.Topics.MaxSuggestions = v.(int) },
		extract: func(cfg Config) any { return cfg.Topics.MaxSuggestions },
	},
	{
		key: "ingest.chunk_words", typ: kInt, env: "LABNOTES_INGEST_CHUNK_WORDS",
		apply:   func(cfg *Config, v any) { cfg.Ingest.ChunkWords = v.(int) },
		extract: func(cfg Config) any { return cfg.Ingest.ChunkWords },
	},
	{
		key: "arxiv.query", typ: kString, env: "LABNOTES_ARXIV_QUERY",
		apply:   func(cfg *Config, v any) { cfg.Arxiv.Query = v.(string) },
		extract: func(cfg Config) any { return cfg.Arxiv.Query },
	},
	{
		key: "arxiv.max_results", typ: kInt, env: "LABNOTES_ARXIV_MAX_RESULTS",
		apply:   func(cfg *Config, v any) { cfg.Arxiv.MaxResults = v.(int) },
		extract: func(cfg Config) any { return cfg.Arxiv.MaxResults },
	},
	{
		key: "arxiv.days", typ: kInt, env: "LABNOTES_ARXIV_DAYS",
		apply:   func(cfg *Config, v any) { cfg.Arxiv.Days = v.(int) },
		extract: func(cfg Config) any { return cfg.Arxiv.Days },
	},
	{
		key: "log.level", typ: kString, env: "LABNOTES_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b Backend) error {
	for _, s := range specs {
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kFloat:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					s.apply(cfg, f)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse float from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kFloat:
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				s.apply(cfg, f)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse float from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
