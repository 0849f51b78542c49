package config

import "fmt"

type Config struct {
	Storage   StorageConfig
	Embedding EmbeddingConfig
	Topics    TopicsConfig
	Ingest    IngestConfig
	Arxiv     ArxivConfig
	Log       LogConfig
}

type StorageConfig struct {
	DataDir string
}

// EmbeddingConfig selects the embedding backend. Backend is "ollama"
// (the default) or "openai"; the OpenAI API key is never stored here
// and must come from the OPENAI_API_KEY environment variable.
type EmbeddingConfig struct {
	Backend     string
	BaseURL     string
	Model       string
	OpenAIModel string
}

type TopicsConfig struct {
	Threshold      float64
	MaxSuggestions int
}

type IngestConfig struct {
	ChunkWords int
}

type ArxivConfig struct {
	Query      string
	MaxResults int
	Days       int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Embedding: EmbeddingConfig{
			Backend: "ollama",
			BaseURL: "http://localhost:11434",
			Model:   "nomic-embed-text",
		},
		Topics: TopicsConfig{
			Threshold:      0.45,
			MaxSuggestions: 3,
		},
		Ingest: IngestConfig{
			ChunkWords: 300,
		},
		Arxiv: ArxivConfig{
			Query:      "nanocomposite thermal conductivity",
			MaxResults: 25,
			Days:       7,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file at
// $XDG_CONFIG_HOME/labnotes/config.json with LABNOTES_* environment
// variables overriding file values.
func Load() (Config, error) {
	return loadWith(newFileBackend(configFilePath()))
}

func loadWith(b Backend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Embedding.Backend != "ollama" && cfg.Embedding.Backend != "openai" {
		return Config{}, fmt.Errorf("unknown embedding backend %q (want \"ollama\" or \"openai\")", cfg.Embedding.Backend)
	}

	return cfg, nil
}
