package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime settings. Values are resolved in order of
// precedence: explicit flags (applied by the caller), environment
// variables, the settings file, and finally hard-coded defaults.
type Config struct {
	Debug bool `yaml:"debug"`

	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`

	Notes struct {
		Dir        string   `yaml:"dir"`
		Extensions []string `yaml:"extensions"`
	} `yaml:"notes"`

	Storage struct {
		DatabasePath    string `yaml:"database_path"`
		VectorStorePath string `yaml:"vector_store_path"`
	} `yaml:"storage"`

	Index struct {
		ChunkSize    int `yaml:"chunk_size"`
		ChunkOverlap int `yaml:"chunk_overlap"`
	} `yaml:"index"`

	Embedding struct {
		ModelName  string `yaml:"model_name"`
		ModelDir   string `yaml:"model_dir"`
		Dimensions int    `yaml:"dimensions"`
	} `yaml:"embedding"`

	Vector struct {
		Conn       string `yaml:"conn"`
		Collection string `yaml:"collection"`
	} `yaml:"vector"`

	Chat struct {
		Model string `yaml:"model"`
		Host  string `yaml:"host"`
	} `yaml:"chat"`
}

// Load reads the settings file at path, layers environment variables on
// top, and fills the rest from defaults. A missing settings file is not
// an error; the file is optional.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(expandPath(path))
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading settings file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing settings file: %w", err)
		}
	}

	cfg.ApplyEnv()
	cfg.ApplyDefaults()

	cfg.Notes.Dir = expandPath(cfg.Notes.Dir)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath)
	cfg.Storage.VectorStorePath = expandPath(cfg.Storage.VectorStorePath)
	cfg.Embedding.ModelDir = expandPath(cfg.Embedding.ModelDir)

	return &cfg, nil
}

// ApplyEnv overrides settings from environment variables. Environment
// values win over anything read from the settings file.
func (c *Config) ApplyEnv() {
	setString(&c.Notes.Dir, "NOTES_DIR")
	setString(&c.Storage.DatabasePath, "NOTES_DB")
	setString(&c.Vector.Conn, "PG_CONN")
	setString(&c.Vector.Collection, "VECTOR_COLLECTION")
	setString(&c.Chat.Model, "OLLAMA_MODEL")
	setString(&c.Chat.Host, "OLLAMA_HOST")
	setString(&c.Embedding.ModelName, "HF_MODEL_NAME")
	setString(&c.Embedding.ModelDir, "HF_MODEL_DIR")

	if v := os.Getenv("NOTES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("NOTES_DEBUG"); v != "" {
		if debug, err := strconv.ParseBool(v); err == nil {
			c.Debug = debug
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
