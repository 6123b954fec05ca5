package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log struct {
		Path string `yaml:"path"`
	} `yaml:"log"`
	Project struct {
		SourceRoots []string `yaml:"source_roots"`
		OutputRoots []string `yaml:"output_roots"`
	} `yaml:"project"`
	Report struct {
		DBPath string `yaml:"db_path"`
	} `yaml:"report"`
}

func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	// 2. Load YAML config
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(file, &cfg); err != nil {
		return nil, err
	}

	// 3. Override with Environment Variables if present
	if logPath := os.Getenv("JITLENS_LOG"); logPath != "" {
		cfg.Log.Path = logPath
	}
	if roots := os.Getenv("JITLENS_OUTPUT_ROOTS"); roots != "" {
		cfg.Project.OutputRoots = strings.Split(roots, string(os.PathListSeparator))
	}
	if db := os.Getenv("JITLENS_DB"); db != "" {
		cfg.Report.DBPath = db
	}

	return &cfg, nil
}
