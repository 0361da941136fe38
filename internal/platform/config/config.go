package config

import (
	"fmt"
	"path/filepath"
)

type Config struct {
	// RootPath is the scan root: the folder holding plugin modules plus
	// the plugdir.yaml options file.
	RootPath string
	DBPath   string
}

func New(rootPath string) (Config, error) {
	if rootPath == "" {
		return Config{}, fmt.Errorf("scan root path is required")
	}
	return Config{
		RootPath: rootPath,
		DBPath:   filepath.Join(rootPath, ".plugdir", "plugdir.db"),
	}, nil
}
