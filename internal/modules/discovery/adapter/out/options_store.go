package out

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"plugdir/internal/modules/discovery/domain"
	discoveryout "plugdir/internal/modules/discovery/port/out"
)

// FileOptionsStore loads catalog options and named criteria from
// plugdir.yaml in the scan root. A missing file yields zero options so
// callers can fall back to flags; a malformed file is a configuration
// error.
type FileOptionsStore struct {
	basePath string
	path     string
}

func NewFileOptionsStore(basePath string) discoveryout.OptionsStore {
	return &FileOptionsStore{basePath: basePath, path: filepath.Join(basePath, "plugdir.yaml")}
}

type optionsFile struct {
	Folder            string        `yaml:"folder"`
	Patterns          []string      `yaml:"patterns"`
	IncludeSubfolders bool          `yaml:"include_subfolders"`
	HostPolicy        string        `yaml:"host_policy"`
	SelectedModules   []string      `yaml:"selected_host_modules"`
	AdditionalPaths   []string      `yaml:"additional_paths"`
	HostRoot          string        `yaml:"host_root"`
	Naming            namingFile    `yaml:"naming"`
	LoadPolicy        string        `yaml:"load_policy"`
	LoadMode          string        `yaml:"load_mode"`
	MaxProbeWorkers   int           `yaml:"max_probe_workers"`
	Criteria          []criteriaRow `yaml:"criteria"`
}

type namingFile struct {
	TrimPrefix string `yaml:"trim_prefix"`
	Lowercase  bool   `yaml:"lowercase"`
}

type criteriaRow struct {
	Label  string `yaml:"label"`
	Kind   string `yaml:"kind"`
	Target string `yaml:"target"`
}

func (s *FileOptionsStore) Load(_ context.Context) (domain.Options, domain.SearchCriteria, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Options{}, domain.NewSearchCriteria(), nil
		}
		return domain.Options{}, domain.SearchCriteria{}, fmt.Errorf("%w: read options file: %v", domain.ErrConfiguration, err)
	}

	var file optionsFile
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return domain.Options{}, domain.SearchCriteria{}, fmt.Errorf("%w: decode %s: %v", domain.ErrConfiguration, s.path, err)
	}

	opts := domain.Options{
		FolderPath:                s.resolve(file.Folder),
		SearchPatterns:            file.Patterns,
		IncludeSubfolders:         file.IncludeSubfolders,
		HostPolicy:                domain.HostModulePolicy(file.HostPolicy),
		SelectedHostModules:       file.SelectedModules,
		AdditionalResolutionPaths: s.resolveAll(file.AdditionalPaths),
		HostRoot:                  s.resolve(file.HostRoot),
		Naming:                    domain.NamingOptions{TrimPrefix: file.Naming.TrimPrefix, Lowercase: file.Naming.Lowercase},
		LoadPolicy:                domain.LoadFailurePolicy(file.LoadPolicy),
		LoadMode:                  domain.LoadMode(file.LoadMode),
		MaxProbeWorkers:           file.MaxProbeWorkers,
	}

	criteria := domain.NewSearchCriteria()
	for _, row := range file.Criteria {
		criterion, err := criterionFromRow(row)
		if err != nil {
			return domain.Options{}, domain.SearchCriteria{}, err
		}
		if err := criteria.Add(row.Label, criterion); err != nil {
			return domain.Options{}, domain.SearchCriteria{}, err
		}
	}
	return opts, criteria, nil
}

func criterionFromRow(row criteriaRow) (domain.Criterion, error) {
	if row.Target == "" {
		return nil, fmt.Errorf("%w: criterion %q needs a target", domain.ErrConfiguration, row.Label)
	}
	switch row.Kind {
	case "implements":
		return domain.ImplementsCriterion{Interface: row.Target}, nil
	case "derives":
		return domain.DerivesCriterion{Base: row.Target}, nil
	case "marker":
		key, value, _ := strings.Cut(row.Target, "=")
		return domain.MarkerCriterion{Key: key, Value: value}, nil
	default:
		return nil, fmt.Errorf("%w: criterion %q has unknown kind %q", domain.ErrConfiguration, row.Label, row.Kind)
	}
}

func (s *FileOptionsStore) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Clean(filepath.Join(s.basePath, path))
}

func (s *FileOptionsStore) resolveAll(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, s.resolve(p))
	}
	return out
}
