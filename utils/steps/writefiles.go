package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/kris-hansen/recipeforge/utils/fileutil"
	"github.com/kris-hansen/recipeforge/utils/llm"
	"github.com/kris-hansen/recipeforge/utils/registry"
	"github.com/kris-hansen/recipeforge/utils/state"
)

func init() {
	registry.Register("write_files", newWriteFilesStep)
}

type writeFilesConfig struct {
	Files    []llm.FileSpec `json:"files"`
	FilesKey string         `json:"files_key"`
	Root     string         `json:"root"`
}

type writeFilesStep struct {
	logger *log.Logger
	cfg    writeFilesConfig
}

func newWriteFilesStep(logger *log.Logger, raw json.RawMessage) (registry.Step, error) {
	var cfg writeFilesConfig
	if err := decodeConfig("write_files", raw, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Files) == 0 && cfg.FilesKey == "" {
		return nil, &ConfigError{StepType: "write_files", Message: "either files or files_key is required"}
	}
	return &writeFilesStep{logger: logger, cfg: cfg}, nil
}

func (s *writeFilesStep) Run(ctx context.Context, st *state.State) error {
	vars := st.Snapshot()

	files := s.cfg.Files
	if s.cfg.FilesKey != "" {
		v, ok := st.Get(s.cfg.FilesKey)
		if !ok {
			return &ConfigError{StepType: "write_files", Message: fmt.Sprintf("files_key %q not found in state", s.cfg.FilesKey)}
		}
		resolved, err := toFileSpecs(v)
		if err != nil {
			return &ConfigError{StepType: "write_files", Message: err.Error()}
		}
		files = append(files, resolved...)
	}

	root, err := renderTemplate(s.cfg.Root, vars)
	if err != nil {
		return err
	}
	if root != "" {
		root, err = fileutil.ExpandPath(root)
		if err != nil {
			return fmt.Errorf("write_files: expanding root %q: %w", s.cfg.Root, err)
		}
	}

	for _, f := range files {
		path := f.Path
		if root != "" {
			path = filepath.Join(root, path)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("write_files: creating parent dirs for %q: %w", path, err)
		}
		if err := os.WriteFile(path, []byte(f.Content), 0644); err != nil {
			return fmt.Errorf("write_files: writing %q: %w", path, err)
		}
	}
	return nil
}

// toFileSpecs accepts either a pre-typed []llm.FileSpec (the common case
// when it flowed straight out of an LLMGenerate "files" output) or a
// generically JSON-decoded []interface{} of {path, content} maps.
func toFileSpecs(v interface{}) ([]llm.FileSpec, error) {
	switch t := v.(type) {
	case []llm.FileSpec:
		return t, nil
	case []interface{}:
		out := make([]llm.FileSpec, 0, len(t))
		for _, item := range t {
			m, ok := item.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("files_key entries must be {path, content} objects, got %T", item)
			}
			path, _ := m["path"].(string)
			content, _ := m["content"].(string)
			out = append(out, llm.FileSpec{Path: path, Content: content})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("files_key must resolve to a list of files, got %T", v)
	}
}
