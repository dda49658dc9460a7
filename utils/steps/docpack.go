package steps

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/kris-hansen/recipeforge/utils/fileutil"
	"github.com/kris-hansen/recipeforge/utils/registry"
	"github.com/kris-hansen/recipeforge/utils/state"
)

func init() {
	registry.Register("docpack_create", newDocpackCreateStep)
	registry.Register("docpack_extract", newDocpackExtractStep)
}

// docpackOutlineName is the fixed manifest entry every Docpack archive
// carries at its root (spec §6, "Docpack format").
const docpackOutlineName = "outline.json"

// --- DocpackCreate ---

type docpackCreateConfig struct {
	Outline    interface{}       `json:"outline"`
	Resources  map[string]string `json:"resources"`
	OutputPath string            `json:"output_path"`
}

type docpackCreateStep struct {
	logger *log.Logger
	cfg    docpackCreateConfig
}

func newDocpackCreateStep(logger *log.Logger, raw json.RawMessage) (registry.Step, error) {
	var cfg docpackCreateConfig
	if err := decodeConfig("docpack_create", raw, &cfg); err != nil {
		return nil, err
	}
	if cfg.OutputPath == "" {
		return nil, &ConfigError{StepType: "docpack_create", Message: "output_path is required"}
	}
	return &docpackCreateStep{logger: logger, cfg: cfg}, nil
}

// Run writes outline.json at the archive root plus every resource file
// under resources/, renaming on collision with a numeric suffix
// (name.txt, name-1.txt, name-2.txt, ...) per spec §4.C13/§6.
func (s *docpackCreateStep) Run(ctx context.Context, st *state.State) error {
	vars := st.Snapshot()

	outline, err := renderDeep(s.cfg.Outline, vars)
	if err != nil {
		return err
	}

	outputPath, err := renderTemplate(s.cfg.OutputPath, vars)
	if err != nil {
		return err
	}
	outputPath, err = fileutil.ExpandPath(outputPath)
	if err != nil {
		return fmt.Errorf("docpack_create: expanding output_path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("docpack_create: creating parent dirs: %w", err)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("docpack_create: creating archive: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)

	outlineBytes, err := json.MarshalIndent(outline, "", "  ")
	if err != nil {
		return fmt.Errorf("docpack_create: marshaling outline: %w", err)
	}
	if err := writeZipEntry(zw, docpackOutlineName, outlineBytes); err != nil {
		return err
	}

	used := map[string]bool{docpackOutlineName: true}
	for key, path := range s.cfg.Resources {
		rendered, err := renderTemplate(path, vars)
		if err != nil {
			return err
		}
		expanded, err := fileutil.ExpandPath(rendered)
		if err != nil {
			return fmt.Errorf("docpack_create: expanding resource %q path: %w", key, err)
		}
		data, err := os.ReadFile(expanded)
		if err != nil {
			return fmt.Errorf("docpack_create: reading resource %q: %w", key, err)
		}

		entryName := resolveZipConflict(used, "resources/"+filepath.Base(expanded))
		used[entryName] = true
		if err := writeZipEntry(zw, entryName, data); err != nil {
			return err
		}
	}

	return zw.Close()
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("docpack_create: creating entry %q: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("docpack_create: writing entry %q: %w", name, err)
	}
	return nil
}

// resolveZipConflict appends "-1", "-2", ... before the file extension
// until name is not already in used.
func resolveZipConflict(used map[string]bool, name string) string {
	if !used[name] {
		return name
	}
	dir := filepath.Dir(name)
	base := filepath.Base(name)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d%s", stem, i, ext)
		if dir != "." {
			candidate = dir + "/" + candidate
		}
		if !used[candidate] {
			return candidate
		}
	}
}

// --- DocpackExtract ---

type docpackExtractConfig struct {
	ArchivePath string `json:"archive_path"`
	OutputDir   string `json:"output_dir"`
	OutlineKey  string `json:"outline_key"`
}

type docpackExtractStep struct {
	logger *log.Logger
	cfg    docpackExtractConfig
}

func newDocpackExtractStep(logger *log.Logger, raw json.RawMessage) (registry.Step, error) {
	var cfg docpackExtractConfig
	if err := decodeConfig("docpack_extract", raw, &cfg); err != nil {
		return nil, err
	}
	if cfg.ArchivePath == "" {
		return nil, &ConfigError{StepType: "docpack_extract", Message: "archive_path is required"}
	}
	if cfg.OutputDir == "" {
		return nil, &ConfigError{StepType: "docpack_extract", Message: "output_dir is required"}
	}
	return &docpackExtractStep{logger: logger, cfg: cfg}, nil
}

// Run unpacks every entry of the archive under output_dir, parsing
// outline.json separately into state under outline_key when set. An entry
// whose name an earlier entry of the same archive already used is renamed
// with the same numeric-suffix scheme Create uses; files already on disk
// are overwritten.
func (s *docpackExtractStep) Run(ctx context.Context, st *state.State) error {
	vars := st.Snapshot()

	archivePath, err := renderTemplate(s.cfg.ArchivePath, vars)
	if err != nil {
		return err
	}
	archivePath, err = fileutil.ExpandPath(archivePath)
	if err != nil {
		return fmt.Errorf("docpack_extract: expanding archive_path: %w", err)
	}

	outputDir, err := renderTemplate(s.cfg.OutputDir, vars)
	if err != nil {
		return err
	}
	outputDir, err = fileutil.ExpandPath(outputDir)
	if err != nil {
		return fmt.Errorf("docpack_extract: expanding output_dir: %w", err)
	}

	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("docpack_extract: opening archive: %w", err)
	}
	defer zr.Close()

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("docpack_extract: creating output_dir: %w", err)
	}

	used := map[string]bool{}
	for _, entry := range zr.File {
		if entry.Name == docpackOutlineName {
			if s.cfg.OutlineKey == "" {
				continue
			}
			data, err := readZipEntry(entry)
			if err != nil {
				return err
			}
			var outline interface{}
			if err := json.Unmarshal(data, &outline); err != nil {
				return fmt.Errorf("docpack_extract: parsing outline.json: %w", err)
			}
			st.Set(s.cfg.OutlineKey, outline)
			continue
		}

		data, err := readZipEntry(entry)
		if err != nil {
			return err
		}

		destRel := resolveZipConflict(used, entry.Name)
		used[destRel] = true
		destPath := filepath.Join(outputDir, filepath.FromSlash(destRel))

		if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
			return fmt.Errorf("docpack_extract: creating parent dirs for %q: %w", destPath, err)
		}
		if err := os.WriteFile(destPath, data, 0644); err != nil {
			return fmt.Errorf("docpack_extract: writing %q: %w", destPath, err)
		}
	}

	return nil
}

func readZipEntry(entry *zip.File) ([]byte, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("docpack_extract: opening entry %q: %w", entry.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("docpack_extract: reading entry %q: %w", entry.Name, err)
	}
	return data, nil
}
