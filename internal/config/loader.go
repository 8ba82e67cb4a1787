package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// maxUpwardSearchLevels limits how far up the directory tree the loader
// searches for a config file.
const maxUpwardSearchLevels = 10

var configFileUsed string

// configExistsIn checks if a tagmark config file exists in the directory.
func configExistsIn(dir string) bool {
	for _, name := range []string{"tagmark.yaml", "tagmark.yml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// findProjectRootUpward searches upward from startDir for a tagmark
// config file. Returns empty if none is found within the search limit.
func findProjectRootUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if configExistsIn(dir) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// inferProjectRoot determines the project root.
// Priority: explicit config file's directory, upward search from the
// working directory, then the working directory itself.
func inferProjectRoot(cfgFile string) string {
	if cfgFile != "" {
		if abs, err := filepath.Abs(cfgFile); err == nil {
			return filepath.Dir(abs)
		}
	}
	if cwd, err := os.Getwd(); err == nil {
		if root := findProjectRootUpward(cwd); root != "" {
			return root
		}
		return cwd
	}
	return "."
}

// resolvePathRelativeTo resolves path against baseDir unless it is empty
// or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// Load loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file >
// defaults. Flags come from cobra's pflag set and may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	projectRoot := inferProjectRoot(cfgFile)

	// 1. Defaults.
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"templates_dir": DefaultTemplatesDir,
		"taglib_paths":  []string{DefaultTaglibDir},
		"output_dir":    DefaultOutputDir,
		"state_path":    DefaultStateFile,
		"extensions":    []string{".tm", ".dryml"},
		"metadata":      false,
		"verbose":       false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file, searched in the project root when not explicit.
	if cfgFile == "" {
		for _, name := range []string{"tagmark.yaml", "tagmark.yml"} {
			candidate := filepath.Join(projectRoot, name)
			if _, err := os.Stat(candidate); err == nil {
				cfgFile = candidate
				break
			}
		}
	}
	configFileUsed = cfgFile
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	// 3. Environment variables: TAGMARK_TEMPLATES_DIR -> templates_dir.
	if err := k.Load(env.Provider("TAGMARK_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "TAGMARK_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, highest priority. Only explicitly set flags apply.
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.ProjectRoot = projectRoot
	cfg.TemplatesDir = resolvePathRelativeTo(cfg.TemplatesDir, projectRoot)
	cfg.OutputDir = resolvePathRelativeTo(cfg.OutputDir, projectRoot)
	cfg.StatePath = resolvePathRelativeTo(cfg.StatePath, projectRoot)
	for i, p := range cfg.TaglibPaths {
		cfg.TaglibPaths[i] = resolvePathRelativeTo(p, projectRoot)
	}

	for _, ext := range cfg.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return nil, fmt.Errorf("invalid template extension %q: must start with a dot", ext)
		}
	}
	return &cfg, nil
}

// FileUsed returns the path of the config file loaded by the last Load,
// if any.
func FileUsed() string {
	return configFileUsed
}
