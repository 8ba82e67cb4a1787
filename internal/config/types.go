// Package config loads tagmark project configuration from the config
// file, environment variables, and CLI flags, in ascending precedence.
package config

// Default locations and settings, overridable via tagmark.yaml.
const (
	DefaultTemplatesDir = "views"
	DefaultTaglibDir    = "taglibs"
	DefaultOutputDir    = "compiled"
	DefaultStateFile    = ".tagmark/state.db"
)

// Config is the resolved project configuration.
type Config struct {
	// ProjectRoot anchors relative path resolution. Set by the loader,
	// never read from the file.
	ProjectRoot string `koanf:"-"`

	TemplatesDir string   `koanf:"templates_dir"`
	TaglibPaths  []string `koanf:"taglib_paths"`
	OutputDir    string   `koanf:"output_dir"`
	StatePath    string   `koanf:"state_path"`

	// Extensions lists template file extensions picked up by discovery.
	Extensions []string `koanf:"extensions"`

	// Theme selected for every compile unless a template overrides it.
	Theme string `koanf:"theme"`

	// Metadata enables debug metadata comments in generated source.
	Metadata bool `koanf:"metadata"`

	Verbose bool `koanf:"verbose"`
}

// Default returns a configuration with the built-in defaults, rooted at
// the current directory.
func Default() *Config {
	return &Config{
		ProjectRoot:  ".",
		TemplatesDir: DefaultTemplatesDir,
		TaglibPaths:  []string{DefaultTaglibDir},
		OutputDir:    DefaultOutputDir,
		StatePath:    DefaultStateFile,
		Extensions:   []string{".tm", ".dryml"},
	}
}
