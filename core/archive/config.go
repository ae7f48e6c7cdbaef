package archive

// Config holds configuration for archive access.
type Config struct {
	// Extractor is the external command used to recover entries the zip reader
	// rejects as corrupt. Empty disables the fallback.
	Extractor string `mapstructure:"extractor" default:"7za"`
	// TempDir is where the extractor writes recovered entries. Empty uses the OS default.
	TempDir string `mapstructure:"temp_dir" default:""`
	// TimeoutSeconds bounds a single extractor invocation.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"60"`
}
