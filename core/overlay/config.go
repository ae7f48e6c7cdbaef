package overlay

// Config holds the location of the game installation.
type Config struct {
	// Path is the Heroes V installation root (the folder containing data/).
	Path string `mapstructure:"path" default:"."`
}
