package resources

// Config holds the location of the bundled template files.
type Config struct {
	// Path is the directory holding towns/, artificer/, swap tables and scripts.
	Path string `mapstructure:"path" default:"resources"`
}
