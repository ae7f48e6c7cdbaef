package patch

import "path"

// Config locates the generated patch inside the installation.
type Config struct {
	// Dir is the user mods folder relative to the installation root.
	Dir string `mapstructure:"dir" default:"UserMODs"`
	// FileName is the patch archive name. Archives containing it are never scanned.
	FileName string `mapstructure:"file_name" default:"TTBereinMergedPatch.h5u"`
}

// Path returns the patch location relative to the installation root.
func (c Config) Path() string {
	return path.Join(c.Dir, c.FileName)
}
