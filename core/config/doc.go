// Package config provides configuration management for the patch merger.
//
// It uses Viper to read environment variables, optionally seeded from a .env
// file in the working directory. Every key has a default taken from the
// `default` struct tag of the owning package's Config.
//
// # Configuration Structure
//
//   - Game: installation root (GAME_PATH)
//   - Archive: external extractor used for corrupt entries (ARCHIVE_EXTRACTOR)
//   - Patch: output folder and file name (PATCH_DIR, PATCH_FILE_NAME)
//   - Resources: bundled template folder (RESOURCES_PATH)
//   - Log: logging level and format (LOG_LEVEL, LOG_FORMAT)
//   - Storage: S3/MinIO credentials for publishing (STORAGE_BUCKET, ...)
//   - Server: HTTP port and API key (SERVER_PORT, SERVER_API_KEY)
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Game.Path)
package config
