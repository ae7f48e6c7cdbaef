// Package patch owns the lifecycle of the generated patch archive.
//
// Begin removes whatever patch a previous run left behind and opens a fresh
// zip whose entries are deflated at flate.BestCompression. WriteEntry refuses
// a name that was already written in the same run. Finalize closes the
// archive; Abort discards it after a failure or cancellation, so a partial
// patch is never left for the game to load.
//
// Remove is also the standalone uninstall operation. A missing patch is the
// NotFound outcome rather than an error; a patch held open by the game yields
// ErrOutputWriteBlocked.
package patch
