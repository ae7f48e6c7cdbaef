// Package patcher drives scans, patch generation and publishing.
//
// The Service works on one game installation: Scan builds the overlay index
// and preloads records into a Snapshot, Generate runs the transform pipeline
// into a fresh patch archive and Publish uploads the result to object storage.
//
// Jobs runs scans and generations in the background, one at a time, and keeps
// the last snapshot so repeated generations skip the scan.
//
// # HTTP Endpoints
//
//   - GET /patch/status : last scan summary and installed patch.
//   - POST /patch/scan : starts a scan job.
//   - POST /patch/generate : starts a generation job for a JSON selection.
//   - GET /patch/jobs/:id : progress or result of a job.
//   - DELETE /patch/jobs/:id : requests cancellation.
//   - DELETE /patch : removes the installed patch.
//   - POST /patch/publish : uploads the installed patch.
//
// A selection looks like:
//
//	{
//	  "maps": {
//	    "scenario": {"all_heroes": true, "racial_boost": true},
//	    "customized": {"all_spells_artifacts": true}
//	  },
//	  "boost_heroes": true
//	}
package patcher
