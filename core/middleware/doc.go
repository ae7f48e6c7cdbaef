// Package middleware contains HTTP middleware for the Fiber application.
//
// # Components
//
//   - auth: API key validation protecting the patch endpoints.
//   - rayid: generates a Request ID (RayID) for every incoming request,
//     storing it in the context locals and the response headers for tracing.
//
// Register rayid first so that every later log line can carry the id.
package middleware
