// Package server holds the HTTP server configuration.
//
// The serve command starts a Fiber application exposing the patch job API.
// This package defines the listen port and the API key checked by the auth
// middleware.
package server
