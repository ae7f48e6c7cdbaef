// Package xdb holds the small set of tree operations the patch needs on
// Heroes V XDB records (which are plain XML documents).
//
// Records are parsed into etree documents, mutated in place, and written back
// with a fixed four-space indentation so that output is byte-stable across
// runs. References between records use XPointer hrefs; HrefPath strips the
// fragment to get the file part.
package xdb
