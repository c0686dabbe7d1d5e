// Package ui renders terminal output for the geoselector CLI: colored
// status lines, the crawl banner, a single-line progress counter and the
// final summary.
package ui
