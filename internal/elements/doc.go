// Package elements holds the built-in element types: arithmetic, gates,
// edge triggers, a clock and constant sources.
package elements
