// Package registry provides the type-keyed element factory table.
//
// A Registry is constructed explicitly and passed to whatever needs to
// instantiate elements; there is no process-wide instance. Each element
// package contributes a Register function that adds its types at startup.
package registry
