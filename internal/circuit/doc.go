// Package circuit implements Package, the composable container of
// elements and links.
//
// A Package is itself an element. Two boundary proxies live inside every
// package: links from the inputs proxy (InputsID) feed the body from the
// package's external inputs, and links into the outputs proxy (OutputsID)
// feed its external outputs. Dropping a package into another package
// therefore works like dropping in any other element.
//
// Packages enumerate to ir.PackageDoc and are rebuilt from it with
// Reconstruct. A package definition registered with Define becomes an
// element type whose instances are reconstructed from the definition.
//
// A package may never contain its own type, directly or through nested
// packages; Add rejects such requests with a self-nesting error. Signal
// feedback loops between elements are allowed.
package circuit
