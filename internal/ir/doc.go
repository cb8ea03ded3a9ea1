// Package ir provides the value model and document types shared by every
// other package.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Value is sealed: Bool, Int and Float are the only kinds
//   - Values are immutable and replaced wholesale on write
//   - Documents serialize through MarshalCanonical for stable IDs
//   - All JSON tags use snake_case
//   - Tick numbers only, never wall-clock timestamps
package ir
