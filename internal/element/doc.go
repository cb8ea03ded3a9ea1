// Package element defines sockets and the element contract.
//
// An Output owns a value cell. An Input reads either its own private
// default cell or, once linked, the cell of exactly one upstream Output.
// Linking and unlinking rebind that reference; no value is ever copied
// between sockets, so a tick costs one pass over the elements regardless
// of how many links there are.
//
// Only Outputs can be written, and only by the element that owns them.
// Writing or reading through the wrong value kind is a broken contract
// and panics; configuration mistakes such as linking mismatched kinds are
// returned as *ConfigError without changing any state.
package element
