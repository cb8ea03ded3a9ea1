package ir

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Config is element-specific configuration, e.g. the value held by a
// constant source. Keys are plain identifiers; values keep their kind.
type Config map[string]Value

// Keys returns the configuration keys in canonical order.
func (c Config) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// Clone returns a shallow copy. Values are immutable so sharing them is safe.
func (c Config) Clone() Config {
	if c == nil {
		return nil
	}
	out := make(Config, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Lookup returns the value for key coerced to kind.
func (c Config) Lookup(key string, kind Kind) (Value, bool, error) {
	v, ok := c[key]
	if !ok {
		return nil, false, nil
	}
	coerced, err := Coerce(kind, v)
	if err != nil {
		return nil, true, fmt.Errorf("config %q: %w", key, err)
	}
	return coerced, true, nil
}

// UnmarshalJSON decodes a map of tagged values.
func (c *Config) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*c = nil
		return nil
	}
	out := make(Config, len(raw))
	for k, payload := range raw {
		v, err := UnmarshalValue(payload)
		if err != nil {
			return fmt.Errorf("config key %q: %w", k, err)
		}
		out[k] = v
	}
	*c = out
	return nil
}
