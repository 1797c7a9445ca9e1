package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// ParseKV parses a key=value pair. The value stays a string; Decode converts
// it to the target field's type. Dotted keys (map_wait.timeout) address
// nested settings.
func ParseKV(kvPair string) (string, string, error) {
	key, valueStr, ok := strings.Cut(kvPair, "=")
	if !ok {
		return "", "", fmt.Errorf("invalid format, expected key=value: %s", kvPair)
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return "", "", fmt.Errorf("empty key in key=value pair")
	}

	return key, strings.TrimSpace(valueStr), nil
}

// ParseFile reads a JSON object from a file.
func ParseFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("invalid JSON in config file %s: %w", path, err)
	}
	return result, nil
}

// ParseEnv collects PREFIX_* environment variables. The remainder of the name
// is lowercased; a double underscore separates nesting levels, so
// TALLY_MAP_WAIT__TIMEOUT sets map_wait.timeout.
func ParseEnv(prefix string, environ []string) map[string]any {
	settings := make(map[string]any)
	envPrefix := prefix + "_"

	for _, env := range environ {
		if !strings.HasPrefix(env, envPrefix) {
			continue
		}
		name, value, ok := strings.Cut(env, "=")
		if !ok || value == "" {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(name, envPrefix))
		key = strings.ReplaceAll(key, "__", ".")
		setPath(settings, key, value)
	}

	if len(settings) == 0 {
		return nil
	}
	return settings
}

// setPath stores value under a dotted key, creating intermediate maps.
func setPath(m map[string]any, key string, value any) {
	parts := strings.Split(key, ".")
	for _, part := range parts[:len(parts)-1] {
		next, ok := m[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[part] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = value
}

// Merge merges settings maps with later sources overriding earlier ones.
// Nested maps are merged key by key rather than replaced.
func Merge(sources ...map[string]any) map[string]any {
	result := make(map[string]any)
	for _, src := range sources {
		mergeInto(result, src)
	}
	return result
}

func mergeInto(dst, src map[string]any) {
	for k, v := range src {
		if srcMap, ok := v.(map[string]any); ok {
			dstMap, ok := dst[k].(map[string]any)
			if !ok {
				dstMap = make(map[string]any, len(srcMap))
				dst[k] = dstMap
			}
			mergeInto(dstMap, srcMap)
			continue
		}
		dst[k] = v
	}
}

// Build assembles settings from all sources.
// Precedence: env < file < kv pairs.
func Build(envPrefix, filePath string, kvPairs []string) (map[string]any, error) {
	var sources []map[string]any

	if envSettings := ParseEnv(envPrefix, os.Environ()); envSettings != nil {
		sources = append(sources, envSettings)
	}

	if filePath != "" {
		fileSettings, err := ParseFile(filePath)
		if err != nil {
			return nil, err
		}
		sources = append(sources, fileSettings)
	}

	if len(kvPairs) > 0 {
		kvSettings := make(map[string]any)
		for _, kv := range kvPairs {
			key, value, err := ParseKV(kv)
			if err != nil {
				return nil, err
			}
			setPath(kvSettings, key, value)
		}
		sources = append(sources, kvSettings)
	}

	return Merge(sources...), nil
}
