package configx

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// keyPath maps SECTION_SOME_KEY to ["section", "some_key"]. Only the first
// underscore nests, so multi-word keys survive.
func keyPath(name string) []string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.SplitN(name, "_", 2)
}

// EnvSource loads configuration from environment variables sharing a prefix.
type EnvSource struct {
	prefix   string
	priority int
	environ  func() []string
}

// NewEnvSource creates a new environment variable source
func NewEnvSource(prefix string, priority int) Source {
	return &EnvSource{prefix: prefix, priority: priority, environ: os.Environ}
}

func (s *EnvSource) Load() (map[string]any, error) {
	result := make(map[string]any)
	for _, env := range s.environ() {
		key, val, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}
		if s.prefix != "" {
			if !strings.HasPrefix(key, s.prefix) {
				continue
			}
			key = strings.TrimPrefix(key, s.prefix)
		}
		if key == "" {
			continue
		}
		insert(result, keyPath(key), val)
	}
	return result, nil
}

func (s *EnvSource) Name() string   { return fmt.Sprintf("env(%s)", s.prefix) }
func (s *EnvSource) Priority() int  { return s.priority }
func (s *EnvSource) Optional() bool { return false }

// DotEnvSource loads KEY=value lines from a .env file. A missing file is not
// an error.
type DotEnvSource struct {
	path     string
	priority int
}

// NewDotEnvSource creates a new .env file source
func NewDotEnvSource(path string, priority int) Source {
	return &DotEnvSource{path: path, priority: priority}
}

func (s *DotEnvSource) Load() (map[string]any, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer file.Close()

	result := make(map[string]any)
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, val, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key = strings.TrimSpace(key)
		val = unquote(strings.TrimSpace(val))

		insert(result, keyPath(key), val)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return result, nil
}

func unquote(val string) string {
	if len(val) > 1 && (val[0] == '"' && val[len(val)-1] == '"' ||
		val[0] == '\'' && val[len(val)-1] == '\'') {
		return val[1 : len(val)-1]
	}
	return val
}

func (s *DotEnvSource) Name() string   { return fmt.Sprintf("dotenv(%s)", s.path) }
func (s *DotEnvSource) Priority() int  { return s.priority }
func (s *DotEnvSource) Optional() bool { return true }

// MapSource serves an in-memory nested map. Dotted keys are expanded.
type MapSource struct {
	values   map[string]any
	name     string
	priority int
}

// NewMapSource creates a new map source
func NewMapSource(values map[string]any, name string, priority int) Source {
	return &MapSource{values: values, name: name, priority: priority}
}

func (s *MapSource) Load() (map[string]any, error) {
	result := make(map[string]any)
	for k, v := range s.values {
		if nested, ok := v.(map[string]any); ok {
			v = clone(nested)
		}
		insert(result, strings.Split(k, "."), v)
	}
	return result, nil
}

func (s *MapSource) Name() string   { return fmt.Sprintf("map(%s)", s.name) }
func (s *MapSource) Priority() int  { return s.priority }
func (s *MapSource) Optional() bool { return false }
