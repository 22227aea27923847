package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/blackcoderx/reqtree/pkg/request"
)

// varPattern matches {{VAR_NAME}} or {{env:VAR_NAME}}
var varPattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// LoadEnvironment loads environment variables from a YAML file
func LoadEnvironment(filePath string) (map[string]string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read environment file: %w", err)
	}

	var env map[string]string
	if err := yaml.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to parse environment YAML: %w", err)
	}
	if env == nil {
		env = map[string]string{}
	}

	// Resolve any {{env:VAR}} references to actual environment variables
	for key, value := range env {
		env[key] = resolveEnvRefs(value)
	}

	return env, nil
}

// LoadNamedEnvironment loads environments/<name>.yaml (or .yml) under baseDir.
func LoadNamedEnvironment(baseDir, name string) (map[string]string, error) {
	dir := GetEnvironmentsDir(baseDir)
	for _, ext := range []string{".yaml", ".yml"} {
		path := filepath.Join(dir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return LoadEnvironment(path)
		}
	}
	return nil, fmt.Errorf("environment %q not found in %s", name, dir)
}

// SaveEnvironment saves environment variables to a YAML file
func SaveEnvironment(env map[string]string, filePath string) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if !strings.HasSuffix(filePath, ".yaml") && !strings.HasSuffix(filePath, ".yml") {
		filePath = filePath + ".yaml"
	}

	data, err := yaml.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal environment: %w", err)
	}

	return os.WriteFile(filePath, data, 0644)
}

// ListEnvironments lists all environment files
func ListEnvironments(baseDir string) ([]string, error) {
	envDir := GetEnvironmentsDir(baseDir)

	if _, err := os.Stat(envDir); os.IsNotExist(err) {
		return []string{}, nil
	}

	var envs []string
	entries, err := os.ReadDir(envDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read environments directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() && (strings.HasSuffix(entry.Name(), ".yaml") || strings.HasSuffix(entry.Name(), ".yml")) {
			name := strings.TrimSuffix(strings.TrimSuffix(entry.Name(), ".yaml"), ".yml")
			envs = append(envs, name)
		}
	}

	return envs, nil
}

// SubstituteVariables replaces {{VAR}} placeholders with values from the environment
func SubstituteVariables(text string, env map[string]string) string {
	return varPattern.ReplaceAllStringFunc(text, func(match string) string {
		// Extract variable name (remove {{ and }})
		varName := strings.TrimPrefix(strings.TrimSuffix(match, "}}"), "{{")
		varName = strings.TrimSpace(varName)

		// Check for env: prefix (reference to system environment)
		if strings.HasPrefix(varName, "env:") {
			sysVar := strings.TrimPrefix(varName, "env:")
			if val := os.Getenv(sysVar); val != "" {
				return val
			}
			return match // Keep original if not found
		}

		// Look up in provided environment
		if val, ok := env[varName]; ok {
			return val
		}

		return match // Keep original if not found
	})
}

// ApplyEnvironment returns a copy of content with variables substituted in
// the URL, every row value and the body. The stored request is not changed.
func ApplyEnvironment(content *request.Content, env map[string]string) *request.Content {
	if content == nil {
		return nil
	}
	applied := content.Clone()
	applied.URL = SubstituteVariables(applied.URL, env)
	applied.Body = SubstituteVariables(applied.Body, env)

	for _, rows := range [][]request.Row{applied.Headers, applied.QueryParams, applied.PathParams} {
		for i := range rows {
			rows[i].Key = SubstituteVariables(rows[i].Key, env)
			rows[i].Value = SubstituteVariables(rows[i].Value, env)
		}
	}

	return applied
}

// ApplyEnvironmentToServer substitutes variables in a server's base URL.
func ApplyEnvironmentToServer(server request.Server, env map[string]string) request.Server {
	server.BaseURL = SubstituteVariables(server.BaseURL, env)
	return server
}

// resolveEnvRefs resolves {{env:VAR}} references in a string
func resolveEnvRefs(text string) string {
	return varPattern.ReplaceAllStringFunc(text, func(match string) string {
		varName := strings.TrimPrefix(strings.TrimSuffix(match, "}}"), "{{")
		varName = strings.TrimSpace(varName)

		if strings.HasPrefix(varName, "env:") {
			sysVar := strings.TrimPrefix(varName, "env:")
			if val := os.Getenv(sysVar); val != "" {
				return val
			}
		}
		return match
	})
}
