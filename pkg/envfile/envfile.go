// Package envfile loads dotenv files that supply values for env: references
// without exporting them into the shell.
package envfile

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Files returns the dotenv files read for environment, lowest precedence
// first. Later files override earlier ones.
func Files(environment string) []string {
	files := []string{".env", ".env.local"}
	if environment != "" {
		files = append(files, ".env."+environment, ".env."+environment+".local")
	}
	return files
}

// Load reads the dotenv chain for environment from dir. Missing files are
// skipped; no files at all yields an empty map.
func Load(dir, environment string) (map[string]string, error) {
	vars := make(map[string]string)
	for _, name := range Files(environment) {
		path := filepath.Join(dir, name)
		content, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if err := parseEnvFile(content, vars); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return vars, nil
}

func parseEnvFile(content []byte, vars map[string]string) error {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, found := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return fmt.Errorf("line %d: expected KEY=VALUE", lineNo)
		}
		vars[key] = unquote(strings.TrimSpace(value))
	}
	return scanner.Err()
}

func unquote(value string) string {
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if (first == '"' || first == '\'') && first == last {
			return value[1 : len(value)-1]
		}
	}
	return value
}
