package site

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// CredentialExtractor recovers database connection parameters from a site's
// configuration file by scanning text lines for assignment-like patterns and
// extracting quoted literal values. It is deliberately not a full language
// parser: a line that merely mentions a key (such as a comment) still
// matches. Callers that need stricter parsing can substitute their own
// implementation of this interface.
type CredentialExtractor interface {
	Extract(configPath string) (Credentials, error)
}

// configKeys are the recognized assignment keys, in extraction order.
var configKeys = []string{"DB_NAME", "DB_USER", "DB_PASSWORD", "DB_HOST"}

// quotedLiteral matches a single- or double-quoted literal on a line.
var quotedLiteral = regexp.MustCompile(`'([^']*)'|"([^"]*)"`)

// lineExtractor implements CredentialExtractor with line-based scanning
type lineExtractor struct{}

// NewCredentialExtractor creates the default line-scanning extractor
func NewCredentialExtractor() CredentialExtractor {
	return &lineExtractor{}
}

// Extract scans configPath for the DB_NAME, DB_USER, DB_PASSWORD and
// DB_HOST assignments and returns their quoted literal values. It returns
// ErrConfigMissing when the file does not exist and ErrCredentialsIncomplete
// when the mandatory name or user is empty after extraction. Password and
// host may be legitimately empty.
func (le *lineExtractor) Extract(configPath string) (Credentials, error) {
	file, err := os.Open(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Credentials{}, fmt.Errorf("%w: %s", ErrConfigMissing, configPath)
		}
		return Credentials{}, fmt.Errorf("failed to open configuration file %s: %w", configPath, err)
	}
	defer file.Close()

	values := make(map[string]string, len(configKeys))

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		for _, key := range configKeys {
			if _, seen := values[key]; seen {
				continue
			}
			if !strings.Contains(line, key) {
				continue
			}
			if value, ok := extractValue(line, key); ok {
				values[key] = value
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return Credentials{}, fmt.Errorf("failed to read configuration file %s: %w", configPath, err)
	}

	creds := Credentials{
		Name:     values["DB_NAME"],
		User:     values["DB_USER"],
		Password: values["DB_PASSWORD"],
		Host:     values["DB_HOST"],
	}

	if creds.Name == "" || creds.User == "" {
		return Credentials{}, fmt.Errorf("%w in %s", ErrCredentialsIncomplete, configPath)
	}

	return creds, nil
}

// extractValue pulls the quoted literal value for key out of one line. When
// the key itself appears as the first quoted literal (the define-style
// assignment), the value is the literal that follows it; otherwise the first
// quoted literal on the line is taken as the value.
func extractValue(line, key string) (string, bool) {
	matches := quotedLiteral.FindAllStringSubmatch(line, -1)
	if len(matches) == 0 {
		return "", false
	}

	literals := make([]string, 0, len(matches))
	for _, m := range matches {
		if m[1] != "" || strings.HasPrefix(m[0], "'") {
			literals = append(literals, m[1])
		} else {
			literals = append(literals, m[2])
		}
	}

	if literals[0] == key {
		if len(literals) < 2 {
			return "", false
		}
		return literals[1], true
	}

	return literals[0], true
}
