package mcpcatalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// ValidationError names one malformed or missing field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationResult is the outcome of validating one catalog Entry.
type ValidationResult struct {
	Valid  bool
	Errors []ValidationError
}

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

var validCategories = map[Category]bool{
	CategoryDevelopment: true, CategoryDatabase: true, CategoryProductivity: true,
	CategoryCommunication: true, CategorySearch: true, CategoryCloud: true,
	CategoryAnalytics: true, CategoryAI: true, CategoryUtility: true, CategoryCustom: true,
}

var validSources = map[Source]bool{SourceOfficial: true, SourceCommunity: true, SourceLocal: true}

var validAuthTypes = map[AuthType]bool{AuthNone: true, AuthBearer: true, AuthOAuth2: true}

// Validate checks an entry's required fields and enum values, and that
// its runtime is launchable one way or the other.
func Validate(e *Entry) *ValidationResult {
	result := &ValidationResult{Valid: true}
	add := func(field, msg string) {
		result.Errors = append(result.Errors, ValidationError{field, msg})
	}

	if e.Name == "" {
		add("name", "required")
	} else if !namePattern.MatchString(e.Name) {
		add("name", "must be lowercase letters, numbers, and hyphens, starting with a letter")
	}
	if e.Title == "" {
		add("title", "required")
	}
	if e.Description == "" {
		add("description", "required")
	}
	if e.Category != "" && !validCategories[e.Category] {
		add("category", fmt.Sprintf("invalid category %q", e.Category))
	}
	if e.Source != "" && !validSources[e.Source] {
		add("source", fmt.Sprintf("invalid source %q", e.Source))
	}
	if e.Auth != nil && !validAuthTypes[e.Auth.Type] {
		add("authorization.type", fmt.Sprintf("invalid auth type %q", e.Auth.Type))
	}
	if e.Auth != nil && e.Auth.Type == AuthOAuth2 && e.Auth.OAuth == nil {
		add("authorization.oauth", "required for oauth2 auth type")
	}

	switch {
	case e.Runtime.Command != "" && e.Runtime.URL != "":
		add("runtime", "must set exactly one of command or url, not both")
	case e.Runtime.Command == "" && e.Runtime.URL == "":
		add("runtime", "must set one of command (stdio) or url (http/sse)")
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// ValidateFile reads and validates a single catalog entry file, in
// either JSON or YAML.
func ValidateFile(path string) (*ValidationResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var e Entry
	ext := filepath.Ext(path)
	if ext == ".yaml" || ext == ".yml" {
		if err := yaml.Unmarshal(data, &e); err != nil {
			return &ValidationResult{Errors: []ValidationError{{"yaml", fmt.Sprintf("invalid YAML: %v", err)}}}, nil
		}
	} else if err := json.Unmarshal(data, &e); err != nil {
		return &ValidationResult{Errors: []ValidationError{{"json", fmt.Sprintf("invalid JSON: %v", err)}}}, nil
	}
	return Validate(&e), nil
}

// ValidateDirectory validates every "*.json"/"*.yaml"/"*.yml" file
// directly under dir, keyed by filename.
func ValidateDirectory(dir string) (map[string]*ValidationResult, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	results := make(map[string]*ValidationResult)
	for _, f := range files {
		ext := filepath.Ext(f.Name())
		if f.IsDir() || (ext != ".json" && ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, f.Name())
		result, err := ValidateFile(path)
		if err != nil {
			results[f.Name()] = &ValidationResult{Errors: []ValidationError{{"file", err.Error()}}}
			continue
		}
		results[f.Name()] = result
	}
	return results, nil
}
