// Package prompts holds the interview prompt templates. They are embedded at
// compile time and parsed once on first use.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"
)

//go:embed interview.json
var promptFiles embed.FS

const interviewFile = "interview.json"

// Prompt keys
const (
	KeyQuestion   = "generate-question"
	KeyFollowUp   = "generate-follow-up"
	KeyEvaluate   = "evaluate-answer"
	KeyReport     = "write-report"
	KeyTranscribe = "transcribe-audio"
)

var placeholder = regexp.MustCompile(`\{\{\.(\w+)\}\}`)

var loadTemplates = sync.OnceValues(func() (map[string]string, error) {
	data, err := promptFiles.ReadFile(interviewFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", interviewFile, err)
	}
	var templates map[string]string
	if err := json.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", interviewFile, err)
	}
	return templates, nil
})

// Get returns the raw template for key.
func Get(key string) (string, error) {
	templates, err := loadTemplates()
	if err != nil {
		return "", err
	}
	t, ok := templates[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found in %s", key, interviewFile)
	}
	return t, nil
}

// Keys lists the available prompt keys in sorted order.
func Keys() ([]string, error) {
	templates, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(templates))
	for k := range templates {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}

// Placeholders returns the distinct {{.Name}} fields a template expects.
func Placeholders(template string) []string {
	var names []string
	for _, m := range placeholder.FindAllStringSubmatch(template, -1) {
		if !slices.Contains(names, m[1]) {
			names = append(names, m[1])
		}
	}
	return names
}

// Format substitutes {{.Name}} fields with values from data. Unknown fields are left as is.
func Format(template string, data map[string]string) string {
	return placeholder.ReplaceAllStringFunc(template, func(m string) string {
		if v, ok := data[m[3:len(m)-2]]; ok {
			return v
		}
		return m
	})
}

// Render formats the template for key and fails when a field has no value.
func Render(key string, data map[string]string) (string, error) {
	t, err := Get(key)
	if err != nil {
		return "", err
	}
	var missing []string
	for _, name := range Placeholders(t) {
		if _, ok := data[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("prompt %q has unfilled placeholders: %s", key, strings.Join(missing, ", "))
	}
	return Format(t, data), nil
}
