package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"
)

//go:embed templates/*.txt
var templateFS embed.FS

// maxInputRunes bounds user-supplied text placed into a prompt.
const maxInputRunes = 30000

var (
	documentTagRegex = regexp.MustCompile(`(?i)</?\s*(document|student-question)\b[^>]*>`)
)

// Kind names one prompt template.
type Kind string

const (
	Explain   Kind = "explain"
	Ask       Kind = "ask"
	Summarize Kind = "summarize"
	Image     Kind = "image"
	Quiz      Kind = "quiz"
)

var kinds = []Kind{Explain, Ask, Summarize, Image, Quiz}

var (
	loadOnce  sync.Once
	loadErr   error
	templates map[Kind]*template.Template
)

// Data holds template fields. Each template uses the subset it needs.
type Data struct {
	Topic string
	Input string
	Count int
}

// Load parses prompt templates from fsys, which must contain templates/<kind>.txt.
// It uses sync.Once to ensure templates are loaded only once; a nil fsys
// selects the embedded templates.
func Load(fsys fs.FS) error {
	loadOnce.Do(func() {
		if fsys == nil {
			fsys = templateFS
		}
		templates = make(map[Kind]*template.Template)
		for _, k := range kinds {
			file := "templates/" + string(k) + ".txt"
			content, err := fs.ReadFile(fsys, file)
			if err != nil {
				loadErr = errors.New("failed to read prompt file " + file + ": " + err.Error())
				return
			}
			tmpl, err := template.New(string(k)).Parse(string(content))
			if err != nil {
				loadErr = errors.New("failed to parse prompt template " + file + ": " + err.Error())
				return
			}
			templates[k] = tmpl
		}
	})
	return loadErr
}

// Build renders the prompt of the given kind. Topic and Input are sanitized first.
func Build(kind Kind, data Data) (string, error) {
	if err := Load(nil); err != nil {
		return "", fmt.Errorf("templates load failed: %w", err)
	}
	tmpl, ok := templates[kind]
	if !ok {
		return "", errors.New("unknown prompt kind: " + string(kind))
	}

	data.Topic = strings.TrimSpace(documentTagRegex.ReplaceAllString(data.Topic, ""))
	data.Input = sanitizeInput(data.Input)

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func sanitizeInput(input string) string {
	input = documentTagRegex.ReplaceAllString(input, "")
	input = strings.TrimSpace(input)

	if utf8.RuneCountInString(input) > maxInputRunes {
		runes := []rune(input)
		input = string(runes[:maxInputRunes]) + "\n\n[Text truncated due to length]"
	}
	return input
}
