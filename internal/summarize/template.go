// Package summarize implements C5: template-driven four-section
// summarization with structure/length/speculation validation and
// regenerate-once-then-flag quality control.
package summarize

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wedosoft/ticketrag/internal/domain"
)

// Template is one prompt template file's parsed content.
type Template struct {
	SystemPrompt          string   `yaml:"system_prompt"`
	RequiredSections      []string `yaml:"required_sections"`
	BilingualPreservation bool     `yaml:"bilingual_preservation"`
	AntiHallucination     []string `yaml:"anti_hallucination"`
}

// Key identifies one template by the triple the summarizer loads on.
type Key struct {
	ObjectType  domain.ObjectType
	SummaryType domain.SummaryType
	Language    domain.Language
}

func (k Key) filename() string {
	return fmt.Sprintf("%s_%s_%s.yaml", k.ObjectType, k.SummaryType, k.Language)
}

// Store holds every loaded template, keyed by Key.
type Store struct {
	templates map[Key]Template
}

// LoadDir reads every "<object_type>_<summary_type>_<language>.yaml" file
// in dir into a Store. Files whose names don't split into those three parts
// are skipped; a matching file that cannot be read or parsed fails the whole
// load with an error naming that file.
func LoadDir(dir string) (*Store, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("summarize: reading template dir %s: %w", dir, err)
	}

	s := &Store{templates: make(map[Key]Template)}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
			continue
		}
		key, ok := parseFilename(e.Name())
		if !ok {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("summarize: reading template %s: %w", e.Name(), err)
		}
		var t Template
		if err := yaml.Unmarshal(raw, &t); err != nil {
			return nil, fmt.Errorf("summarize: parsing template %s: %w", e.Name(), err)
		}
		s.templates[key] = t
	}
	return s, nil
}

// parseFilename splits "<object_type>_<summary_type>_<language>.yaml" from
// the right, since object_type itself may contain an underscore
// (kb_article): language is the last segment, summary_type the one before
// it, and everything remaining (rejoined) is the object type.
func parseFilename(name string) (Key, bool) {
	base := name[:len(name)-len(filepath.Ext(name))]
	parts := strings.Split(base, "_")
	if len(parts) < 3 {
		return Key{}, false
	}
	language := parts[len(parts)-1]
	summaryType := parts[len(parts)-2]
	objectType := strings.Join(parts[:len(parts)-2], "_")
	return Key{
		ObjectType:  domain.ObjectType(objectType),
		SummaryType: domain.SummaryType(summaryType),
		Language:    domain.Language(language),
	}, true
}

// Lookup finds the template for key, falling back to English when the
// detected-language variant doesn't exist (an Open Question §4.5 leaves
// implicit: not every language gets a bespoke template, and English is the
// one every pack repo treats as the default locale).
func (s *Store) Lookup(key Key) (Template, error) {
	if t, ok := s.templates[key]; ok {
		return t, nil
	}
	fallback := key
	fallback.Language = domain.LanguageEnglish
	if t, ok := s.templates[fallback]; ok {
		return t, nil
	}
	return Template{}, fmt.Errorf("summarize: no template for %s/%s/%s (or english fallback)",
		key.ObjectType, key.SummaryType, key.Language)
}

// Put registers a template directly, used by tests and by callers that
// build templates in code rather than from disk.
func (s *Store) Put(key Key, t Template) {
	if s.templates == nil {
		s.templates = make(map[Key]Template)
	}
	s.templates[key] = t
}
