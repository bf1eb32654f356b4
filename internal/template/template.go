// Package template renders locale-aware prompt fragments from named
// templates and a substitution mapping.
//
// Templates are parameterized strings with $placeholder tokens.
// Substitution is a literal token replace, not expression evaluation:
// substituted values are inserted verbatim and never rescanned, so
// document text or user queries containing placeholder syntax cannot
// inject into the rendered prompt.
package template

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Supported locales.
const (
	LocaleEN = "en"
	LocaleAR = "ar"
)

// DefaultLocale is the fallback when the primary locale lacks a template.
const DefaultLocale = LocaleEN

// ErrNotFound reports that neither the primary nor the default locale
// defines the requested template.
var ErrNotFound = errors.New("template not found")

// DomainRAG groups the prompt templates used to answer a query from
// retrieved documents.
const DomainRAG = "rag"

// Template names within DomainRAG.
const (
	SystemPrompt   = "system_prompt"
	DocumentPrompt = "document_prompt"
	FooterPrompt   = "footer_prompt"
)

// catalog maps locale -> domain -> template name -> template text.
var catalog = map[string]map[string]map[string]string{
	LocaleEN: {DomainRAG: englishRAG},
	LocaleAR: {DomainRAG: arabicRAG},
}

// Engine resolves templates under a primary locale with fallback to
// the default locale.
type Engine struct {
	locale        string
	defaultLocale string
}

// New creates an Engine for the given primary locale. Unknown locales
// are accepted; every lookup then resolves through the default locale.
func New(locale string) *Engine {
	return NewWithFallback(locale, DefaultLocale)
}

// NewWithFallback creates an Engine with an explicit fallback locale.
// Empty inputs normalize to the package default.
func NewWithFallback(locale, fallback string) *Engine {
	locale = normalizeLocale(locale)
	fallback = normalizeLocale(fallback)
	return &Engine{locale: locale, defaultLocale: fallback}
}

func normalizeLocale(locale string) string {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if locale == "" {
		return DefaultLocale
	}
	return locale
}

// Locale returns the primary locale.
func (e *Engine) Locale() string {
	return e.locale
}

// Get renders the template identified by (domain, name) under the
// primary locale, falling back to the default locale, applying subs to
// its $placeholder tokens. Neither locale defining it is ErrNotFound.
func (e *Engine) Get(domain, name string, subs map[string]string) (string, error) {
	text, ok := e.lookup(e.locale, domain, name)
	if !ok {
		text, ok = e.lookup(e.defaultLocale, domain, name)
	}
	if !ok {
		return "", fmt.Errorf("%w: %s/%s (locale %q, default %q)",
			ErrNotFound, domain, name, e.locale, e.defaultLocale)
	}
	return substitute(text, subs), nil
}

func (e *Engine) lookup(locale, domain, name string) (string, bool) {
	domains, ok := catalog[locale]
	if !ok {
		return "", false
	}
	templates, ok := domains[domain]
	if !ok {
		return "", false
	}
	text, ok := templates[name]
	return text, ok
}

// ValidateRequired checks at startup that the full RAG template set
// resolves for this engine's locale chain.
func (e *Engine) ValidateRequired() error {
	var missing []string
	for _, name := range []string{SystemPrompt, DocumentPrompt, FooterPrompt} {
		if _, err := e.Get(DomainRAG, name, nil); err != nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: required templates missing: %s",
			ErrNotFound, strings.Join(missing, ", "))
	}
	return nil
}

// substitute replaces each $key token in text with subs[key]. Keys are
// tried longest first so $chunk_text is never misread as $chunk.
// Replacement values are emitted verbatim, never rescanned.
func substitute(text string, subs map[string]string) string {
	if len(subs) == 0 || !strings.ContainsRune(text, '$') {
		return text
	}

	keys := make([]string, 0, len(subs))
	for k := range subs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })

	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); {
		if text[i] != '$' {
			b.WriteByte(text[i])
			i++
			continue
		}
		matched := false
		for _, k := range keys {
			if strings.HasPrefix(text[i+1:], k) {
				b.WriteString(subs[k])
				i += 1 + len(k)
				matched = true
				break
			}
		}
		if !matched {
			// Unknown placeholder stays literal.
			b.WriteByte(text[i])
			i++
		}
	}
	return b.String()
}
