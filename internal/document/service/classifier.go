package service

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	documentDomain "github.com/allisson/phiguard/internal/document/domain"
)

// DefaultProtectedPaths are the resource paths whose payloads always carry PHI.
func DefaultProtectedPaths() []string {
	return []string{
		"/patients",
		"/patients/**",
		"/messages/**",
		"/clinical-notes/**",
		"/appointments/**",
		"/medications/**",
	}
}

// DefaultPHIKeywords are clinical terms that suggest free text carries PHI.
func DefaultPHIKeywords() []string {
	return []string{
		"diagnosis",
		"diagnosed",
		"symptom",
		"prescription",
		"medication",
		"dosage",
		"allergy",
		"fever",
		"blood pressure",
		"lab result",
		"treatment",
		"therapy",
		"mental health",
		"pregnan",
		"hiv",
		"ssn",
		"social security",
		"date of birth",
		"medical record",
		"insurance",
	}
}

// SensitivityClassifier decides whether a payload should be encrypted.
//
// It is a heuristic layered on top of the explicit RequireEncryption flag. False
// negatives are possible, so callers that know a payload is sensitive must set
// the flag rather than rely on path or keyword matching.
type SensitivityClassifier struct {
	paths    []glob.Glob
	keywords []string
}

// NewSensitivityClassifier compiles the protected path patterns. Patterns use
// '/' as separator: '*' matches one segment and '**' any number of segments.
// Matching is case-insensitive for both paths and keywords.
func NewSensitivityClassifier(protectedPaths, keywords []string) (*SensitivityClassifier, error) {
	c := &SensitivityClassifier{}

	for _, pattern := range protectedPaths {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		if pattern == "" {
			continue
		}
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid protected path pattern %q: %w", pattern, err)
		}
		c.paths = append(c.paths, g)
	}

	for _, keyword := range keywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword != "" {
			c.keywords = append(c.keywords, keyword)
		}
	}

	return c, nil
}

// ShouldEncrypt reports whether the context calls for encryption.
func (c *SensitivityClassifier) ShouldEncrypt(ctx documentDomain.EncryptionContext) bool {
	if ctx.RequireEncryption {
		return true
	}
	if c.matchesPath(ctx.Path) {
		return true
	}
	if strings.TrimSpace(ctx.PatientID) != "" {
		return true
	}
	return c.matchesKeyword(ctx.Text)
}

func (c *SensitivityClassifier) matchesPath(path string) bool {
	if path == "" {
		return false
	}
	path = strings.ToLower(path)
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	for _, g := range c.paths {
		if g.Match(path) {
			return true
		}
	}
	return false
}

func (c *SensitivityClassifier) matchesKeyword(text string) bool {
	if text == "" {
		return false
	}
	text = strings.ToLower(text)
	for _, keyword := range c.keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}
