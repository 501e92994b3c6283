// validate.go: species payload validation and normalization. Validation runs
// before any database call so that a schema mismatch never reaches the store.
package datastore

import (
	"net/url"
	"sort"
	"strings"
)

// FieldErrors maps a field name to a human-readable validation message.
// It implements error so handlers can return it directly.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	if len(fe) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var b strings.Builder
	b.WriteString("validation failed: ")
	for i, f := range fields {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(f)
		b.WriteString(": ")
		b.WriteString(fe[f])
	}
	return b.String()
}

// Normalize trims the required scientific name and collapses whitespace-only
// optional fields to nil so they are stored as absent.
func (s *Species) Normalize() {
	s.ScientificName = strings.TrimSpace(s.ScientificName)
	s.CommonName = normalizeOptional(s.CommonName)
	s.ImageURL = normalizeOptional(s.ImageURL)
	s.Description = normalizeOptional(s.Description)
}

func normalizeOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// Validate checks the species fields after normalization. It returns a
// FieldErrors value listing every offending field, or nil when valid.
func (s *Species) Validate() FieldErrors {
	fe := FieldErrors{}

	if s.ScientificName == "" {
		fe["scientific_name"] = "scientific name is required"
	}

	if !ValidKingdom(s.Kingdom) {
		fe["kingdom"] = "kingdom must be one of Animalia, Plantae, Fungi, Protista, Archaea, Bacteria"
	}

	if s.TotalPopulation != nil && *s.TotalPopulation < 1 {
		fe["total_population"] = "total population must be a positive integer"
	}

	if s.ImageURL != nil && !validImageURL(*s.ImageURL) {
		fe["image"] = "image must be a valid http or https URL"
	}

	if s.AuthorID == "" {
		fe["author"] = "author is required"
	}

	if len(fe) == 0 {
		return nil
	}
	return fe
}

func validImageURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
