// Package places resolves a business's phone number from a static table of
// known businesses or from the place-details service.
package places

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/wolfman30/concierge-dialer/internal/phone"
)

//go:embed known_businesses.yaml
var defaultKnownBusinessesYAML []byte

// Business is one entry in the known-business table.
type Business struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
	City    string   `yaml:"city"`
	Phone   string   `yaml:"phone"`
	Address string   `yaml:"address"`
	Website string   `yaml:"website"`
	PlaceID string   `yaml:"place_id"`
}

type knownFile struct {
	Businesses []Business `yaml:"businesses"`
}

// Directory indexes known businesses by normalized name. It is immutable
// after construction.
type Directory struct {
	byName map[string][]Business
	size   int
}

var (
	defaultDirectory     *Directory
	defaultDirectoryOnce sync.Once
	defaultDirectoryErr  error
)

// DefaultDirectory parses the embedded table once and caches it.
func DefaultDirectory() (*Directory, error) {
	defaultDirectoryOnce.Do(func() {
		defaultDirectory, defaultDirectoryErr = ParseDirectory(defaultKnownBusinessesYAML)
	})
	return defaultDirectory, defaultDirectoryErr
}

// LoadDirectory reads a table from path, or returns the embedded one when
// path is empty.
func LoadDirectory(path string) (*Directory, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultDirectory()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("places: read %s: %w", path, err)
	}
	return ParseDirectory(data)
}

// ParseDirectory builds a Directory from YAML. Entries without a valid phone
// are rejected.
func ParseDirectory(data []byte) (*Directory, error) {
	var file knownFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("places: parse known businesses: %w", err)
	}

	d := &Directory{byName: map[string][]Business{}}
	for i, b := range file.Businesses {
		e164 := phone.Normalize(b.Phone)
		if strings.TrimSpace(b.Name) == "" || e164 == "" {
			return nil, fmt.Errorf("places: known business %d (%q) needs a name and a valid phone", i, b.Name)
		}
		b.Phone = e164
		for _, name := range append([]string{b.Name}, b.Aliases...) {
			key := NormalizeName(name)
			if key == "" {
				continue
			}
			d.byName[key] = append(d.byName[key], b)
		}
		d.size++
	}
	return d, nil
}

// Len returns the number of businesses in the table.
func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	return d.size
}

// Lookup finds a business by name. When several share a name, city breaks
// the tie; without a city match the first entry wins.
func (d *Directory) Lookup(name, city string) (Business, bool) {
	if d == nil {
		return Business{}, false
	}
	matches := d.byName[NormalizeName(name)]
	if len(matches) == 0 {
		return Business{}, false
	}
	if c := NormalizeName(city); c != "" {
		for _, b := range matches {
			if NormalizeName(b.City) == c {
				return b, true
			}
		}
	}
	return matches[0], true
}

// NormalizeName lowercases, drops punctuation and a leading "the", and
// collapses whitespace.
func NormalizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '&':
			b.WriteRune(' ')
		}
	}
	fields := strings.Fields(b.String())
	if len(fields) > 1 && fields[0] == "the" {
		fields = fields[1:]
	}
	return strings.Join(fields, " ")
}
