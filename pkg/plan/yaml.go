package plan

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlCatalog is the on-disk catalog format:
//
//	plans:
//	  - name: free
//	    display_name: Free
//	    max_projects: 1
//	    ...
type yamlCatalog struct {
	Plans []Plan `yaml:"plans"`
}

// LoadYAML decodes and validates a catalog definition.
func LoadYAML(r io.Reader) ([]Plan, error) {
	var doc yamlCatalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Join(ErrFailedToLoad, err)
	}

	seen := make(map[Tier]bool, len(doc.Plans))
	for i := range doc.Plans {
		p := &doc.Plans[i]
		p.Name = NormalizeTier(string(p.Name))
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("plan %d (%q): %w", i, p.Name, err)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("plan %q: %w", p.Name, ErrDuplicatePlan)
		}
		seen[p.Name] = true
		if p.Version == 0 {
			p.Version = 1
		}
		if p.Currency == "" {
			p.Currency = "EUR"
		}
	}
	return doc.Plans, nil
}

// LoadYAMLFile reads a catalog definition from path.
func LoadYAMLFile(path string) ([]Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoad, err)
	}
	defer f.Close()
	return LoadYAML(f)
}
