package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of the shop configuration.
//
//	settings:
//	  default_language: de
//	  languages:
//	    de: {name: Deutsch, locale: de_DE}
//	shops:
//	  - id: a
//	    domain: 'a\.example\.com'
//	    settings:
//	      title: Shop A
type File struct {
	Settings map[string]any `yaml:"settings"`
	Shops    []Shop         `yaml:"shops"`
}

// Load parses a YAML shop configuration and builds a Resolver.
func Load(r io.Reader) (*Resolver, error) {
	var f File
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode shop config: %w", err)
	}
	return NewResolver(f.Settings, f.Shops)
}

// LoadFile reads the shop configuration at path.
func LoadFile(path string) (*Resolver, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open shop config: %w", err)
	}
	defer fh.Close()

	r, err := Load(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}
