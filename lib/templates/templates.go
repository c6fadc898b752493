// Package templates holds the static catalog of environment templates.
//
// A catalog is built once at startup, either from the built-in defaults or
// from a YAML file, and is never mutated afterwards. Lookups are safe for
// concurrent use without locking.
package templates

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/distribution/reference"
	"github.com/ghodss/yaml"
	"github.com/samber/lo"
)

// PortPlaceholder is substituted with the bound host port in AccessURL.
const PortPlaceholder = "{port}"

var (
	// ErrInvalidTemplate is returned when a template definition fails validation.
	ErrInvalidTemplate = errors.New("invalid template")
)

// Volume is a bind mount declared by a template. Source is relative to the
// container's volume root on the host.
type Volume struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	ReadOnly bool   `json:"read_only,omitempty"`
}

// Resources is the descriptive resource spec shown for an environment.
type Resources struct {
	CPU     string `json:"cpu,omitempty"`
	Memory  string `json:"memory,omitempty"`
	Storage string `json:"storage,omitempty"`
}

// Template describes how to provision one kind of environment.
type Template struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Image         string            `json:"image"`
	Ports         []int             `json:"ports"`
	Env           map[string]string `json:"env,omitempty"`
	Volumes       []Volume          `json:"volumes,omitempty"`
	AccessURL     string            `json:"access_url,omitempty"`
	CanonicalName string            `json:"canonical_name,omitempty"`
	Resources     Resources         `json:"resources,omitempty"`
}

// RenderAccessURL substitutes the bound host port into the template's
// access URL pattern. Returns "" when the template has no pattern.
func (t Template) RenderAccessURL(hostPort int) string {
	if t.AccessURL == "" {
		return ""
	}
	return strings.ReplaceAll(t.AccessURL, PortPlaceholder, strconv.Itoa(hostPort))
}

// Catalog is an immutable set of templates keyed by ID.
type Catalog struct {
	byID map[string]Template
	ids  []string
}

// NewCatalog validates and indexes the given templates.
func NewCatalog(list []Template) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]Template, len(list))}
	for _, t := range list {
		if err := validate(&t); err != nil {
			return nil, err
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidTemplate, t.ID)
		}
		c.byID[t.ID] = t
		c.ids = append(c.ids, t.ID)
	}
	sort.Strings(c.ids)
	return c, nil
}

// Get returns the template with the given ID.
func (c *Catalog) Get(id string) (Template, bool) {
	t, ok := c.byID[id]
	return t, ok
}

// List returns all templates ordered by ID.
func (c *Catalog) List() []Template {
	return lo.Map(c.ids, func(id string, _ int) Template {
		return c.byID[id]
	})
}

// CanonicalNames returns the well-known container names of templates that
// declare one, ordered by template ID.
func (c *Catalog) CanonicalNames() []string {
	names := lo.FilterMap(c.ids, func(id string, _ int) (string, bool) {
		name := c.byID[id].CanonicalName
		return name, name != ""
	})
	return names
}

// LoadFile reads a YAML (or JSON) list of templates from path.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates file: %w", err)
	}
	var list []Template
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse templates file: %w", err)
	}
	return NewCatalog(list)
}

func validate(t *Template) error {
	if t.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidTemplate)
	}
	if t.Name == "" {
		t.Name = t.ID
	}
	named, err := reference.ParseNormalizedNamed(t.Image)
	if err != nil {
		return fmt.Errorf("%w: %s: image %q: %v", ErrInvalidTemplate, t.ID, t.Image, err)
	}
	t.Image = reference.TagNameOnly(named).String()

	if len(t.Ports) == 0 {
		return fmt.Errorf("%w: %s: at least one port is required", ErrInvalidTemplate, t.ID)
	}
	for _, p := range t.Ports {
		if p < 1 || p > 65535 {
			return fmt.Errorf("%w: %s: port %d out of range", ErrInvalidTemplate, t.ID, p)
		}
	}
	if dups := lo.FindDuplicates(t.Ports); len(dups) > 0 {
		return fmt.Errorf("%w: %s: duplicate ports %v", ErrInvalidTemplate, t.ID, dups)
	}
	for _, v := range t.Volumes {
		if v.Source == "" || !strings.HasPrefix(v.Target, "/") {
			return fmt.Errorf("%w: %s: volume %q -> %q must have a source and an absolute target", ErrInvalidTemplate, t.ID, v.Source, v.Target)
		}
	}
	return nil
}
