// Package catalog holds the static menu loaded once at startup. A Catalog is
// read-only after construction and safe for concurrent use without locking.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"blink/internal/domain"
)

var ErrEmptyCatalog = errors.New("menu catalog is empty")

type Catalog struct {
	entries    []domain.MenuItem
	byName     map[string]int
	categories []string
}

type file struct {
	Items []domain.MenuItem `yaml:"items"`
}

// Load reads a YAML catalog of the form:
//
//	items:
//	  - name: Cheeseburger
//	    aliases: [cheese burger]
//	    price: 8.5
//	    category: Burgers
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return New(f.Items)
}

func New(items []domain.MenuItem) (*Catalog, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCatalog
	}
	c := &Catalog{
		entries: make([]domain.MenuItem, 0, len(items)),
		byName:  make(map[string]int, len(items)),
	}
	seenCategory := map[string]struct{}{}
	for _, item := range items {
		item.Name = strings.TrimSpace(item.Name)
		if item.Name == "" {
			return nil, fmt.Errorf("catalog item without name")
		}
		key := strings.ToLower(item.Name)
		if _, dup := c.byName[key]; dup {
			return nil, fmt.Errorf("duplicate catalog item: %s", item.Name)
		}
		if item.Price < 0 {
			return nil, fmt.Errorf("catalog item %s has negative price", item.Name)
		}
		item.Category = strings.TrimSpace(item.Category)
		if item.Category == "" {
			item.Category = "Other"
		}
		aliases := make([]string, 0, len(item.Aliases))
		for _, a := range item.Aliases {
			if a = strings.TrimSpace(a); a != "" {
				aliases = append(aliases, a)
			}
		}
		item.Aliases = aliases

		c.byName[key] = len(c.entries)
		c.entries = append(c.entries, item)
		if _, ok := seenCategory[item.Category]; !ok {
			seenCategory[item.Category] = struct{}{}
			c.categories = append(c.categories, item.Category)
		}
	}
	return c, nil
}

// Entries returns a copy of the catalog in file order.
func (c *Catalog) Entries() []domain.MenuItem {
	out := make([]domain.MenuItem, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *Catalog) Len() int {
	return len(c.entries)
}

// Categories lists categories in order of first appearance.
func (c *Catalog) Categories() []string {
	return append([]string(nil), c.categories...)
}

func (c *Catalog) InCategory(category string) []domain.MenuItem {
	var out []domain.MenuItem
	for _, e := range c.entries {
		if strings.EqualFold(e.Category, category) {
			out = append(out, e)
		}
	}
	return out
}

// Lookup finds an entry by canonical name, case-insensitively.
func (c *Catalog) Lookup(name string) (domain.MenuItem, bool) {
	i, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return domain.MenuItem{}, false
	}
	return c.entries[i], true
}

// Cheapest returns up to n entries sorted by price, used for "try instead" hints.
func (c *Catalog) Cheapest(n int) []domain.MenuItem {
	out := c.Entries()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
