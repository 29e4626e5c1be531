package round

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sqrrr/gamehub/internal/model"
)

// Catalog is the fixed set of content items rounds are drawn from
type Catalog struct {
	items []model.ContentItem
	byID  map[string]model.ContentItem
}

type catalogEntry struct {
	ID         string                      `json:"id"`
	File       string                      `json:"file"`
	Answers    map[model.Category][]string `json:"answers"`
	DurationMs int64                       `json:"durationMs,omitempty"`
}

// NewCatalog validates items and builds a Catalog. Every item needs an id,
// a file and at least one answer per category.
func NewCatalog(items []model.ContentItem) (*Catalog, error) {
	c := &Catalog{
		items: make([]model.ContentItem, 0, len(items)),
		byID:  make(map[string]model.ContentItem, len(items)),
	}
	for i, item := range items {
		if strings.TrimSpace(item.ID) == "" || strings.TrimSpace(item.File) == "" {
			return nil, fmt.Errorf("catalog item %d: id and file are required", i)
		}
		if _, dup := c.byID[item.ID]; dup {
			return nil, fmt.Errorf("catalog item %q: duplicate id", item.ID)
		}
		for _, cat := range model.Categories {
			if item.Canonical(cat) == "" {
				return nil, fmt.Errorf("catalog item %q: no %s answer", item.ID, cat)
			}
		}
		c.items = append(c.items, item)
		c.byID[item.ID] = item
	}
	return c, nil
}

// LoadCatalog reads a JSON array of catalog entries
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var entries []catalogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	items := make([]model.ContentItem, len(entries))
	for i, e := range entries {
		items[i] = model.ContentItem{
			ID:       e.ID,
			File:     e.File,
			Answers:  e.Answers,
			Duration: time.Duration(e.DurationMs) * time.Millisecond,
		}
	}
	return NewCatalog(items)
}

// Len returns the number of items
func (c *Catalog) Len() int {
	return len(c.items)
}

// Get returns the item with the given id
func (c *Catalog) Get(id string) (model.ContentItem, error) {
	item, ok := c.byID[id]
	if !ok {
		return model.ContentItem{}, model.ErrContentNotFound
	}
	return item, nil
}

// Items returns the items in catalog order
func (c *Catalog) Items() []model.ContentItem {
	out := make([]model.ContentItem, len(c.items))
	copy(out, c.items)
	return out
}
