package access

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog is the mapping form of the item document. A bare top-level list
// of items is accepted as well.
type Catalog struct {
	Items []Item `yaml:"items"`
}

// LoadItems reads an item catalog from a YAML file.
func LoadItems(path string) ([]Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseItems(data)
}

// ParseItems decodes a YAML item catalog, either a top-level list of items
// or a mapping with an items key. Unknown fields, unknown visibility values,
// and items without an id are rejected.
func ParseItems(data []byte) ([]Item, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse items: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var items []Item
	if root.Content[0].Kind == yaml.SequenceNode {
		if err := dec.Decode(&items); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse items: %w", err)
		}
	} else {
		var catalog Catalog
		if err := dec.Decode(&catalog); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse items: %w", err)
		}
		items = catalog.Items
	}

	if err := validate(items, map[string]bool{}); err != nil {
		return nil, err
	}
	return items, nil
}

func validate(items []Item, seen map[string]bool) error {
	for _, item := range items {
		if item.ID == "" {
			return fmt.Errorf("item %q has no id", item.Label)
		}
		if seen[item.ID] {
			return fmt.Errorf("duplicate item id %q", item.ID)
		}
		seen[item.ID] = true
		if err := validate(item.Children, seen); err != nil {
			return err
		}
	}
	return nil
}
