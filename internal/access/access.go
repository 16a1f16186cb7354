// Package access decides which application items a role may see.
package access

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/ghgate/internal/auth"
)

// Visibility marks who may see an item. It is set when the item is built and
// is never derived from the item's label or tag.
type Visibility int

const (
	// VisibilityStandard items are visible to every accepted role.
	VisibilityStandard Visibility = iota
	// VisibilityPrivileged items are visible to admins only.
	VisibilityPrivileged
)

func (v Visibility) String() string {
	switch v {
	case VisibilityStandard:
		return "standard"
	case VisibilityPrivileged:
		return "privileged"
	default:
		return fmt.Sprintf("Visibility(%d)", int(v))
	}
}

// ParseVisibility parses "standard" or "privileged". An empty string is standard.
func ParseVisibility(s string) (Visibility, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard":
		return VisibilityStandard, nil
	case "privileged":
		return VisibilityPrivileged, nil
	default:
		return 0, fmt.Errorf("unknown visibility %q (want standard or privileged)", s)
	}
}

// MarshalYAML implements yaml.Marshaler.
func (v Visibility) MarshalYAML() (any, error) {
	return v.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (v *Visibility) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseVisibility(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*v = parsed
	return nil
}

// Item is a navigable entry, optionally with children.
type Item struct {
	ID         string     `yaml:"id"`
	Label      string     `yaml:"label"`
	Tag        string     `yaml:"tag,omitempty"`
	Visibility Visibility `yaml:"visibility"`
	Children   []Item     `yaml:"children,omitempty"`
}

// Allowed reports whether role may see an item of visibility v.
func Allowed(role auth.Role, v Visibility) bool {
	switch role {
	case auth.RoleAdmin:
		return true
	case auth.RoleMember:
		return v == VisibilityStandard
	default:
		return false
	}
}

// Filter returns the items role may see, in their original order.
//
// Admins see everything and members lose privileged items together with
// their subtrees. Any other role, including none, sees nothing. The input is
// never modified; the result shares no slices with it.
func Filter(items []Item, role auth.Role) []Item {
	out := make([]Item, 0, len(items))
	for _, item := range items {
		if !Allowed(role, item.Visibility) {
			continue
		}
		kept := item
		kept.Children = nil
		if len(item.Children) > 0 {
			kept.Children = Filter(item.Children, role)
		}
		out = append(out, kept)
	}
	return out
}

// Count returns the number of items in the forest, children included.
func Count(items []Item) int {
	n := len(items)
	for _, item := range items {
		n += Count(item.Children)
	}
	return n
}
