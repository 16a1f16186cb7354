package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"

	"github.com/felixgeelhaar/ghgate/internal/access"
	"github.com/felixgeelhaar/ghgate/internal/auth"
)

// RenderStatus renders the session snapshot as a bordered summary.
func RenderStatus(s auth.Snapshot, styles Styles) string {
	if !s.Authenticated {
		return styles.Warning.Render("Not signed in.") + "\n" +
			styles.Muted.Render("Run 'ghgate login' to authenticate.")
	}

	rows := []string{
		styles.Success.Render("✓ Signed in"),
		"",
		row(styles, "Account", s.Handle),
		row(styles, "Organization", s.Organization),
		row(styles, "Role", string(s.Role)),
		row(styles, "Token", s.Fingerprint),
	}
	return styles.Border.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func row(styles Styles, label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, styles.Label.Render(label), styles.Value.Render(value))
}

// RenderItems renders an item forest as a tree under title.
func RenderItems(title string, items []access.Item, styles Styles) string {
	t := tree.Root(styles.Title.Render(title)).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(styles.Muted)

	if len(items) == 0 {
		t.Child(styles.Muted.Render("(no items)"))
	}
	for _, item := range items {
		t.Child(itemNode(item, styles))
	}
	return t.String()
}

func itemNode(item access.Item, styles Styles) any {
	label := itemLabel(item, styles)
	if len(item.Children) == 0 {
		return label
	}

	sub := tree.Root(label).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(styles.Muted)
	for _, child := range item.Children {
		sub.Child(itemNode(child, styles))
	}
	return sub
}

func itemLabel(item access.Item, styles Styles) string {
	var b strings.Builder
	name := item.Label
	if name == "" {
		name = item.ID
	}
	b.WriteString(name)
	if item.Tag != "" {
		b.WriteString(" ")
		b.WriteString(styles.Muted.Render(fmt.Sprintf("[%s]", item.Tag)))
	}
	if item.Visibility == access.VisibilityPrivileged {
		b.WriteString(" ")
		b.WriteString(styles.Privileged.Render("(admin)"))
	}
	return b.String()
}
