package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dendi/filmscatalog/internal/catalog"
)

// View renders the browser.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	if m.detail != nil {
		b.WriteString(m.renderDetail())
	} else {
		b.WriteString(m.renderList())
	}

	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderTabs() string {
	parts := make([]string, len(tabs))
	for i, t := range tabs {
		if i == m.active {
			parts[i] = activeTabStyle.Render(t.title)
		} else {
			parts[i] = tabStyle.Render(t.title)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderList() string {
	ls := m.lists[m.active]

	if len(ls.rows) == 0 {
		switch {
		case !ls.hasRes || ls.res.IsLoading():
			return dimStyle.Render("Loading…")
		case tabs[m.active].favorites:
			return dimStyle.Render("No favorites yet. Press f on a title to add it.")
		case ls.res.IsError():
			return dimStyle.Render("Nothing cached yet.")
		default:
			return dimStyle.Render("Nothing here.")
		}
	}

	lines := make([]string, 0, len(ls.rows))
	for i, it := range ls.rows {
		lines = append(lines, m.renderRow(ls.offset+i, it, ls.offset+i == ls.cursor))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderRow(index int, it catalog.ListItem, selected bool) string {
	star := " "
	if it.Favorited {
		star = starStyle.Render("★")
	}

	width := 40
	if m.width > 30 {
		width = m.width - 30
	}
	line := fmt.Sprintf("%4d %s %-*s %4s %4.1f", index+1, star, width, truncate(it.Title, width), year(it.ReleaseDate), it.Rating)
	if selected {
		return selectedStyle.Render(line)
	}
	return line
}

func (m *Model) renderDetail() string {
	d := m.detail
	item, ok := d.res.Data()
	if !ok {
		if d.hasRes && d.res.IsError() {
			return titleStyle.Render(d.title) + "\n\n" + dimStyle.Render("No details available.")
		}
		return titleStyle.Render(d.title) + "\n\n" + dimStyle.Render("Loading…")
	}

	var b strings.Builder
	title := item.Title
	if item.Favorited {
		title += " " + starStyle.Render("★")
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString(dimStyle.Render(fmt.Sprintf(" (%s)", year(item.ReleaseDate))))
	b.WriteString("\n")
	if item.Tagline != "" {
		b.WriteString(dimStyle.Render(item.Tagline))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	field := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-8s", label)))
		b.WriteString(" ")
		b.WriteString(value)
		b.WriteString("\n")
	}
	field("Rating", fmt.Sprintf("%.1f", item.Rating))
	if item.Runtime > 0 {
		field("Runtime", fmt.Sprintf("%d min", item.Runtime))
	}
	field("Status", item.Status)
	field("Genres", strings.Join(item.Genres, ", "))

	if item.Overview != "" {
		b.WriteString("\n")
		wrap := lipgloss.NewStyle()
		if m.width > 4 {
			wrap = wrap.Width(m.width - 2)
		}
		b.WriteString(wrap.Render(item.Overview))
	}
	return b.String()
}

// renderStatus shows loading, errors with stale data, counts and
// notifications on one line.
func (m *Model) renderStatus() string {
	var parts []string

	loading, errMsg := false, ""
	if m.detail != nil {
		loading = !m.detail.hasRes || m.detail.res.IsLoading()
		if m.detail.hasRes && m.detail.res.IsError() {
			errMsg = m.detail.res.Message()
		}
	} else {
		ls := m.lists[m.active]
		loading = !ls.hasRes || ls.res.IsLoading() || ls.refreshing
		if ls.hasRes && ls.res.IsError() {
			errMsg = ls.res.Message()
		}
		if ls.total > 0 {
			parts = append(parts, dimStyle.Render(fmt.Sprintf("%d/%d", ls.cursor+1, ls.total)))
		}
	}

	if loading {
		parts = append(parts, m.spinner.View()+" Loading")
	}
	if errMsg != "" {
		parts = append(parts, errorStyle.Render("⚠ "+errMsg))
	}
	if m.notification != "" {
		parts = append(parts, m.notification)
	}

	style := barStyle
	if m.width > 0 {
		style = style.Width(m.width)
	}
	return style.Render(strings.Join(parts, "  "))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

func year(date string) string {
	if len(date) >= 4 {
		return date[:4]
	}
	return "-"
}
