package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dmitrijs2005/gophmarks/internal/client/models"
	"github.com/dustin/go-humanize"
)

const columnWidthID = 37

var (
	idStyle = lipgloss.NewStyle().
		Width(columnWidthID).
		Foreground(lipgloss.Color("8"))

	titleStyle = lipgloss.NewStyle().Bold(true)

	urlStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("4")).
			Underline(true)

	ageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	sessionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	messageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// renderList formats bookmarks in the given (display) order. Ages are
// relative to now.
func renderList(items []models.Bookmark, now time.Time) string {
	if len(items) == 0 {
		return "No bookmarks yet. Use add to create one."
	}

	var b strings.Builder
	for _, bm := range items {
		age := humanize.RelTime(bm.CreatedAt, now, "ago", "from now")
		fmt.Fprintf(&b, "%s %s %s\n", idStyle.Render(bm.ID), titleStyle.Render(bm.Title), ageStyle.Render("("+age+")"))
		fmt.Fprintf(&b, "%s %s\n", strings.Repeat(" ", columnWidthID), urlStyle.Render(bm.URL))
	}
	return strings.TrimRight(b.String(), "\n")
}
