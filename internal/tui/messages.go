package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dendi/filmscatalog/internal/catalog"
	"github.com/dendi/filmscatalog/internal/live"
	"github.com/dendi/filmscatalog/internal/repository"
)

// listMsg carries one envelope of a tab's stream. ok is false once the
// stream has closed.
type listMsg struct {
	tab int
	gen int
	res repository.ListResource
	ok  bool
}

// pageMsg carries a window read from a tab's view.
type pageMsg struct {
	tab    int
	gen    int
	offset int
	total  int
	items  []catalog.ListItem
	err    error
}

type detailMsg struct {
	gen int
	res repository.DetailResource
	ok  bool
}

type favoriteDoneMsg struct {
	err error
}

type refreshDoneMsg struct {
	tab int
	err error
}

type clearNotificationMsg struct{}

func waitList(tab, gen int, s *live.Stream[repository.ListResource]) tea.Cmd {
	return func() tea.Msg {
		res, ok := <-s.C()
		return listMsg{tab: tab, gen: gen, res: res, ok: ok}
	}
}

func waitDetail(gen int, s *live.Stream[repository.DetailResource]) tea.Cmd {
	return func() tea.Msg {
		res, ok := <-s.C()
		return detailMsg{gen: gen, res: res, ok: ok}
	}
}
