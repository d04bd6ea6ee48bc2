package videowizard

import (
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/storyreel/storyreel/internal/catalog"
	"github.com/storyreel/storyreel/internal/preview"
	"github.com/storyreel/storyreel/internal/session"
	"github.com/storyreel/storyreel/internal/tui/theme"
	"github.com/storyreel/storyreel/internal/tui/wizard"
)

// MusicStep picks the background music genre and a track within it. The
// genre list and the track list take the cursor in turn.
type MusicStep struct {
	cat         *catalog.Catalog
	genres      *wizard.OptionList
	types       *wizard.OptionList
	typesActive bool
	slot        *preview.Slot
	width       int
}

// NewMusicStep lists the catalog genres with genre/typ preselected.
func NewMusicStep(cat *catalog.Catalog, genre, typ string, slot *preview.Slot) *MusicStep {
	opts := make([]wizard.Option, 0, len(cat.Genres))
	for _, g := range cat.Genres {
		opts = append(opts, wizard.Option{ID: g.ID, Title: g.Name, Detail: g.Description})
	}
	s := &MusicStep{
		cat:    cat,
		genres: wizard.NewOptionList(opts, genre),
		slot:   slot,
	}
	s.loadTypes(typ)
	return s
}

func (s *MusicStep) loadTypes(selected string) {
	g, _ := s.cat.Genre(s.genres.Selected().ID)
	opts := make([]wizard.Option, 0, len(g.Types))
	for _, t := range g.Types {
		opts = append(opts, wizard.Option{ID: t, Title: t})
	}
	s.types = wizard.NewOptionList(opts, selected)
	s.types.Blur()
}

// Init initializes the music step.
func (s *MusicStep) Init() tea.Cmd {
	return nil
}

// Update handles messages for the music step.
func (s *MusicStep) Update(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyPressMsg)
	if !ok {
		return nil
	}

	list := s.genres
	if s.typesActive {
		list = s.types
	}

	switch key.String() {
	case "up", "k":
		list.Up()
	case "down", "j":
		list.Down()
	case "right", "l":
		if !s.typesActive && len(s.types.Options()) > 1 {
			s.setTypesActive(true)
		}
	case "left", "h":
		if s.typesActive {
			s.setTypesActive(false)
		}
	case "enter", " ":
		if !s.typesActive {
			prev := s.genres.Selected().ID
			s.genres.Select()
			if s.genres.Selected().ID != prev {
				s.slot.Stop()
				s.loadTypes("")
			}
			if len(s.types.Options()) > 1 {
				s.setTypesActive(true)
			}
		} else {
			s.types.Select()
		}
		return s.changed()
	case "p":
		genre := s.genres.Cursor().ID
		typ := ""
		if s.typesActive {
			genre = s.genres.Selected().ID
			typ = s.types.Cursor().ID
		} else if genre == s.genres.Selected().ID {
			typ = s.types.Selected().ID
		} else if g, ok := s.cat.Genre(genre); ok {
			typ = g.Types[0]
		}
		if !catalog.Previewable(genre) {
			return nil
		}
		return togglePreview(s.slot, catalog.PreviewID(genre, typ), preview.MusicDuration)
	case "tab":
		return func() tea.Msg { return wizard.TabExitForwardMsg{} }
	case "shift+tab":
		return func() tea.Msg { return wizard.TabExitBackwardMsg{} }
	}
	return nil
}

func (s *MusicStep) setTypesActive(active bool) {
	s.typesActive = active
	if active {
		s.genres.Blur()
		s.types.Focus()
	} else {
		s.types.Blur()
		s.genres.Focus()
	}
}

func (s *MusicStep) changed() tea.Cmd {
	genre, typ := s.Selected()
	return func() tea.Msg {
		return SelectionChangedMsg{Patch: session.Patch{BGMGenre: &genre, BGMType: &typ}}
	}
}

// Selected returns the chosen genre and track.
func (s *MusicStep) Selected() (genre, typ string) {
	return s.genres.Selected().ID, s.types.Selected().ID
}

// Focus shows the cursor on the active list.
func (s *MusicStep) Focus() { s.setTypesActive(s.typesActive) }

// Blur hides both cursors.
func (s *MusicStep) Blur() {
	s.genres.Blur()
	s.types.Blur()
}

// SetSize updates the size of the music step.
func (s *MusicStep) SetSize(width, height int) {
	s.width = width
}

// View renders the genre and track lists.
func (s *MusicStep) View() string {
	st := theme.Current().S()

	genre := s.genres.Selected().ID
	genreBadge := func(id string) string {
		if s.slot.Active() != "" && id == s.previewGenre() {
			return playingBadge
		}
		return ""
	}
	typeBadge := func(id string) string {
		if s.slot.Playing(catalog.PreviewID(genre, id)) {
			return playingBadge
		}
		return ""
	}

	parts := []string{
		st.Text.Render("배경음악을 선택하세요"),
		"",
		s.genres.View(genreBadge),
	}
	if len(s.types.Options()) > 1 {
		parts = append(parts, "", st.Subtitle.Render("트랙"), s.types.View(typeBadge))
	}
	parts = append(parts, "", wizard.RenderHintBar("↑↓", "이동", "←→", "장르/트랙", "enter", "선택", "p", "미리듣기", "tab", "버튼"))

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// previewGenre returns the genre of the playing preview, when it is shown
// on the genre list rather than the track list.
func (s *MusicStep) previewGenre() string {
	active := s.slot.Active()
	for _, g := range s.cat.Genres {
		for _, t := range g.Types {
			if catalog.PreviewID(g.ID, t) == active {
				if g.ID == s.genres.Selected().ID && len(g.Types) > 1 {
					return ""
				}
				return g.ID
			}
		}
	}
	return ""
}
