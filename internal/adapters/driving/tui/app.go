// Package tui implements the interactive listing browser. It follows
// the Elm architecture via Bubbletea: stored listings in a scrollable
// list, with exclusion toggling inline.
package tui

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/adwatch/adwatch/internal/core/domain"
	"github.com/adwatch/adwatch/internal/core/ports/driven"
	"github.com/adwatch/adwatch/internal/core/ports/driving"
)

// Ports bundles the services the browser needs.
type Ports struct {
	Listings   driven.ListingStore
	Exclusions driving.ExclusionManager
}

// keyMap defines the browser key bindings.
type keyMap struct {
	Exclude key.Binding
	Include key.Binding
	Reload  key.Binding
	Quit    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Exclude: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "exclude"),
		),
		Include: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "un-exclude"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// listingItem adapts a domain listing for the bubbles list component.
type listingItem struct {
	listing  domain.Listing
	excluded bool
	styles   *Styles
}

func (i listingItem) FilterValue() string {
	return i.listing.Title + " " + i.listing.ShortAddress()
}

func (i listingItem) Title() string {
	title := i.listing.Title
	if title == "" {
		title = i.listing.ID
	}
	switch {
	case i.excluded:
		return i.styles.Excluded.Render("[excluded] " + title)
	case i.listing.RemovedAt != nil:
		return i.styles.Removed.Render(title)
	default:
		return title
	}
}

func (i listingItem) Description() string {
	price := "price n/a"
	if i.listing.Price > 0 {
		price = "₪" + strconv.Itoa(i.listing.Price)
	}
	return fmt.Sprintf("%s · %s · %s rooms",
		price, i.listing.ShortAddress(),
		strconv.FormatFloat(i.listing.Rooms, 'f', -1, 64))
}

// Messages.

type listingsLoadedMsg struct {
	items []list.Item
	err   error
}

type exclusionToggledMsg struct {
	listingID string
	excluded  bool
	err       error
}

// App is the listing browser model.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *Styles
	keys   keyMap
	list   list.Model
	status string
	err    error
	ready  bool
}

// New creates the browser.
func New(ctx context.Context, ports *Ports) *App {
	styles := NewStyles(DefaultTheme())

	delegate := list.NewDefaultDelegate()
	l := list.New(nil, delegate, 0, 0)
	l.Title = "Listings"
	l.SetShowStatusBar(false)

	return &App{
		ports:  ports,
		ctx:    ctx,
		styles: styles,
		keys:   defaultKeyMap(),
		list:   l,
	}
}

// Init loads the stored listings.
func (a *App) Init() tea.Cmd {
	return a.loadListings
}

// loadListings fetches all stored listings and the exclusion set.
func (a *App) loadListings() tea.Msg {
	listings, err := a.ports.Listings.All(a.ctx)
	if err != nil {
		return listingsLoadedMsg{err: err}
	}

	excluded := make(map[string]bool)
	if a.ports.Exclusions != nil {
		exclusions, err := a.ports.Exclusions.List(a.ctx)
		if err != nil {
			return listingsLoadedMsg{err: err}
		}
		for _, e := range exclusions {
			excluded[e.ListingID] = true
		}
	}

	items := make([]list.Item, 0, len(listings))
	for _, l := range listings {
		items = append(items, listingItem{
			listing:  l,
			excluded: excluded[l.ID],
			styles:   a.styles,
		})
	}
	return listingsLoadedMsg{items: items}
}

// toggleExclusion flips the selected listing's exclusion state.
func (a *App) toggleExclusion(item listingItem, exclude bool) tea.Cmd {
	return func() tea.Msg {
		var err error
		if exclude {
			err = a.ports.Exclusions.Add(a.ctx, item.listing.ID, "excluded from browser")
		} else {
			err = a.ports.Exclusions.Remove(a.ctx, item.listing.ID)
		}
		return exclusionToggledMsg{listingID: item.listing.ID, excluded: exclude, err: err}
	}
}

// Update handles messages.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.list.SetSize(msg.Width, msg.Height-2)
		a.ready = true
		return a, nil

	case listingsLoadedMsg:
		if msg.err != nil {
			a.err = msg.err
			return a, nil
		}
		a.err = nil
		a.status = fmt.Sprintf("%d listings", len(msg.items))
		return a, a.list.SetItems(msg.items)

	case exclusionToggledMsg:
		if msg.err != nil {
			a.err = msg.err
			return a, nil
		}
		a.err = nil
		if msg.excluded {
			a.status = "excluded " + msg.listingID
		} else {
			a.status = "un-excluded " + msg.listingID
		}
		return a, a.loadListings

	case tea.KeyMsg:
		// Let the list handle keys while the user is filtering.
		if a.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, a.keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, a.keys.Reload):
			return a, a.loadListings
		case key.Matches(msg, a.keys.Exclude):
			if item, ok := a.list.SelectedItem().(listingItem); ok && a.ports.Exclusions != nil {
				return a, a.toggleExclusion(item, true)
			}
		case key.Matches(msg, a.keys.Include):
			if item, ok := a.list.SelectedItem().(listingItem); ok && a.ports.Exclusions != nil {
				return a, a.toggleExclusion(item, false)
			}
		}
	}

	var cmd tea.Cmd
	a.list, cmd = a.list.Update(msg)
	return a, cmd
}

// View renders the browser.
func (a *App) View() string {
	if !a.ready {
		return "Loading..."
	}

	footer := a.styles.Help.Render("x exclude · u un-exclude · r reload · / filter · q quit")
	if a.err != nil {
		footer = a.styles.Error.Render("error: " + a.err.Error())
	} else if a.status != "" {
		footer = a.styles.Status.Render(a.status) + "  " + footer
	}
	return a.list.View() + "\n" + footer
}

// Status returns the current status line, for tests.
func (a *App) Status() string {
	return a.status
}

// Err returns the last error, for tests.
func (a *App) Err() error {
	return a.err
}
