package domain

import (
	"cmp"
	"slices"
)

// HelpEntry describes one slash command.
type HelpEntry struct {
	Name        string
	Description string
	Subcommands []string
}

// HelpPage is the sorted list of commands shown by /help.
type HelpPage struct {
	Entries []HelpEntry
}

// NewHelpPage sorts entries by name and drops duplicates, keeping the first.
func NewHelpPage(entries []HelpEntry) *HelpPage {
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b HelpEntry) int {
		return cmp.Compare(a.Name, b.Name)
	})
	sorted = slices.CompactFunc(sorted, func(a, b HelpEntry) bool {
		return a.Name == b.Name
	})
	return &HelpPage{Entries: sorted}
}
