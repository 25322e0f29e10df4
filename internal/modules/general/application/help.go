package application

import "github.com/sglre6355/harmonybot/internal/modules/general/domain"

// HelpInteractor builds the command list.
type HelpInteractor struct {
	entries func() []domain.HelpEntry
}

// NewHelpInteractor creates a new HelpInteractor. entries is called on every
// request so commands of modules loaded later are included.
func NewHelpInteractor(entries func() []domain.HelpEntry) *HelpInteractor {
	return &HelpInteractor{entries: entries}
}

// Execute returns the help page.
func (h *HelpInteractor) Execute() *domain.HelpPage {
	if h.entries == nil {
		return domain.NewHelpPage(nil)
	}
	return domain.NewHelpPage(h.entries())
}
