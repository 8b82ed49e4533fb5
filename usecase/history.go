package usecase

import (
	"sort"

	"github.com/satriahrh/synapse/domain"
)

const DefaultHistoryCutoff = 10

// HistoryWindow turns a persisted message log into the prior-context slice
// sent to the provider.
type HistoryWindow struct {
	Cutoff int
}

// Build orders turns chronologically, drops the turn with ID inFlightID (the
// message being answered, 0 for none), keeps the most recent Cutoff turns and
// maps them to provider roles. The input slice is not modified.
func (w HistoryWindow) Build(turns []domain.Turn, inFlightID int64) []domain.HistoryEntry {
	cutoff := w.Cutoff
	if cutoff <= 0 {
		cutoff = DefaultHistoryCutoff
	}

	ordered := make([]domain.Turn, 0, len(turns))
	for _, t := range turns {
		if inFlightID != 0 && t.ID == inFlightID {
			continue
		}
		ordered = append(ordered, t)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})
	if len(ordered) > cutoff {
		ordered = ordered[len(ordered)-cutoff:]
	}

	window := make([]domain.HistoryEntry, 0, len(ordered))
	for _, t := range ordered {
		window = append(window, domain.HistoryEntry{
			Role:  providerRole(t.Role),
			Parts: []string{t.Content},
		})
	}
	return window
}

func providerRole(r domain.Role) domain.Role {
	if r == domain.AssistantRole {
		return domain.ModelRole
	}
	return domain.UserRole
}
