package ordering

import (
	"fmt"
	"sort"

	"story-server/internal/models"
	sharedModels "story-server/shared/models"

	"github.com/google/uuid"
)

// Assignment - новое значение order для одного выбора.
type Assignment struct {
	ChoiceID uuid.UUID
	Order    int
}

// NextOrder возвращает max(order)+1 или 0 для узла без выборов.
func NextOrder(existing []models.Choice) int {
	if len(existing) == 0 {
		return 0
	}
	next := existing[0].Order
	for _, ch := range existing[1:] {
		if ch.Order > next {
			next = ch.Order
		}
	}
	return next + 1
}

// PlanReorder строит назначения 0..n-1 в порядке orderedIDs.
// Каждый ID должен принадлежать узлу и встречаться один раз, иначе ErrInvalidChoiceSet.
// Выборы узла, не попавшие в список, сохраняют прежний order, если не включен requireFullSet.
// Пустой список ничего не меняет; в строгом режиме он допустим только для узла без выборов.
func PlanReorder(existing []models.Choice, orderedIDs []uuid.UUID, requireFullSet bool) ([]Assignment, error) {
	owned := make(map[uuid.UUID]struct{}, len(existing))
	for _, ch := range existing {
		owned[ch.ID] = struct{}{}
	}

	seen := make(map[uuid.UUID]struct{}, len(orderedIDs))
	plan := make([]Assignment, 0, len(orderedIDs))
	for i, id := range orderedIDs {
		if _, ok := owned[id]; !ok {
			return nil, fmt.Errorf("%w: choice %s does not belong to the node", sharedModels.ErrInvalidChoiceSet, id)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: choice %s listed more than once", sharedModels.ErrInvalidChoiceSet, id)
		}
		seen[id] = struct{}{}
		plan = append(plan, Assignment{ChoiceID: id, Order: i})
	}

	if requireFullSet && len(plan) != len(owned) {
		return nil, fmt.Errorf("%w: expected all %d choices, got %d",
			sharedModels.ErrInvalidChoiceSet, len(owned), len(plan))
	}
	return plan, nil
}

// Apply возвращает копию выборов с примененными назначениями, отсортированную через Sort.
func Apply(existing []models.Choice, plan []Assignment) []models.Choice {
	orders := make(map[uuid.UUID]int, len(plan))
	for _, a := range plan {
		orders[a.ChoiceID] = a.Order
	}
	out := make([]models.Choice, len(existing))
	copy(out, existing)
	for i := range out {
		if o, ok := orders[out[i].ID]; ok {
			out[i].Order = o
		}
	}
	Sort(out)
	return out
}

// Sort упорядочивает выборы по order, затем по времени создания, затем по ID.
func Sort(choices []models.Choice) {
	sort.SliceStable(choices, func(i, j int) bool {
		a, b := choices[i], choices[j]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
}
