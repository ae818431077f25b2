package production

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/shopfloor/internal/domain/shared"
	"github.com/google/uuid"
)

// ItemStatus is the lifecycle status of a production item.
// Values are ordered so status comparisons follow the floor's progression.
type ItemStatus int

const (
	ItemStatusNotStarted ItemStatus = iota
	ItemStatusCutting
	ItemStatusSewing
	ItemStatusFoamCutting
	ItemStatusStuffing
	ItemStatusPackaging
	ItemStatusFinished
	ItemStatusReady
)

var itemStatusNames = []string{
	"NotStarted",
	"Cutting",
	"Sewing",
	"FoamCutting",
	"Stuffing",
	"Packaging",
	"Finished",
	"Ready",
}

// AllItemStatuses returns every status in lifecycle order
func AllItemStatuses() []ItemStatus {
	statuses := make([]ItemStatus, len(itemStatusNames))
	for i := range itemStatusNames {
		statuses[i] = ItemStatus(i)
	}
	return statuses
}

// String returns the status name
func (s ItemStatus) String() string {
	if s < 0 || int(s) >= len(itemStatusNames) {
		return "Unknown"
	}
	return itemStatusNames[s]
}

// IsValid reports whether the status is one of the known values
func (s ItemStatus) IsValid() bool {
	return s >= ItemStatusNotStarted && s <= ItemStatusReady
}

// ParseItemStatus resolves a status name, ignoring case, spaces, hyphens and underscores
func ParseItemStatus(name string) (ItemStatus, bool) {
	key := normalizeStageName(name)
	for i, n := range itemStatusNames {
		if strings.EqualFold(normalizeStageName(n), key) {
			return ItemStatus(i), true
		}
	}
	return ItemStatusNotStarted, false
}

// StatusForStage maps a workflow stage to the item status of the same name
func StatusForStage(stage Stage) (ItemStatus, bool) {
	if !stage.InWorkflow() {
		return ItemStatusNotStarted, false
	}
	return ItemStatus(stage.Index() + 1), true
}

// StatusesBeyond returns the statuses an item can only hold once the given
// stage is complete: the status of the next stage and everything after it.
// For the last stage this is Finished and Ready.
func StatusesBeyond(stage Stage) []ItemStatus {
	if !stage.InWorkflow() {
		return nil
	}
	current, _ := StatusForStage(stage)
	out := make([]ItemStatus, 0, int(ItemStatusReady-current))
	for s := current + 1; s <= ItemStatusReady; s++ {
		out = append(out, s)
	}
	return out
}

// ProductionItem is one order line item tracked through the floor
type ProductionItem struct {
	ID              uuid.UUID  `json:"id"`
	OrderID         uuid.UUID  `json:"order_id"`
	OrderNumber     string     `json:"order_number"`
	CustomerName    string     `json:"customer_name"`
	Description     string     `json:"description"`
	Status          ItemStatus `json:"status"`
	IsProduced      bool       `json:"is_produced"`
	StatusUpdatedAt time.Time  `json:"status_updated_at"`
}

// MarshalText encodes the status by name
func (s ItemStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name
func (s *ItemStatus) UnmarshalText(text []byte) error {
	status, ok := ParseItemStatus(string(text))
	if !ok {
		return fmt.Errorf("%w: unknown item status %q", shared.ErrInvalidInput, string(text))
	}
	*s = status
	return nil
}
