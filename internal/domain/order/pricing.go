package order

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/pratodigital/delivery-api/internal/domain/catalog"
)

// Quantity bounds for a single order line.
const (
	MinQuantity = 1
	MaxQuantity = 50
)

// InvalidQuantityError indicates a line quantity outside [MinQuantity, MaxQuantity].
type InvalidQuantityError struct {
	ProductID string
	Quantity  int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity %d for product %s must be between %d and %d",
		e.Quantity, e.ProductID, MinQuantity, MaxQuantity)
}

// InvalidOptionError indicates a selected option item that does not exist or
// does not belong to the priced product.
type InvalidOptionError struct {
	ProductID    string
	OptionItemID string
}

func (e *InvalidOptionError) Error() string {
	return fmt.Sprintf("option %s is not valid for product %s", e.OptionItemID, e.ProductID)
}

// OptionSelectionError indicates a selection count outside a group's
// [MinSelect, MaxSelect] bounds.
type OptionSelectionError struct {
	ProductID string
	GroupName string
	Selected  int
	MinSelect int
	MaxSelect int
}

func (e *OptionSelectionError) Error() string {
	return fmt.Sprintf("group %q of product %s requires between %d and %d selections, got %d",
		e.GroupName, e.ProductID, e.MinSelect, e.MaxSelect, e.Selected)
}

// PricedOption is one validated option selection with its price snapshot.
type PricedOption struct {
	ItemID string
	Name   string
	Price  decimal.Decimal
}

// PricedLine is the authoritative price for one order line.
type PricedLine struct {
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
	Options   []PricedOption
}

// PriceLine computes the unit price and subtotal for quantity units of p with
// the given option selections, validating every option group defined on the
// product. It is the single pricing algorithm in the system: both order
// creation and quoting call it, so the two can never drift.
//
// Each selected option item must exist AND belong to one of p's groups; this
// double-check rejects option ids injected from another product. Cardinality
// is verified for all of p's groups, not just the referenced ones, so a group
// with MinSelect > 0 fails even when the request names no options at all.
func PriceLine(p *catalog.Product, quantity int, optionItemIDs []string) (*PricedLine, error) {
	if quantity < MinQuantity || quantity > MaxQuantity {
		return nil, &InvalidQuantityError{ProductID: p.ID, Quantity: quantity}
	}

	// Index the product's option tree.
	type itemRef struct {
		groupID string
		item    *catalog.OptionItem
	}
	itemsByID := make(map[string]itemRef)
	for gi := range p.OptionGroups {
		g := &p.OptionGroups[gi]
		for ii := range g.Items {
			itemsByID[g.Items[ii].ID] = itemRef{groupID: g.ID, item: &g.Items[ii]}
		}
	}

	// Resolve selections and count them per owning group.
	selectedPerGroup := make(map[string]int)
	options := make([]PricedOption, 0, len(optionItemIDs))
	optionsPrice := decimal.Zero
	for _, id := range optionItemIDs {
		ref, ok := itemsByID[id]
		if !ok {
			return nil, &InvalidOptionError{ProductID: p.ID, OptionItemID: id}
		}
		selectedPerGroup[ref.groupID]++
		options = append(options, PricedOption{
			ItemID: ref.item.ID,
			Name:   ref.item.Name,
			Price:  ref.item.Price,
		})
		optionsPrice = optionsPrice.Add(ref.item.Price)
	}

	// Every group on the product must be satisfied, including groups the
	// request never mentioned.
	for i := range p.OptionGroups {
		g := &p.OptionGroups[i]
		count := selectedPerGroup[g.ID]
		if count < g.MinSelect || count > g.MaxSelect {
			return nil, &OptionSelectionError{
				ProductID: p.ID,
				GroupName: g.Name,
				Selected:  count,
				MinSelect: g.MinSelect,
				MaxSelect: g.MaxSelect,
			}
		}
	}

	unitPrice := p.BasePrice.Add(optionsPrice)
	subtotal := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))

	return &PricedLine{
		UnitPrice: unitPrice,
		Subtotal:  subtotal,
		Options:   options,
	}, nil
}
