package cart

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/dmitrymomot/storefront/pkg/api"
)

// Cents is an amount of money in hundredths of a dollar.
type Cents int64

// PriceCents converts a backend dollar price to Cents, rounding half away from zero.
func PriceCents(price float64) Cents {
	return Cents(math.Round(price * 100))
}

// Float returns the amount in dollars.
func (c Cents) Float() float64 {
	return float64(c) / 100
}

func (c Cents) String() string {
	return FormatPrice(c)
}

// UnitPrice is the variant price when the line has one, the product price otherwise.
func UnitPrice(item api.CartItem) Cents {
	if item.Variant != nil && item.Variant.Price != nil {
		return PriceCents(*item.Variant.Price)
	}
	return PriceCents(item.Product.Price)
}

// LineTotal is the unit price times the quantity.
func LineTotal(item api.CartItem) Cents {
	return UnitPrice(item) * Cents(item.Quantity)
}

// Total sums the line totals.
func Total(items []api.CartItem) Cents {
	var sum Cents
	for _, it := range items {
		sum += LineTotal(it)
	}
	return sum
}

// ItemCount sums the quantities.
func ItemCount(items []api.CartItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

// Summary is the cart view model.
type Summary struct {
	Items      []api.CartItem `json:"items"`
	TotalItems int            `json:"totalItems"`
	TotalCents Cents          `json:"totalCents"`
	TotalPrice float64        `json:"totalPrice"`
}

// Summarize builds the summary of items.
func Summarize(items []api.CartItem) Summary {
	if items == nil {
		items = []api.CartItem{}
	}
	total := Total(items)
	return Summary{
		Items:      items,
		TotalItems: ItemCount(items),
		TotalCents: total,
		TotalPrice: total.Float(),
	}
}

var usd = message.NewPrinter(language.AmericanEnglish)

// FormatPrice renders c as US dollars, e.g. "$1,234.50".
func FormatPrice(c Cents) string {
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return sign + "$" + usd.Sprintf("%.2f", c.Float())
}

// ValidateItem checks that a line can be priced and displayed.
func ValidateItem(item api.CartItem) error {
	switch {
	case item.ProductID == "":
		return fmt.Errorf("%w: missing product id", ErrInvalidItem)
	case item.Quantity < 1:
		return fmt.Errorf("%w: quantity %d", ErrInvalidItem, item.Quantity)
	case item.Product.ID == "":
		return fmt.Errorf("%w: missing product", ErrInvalidItem)
	case item.Product.Price < 0:
		return fmt.Errorf("%w: negative price", ErrInvalidItem)
	}
	return nil
}

// Validate checks every line and joins the failures.
func Validate(items []api.CartItem) error {
	var errs []error
	for _, it := range items {
		if err := ValidateItem(it); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Merge adds item to items. A line with the same product and variant grows
// by item.Quantity; otherwise item is appended, with a temporary id when it
// has none. items is not modified.
func Merge(items []api.CartItem, item api.CartItem) []api.CartItem {
	out := make([]api.CartItem, len(items), len(items)+1)
	copy(out, items)
	for i := range out {
		if out[i].ProductID == item.ProductID && out[i].VariantID == item.VariantID {
			out[i].Quantity += item.Quantity
			return out
		}
	}
	if item.ID == "" {
		item.ID = api.ID("temp-" + uuid.NewString())
	}
	return append(out, item)
}

// Without returns items minus the line with id.
func Without(items []api.CartItem, id api.ID) []api.CartItem {
	out := make([]api.CartItem, 0, len(items))
	for _, it := range items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	return out
}
