package storefront

import (
	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/domain"
)

// Cart holds cart lines in first-added order. Methods return a new Cart and leave the
// receiver untouched, so a Cart can be shared between states.
type Cart struct {
	lines []domain.CartLine
}

// NewCart builds a cart from existing lines. Lines with a non-positive quantity are dropped
// and repeated product ids are merged into the first occurrence.
func NewCart(lines ...domain.CartLine) Cart {
	var c Cart
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		if idx := c.indexOf(line.ID); idx >= 0 {
			c.lines[idx].Quantity += line.Quantity
			continue
		}
		c.lines = append(c.lines, line)
	}
	return c
}

func (c Cart) indexOf(productID int) int {
	for i, line := range c.lines {
		if line.ID == productID {
			return i
		}
	}
	return -1
}

func (c Cart) clone() []domain.CartLine {
	out := make([]domain.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// Add increments the line for product, appending a new line with quantity 1 when absent.
func (c Cart) Add(product domain.Product) Cart {
	lines := c.clone()
	if idx := c.indexOf(product.ID); idx >= 0 {
		lines[idx].Quantity++
		return Cart{lines: lines}
	}
	return Cart{lines: append(lines, domain.CartLine{Product: product, Quantity: 1})}
}

// UpdateQuantity adds delta to the line quantity. A result of zero or less removes the line.
// Unknown ids leave the cart unchanged.
func (c Cart) UpdateQuantity(productID, delta int) Cart {
	idx := c.indexOf(productID)
	if idx < 0 {
		return c
	}
	next := c.lines[idx].Quantity + delta
	if next <= 0 {
		return c.Remove(productID)
	}
	lines := c.clone()
	lines[idx].Quantity = next
	return Cart{lines: lines}
}

// Remove drops the line for productID if present.
func (c Cart) Remove(productID int) Cart {
	idx := c.indexOf(productID)
	if idx < 0 {
		return c
	}
	lines := make([]domain.CartLine, 0, len(c.lines)-1)
	lines = append(lines, c.lines[:idx]...)
	lines = append(lines, c.lines[idx+1:]...)
	return Cart{lines: lines}
}

// Lines returns a copy of the cart lines.
func (c Cart) Lines() []domain.CartLine {
	return c.clone()
}

// Quantity reports the quantity held for productID, zero when absent.
func (c Cart) Quantity(productID int) int {
	if idx := c.indexOf(productID); idx >= 0 {
		return c.lines[idx].Quantity
	}
	return 0
}

// ItemCount is the sum of all quantities.
func (c Cart) ItemCount() int {
	total := 0
	for _, line := range c.lines {
		total += line.Quantity
	}
	return total
}

// Len is the number of distinct lines.
func (c Cart) Len() int { return len(c.lines) }

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool { return len(c.lines) == 0 }
