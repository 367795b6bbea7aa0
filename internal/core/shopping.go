package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Pending   ShoppingStatus = "pending"
	Purchased ShoppingStatus = "purchased"
)

// ShoppingHeader is the header row of the shopping sheet.
var ShoppingHeader = []string{"item", "place", "expected_price", "status", "memo"}

// ShoppingStatusColumn is the 0-based column holding the item status.
const ShoppingStatusColumn = 3

type (
	ShoppingStatus string

	ShoppingItem struct {
		Name          string
		Place         string
		ExpectedPrice decimal.Decimal
		Status        ShoppingStatus
		Memo          string
	}
)

// ParseShoppingStatus accepts the canonical tokens and the Japanese labels
// used by hand-edited sheets. Empty is Pending.
func ParseShoppingStatus(s string) (ShoppingStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(Pending), "未購入", "false":
		return Pending, nil
	case string(Purchased), "購入済み", "購入済", "true":
		return Purchased, nil
	}
	return "", ErrInvalidStatus
}

// Toggle flips between Pending and Purchased.
func (s ShoppingStatus) Toggle() ShoppingStatus {
	if s == Purchased {
		return Pending
	}
	return Purchased
}

func (i ShoppingItem) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return invalid("item", "", ErrEmptyName)
	}
	if i.ExpectedPrice.IsNegative() {
		return invalid("expected_price", i.ExpectedPrice.String(), ErrInvalidAmount)
	}
	if i.Status != Pending && i.Status != Purchased {
		return invalid("status", string(i.Status), ErrInvalidStatus)
	}
	return nil
}

// ParseShoppingRow reads item, place, expected_price, status and an
// optional memo column.
func ParseShoppingRow(cells []string) (ShoppingItem, error) {
	at := func(i int) string {
		if i >= len(cells) {
			return ""
		}
		return strings.TrimSpace(cells[i])
	}
	price, err := ParsePrice(at(2))
	if err != nil {
		return ShoppingItem{}, invalid("expected_price", at(2), err)
	}
	status, err := ParseShoppingStatus(at(ShoppingStatusColumn))
	if err != nil {
		return ShoppingItem{}, invalid("status", at(ShoppingStatusColumn), err)
	}
	item := ShoppingItem{
		Name:          at(0),
		Place:         at(1),
		ExpectedPrice: price,
		Status:        status,
		Memo:          at(4),
	}
	if err := item.Validate(); err != nil {
		return ShoppingItem{}, err
	}
	return item, nil
}

func (i ShoppingItem) Row() []string {
	return []string{i.Name, i.Place, i.ExpectedPrice.String(), string(i.Status), i.Memo}
}
