package core

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
	Count  int
}

// DayAmount is the spending of one calendar day.
type DayAmount struct {
	Date   Date
	Amount Money
	Count  int
}

// PayerAmount is everything one participant paid, whatever the split.
type PayerAmount struct {
	Payer  Person
	Name   string
	Amount Money
}

// MonthOverview is a compact summary for a specific year+month.
type MonthOverview struct {
	Period     Period
	Total      Money
	Count      int
	ByCategory []CategoryAmount
}
