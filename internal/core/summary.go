package core

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// MonthAmount is the total of one calendar month.
type MonthAmount struct {
	Month  YearMonth
	Amount Money
}
