package core

type (
	Entity string
	Action string
)

const (
	EntityTransaction Entity = "transaction"
	EntityBudget      Entity = "budget"
	EntityCategory    Entity = "category"

	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// Change is emitted after a successful write so that derived views can be
// refreshed. Month is set when the write affects a single calendar month.
type Change struct {
	Entity Entity
	Action Action
	ID     string
	Month  *YearMonth
}
