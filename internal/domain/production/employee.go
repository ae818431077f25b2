package production

import "github.com/google/uuid"

// Employee is a floor worker who can be credited for station work
type Employee struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Active bool      `json:"active"`
}

// CanBeAttributed reports whether new work may be credited to the employee
func (e Employee) CanBeAttributed() bool {
	return e.Active
}
