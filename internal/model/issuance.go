package model

import "time"

// Issuance records stock leaving the warehouse for a department. ItemName is
// a snapshot taken at issue time and is not updated when the item is renamed.
type Issuance struct {
	ID             int64     `json:"id" db:"id"`
	ItemID         int64     `json:"item_id" db:"item_id"`
	ItemName       string    `json:"item_name" db:"name"`
	QuantityIssued int       `json:"quantity_issued" db:"quantity_issued"`
	DateIssued     time.Time `json:"date_issued" db:"date_issued"`
	DepartmentName string    `json:"department_name" db:"department_name"`
	IssuedBy       *int64    `json:"issued_by,omitempty" db:"issued_by"`
}
