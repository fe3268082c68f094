package warehouses

import "time"

// Warehouse belongs to exactly one company.
type Warehouse struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"company_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateWarehouseRequest struct {
	CompanyID int64  `json:"company_id" validate:"required,gt=0"`
	Name      string `json:"name" validate:"required,max=128"`
}
