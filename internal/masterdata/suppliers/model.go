package suppliers

import "time"

// Supplier is the reorder contact referenced by products.
type Supplier struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	ContactEmail string    `json:"contact_email"`
	CreatedAt    time.Time `json:"created_at"`
}

type CreateSupplierRequest struct {
	Name         string `json:"name" validate:"required,max=128"`
	ContactEmail string `json:"contact_email" validate:"omitempty,email"`
}
