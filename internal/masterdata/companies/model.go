package companies

import "time"

// Company owns warehouses; alert feeds are always scoped to one company.
type Company struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateCompanyRequest is the JSON body for POST /api/companies.
type CreateCompanyRequest struct {
	Name string `json:"name" validate:"required,max=128"`
}
