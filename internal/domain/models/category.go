// internal/domain/models/category.go
package models

// ProductCategory is a lookup row for the product form's category selector.
type ProductCategory struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Color       string    `json:"color"`
	Icon        string    `json:"icon"`
	CreatedAt   Timestamp `json:"createdAt"`
	ModifiedAt  Timestamp `json:"modifiedAt"`
}
