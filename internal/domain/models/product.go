// internal/domain/models/product.go
package models

// Product is the backend's product record as it appears on the wire.
// The console only holds the copy for the page being rendered.
type Product struct {
	ID          int64     `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CategoryID  *int64    `json:"categoryId"`
	Price       float64   `json:"precio"`
	Cost        float64   `json:"costo"`
	ImageURL    string    `json:"imagenUrl"`
	IsAvailable bool      `json:"isAvailable"`
	CreatedAt   Timestamp `json:"createdAt"`
	ModifiedAt  Timestamp `json:"modifiedAt"`
}

// ProductPayload is the body sent on POST /product and PUT /product.
// CategoryID is encoded as null when no category is selected.
type ProductPayload struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	CategoryID  *int64  `json:"categoryId"`
	Price       float64 `json:"precio"`
	Cost        float64 `json:"costo"`
	ImageURL    string  `json:"imagenUrl"`
	IsAvailable bool    `json:"isAvailable"`
}

// ProductDraft holds the editable fields of a product as form strings.
type ProductDraft struct {
	Code        string
	Name        string
	Description string
	CategoryID  string
	Price       string
	Cost        string
	ImageURL    string
	IsAvailable bool
}
