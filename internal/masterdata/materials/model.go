package materials

import (
	"time"
)

// Material is a catalog entity covering everything a front can request:
// building materials, services, equipment rentals and PPE.
type Material struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Category  string    `json:"category"`
	Unit      string    `json:"unit"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
