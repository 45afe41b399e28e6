package fronts

import "time"

// Front is a work front: the site area a requisition originates from.
type Front struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Block subdivides a front.
type Block struct {
	ID      int64  `json:"id"`
	FrontID int64  `json:"front_id"`
	Code    string `json:"code"`
	Name    string `json:"name"`
}

// Specialty is a trade (concrete, electrical, plumbing).
type Specialty struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// FrontSpecialty links a specialty to a front. Budget entries hang off this
// pair, so budgets can differ per front for the same trade.
type FrontSpecialty struct {
	ID          int64 `json:"id"`
	FrontID     int64 `json:"front_id"`
	SpecialtyID int64 `json:"specialty_id"`
}
