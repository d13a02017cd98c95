package domain

// SpyCat is an operative. Breed is validated against the external catalog at
// creation time only; name and breed are immutable afterwards.
type SpyCat struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	YearsOfExperience int     `json:"years_of_experience"`
	Breed             string  `json:"breed"`
	Salary            float64 `json:"salary"`
	MissionID         *string `json:"mission_id,omitempty"`
	CreatedAt         string  `json:"created_at" format:"date-time"`
}

// Mission owns 1-3 targets and optionally references one cat. IsCompleted
// flips to true exactly once, when the last target completes; it is never
// set directly by a client.
type Mission struct {
	ID          string   `json:"id"`
	CatID       *string  `json:"cat_id,omitempty"`
	IsCompleted bool     `json:"is_completed"`
	Targets     []Target `json:"targets"`
	CreatedAt   string   `json:"created_at" format:"date-time"`
}

// Target is a sub-objective of a mission. Notes freeze once the target
// completes; nothing changes once the owning mission completes.
type Target struct {
	ID          string `json:"id"`
	MissionID   string `json:"mission_id"`
	Name        string `json:"name"`
	Country     string `json:"country"`
	Notes       string `json:"notes"`
	IsCompleted bool   `json:"is_completed"`
	CreatedAt   string `json:"created_at" format:"date-time"`
}
