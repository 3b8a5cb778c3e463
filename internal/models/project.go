package models

import "time"

const (
	ProjectOpen       = "open"
	ProjectInProgress = "in_progress"
	ProjectCompleted  = "completed"
	ProjectCancelled  = "cancelled"
)

// ProjectTransitions — допустимые переходы статуса (монотонно, без возвратов).
var ProjectTransitions = map[string][]string{
	ProjectOpen:       {ProjectInProgress, ProjectCancelled},
	ProjectInProgress: {ProjectCompleted, ProjectCancelled},
}

func CanTransitProject(from, to string) bool {
	for _, s := range ProjectTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Project struct {
	ID            int       `json:"id"`
	OwnerID       int       `json:"owner_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	CategoryID    int       `json:"category_id"`
	City          string    `json:"city,omitempty"`
	BudgetMin     int64     `json:"budget_min"` // копейки
	BudgetMax     int64     `json:"budget_max"`
	Lat           *float64  `json:"lat,omitempty"`
	Lon           *float64  `json:"lon,omitempty"`
	Status        string    `json:"status"`
	AssignedBidID *int      `json:"assigned_bid_id,omitempty"`
	Views         int64     `json:"views"`
	CreatedAt     time.Time `json:"created_at"`
}

// ProjectFilter — параметры поиска по витрине.
type ProjectFilter struct {
	CategoryID int
	City       string
	PriceMin   int64
	PriceMax   int64
	Query      string
	Status     string
	// гео-радиус: применяется, только если заданы все три
	Lat      *float64
	Lon      *float64
	RadiusKM float64

	SortBy string
	Order  string
	Limit  int
	Offset int
}
