package shared

// ListFilters represents standard list page filters
type ListFilters struct {
	Page     int
	Limit    int
	Search   string
	SortBy   string
	SortDir  string
	IsActive *bool

	// Entity specific filters
	Category string
	FrontID  *int64
	Kind     string
}

const (
	DefaultPage  = 1
	DefaultLimit = 20
)
