package models

import (
	"net/url"
	"strconv"
)

// Pagination is the list metadata returned next to every page. The server
// names the total after the collection (totalStudents, totalStaff); both
// decode into Total.
type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	Total       int  `json:"-"`
	HasNext     bool `json:"hasNext"`
	HasPrev     bool `json:"hasPrev"`
}

// DefaultPagination is the state of an empty, never-fetched list.
func DefaultPagination() Pagination {
	return Pagination{CurrentPage: 1, TotalPages: 1}
}

type StudentPage struct {
	Students   []Student `json:"students"`
	Pagination struct {
		Pagination
		TotalStudents int `json:"totalStudents"`
	} `json:"pagination"`
}

func (p StudentPage) Page() Pagination {
	out := p.Pagination.Pagination
	out.Total = p.Pagination.TotalStudents
	return out
}

type StaffPage struct {
	Staff      []Staff `json:"staff"`
	Pagination struct {
		Pagination
		TotalStaff int `json:"totalStaff"`
	} `json:"pagination"`
}

func (p StaffPage) Page() Pagination {
	out := p.Pagination.Pagination
	out.Total = p.Pagination.TotalStaff
	return out
}

// ListParams are the list filters shared by the students and staff screens.
// Zero values are omitted from the query string.
type ListParams struct {
	Page       int
	Limit      int
	Search     string
	Standard   string
	Section    string
	Department string
	IsActive   *bool
	SortBy     string
	SortOrder  string
}

// DefaultListParams mirrors the initial filters of the list screens.
func DefaultListParams() ListParams {
	return ListParams{Page: 1, Limit: 10, SortBy: "createdAt", SortOrder: "desc"}
}

// Merge overlays non-zero fields of other onto p.
func (p ListParams) Merge(other ListParams) ListParams {
	if other.Page > 0 {
		p.Page = other.Page
	}
	if other.Limit > 0 {
		p.Limit = other.Limit
	}
	if other.Search != "" {
		p.Search = other.Search
	}
	if other.Standard != "" {
		p.Standard = other.Standard
	}
	if other.Section != "" {
		p.Section = other.Section
	}
	if other.Department != "" {
		p.Department = other.Department
	}
	if other.IsActive != nil {
		v := *other.IsActive
		p.IsActive = &v
	}
	if other.SortBy != "" {
		p.SortBy = other.SortBy
	}
	if other.SortOrder != "" {
		p.SortOrder = other.SortOrder
	}
	return p
}

func (p ListParams) Query() url.Values {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("search", p.Search)
	set("standard", p.Standard)
	set("section", p.Section)
	set("department", p.Department)
	set("sortBy", p.SortBy)
	set("sortOrder", p.SortOrder)
	if p.IsActive != nil {
		q.Set("isActive", strconv.FormatBool(*p.IsActive))
	}
	return q
}
