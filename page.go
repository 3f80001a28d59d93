package restql

// PageLinks are the one-based page numbers surrounding the current page.
// Prev and Next are zero when the current page is the first or last.
type PageLinks struct {
	Current int `json:"current"`
	Prev    int `json:"prev"`
	Next    int `json:"next"`
	First   int `json:"first"`
	Last    int `json:"last"`
}

// Pagination summarizes a find-many result set relative to its total.
type Pagination struct {
	Total int       `json:"total"`
	Page  PageLinks `json:"page"`
}

// Page is the find-many response envelope: the records of the current
// page plus the pagination summary computed from the unpaginated total.
// The total appears both at the top level and inside the pagination
// summary.
type Page struct {
	Limit      int        `json:"limit"`
	Offset     int        `json:"offset"`
	Total      int        `json:"total"`
	Pagination Pagination `json:"pagination"`
	Data       []Record   `json:"data"`
}

// newPage computes the pagination envelope. The last page is the ceiling
// of total over limit; an offset inside a page attributes the request to
// the page containing its first row.
func newPage(data []Record, total, limit, offset int) *Page {
	if data == nil {
		data = []Record{}
	}
	p := &Page{Limit: limit, Offset: offset, Total: total, Data: data}
	p.Pagination.Total = total
	if limit <= 0 {
		return p
	}
	last := (total + limit - 1) / limit
	if last < 1 {
		last = 1
	}
	current := offset/limit + 1
	if current > last {
		current = last
	}
	links := PageLinks{Current: current, First: 1, Last: last}
	if current > 1 {
		links.Prev = current - 1
	}
	if current < last {
		links.Next = current + 1
	}
	p.Pagination.Page = links
	return p
}
