package http

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Page bounds for list endpoints.
const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// PaginatedResponse wraps one page of a list.
type PaginatedResponse[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// Pagination describes an offset page. Total is filled in after the query.
type Pagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
	Total  int `json:"total"`
}

// pageParams reads offset and limit from the query string, clamping
// out-of-range values instead of rejecting them.
func pageParams(c *fiber.Ctx) Pagination {
	p := Pagination{
		Offset: c.QueryInt("offset", 0),
		Limit:  c.QueryInt("limit", defaultPageLimit),
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	return p
}

// Next is the offset of the following page, or -1 on the last page.
func (p Pagination) Next() int {
	if p.Offset+p.Limit < p.Total {
		return p.Offset + p.Limit
	}
	return -1
}

// SetLinkHeaders writes RFC 8288 first/prev/next/last links for the
// current path.
func SetLinkHeaders(c *fiber.Ctx, p Pagination) {
	link := func(offset int, rel string) string {
		return fmt.Sprintf(`<%s?offset=%d&limit=%d>; rel="%s"`, c.Path(), offset, p.Limit, rel)
	}

	links := []string{link(0, "first")}
	if p.Offset > 0 {
		links = append(links, link(max(p.Offset-p.Limit, 0), "prev"))
	}
	if next := p.Next(); next >= 0 {
		links = append(links, link(next, "next"))
	}
	last := 0
	if p.Total > 0 {
		last = (p.Total - 1) / p.Limit * p.Limit
	}
	links = append(links, link(last, "last"))

	c.Set("Link", strings.Join(links, ", "))
}
