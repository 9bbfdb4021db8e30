// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
)

// PageSizes are the page sizes offered by list views.
var PageSizes = []int{5, 10, 25, 50}

// DefaultPageSize is used when a request names no valid page size.
const DefaultPageSize = 10

// MaxButtons is the most page-number buttons shown at once.
const MaxButtons = 5

// ValidPageSize reports whether n is one of PageSizes.
func ValidPageSize(n int) bool {
	for _, s := range PageSizes {
		if s == n {
			return true
		}
	}
	return false
}

// ParsePage reads the 1-based "page" query parameter.
// Returns 1 if not present or invalid.
func ParsePage(r *http.Request) int {
	n, err := strconv.Atoi(query.Get(r, "page"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// ParsePageSize reads the "perPage" query parameter, falling back to def
// when it is missing or not one of PageSizes.
func ParsePageSize(r *http.Request, def int) int {
	n, err := strconv.Atoi(query.Get(r, "perPage"))
	if err != nil || !ValidPageSize(n) {
		return def
	}
	return n
}

// PageNumbers returns the page buttons to show for current out of total.
//
// Up to MaxButtons pages are shown. When there are more pages than that,
// the window starts two pages before current and slides left near the end
// so it always holds MaxButtons entries.
func PageNumbers(current, total int) []int {
	if total < 1 {
		return nil
	}
	if total <= MaxButtons {
		pages := make([]int, total)
		for i := range pages {
			pages[i] = i + 1
		}
		return pages
	}

	start := current - 2
	if start < 1 {
		start = 1
	}
	end := start + MaxButtons - 1
	if end > total {
		end = total
		start = end - MaxButtons + 1
	}

	pages := make([]int, 0, MaxButtons)
	for p := start; p <= end; p++ {
		pages = append(pages, p)
	}
	return pages
}

// Range holds the 1-based row range shown under a paged table.
type Range struct {
	Start int // 0 when there is no pagination metadata
	End   int // 0 when there is no pagination metadata
}

// ComputeRange returns the rows covered by page current of size rows,
// clamped to total. Without metadata both ends are 0.
func ComputeRange(current, size, total int, hasMeta bool) Range {
	if !hasMeta {
		return Range{}
	}
	end := current * size
	if end > total {
		end = total
	}
	return Range{
		Start: (current-1)*size + 1,
		End:   end,
	}
}
