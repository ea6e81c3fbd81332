package output

import "fmt"

// DefaultPageSize is the number of rows shown per page of a list.
const DefaultPageSize = 8

// Page is one slice of a paginated list.
type Page[T any] struct {
	Items []T
	// Number is the 1-based page shown, Pages the total number of pages.
	Number int
	Pages  int
	Total  int
}

// Paginate returns page number of items. Out-of-range numbers are clamped
// so the first and last pages are always reachable; an empty list has one
// empty page.
func Paginate[T any](items []T, number, size int) Page[T] {
	if size <= 0 {
		size = DefaultPageSize
	}
	pages := (len(items) + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	if number < 1 {
		number = 1
	}
	if number > pages {
		number = pages
	}

	start := (number - 1) * size
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return Page[T]{
		Items:  items[start:end],
		Number: number,
		Pages:  pages,
		Total:  len(items),
	}
}

// Footer describes the page, e.g. "Page 2 of 3 (20 patients)".
func (p Page[T]) Footer(noun string) string {
	return fmt.Sprintf("Page %d of %d (%d %s)", p.Number, p.Pages, p.Total, noun)
}
