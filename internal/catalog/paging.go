package catalog

// Gap marks an elided run of pages in a page window.
const Gap = 0

// TotalPages returns ceil(total/size), at least 1.
func TotalPages(total, size int) int {
	if size <= 0 || total <= 0 {
		return 1
	}
	return (total + size - 1) / size
}

// PageWindow lists the page numbers worth showing around current: the first
// page, current-2..current+2 and the last page, with Gap where pages are
// skipped.
func PageWindow(current, total int) []int {
	if total < 1 {
		total = 1
	}
	if current < 1 {
		current = 1
	}
	if current > total {
		current = total
	}
	var out []int
	last := 0
	for page := 1; page <= total; page++ {
		if page != 1 && page != total && (page < current-2 || page > current+2) {
			continue
		}
		if last != 0 && page-last > 1 {
			out = append(out, Gap)
		}
		out = append(out, page)
		last = page
	}
	return out
}

// Slice returns the page-th window of size items, 1-based.
func Slice[T any](items []T, page, size int) []T {
	if size <= 0 {
		return items
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * size
	if start >= len(items) {
		return nil
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
