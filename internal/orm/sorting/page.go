package sorting

import (
	"fmt"
)

// Page requests one page of results. Pagination applies only when both
// Number and Size are set.
type Page struct {
	Number *int `json:"number,omitempty"`
	Size   *int `json:"size,omitempty"`
}

// NewPage returns a page with both values set
func NewPage(number, size int) Page {
	return Page{Number: &number, Size: &size}
}

// IsSet reports whether both number and size are present
func (p Page) IsSet() bool {
	return p.Number != nil && p.Size != nil
}

// Validate checks the present values. Values below 1 are rejected, never
// clamped.
func (p Page) Validate() error {
	if p.Number != nil && *p.Number < 1 {
		return fmt.Errorf("%w: page number must be at least 1, got %d", ErrInvalidPage, *p.Number)
	}
	if p.Size != nil && *p.Size < 1 {
		return fmt.Errorf("%w: page size must be at least 1, got %d", ErrInvalidPage, *p.Size)
	}
	return nil
}

// CompilePage converts p into a skip/take window. ok is false when p does not
// request pagination.
func CompilePage(p Page) (skip, take int, ok bool, err error) {
	if err := p.Validate(); err != nil {
		return 0, 0, false, err
	}
	if !p.IsSet() {
		return 0, 0, false, nil
	}
	return (*p.Number - 1) * *p.Size, *p.Size, true, nil
}
