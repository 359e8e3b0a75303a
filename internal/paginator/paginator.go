// Package paginator slices ordered collections into fixed-size pages.
//
// A page number beyond the last page resolves to the last page, and so does a
// number below 1; an absent or malformed number means the first page. An empty
// collection still has one (empty) page.
package paginator

import (
	"context"
	"strconv"
	"strings"
)

const DefaultPageSize = 10

// Source is a restartable ordered sequence. Paginate asks it for its length and
// for one offset/limit window.
type Source[T any] interface {
	Count(ctx context.Context) (int, error)
	Slice(ctx context.Context, offset, limit int) ([]T, error)
}

type Page[T any] struct {
	Items       []T  `json:"items"`
	Number      int  `json:"number"`
	TotalPages  int  `json:"total_pages"`
	Count       int  `json:"count"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

func (p Page[T]) NextNumber() int {
	if !p.HasNext {
		return p.Number
	}
	return p.Number + 1
}

func (p Page[T]) PreviousNumber() int {
	if !p.HasPrevious {
		return p.Number
	}
	return p.Number - 1
}

// ParsePage reads a page number from a query value. Anything that is not an
// integer yields 1.
func ParsePage(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 1
	}
	return n
}

// maxReads bounds how often Paginate recounts a source that shrinks between
// its count and its slice.
const maxReads = 3

// Paginate returns page number of src split into pages of pageSize items.
// A non-empty source never yields an empty page: when the window comes back
// empty because items were removed after counting, the source is counted again
// and the page number re-resolved.
func Paginate[T any](ctx context.Context, src Source[T], pageSize, number int) (Page[T], error) {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	for read := 1; ; read++ {
		total, err := src.Count(ctx)
		if err != nil {
			return Page[T]{}, err
		}

		totalPages := (total + pageSize - 1) / pageSize
		if totalPages == 0 {
			return Page[T]{Items: []T{}, Number: 1, TotalPages: 1}, nil
		}
		n := number
		if n < 1 || n > totalPages {
			n = totalPages
		}

		items, err := src.Slice(ctx, (n-1)*pageSize, pageSize)
		if err != nil {
			return Page[T]{}, err
		}
		if len(items) == 0 && read < maxReads {
			continue
		}
		if items == nil {
			items = []T{}
		}

		return Page[T]{
			Items:       items,
			Number:      n,
			TotalPages:  totalPages,
			Count:       total,
			HasNext:     n < totalPages,
			HasPrevious: n > 1,
		}, nil
	}
}

type sliceSource[T any] []T

// FromSlice adapts an in-memory slice to a Source.
func FromSlice[T any](items []T) Source[T] {
	return sliceSource[T](items)
}

func (s sliceSource[T]) Count(context.Context) (int, error) {
	return len(s), nil
}

func (s sliceSource[T]) Slice(_ context.Context, offset, limit int) ([]T, error) {
	if offset >= len(s) {
		return nil, nil
	}
	end := min(offset+limit, len(s))
	out := make([]T, end-offset)
	copy(out, s[offset:end])
	return out, nil
}

// SourceFunc builds a Source from two closures, typically a COUNT query and an
// OFFSET/LIMIT query over the same filter.
type SourceFunc[T any] struct {
	CountFunc func(ctx context.Context) (int, error)
	SliceFunc func(ctx context.Context, offset, limit int) ([]T, error)
}

func (f SourceFunc[T]) Count(ctx context.Context) (int, error) {
	return f.CountFunc(ctx)
}

func (f SourceFunc[T]) Slice(ctx context.Context, offset, limit int) ([]T, error) {
	return f.SliceFunc(ctx, offset, limit)
}
