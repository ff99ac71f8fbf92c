package catalog

import "context"

// DefaultPageSize is the window used when callers do not pick one.
const DefaultPageSize = 20

// Each walks view one window at a time, calling fn for every item. Only one
// window is held in memory. Returning an error from fn stops the walk.
func Each(ctx context.Context, view PagedView, pageSize int, fn func(ListItem) error) error {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	for offset := 0; ; offset += pageSize {
		page, err := view.Page(ctx, offset, pageSize)
		if err != nil {
			return err
		}
		for _, item := range page {
			if err := fn(item); err != nil {
				return err
			}
		}
		if len(page) < pageSize {
			return nil
		}
	}
}

// Collect reads the whole view. Intended for small views and tests.
func Collect(ctx context.Context, view PagedView) ([]ListItem, error) {
	var items []ListItem
	err := Each(ctx, view, DefaultPageSize, func(item ListItem) error {
		items = append(items, item)
		return nil
	})
	return items, err
}

// SliceView is an in-memory PagedView.
type SliceView []ListItem

func (v SliceView) Count(ctx context.Context) (int, error) { return len(v), nil }

func (v SliceView) Page(ctx context.Context, offset, limit int) ([]ListItem, error) {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(v) {
		return nil, nil
	}
	end := len(v)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]ListItem, end-offset)
	copy(out, v[offset:end])
	return out, nil
}
