package query

import (
	"context"
	"fmt"
)

// Pages is the cached value of an infinite query: every page loaded so far, in order,
// with the parameter each page was fetched with.
type Pages[T any] struct {
	Pages     []T
	Params    []string
	NextParam string
	HasNext   bool
}

// Len is the number of loaded pages.
func (p Pages[T]) Len() int {
	return len(p.Pages)
}

// PageFunc fetches one page. The first page is fetched with an empty param.
type PageFunc[T any] func(ctx context.Context, param string) (T, error)

// NextPageFunc derives the param of the page following last. ok is false when there are
// no more pages.
type NextPageFunc[T any] func(last T) (param string, ok bool)

// FetchInfinite returns the loaded pages for key, fetching the first page on a miss. A
// stale entry is refetched from the first page up to as many pages as were loaded.
func FetchInfinite[T any](ctx context.Context, c *Cache, key Key, fn PageFunc[T], next NextPageFunc[T], opts ...FetchOption) (Pages[T], error) {
	var o fetchOptions
	for _, opt := range opts {
		opt(&o)
	}

	v, err := c.fetch(ctx, key, o.force, func(ctx context.Context, prev any, _ bool) (any, error) {
		want := 1
		if p, ok := prev.(Pages[T]); ok && p.Len() > want {
			want = p.Len()
		}
		return loadPages(ctx, fn, next, want)
	})
	if err != nil {
		return Pages[T]{}, err
	}
	return asPages[T](key, v)
}

// FetchNextPage loads the page after the last loaded one and appends it. When the last
// page reported no successor the cached pages are returned without a fetch. Pages that
// are stale or came from a failed fetch are reloaded from the first page, one further
// than before.
func FetchNextPage[T any](ctx context.Context, c *Cache, key Key, fn PageFunc[T], next NextPageFunc[T]) (Pages[T], error) {
	if c.State(key).Status == StatusSuccess {
		if p, ok := GetData[Pages[T]](c, key); ok && !p.HasNext {
			return p, nil
		}
	}

	v, err := c.fetch(ctx, key, true, func(ctx context.Context, prev any, fresh bool) (any, error) {
		p, ok := prev.(Pages[T])
		if !ok || p.Len() == 0 {
			return loadPages(ctx, fn, next, 1)
		}
		if !fresh {
			return loadPages(ctx, fn, next, p.Len()+1)
		}
		if !p.HasNext {
			return p, nil
		}

		page, err := fn(ctx, p.NextParam)
		if err != nil {
			return nil, err
		}
		return appendPage(p, p.NextParam, page, next), nil
	})
	if err != nil {
		return Pages[T]{}, err
	}
	return asPages[T](key, v)
}

func loadPages[T any](ctx context.Context, fn PageFunc[T], next NextPageFunc[T], want int) (Pages[T], error) {
	var p Pages[T]
	param := ""
	for i := 0; i < want; i++ {
		page, err := fn(ctx, param)
		if err != nil {
			return Pages[T]{}, err
		}
		p = appendPage(p, param, page, next)
		if !p.HasNext {
			break
		}
		param = p.NextParam
	}
	return p, nil
}

func appendPage[T any](p Pages[T], param string, page T, next NextPageFunc[T]) Pages[T] {
	out := Pages[T]{
		Pages:  append(append([]T(nil), p.Pages...), page),
		Params: append(append([]string(nil), p.Params...), param),
	}
	out.NextParam, out.HasNext = next(page)
	if !out.HasNext {
		out.NextParam = ""
	}
	return out
}

func asPages[T any](key Key, v any) (Pages[T], error) {
	p, ok := v.(Pages[T])
	if !ok {
		return Pages[T]{}, fmt.Errorf("query: cached value for %s is %T", key, v)
	}
	return p, nil
}
