package doclient

import (
	"context"

	"github.com/digitalocean/godo"

	"github.com/soyeahso/mcp-digitalocean/internal/domain"
)

// perPage is the largest page size the API accepts.
const perPage = 200

type pageFunc[T any] func(ctx context.Context, opt *godo.ListOptions) ([]T, *godo.Response, error)

// paginate follows the pagination links until the last page and returns
// every item in server order. Failing to work out the next page is an
// error; the result is never silently truncated.
func paginate[T any](ctx context.Context, op string, fetch pageFunc[T]) ([]T, error) {
	opt := &godo.ListOptions{PerPage: perPage}
	all := []T{}

	for {
		if err := ctx.Err(); err != nil {
			return nil, &domain.Error{Kind: domain.KindUpstream, Op: op, Err: err}
		}

		items, resp, err := fetch(ctx, opt)
		if err != nil {
			return nil, classify(op, resp, err)
		}
		all = append(all, items...)

		if resp == nil || resp.Links == nil || resp.Links.IsLastPage() {
			return all, nil
		}

		page, err := resp.Links.CurrentPage()
		if err != nil {
			return nil, &domain.Error{
				Kind:    domain.KindUpstream,
				Op:      op,
				Message: "cannot determine next page: " + err.Error(),
				Err:     err,
			}
		}
		requested := max(opt.Page, 1)
		if page < requested {
			return nil, &domain.Error{
				Kind:    domain.KindUpstream,
				Op:      op,
				Message: "pagination links did not advance",
			}
		}
		opt.Page = page + 1
	}
}
