package doclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/digitalocean/godo"

	"github.com/soyeahso/mcp-digitalocean/internal/domain"
)

// classify maps a godo error onto the domain error taxonomy. The original
// error stays reachable through Unwrap, so context cancellation is still
// visible to errors.Is.
func classify(op string, resp *godo.Response, err error) error {
	if err == nil {
		return nil
	}

	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}

	var er *godo.ErrorResponse
	if errors.As(err, &er) {
		code := 0
		if er.Response != nil {
			code = er.Response.StatusCode
		}
		return &domain.Error{
			Kind:       domain.KindForStatus(code),
			Op:         op,
			StatusCode: code,
			RequestID:  er.RequestID,
			Message:    er.Message,
			Err:        err,
		}
	}

	var ae *godo.ArgError
	if errors.As(err, &ae) {
		return &domain.Error{Kind: domain.KindValidation, Op: op, Err: err}
	}

	var (
		se  *json.SyntaxError
		ute *json.UnmarshalTypeError
	)
	if errors.As(err, &se) || errors.As(err, &ute) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &domain.Error{
			Kind:       domain.KindUpstream,
			Op:         op,
			StatusCode: statusOf(resp),
			Message:    fmt.Sprintf("decoding response: %v", err),
			Err:        err,
		}
	}

	return &domain.Error{Kind: domain.KindUpstream, Op: op, StatusCode: statusOf(resp), Err: err}
}

// emptyBody reports a successful response that carried no resource.
func emptyBody(op string, resp *godo.Response) error {
	return &domain.Error{
		Kind:       domain.KindUpstream,
		Op:         op,
		StatusCode: statusOf(resp),
		Message:    "response did not contain the expected resource",
	}
}

func statusOf(resp *godo.Response) int {
	if resp == nil || resp.Response == nil {
		return 0
	}
	return resp.StatusCode
}
