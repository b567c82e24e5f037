package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kyleyee20/aevum/core"
	"github.com/kyleyee20/aevum/core/assignment"
)

var (
	orderingParam   = "ordering"
	maxAgeDaysParam = "maxAgeDays"
)

// Ordering is an optional one-off sort criterion, e.g. ?ordering=dueDate. It is not persisted.
type Ordering struct {
	Order assignment.SortOrder
}

func (ord *Ordering) Bind(ctx echo.Context) error {
	val := strings.TrimSpace(ctx.QueryParam(orderingParam))
	if val == "" {
		return nil
	}
	order := assignment.SortOrder(val)
	if !order.Valid() {
		return core.NewValidationError(
			core.ErrInvalidSortOrder,
			core.FieldError{Field: orderingParam, Error: "must be one of recommendedDueDate, dueDate, priorityScore"},
		)
	}
	ord.Order = order
	return nil
}

// bindMaxAge reads ?maxAgeDays=, 0 meaning the configured maximum.
func bindMaxAge(ctx echo.Context) (int, error) {
	val := strings.TrimSpace(ctx.QueryParam(maxAgeDaysParam))
	if val == "" {
		return 0, nil
	}
	days, err := strconv.Atoi(val)
	if err != nil || days < 0 {
		return 0, core.NewValidationError(
			errors.New("invalid input"),
			core.FieldError{Field: maxAgeDaysParam, Error: "must be a positive number of days"},
		)
	}
	return days, nil
}
