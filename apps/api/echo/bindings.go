package echoapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/presence/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := strings.TrimSpace(ctx.QueryParam(orderingParam))
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

var queryBinder = new(echo.DefaultBinder)

// bindQuery binds the query string into filter.
func bindQuery(ctx echo.Context, filter interface{}) error {
	if err := queryBinder.BindQueryParams(ctx, filter); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query parameters").SetInternal(err)
	}
	return nil
}

// pathID parses the positive integer path parameter `name`.
func pathID(ctx echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil || id <= 0 {
		return 0, core.NewValidationError(nil, core.FieldError{Field: name, Error: "must be a positive integer"})
	}
	return id, nil
}

// periodParams returns the trimmed `start` and `end` query parameters.
func periodParams(ctx echo.Context) (start, end string) {
	return strings.TrimSpace(ctx.QueryParam("start")), strings.TrimSpace(ctx.QueryParam("end"))
}
