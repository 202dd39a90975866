package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/classes/:id", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	e.GET("/boom", func(c echo.Context) error { return echo.NewHTTPError(http.StatusTeapot) })

	before := testutil.ToFloat64(Requests.WithLabelValues(http.MethodGet, "/classes/:id", "204"))
	for _, path := range []string{"/classes/1", "/classes/2"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}
	assert.Equal(t, before+2, testutil.ToFloat64(Requests.WithLabelValues(http.MethodGet, "/classes/:id", "204")))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, float64(1), testutil.ToFloat64(Requests.WithLabelValues(http.MethodGet, "/boom", "418")))
}

func TestObserveBatch(t *testing.T) {
	recorded := testutil.ToFloat64(AttendanceBatches.WithLabelValues("recorded"))
	rejected := testutil.ToFloat64(AttendanceBatches.WithLabelValues("rejected"))
	marks := testutil.ToFloat64(AttendanceMarks)

	ObserveBatch(3, nil)
	ObserveBatch(5, errors.New("invalid"))

	assert.Equal(t, recorded+1, testutil.ToFloat64(AttendanceBatches.WithLabelValues("recorded")))
	assert.Equal(t, rejected+1, testutil.ToFloat64(AttendanceBatches.WithLabelValues("rejected")))
	assert.Equal(t, marks+3, testutil.ToFloat64(AttendanceMarks))
}
