package echoapi

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/presence/core/attendance"
	"github.com/trezcool/presence/core/class"
	"github.com/trezcool/presence/services/export"
	"github.com/trezcool/presence/services/metrics"
)

type attendanceApi struct {
	svc      *attendance.Service
	classSvc *class.Service
}

func registerAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *attendance.Service, classSvc *class.Service) {
	api := attendanceApi{svc: svc, classSvc: classSvc}

	ag := g.Group("/attendance", jwt)
	ag.POST("", api.record, authorize(opAttendanceRecord))
	ag.GET("/session/:sessionId", api.bySession, authorize(opAttendanceRead))
	ag.GET("/by-student/:studentId", api.byStudent, authorize(opAttendanceRead))
	ag.GET("/by-class/:classId", api.byClass, authorize(opAttendanceRead))
	ag.GET("/by-class/:classId/summary", api.classSummary, authorize(opAttendanceRead))
	ag.GET("/by-class/:classId/export", api.export, authorize(opAttendanceExport))
	ag.GET("/by-period", api.byPeriod, authorize(opAttendanceRead))
}

func (api *attendanceApi) record(ctx echo.Context) error {
	var data attendance.NewBatch
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBatch")
	}

	atts, err := api.svc.Record(ctx.Request().Context(), data)
	metrics.ObserveBatch(len(atts), err)
	if err != nil {
		return errors.Wrap(err, "recording attendance")
	}
	return ctx.JSON(http.StatusCreated, atts)
}

func (api *attendanceApi) bySession(ctx echo.Context) error {
	id, err := pathID(ctx, "sessionId")
	if err != nil {
		return err
	}
	records, err := api.svc.BySession(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying attendance by session")
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *attendanceApi) byStudent(ctx echo.Context) error {
	id, err := pathID(ctx, "studentId")
	if err != nil {
		return err
	}
	records, err := api.svc.ByStudent(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying attendance by student")
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *attendanceApi) byClass(ctx echo.Context) error {
	id, err := pathID(ctx, "classId")
	if err != nil {
		return err
	}
	start, end := periodParams(ctx)
	records, err := api.svc.ByClass(ctx.Request().Context(), id, start, end)
	if err != nil {
		return errors.Wrap(err, "querying attendance by class")
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *attendanceApi) classSummary(ctx echo.Context) error {
	id, err := pathID(ctx, "classId")
	if err != nil {
		return err
	}
	start, end := periodParams(ctx)
	summaries, err := api.svc.ClassSummary(ctx.Request().Context(), id, start, end)
	if err != nil {
		return errors.Wrap(err, "summarizing class attendance")
	}
	return ctx.JSON(http.StatusOK, summaries)
}

func (api *attendanceApi) byPeriod(ctx echo.Context) error {
	start, end := periodParams(ctx)
	records, err := api.svc.ByPeriod(ctx.Request().Context(), start, end)
	if err != nil {
		return errors.Wrap(err, "querying attendance by period")
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *attendanceApi) export(ctx echo.Context) error {
	id, err := pathID(ctx, "classId")
	if err != nil {
		return err
	}
	c := ctx.Request().Context()
	cls, err := api.classSvc.GetByID(c, id)
	if err != nil {
		return errors.Wrap(err, "finding class by ID")
	}

	start, end := periodParams(ctx)
	records, err := api.svc.ByClass(c, id, start, end)
	if err != nil {
		return errors.Wrap(err, "querying attendance by class")
	}
	summaries, err := api.svc.ClassSummary(c, id, start, end)
	if err != nil {
		return errors.Wrap(err, "summarizing class attendance")
	}

	var buf bytes.Buffer
	if err = export.ClassWorkbook(&buf, records, summaries); err != nil {
		return errors.Wrap(err, "exporting class attendance")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", export.Filename(cls.Name)))
	return ctx.Blob(http.StatusOK, export.ContentType, buf.Bytes())
}
