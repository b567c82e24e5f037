package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kyleyee20/aevum/core/assignment"
)

type (
	assignmentApi struct {
		engine *assignment.Service
	}

	AssignmentList struct {
		SortOrder   assignment.SortOrder `json:"sortOrder"`
		Assignments []assignment.View    `json:"assignments"`
	}

	SortRequest struct {
		SortOrder assignment.SortOrder `json:"sortOrder"`
	}

	PruneResponse struct {
		Pruned int `json:"pruned"`
	}
)

func registerAssignmentAPI(g *echo.Group, signedIn echo.MiddlewareFunc, engine *assignment.Service) {
	api := assignmentApi{engine: engine}

	ag := g.Group("/assignments")
	ag.GET("", api.assignmentQuery, signedIn)
	ag.POST("", api.assignmentCreate)
	ag.PATCH("/:id", api.assignmentUpdate)
	ag.DELETE("/:id", api.assignmentDestroy)
	ag.POST("/:id/complete", api.assignmentComplete)

	cg := g.Group("/completed")
	cg.GET("", api.completedQuery, signedIn)
	cg.POST("/:id/undo", api.completedUndo)
	cg.DELETE("", api.completedPrune)

	g.GET("/calendar", api.calendarQuery, signedIn)
	g.POST("/calendar/import", api.calendarImport)
	g.POST("/sync", api.sync)
	g.POST("/scoring", api.scoringRun)
	g.PUT("/sort", api.sortUpdate)
	g.POST("/prune", api.prune)
	g.POST("/reset", api.reset)
}

// Handlers

func (api *assignmentApi) assignmentQuery(ctx echo.Context) error {
	var ord Ordering
	if err := ord.Bind(ctx); err != nil {
		return err
	}
	views := api.engine.ListActive()
	order := api.engine.SortOrder()
	if ord.Order != "" {
		order = ord.Order
		assignment.Sort(views, order)
	}
	return ctx.JSON(http.StatusOK, AssignmentList{SortOrder: order, Assignments: views})
}

func (api *assignmentApi) assignmentCreate(ctx echo.Context) error {
	data := new(assignment.NewAssignment)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	a, err := api.engine.AddAssignment(ctx.Request().Context(), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *assignmentApi) assignmentUpdate(ctx echo.Context) error {
	data := new(assignment.Edit)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	a, err := api.engine.EditAssignment(ctx.Request().Context(), ctx.Param("id"), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *assignmentApi) assignmentDestroy(ctx echo.Context) error {
	if err := api.engine.DeleteAssignment(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *assignmentApi) assignmentComplete(ctx echo.Context) error {
	c, err := api.engine.CompleteAssignment(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *assignmentApi) completedQuery(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.engine.ListCompleted())
}

func (api *assignmentApi) completedUndo(ctx echo.Context) error {
	a, err := api.engine.UndoCompletion(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *assignmentApi) completedPrune(ctx echo.Context) error {
	days, err := bindMaxAge(ctx)
	if err != nil {
		return err
	}
	n, err := api.engine.PruneOldCompleted(ctx.Request().Context(), days)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, PruneResponse{Pruned: n})
}

func (api *assignmentApi) calendarQuery(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.engine.ListCalendar())
}

func (api *assignmentApi) calendarImport(ctx echo.Context) error {
	report, err := api.engine.ImportCalendar(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *assignmentApi) sync(ctx echo.Context) error {
	report, err := api.engine.Sync(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *assignmentApi) scoringRun(ctx echo.Context) error {
	report, err := api.engine.RunScoring(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *assignmentApi) sortUpdate(ctx echo.Context) error {
	data := new(SortRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := api.engine.SetSortOrder(ctx.Request().Context(), data.SortOrder); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *assignmentApi) prune(ctx echo.Context) error {
	report, err := api.engine.Prune(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *assignmentApi) reset(ctx echo.Context) error {
	if err := api.engine.ResetAll(ctx.Request().Context()); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
