package echoapi

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kyleyee20/aevum/core/course"
)

type courseApi struct {
	service *course.Service
}

func registerCourseAPI(g *echo.Group, signedIn echo.MiddlewareFunc, svc *course.Service) {
	if svc == nil {
		return
	}
	api := courseApi{service: svc}

	pg := g.Group("/profiles", signedIn)
	pg.GET("", api.profileQuery)
	pg.POST("", api.profileCreate)
	pg.PUT("", api.profileReplace)
	pg.PATCH("/:id", api.profileUpdate)
	pg.DELETE("/:id", api.profileDestroy)

	g.GET("/vocabulary", api.vocabularyRetrieve, signedIn)
}

// Handlers

func (api *courseApi) profileQuery(ctx echo.Context) error {
	profiles, err := api.service.QueryProfiles()
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, profiles)
}

func (api *courseApi) profileCreate(ctx echo.Context) error {
	data := new(course.NewProfile)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	p, err := api.service.AddProfile(ctx.Request().Context(), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *courseApi) profileReplace(ctx echo.Context) error {
	// echo's binder only takes structs
	var data []course.NewProfile
	if err := json.NewDecoder(ctx.Request().Body).Decode(&data); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "expected a list of profiles").SetInternal(err)
	}
	profiles, err := api.service.ReplaceProfiles(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, profiles)
}

func (api *courseApi) profileUpdate(ctx echo.Context) error {
	data := new(course.UpdateProfile)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	p, err := api.service.UpdateProfile(ctx.Request().Context(), ctx.Param("id"), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *courseApi) profileDestroy(ctx echo.Context) error {
	if err := api.service.DeleteProfile(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

type VocabularyResponse struct {
	Institution string            `json:"institution"`
	Vocabulary  course.Vocabulary `json:"vocabulary"`
}

func (api *courseApi) vocabularyRetrieve(ctx echo.Context) error {
	inst, vocab, err := api.service.Vocabulary()
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, VocabularyResponse{Institution: inst, Vocabulary: vocab})
}
