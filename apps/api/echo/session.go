package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kyleyee20/aevum/core/assignment"
)

type (
	sessionApi struct {
		engine *assignment.Service
	}

	SignInRequest struct {
		Token string `json:"token"`
	}

	SessionResponse struct {
		Authenticated bool `json:"authenticated"`
	}

	InstitutionRequest struct {
		Institution string `json:"institution"`
	}
)

func registerSessionAPI(g *echo.Group, engine *assignment.Service) {
	api := sessionApi{engine: engine}

	sg := g.Group("/session")
	sg.GET("", api.sessionRetrieve)
	sg.POST("", api.signIn)
	sg.DELETE("", api.signOut)

	g.PUT("/institution", api.institutionUpdate)
}

// Handlers

func (api *sessionApi) sessionRetrieve(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, SessionResponse{Authenticated: api.engine.Authenticated()})
}

func (api *sessionApi) signIn(ctx echo.Context) error {
	data := new(SignInRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := api.engine.SignIn(ctx.Request().Context(), data.Token); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SessionResponse{Authenticated: api.engine.Authenticated()})
}

func (api *sessionApi) signOut(ctx echo.Context) error {
	if err := api.engine.SignOut(ctx.Request().Context()); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *sessionApi) institutionUpdate(ctx echo.Context) error {
	data := new(InstitutionRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := api.engine.SelectInstitution(ctx.Request().Context(), data.Institution); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
