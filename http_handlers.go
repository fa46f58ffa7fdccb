package main

// this file contains implementation of HTTP handlers - REST API

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"

	"github.com/himanshub16/patchbay/patchbay"
)

var (
	jwtSecret = []byte("secret")
	service   Service
	station   *Station
)

func NewHTTPRouter(_service Service, _station *Station, secret string) *echo.Echo {
	service = _service
	station = _station
	if secret != "" {
		jwtSecret = []byte(secret)
	}

	r := echo.New()
	r.HideBanner = true
	r.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "method=${method}, uri=${uri}, status=${status}\n",
	}))
	r.GET("/", pageHandler)
	r.GET("/ws", wsHandler)

	router := r.Group("/api")
	router.GET("/health", healthCheckHandler)
	router.POST("/login", loginHandler)
	router.GET("/tracks", tracksHandler)
	router.GET("/tracks/:id", trackByIDHandler)
	router.GET("/player", playerStatusHandler)

	auth := middleware.JWT(jwtSecret)
	router.POST("/tracks", newTrackHandler, auth)
	router.POST("/player/click", playerClickHandler, auth)
	router.POST("/player/sweep", playerSweepHandler, auth)
	router.POST("/player/retry", playerRetryHandler, auth)

	return r
}

func healthCheckHandler(c echo.Context) error {
	return c.String(http.StatusOK, "I am up and running!")
}

func loginHandler(c echo.Context) error {
	u := User{}
	if err := c.Bind(&u); err != nil {
		return err
	}
	if u.UserID == "" {
		u.UserID = c.FormValue("user_id")
	}
	if u.UserID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "Missing user_id",
		})
	}
	if err := service.CreateOrUpdateUser(u); err != nil {
		return err
	}

	token := jwt.New(jwt.SigningMethodHS256)
	claims := token.Claims.(jwt.MapClaims)
	claims["user_id"] = u.UserID
	claims["exp"] = time.Now().Add(time.Hour * 72).Unix()
	t, err := token.SignedString(jwtSecret)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"token": t,
	})
}

// tracksHandler answers lookups (?ids=a,b) in the shape HTTPLookup reads,
// and lists the catalog otherwise.
func tracksHandler(c echo.Context) error {
	if raw := c.QueryParam("ids"); raw != "" {
		var ids []string
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		records, err := service.LookupTracks(ids)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, patchbay.LookupResponse{Tracks: records})
	}

	limit, _ := strconv.ParseInt(c.QueryParam("limit"), 10, 64)
	if limit <= 0 {
		limit = 50
	}
	tracks, err := service.ListTracks(limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"tracks": tracks,
	})
}

func trackByIDHandler(c echo.Context) error {
	t, err := service.GetTrackByID(c.Param("id"))
	if errors.Is(err, errTrackNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{
			"message": err.Error(),
		})
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

func newTrackHandler(c echo.Context) error {
	t := Track{}
	if err := c.Bind(&t); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "Missing track data",
		})
	}
	created, err := service.SubmitTrack(t)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": err.Error(),
		})
	}
	c.Logger().Infof("track %s submitted by %s", created.TrackID, getUserIDFromContext(c))
	return c.JSON(http.StatusOK, created)
}

func pageHandler(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(http.StatusOK)
	return station.Render(c.Request().Context(), c.Response())
}

func wsHandler(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	station.backend.serve(ws)
	return nil
}

func playerStatusHandler(c echo.Context) error {
	st, err := station.Status(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}

func playerClickHandler(c echo.Context) error {
	form := struct {
		Entity string `json:"entity" form:"entity"`
		Role   string `json:"role" form:"role"`
	}{}
	if err := c.Bind(&form); err != nil || form.Entity == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "Missing entity",
		})
	}
	role, err := patchbay.ParseRole(form.Role)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": err.Error(),
		})
	}

	err = station.Click(c.Request().Context(), form.Entity, role)
	switch {
	case errors.Is(err, patchbay.ErrNoEntity),
		errors.Is(err, patchbay.ErrNoMaster),
		errors.Is(err, patchbay.ErrUnknownRole):
		return c.JSON(http.StatusNotFound, echo.Map{
			"message": err.Error(),
		})
	case err != nil:
		return err
	}
	return playerStatusHandler(c)
}

func playerSweepHandler(c echo.Context) error {
	form := struct {
		Scope string `json:"scope" form:"scope"`
		HTML  string `json:"html" form:"html"`
	}{}
	if err := c.Bind(&form); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "Missing sweep data",
		})
	}
	report, err := station.Sweep(c.Request().Context(), form.Scope, form.HTML)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": err.Error(),
		})
	}
	return c.JSON(http.StatusOK, report)
}

func playerRetryHandler(c echo.Context) error {
	n, err := station.RetryLookups(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"retried": n,
	})
}

func getUserIDFromContext(c echo.Context) string {
	return c.Get("user").(*jwt.Token).Claims.(jwt.MapClaims)["user_id"].(string)
}
