// controllers/srv.go
package controllers

import (
	"net/http"
	"strconv"
	"time"

	"kitshed/app"
	"kitshed/db"
	"kitshed/gateway"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Srv struct {
	Repo *db.Repo
	Log  *zap.Logger
	Cfg  app.Config
}

func GetSrv(a *app.App) *Srv {
	codes := gateway.NewRedisNumbering(a.RDB)
	users := gateway.NewIdentityClient(a.Config.IdentityURL, 5*time.Second)
	return &Srv{
		Repo: db.NewRepo(a.DB, codes, users),
		Log:  a.Log,
		Cfg:  a.Config,
	}
}

// fail maps the error taxonomy to HTTP status codes.
func (s *Srv) fail(c *gin.Context, err error) {
	switch db.KindOf(err) {
	case db.KindNotFound:
		c.JSON(http.StatusNotFound, app.H{"error": err.Error()})
	case db.KindConflict:
		c.JSON(http.StatusConflict, app.H{"error": err.Error()})
	case db.KindInvalidState:
		c.JSON(http.StatusUnprocessableEntity, app.H{"error": err.Error()})
	case db.KindValidation:
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
	default:
		s.Log.Error("internal error", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, app.H{"error": "internal error"})
	}
}

func idParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		c.JSON(http.StatusBadRequest, app.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(v), true
}

func pageQuery(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	return page, size
}
