// controllers/template_controller.go
package controllers

import (
	"net/http"

	"kitshed/app"
	"kitshed/db"

	"github.com/gin-gonic/gin"
)

type TemplateController struct{ *Srv }

func NewTemplateController(s *Srv) *TemplateController { return &TemplateController{Srv: s} }

func (tc *TemplateController) Create(c *gin.Context) {
	var in db.CreateTemplateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	tpl, err := tc.Repo.CreateTemplate(c.Request.Context(), app.TenantID(c), in)
	if err != nil {
		tc.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, tpl)
}

func (tc *TemplateController) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	tpl, err := tc.Repo.GetTemplate(c.Request.Context(), app.TenantID(c), id)
	if err != nil {
		tc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tpl)
}

func (tc *TemplateController) List(c *gin.Context) {
	q := db.TemplateQuery{Q: c.Query("q")}
	q.Page, q.Size = pageQuery(c)
	switch c.Query("active") {
	case "true":
		v := true
		q.Active = &v
	case "false":
		v := false
		q.Active = &v
	}
	res, err := tc.Repo.ListTemplates(c.Request.Context(), app.TenantID(c), q)
	if err != nil {
		tc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (tc *TemplateController) Deactivate(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := tc.Repo.DeactivateTemplate(c.Request.Context(), app.TenantID(c), id); err != nil {
		tc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}
