// controllers/equipment_controller.go
package controllers

import (
	"net/http"
	"strconv"

	"kitshed/app"
	"kitshed/db"
	"kitshed/models"

	"github.com/gin-gonic/gin"
)

type EquipmentController struct{ *Srv }

func NewEquipmentController(s *Srv) *EquipmentController { return &EquipmentController{Srv: s} }

func (ec *EquipmentController) Create(c *gin.Context) {
	var in struct {
		Code   string `json:"code" binding:"required"`
		Name   string `json:"name" binding:"required"`
		TypeID uint   `json:"typeId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	eq := &models.Equipment{
		TenantID: app.TenantID(c),
		Code:     in.Code,
		Name:     in.Name,
		TypeID:   in.TypeID,
	}
	if err := ec.Repo.CreateEquipment(c.Request.Context(), eq); err != nil {
		ec.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, eq)
}

func (ec *EquipmentController) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	eq, err := ec.Repo.FindEquipmentByID(c.Request.Context(), app.TenantID(c), id)
	if err != nil {
		ec.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, eq)
}

func (ec *EquipmentController) List(c *gin.Context) {
	q := db.EquipmentQuery{Q: c.Query("q"), Status: c.Query("status")}
	q.Page, q.Size = pageQuery(c)
	if v := c.Query("typeId"); v != "" {
		n, _ := strconv.ParseUint(v, 10, 64)
		q.TypeID = uint(n)
	}
	res, err := ec.Repo.ListEquipment(c.Request.Context(), app.TenantID(c), q)
	if err != nil {
		ec.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
