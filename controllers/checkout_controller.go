// controllers/checkout_controller.go
package controllers

import (
	"net/http"
	"strconv"
	"time"

	"kitshed/app"
	"kitshed/db"

	"github.com/gin-gonic/gin"
)

type CheckoutController struct{ *Srv }

func NewCheckoutController(s *Srv) *CheckoutController { return &CheckoutController{Srv: s} }

func (cc *CheckoutController) Initiate(c *gin.Context) {
	var in db.InitiateCheckoutInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	co, err := cc.Repo.InitiateCheckout(c.Request.Context(), app.TenantID(c), in)
	if err != nil {
		cc.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, co)
}

type signatureReq struct {
	Signature string `json:"signature"`
}

func (cc *CheckoutController) Confirm(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in signatureReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	co, err := cc.Repo.ConfirmCheckout(c.Request.Context(), app.TenantID(c), id, in.Signature)
	if err != nil {
		cc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, co)
}

func (cc *CheckoutController) InitiateReturn(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in struct {
		Items []db.ReturnItemInput `json:"items"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	co, err := cc.Repo.InitiateReturn(c.Request.Context(), app.TenantID(c), id, in.Items)
	if err != nil {
		cc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, co)
}

func (cc *CheckoutController) ConfirmReturn(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in db.ConfirmReturnInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	co, err := cc.Repo.ConfirmReturn(c.Request.Context(), app.TenantID(c), id, in)
	if err != nil {
		cc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, co)
}

func (cc *CheckoutController) PartialReturn(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in db.PartialReturnInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	co, err := cc.Repo.PartialReturn(c.Request.Context(), app.TenantID(c), id, in)
	if err != nil {
		cc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, co)
}

func (cc *CheckoutController) Cancel(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in struct {
		Note string `json:"note"`
	}
	_ = c.ShouldBindJSON(&in)
	co, err := cc.Repo.CancelCheckout(c.Request.Context(), app.TenantID(c), id, in.Note)
	if err != nil {
		cc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, co)
}

func (cc *CheckoutController) Extend(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in struct {
		ExpectedReturnAt time.Time `json:"expectedReturnAt" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	co, err := cc.Repo.ExtendCheckout(c.Request.Context(), app.TenantID(c), id, in.ExpectedReturnAt)
	if err != nil {
		cc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, co)
}

func (cc *CheckoutController) ReportDamage(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in struct {
		KitItemID   uint   `json:"kitItemId" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	if err := cc.Repo.ReportDamage(c.Request.Context(), app.TenantID(c), id, in.KitItemID, in.Description); err != nil {
		cc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

func (cc *CheckoutController) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	co, err := cc.Repo.GetCheckout(c.Request.Context(), app.TenantID(c), id)
	if err != nil {
		cc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, co)
}

func (cc *CheckoutController) List(c *gin.Context) {
	q := db.CheckoutQuery{Status: c.Query("status")}
	q.Page, q.Size = pageQuery(c)
	if v := c.Query("kitId"); v != "" {
		n, _ := strconv.ParseUint(v, 10, 64)
		q.KitID = uint(n)
	}
	if v := c.Query("borrowerId"); v != "" {
		n, _ := strconv.ParseInt(v, 10, 64)
		q.BorrowerID = n
	}
	res, err := cc.Repo.ListCheckouts(c.Request.Context(), app.TenantID(c), q)
	if err != nil {
		cc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (cc *CheckoutController) Events(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	events, err := cc.Repo.ListCheckoutEvents(c.Request.Context(), app.TenantID(c), id)
	if err != nil {
		cc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"events": events})
}
