// controllers/kit_controller.go
package controllers

import (
	"net/http"
	"strconv"

	"kitshed/app"
	"kitshed/db"

	"github.com/gin-gonic/gin"
)

type KitController struct{ *Srv }

func NewKitController(s *Srv) *KitController { return &KitController{Srv: s} }

type createKitReq struct {
	TemplateID   *uint  `json:"templateId,omitempty"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Location     string `json:"location"`
	EquipmentIDs []uint `json:"equipmentIds" binding:"required"`
}

func (kc *KitController) Create(c *gin.Context) {
	var req createKitReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	in := db.CreateKitInput{
		Name:         req.Name,
		Description:  req.Description,
		Location:     req.Location,
		EquipmentIDs: req.EquipmentIDs,
	}
	tenant := app.TenantID(c)
	var err error
	var kit any
	if req.TemplateID != nil {
		kit, err = kc.Repo.CreateKitFromTemplate(c.Request.Context(), tenant, *req.TemplateID, in)
	} else {
		kit, err = kc.Repo.CreateAdHocKit(c.Request.Context(), tenant, in)
	}
	if err != nil {
		kc.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, kit)
}

func (kc *KitController) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	kit, err := kc.Repo.GetKit(c.Request.Context(), app.TenantID(c), id)
	if err != nil {
		kc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, kit)
}

func (kc *KitController) List(c *gin.Context) {
	q := db.KitQuery{Q: c.Query("q"), Status: c.Query("status")}
	q.Page, q.Size = pageQuery(c)
	switch c.Query("needsMaintenance") {
	case "true":
		v := true
		q.NeedsMaintenance = &v
	case "false":
		v := false
		q.NeedsMaintenance = &v
	}
	res, err := kc.Repo.ListKits(c.Request.Context(), app.TenantID(c), q)
	if err != nil {
		kc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (kc *KitController) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := kc.Repo.DeleteKit(c.Request.Context(), app.TenantID(c), id); err != nil {
		kc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

func (kc *KitController) AddItem(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in struct {
		EquipmentID uint `json:"equipmentId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	item, err := kc.Repo.AddKitItem(c.Request.Context(), app.TenantID(c), id, in.EquipmentID)
	if err != nil {
		kc.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (kc *KitController) RemoveItem(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := idParam(c, "itemId")
	if !ok {
		return
	}
	if err := kc.Repo.RemoveKitItem(c.Request.Context(), app.TenantID(c), id, itemID); err != nil {
		kc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

func (kc *KitController) SwapItem(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := idParam(c, "itemId")
	if !ok {
		return
	}
	var in struct {
		EquipmentID uint `json:"equipmentId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	item, err := kc.Repo.SwapKitItem(c.Request.Context(), app.TenantID(c), id, itemID, in.EquipmentID)
	if err != nil {
		kc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (kc *KitController) Reorder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in struct {
		ItemIDs []uint `json:"itemIds" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	if err := kc.Repo.ReorderKitItems(c.Request.Context(), app.TenantID(c), id, in.ItemIDs); err != nil {
		kc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

func (kc *KitController) Completeness(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	tenant := app.TenantID(c)
	complete, err := kc.Repo.ValidateCompleteness(c.Request.Context(), tenant, id)
	if err != nil {
		kc.fail(c, err)
		return
	}
	missing, err := kc.Repo.MissingTemplateItems(c.Request.Context(), tenant, id)
	if err != nil {
		kc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"complete": complete, "missing": missing})
}

func (kc *KitController) FlagItem(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := idParam(c, "itemId")
	if !ok {
		return
	}
	var in struct {
		Note string `json:"note"`
	}
	_ = c.ShouldBindJSON(&in)
	if err := kc.Repo.FlagItemForMaintenance(c.Request.Context(), app.TenantID(c), id, itemID, in.Note); err != nil {
		kc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

func (kc *KitController) ClearItemFlag(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := idParam(c, "itemId")
	if !ok {
		return
	}
	if err := kc.Repo.ClearMaintenanceFlag(c.Request.Context(), app.TenantID(c), id, itemID); err != nil {
		kc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

func (kc *KitController) CurrentCheckout(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	co, err := kc.Repo.GetCurrentCheckout(c.Request.Context(), app.TenantID(c), id)
	if err != nil {
		kc.fail(c, err)
		return
	}
	if co == nil {
		c.JSON(http.StatusOK, app.H{"checkout": nil})
		return
	}
	c.JSON(http.StatusOK, app.H{"checkout": co})
}

// AvailableEquipment lists equipment free to put into a kit, optionally
// narrowed to a template's required types.
func (kc *KitController) AvailableEquipment(c *gin.Context) {
	var templateID *uint
	if v := c.Query("templateId"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil || n == 0 {
			c.JSON(http.StatusBadRequest, app.H{"error": "invalid templateId"})
			return
		}
		id := uint(n)
		templateID = &id
	}
	rows, err := kc.Repo.AvailableEquipmentForKit(c.Request.Context(), app.TenantID(c), templateID)
	if err != nil {
		kc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"equipment": rows})
}
