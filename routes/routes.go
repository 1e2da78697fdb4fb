package routes

import (
	"kitshed/app"
	"kitshed/controllers"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	s := controllers.GetSrv(a)
	tplCtl := controllers.NewTemplateController(s)
	kitCtl := controllers.NewKitController(s)
	coCtl := controllers.NewCheckoutController(s)
	eqCtl := controllers.NewEquipmentController(s)

	tenantMW := app.TenantRequired()

	api := r.Group("/api", tenantMW)

	// ------------------------------
	// Kit templates
	// ------------------------------
	tpl := api.Group("/templates")
	{
		tpl.POST("", tplCtl.Create)
		tpl.GET("", tplCtl.List)
		tpl.GET("/:id", tplCtl.Get)
		tpl.POST("/:id/deactivate", tplCtl.Deactivate)
	}

	// ------------------------------
	// Kits and composition
	// ------------------------------
	kits := api.Group("/kits")
	{
		kits.POST("", kitCtl.Create)
		kits.GET("", kitCtl.List)
		kits.GET("/available-equipment", kitCtl.AvailableEquipment)
		kits.GET("/:id", kitCtl.Get)
		kits.DELETE("/:id", kitCtl.Delete)
		kits.POST("/:id/items", kitCtl.AddItem)
		kits.DELETE("/:id/items/:itemId", kitCtl.RemoveItem)
		kits.PUT("/:id/items/:itemId/swap", kitCtl.SwapItem)
		kits.PUT("/:id/items/reorder", kitCtl.Reorder)
		kits.GET("/:id/completeness", kitCtl.Completeness)
		kits.POST("/:id/items/:itemId/maintenance", kitCtl.FlagItem)
		kits.DELETE("/:id/items/:itemId/maintenance", kitCtl.ClearItemFlag)
		kits.GET("/:id/current-checkout", kitCtl.CurrentCheckout)
	}

	// ------------------------------
	// Checkout lifecycle
	// ------------------------------
	cos := api.Group("/checkouts")
	{
		cos.POST("", coCtl.Initiate)
		cos.GET("", coCtl.List)
		cos.GET("/:id", coCtl.Get)
		cos.GET("/:id/events", coCtl.Events)
		cos.POST("/:id/confirm", coCtl.Confirm)
		cos.POST("/:id/return/initiate", coCtl.InitiateReturn)
		cos.POST("/:id/return/confirm", coCtl.ConfirmReturn)
		cos.POST("/:id/return/partial", coCtl.PartialReturn)
		cos.POST("/:id/cancel", coCtl.Cancel)
		cos.POST("/:id/extend", coCtl.Extend)
		cos.POST("/:id/damage", coCtl.ReportDamage)
	}

	// ------------------------------
	// Equipment catalog (read side + seeding)
	// ------------------------------
	eq := api.Group("/equipment")
	{
		eq.POST("", eqCtl.Create)
		eq.GET("", eqCtl.List)
		eq.GET("/:id", eqCtl.Get)
	}
}
