// app/tenantmw.go
package app

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const TenantHeader = "X-Tenant-ID"

// TenantRequired resolves the tenant for the request. Authentication and
// request routing live in the layer above; the service only needs to know
// which tenant's rows it is allowed to touch.
func TenantRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenant := strings.TrimSpace(c.GetHeader(TenantHeader))
		if tenant == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, H{"error": "missing " + TenantHeader + " header"})
			return
		}
		c.Set("tenantID", tenant)
		c.Next()
	}
}

// TenantID reads the tenant resolved by TenantRequired.
func TenantID(c *gin.Context) string {
	v, _ := c.Get("tenantID")
	s, _ := v.(string)
	return s
}
