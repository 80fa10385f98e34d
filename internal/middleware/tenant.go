package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medrefer/referral-api/internal/handler"
	"github.com/medrefer/referral-api/internal/service/hospital"
	"github.com/medrefer/referral-api/pkg/errors"
)

const HeaderXHospital = "X-Hospital"

// TenantMiddleware resolves the acting hospital from the X-Hospital
// subdomain header. Resolution goes through the hospital service, which
// caches lookups.
type TenantMiddleware struct {
	hospitals *hospital.Service
}

func NewTenantMiddleware(hospitals *hospital.Service) *TenantMiddleware {
	return &TenantMiddleware{hospitals: hospitals}
}

// Resolve sets tenant info in context when the header is present.
// Unknown or inactive hospitals are rejected; a missing header is
// allowed so that superadmin tooling can operate across tenants.
func (m *TenantMiddleware) Resolve() gin.HandlerFunc {
	return func(c *gin.Context) {
		subdomain := c.GetHeader(HeaderXHospital)
		if subdomain == "" {
			c.Next()
			return
		}

		h, err := m.hospitals.GetBySubdomain(c.Request.Context(), subdomain)
		if err != nil {
			if errors.IsNotFound(err) {
				c.JSON(http.StatusNotFound, handler.NewErrorResponse("unknown hospital"))
			} else {
				c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to resolve hospital"))
			}
			c.Abort()
			return
		}
		if !h.IsActive {
			c.JSON(http.StatusForbidden, handler.NewErrorResponse("hospital is inactive"))
			c.Abort()
			return
		}

		c.Set("tenantID", h.ID.String())
		c.Set("tenantName", h.Name)
		c.Next()
	}
}
