package referral

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medrefer/referral-api/internal/handler"
	"github.com/medrefer/referral-api/internal/model"
	"github.com/medrefer/referral-api/internal/service/audit"
	"github.com/medrefer/referral-api/internal/service/referral"
	"github.com/medrefer/referral-api/pkg/errors"
	"github.com/medrefer/referral-api/pkg/httputil"
)

type Handler struct {
	service *referral.Service
	auditor *audit.Service
}

func NewHandler(service *referral.Service, auditor *audit.Service) *Handler {
	return &Handler{service: service, auditor: auditor}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	referrals := r.Group("/referrals")
	{
		referrals.POST("", h.CreateReferral)
		referrals.GET("/:id", h.GetReferral)
		referrals.PATCH("/:id/status", h.UpdateStatus)
		referrals.DELETE("/:id", h.DeleteReferral)
		referrals.GET("/:id/audit", h.ReferralAuditTrail)
		referrals.GET("/code/:code", h.GetReferralByCode)
		referrals.GET("/patient/:mrn", h.ListPatientReferrals)
		referrals.GET("/patient/:mrn/stats", h.PatientStats)
		referrals.GET("/hospital/:hospitalId", h.ListHospitalReferrals)
		referrals.GET("/hospital/:hospitalId/stats", h.HospitalStats)
	}
}

func (h *Handler) CreateReferral(c *gin.Context) {
	var req model.CreateReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
		return
	}
	referringID, err := uuid.Parse(req.ReferringID)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid referring hospital ID"))
		return
	}
	receivingID, err := uuid.Parse(req.ReceivingID)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid receiving hospital ID"))
		return
	}

	rec := &model.Referral{
		PatientID:         patientID,
		MedicalID:         req.MedicalID,
		PatientName:       req.PatientName,
		ReferringID:       referringID,
		ReferringName:     req.ReferringName,
		ReceivingID:       receivingID,
		ReceivingName:     req.ReceivingName,
		Priority:          model.ReferralPriority(req.Priority),
		Status:            model.ReferralStatusPending,
		Reason:            req.Reason,
		Notes:             req.Notes,
		AmbulanceRequired: req.AmbulanceRequired,
	}

	rec, err = h.service.Create(c.Request.Context(), rec)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(rec))
}

func (h *Handler) GetReferral(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid referral ID"))
		return
	}

	rec, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(rec))
}

func (h *Handler) GetReferralByCode(c *gin.Context) {
	rec, err := h.service.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(rec))
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid referral ID"))
		return
	}

	var req model.UpdateReferralStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	rec, err := h.service.UpdateStatus(c.Request.Context(), id, model.ReferralStatus(req.Status), req.UpdatedBy)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(rec))
}

func (h *Handler) DeleteReferral(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid referral ID"))
		return
	}

	actor := c.GetString("userEmail")
	deleted, err := h.service.Delete(c.Request.Context(), id, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if !deleted {
		httputil.RespondWithError(c, errors.NotFound("referral", nil))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"deleted": true}))
}

// ReferralAuditTrail returns the audit entries recorded for a referral,
// most recent first. This is the cross-entity log; the referral record
// itself carries the status history inline.
func (h *Handler) ReferralAuditTrail(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid referral ID"))
		return
	}

	entries, err := h.auditor.List(c.Request.Context(), "referral", id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if entries == nil {
		entries = []*model.AuditLog{}
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(entries))
}

// ListPatientReferrals renders an unknown medical ID as an empty list;
// only a malformed ID is an error.
func (h *Handler) ListPatientReferrals(c *gin.Context) {
	referrals, err := h.service.ListByMedicalID(c.Request.Context(), c.Param("mrn"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if referrals == nil {
		referrals = []*model.Referral{}
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(referrals))
}

func (h *Handler) PatientStats(c *gin.Context) {
	stats, err := h.service.PatientStats(c.Request.Context(), c.Param("mrn"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(stats))
}

func (h *Handler) ListHospitalReferrals(c *gin.Context) {
	id, err := uuid.Parse(c.Param("hospitalId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid hospital ID"))
		return
	}

	referrals, err := h.service.ListByHospital(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if referrals == nil {
		referrals = []*model.Referral{}
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(referrals))
}

func (h *Handler) HospitalStats(c *gin.Context) {
	id, err := uuid.Parse(c.Param("hospitalId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid hospital ID"))
		return
	}

	stats, err := h.service.HospitalStats(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(stats))
}
