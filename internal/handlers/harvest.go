package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"soracom-harvest/internal/models"
	"soracom-harvest/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Harvester runs the harvest pipeline for one credential pair.
type Harvester interface {
	Run(ctx context.Context, creds models.Credentials) (models.ResultSet, error)
}

type HarvestHandler struct {
	harvester  Harvester
	defaults   models.Credentials
	logContext logrus.FieldLogger
}

type HarvestRequest struct {
	AuthKeyID string `json:"authKeyId"`
	AuthKey   string `json:"authKey"`
}

// NewHarvestHandler creates a handler. defaults is used when a request
// carries no credentials of its own.
func NewHarvestHandler(harvester Harvester, defaults models.Credentials, logger logrus.FieldLogger) *HarvestHandler {
	return &HarvestHandler{
		harvester:  harvester,
		defaults:   defaults,
		logContext: logger.WithField("context", "harvest-handler"),
	}
}

// Harvest godoc
// @Summary Download Harvest data
// @Description Authenticate against SORACOM, list subscribers and return every subscriber's decoded Harvest data
// @Tags Harvest
// @Accept json
// @Produce json
// @Param credentials body HarvestRequest false "SAM user auth key; server credentials are used when omitted"
// @Success 200 {array} []models.TelemetryRecord "Decoded records, one list per subscriber"
// @Failure 400 {object} map[string]interface{} "Missing credentials"
// @Failure 401 {object} map[string]interface{} "Credentials rejected by SORACOM"
// @Failure 422 {object} map[string]interface{} "Malformed payload"
// @Failure 502 {object} map[string]interface{} "SORACOM API failure"
// @Security Bearer
// @Router /harvest [post]
func (h *HarvestHandler) Harvest(c *gin.Context) {
	var req HarvestRequest
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	creds := models.Credentials{AuthKeyID: req.AuthKeyID, AuthKey: req.AuthKey}
	if creds.AuthKeyID == "" && creds.AuthKey == "" {
		creds = h.defaults
	}

	result, err := h.harvester.Run(c.Request.Context(), creds)
	if err != nil {
		status := statusFor(err)
		h.logContext.WithFields(logrus.Fields{
			"method":     "Harvest",
			"request_id": c.GetString("request_id"),
			"status":     status,
			"error":      err,
		}).Error("harvest failed")
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func statusFor(err error) int {
	var (
		missing   *services.MissingCredentialsError
		authErr   *services.AuthenticationError
		malformed *services.MalformedPayloadError
	)
	switch {
	case errors.As(err, &missing):
		return http.StatusBadRequest
	case errors.As(err, &authErr):
		return http.StatusUnauthorized
	case errors.As(err, &malformed):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}
