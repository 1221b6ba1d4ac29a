package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"soracom-harvest/internal/config"
	"soracom-harvest/internal/models"

	"github.com/sirupsen/logrus"
)

const (
	headerAPIKey = "X-Soracom-API-Key"
	headerToken  = "X-Soracom-Token"
)

// SoracomService talks to the SORACOM API.
type SoracomService struct {
	config     config.SoracomConfig
	api        *APIClient
	logContext logrus.FieldLogger
}

func NewSoracomService(cfg config.SoracomConfig, logger logrus.FieldLogger) *SoracomService {
	client := &http.Client{}
	if cfg.HTTPTimeout > 0 {
		client.Timeout = cfg.HTTPTimeout
	}

	logContext := logger.WithFields(logrus.Fields{
		"context": "soracom",
		"api_url": cfg.APIURL,
	})
	return &SoracomService{
		config:     cfg,
		api:        NewAPIClient(client, logContext),
		logContext: logContext,
	}
}

// Authenticate exchanges the auth key pair for an API key and token.
func (s *SoracomService) Authenticate(ctx context.Context, creds models.Credentials) (*models.Session, error) {
	logContext := s.logContext.WithFields(logrus.Fields{
		"method":      "Authenticate",
		"auth_key_id": creds.AuthKeyID,
	})

	authURL := fmt.Sprintf("%s/auth", s.config.APIURL)

	var response models.AuthResponse
	err := s.api.Do(ctx, http.MethodPost, authURL, nil, creds, &response)
	if err != nil {
		var statusErr *HTTPStatusError
		if errors.As(err, &statusErr) {
			logContext.WithField("status", statusErr.StatusCode).Error("credentials rejected")
			return nil, &AuthenticationError{Err: statusErr}
		}
		logContext.WithField("error", err).Error("failed to authenticate")
		return nil, err
	}

	logContext.WithField("operator_id", response.OperatorID).Debug("authenticated")
	return &models.Session{
		APIKey:     response.APIKey,
		Token:      response.Token,
		OperatorID: response.OperatorID,
	}, nil
}

// ListSubscribers retrieves every subscriber visible to the session.
func (s *SoracomService) ListSubscribers(ctx context.Context, session *models.Session) ([]models.Subscriber, error) {
	subscribersURL := fmt.Sprintf("%s/subscribers", s.config.APIURL)

	var subscribers []models.Subscriber
	if err := s.api.Do(ctx, http.MethodGet, subscribersURL, authHeaders(session), nil, &subscribers); err != nil {
		return nil, err
	}

	s.logContext.WithFields(logrus.Fields{
		"method": "ListSubscribers",
		"count":  len(subscribers),
	}).Debug("listed subscribers")
	return subscribers, nil
}

// GetSubscriberData retrieves the Harvest data entries stored for one IMSI.
func (s *SoracomService) GetSubscriberData(ctx context.Context, session *models.Session, imsi string) ([]models.TelemetryRecord, error) {
	dataURL := fmt.Sprintf("%s/subscribers/%s/data", s.config.APIURL, url.PathEscape(imsi))

	var records []models.TelemetryRecord
	if err := s.api.Do(ctx, http.MethodGet, dataURL, authHeaders(session), nil, &records); err != nil {
		return nil, err
	}

	s.logContext.WithFields(logrus.Fields{
		"method": "GetSubscriberData",
		"imsi":   imsi,
		"count":  len(records),
	}).Debug("fetched subscriber data")
	return records, nil
}

func authHeaders(session *models.Session) map[string]string {
	return map[string]string{
		headerAPIKey: session.APIKey,
		headerToken:  session.Token,
	}
}
