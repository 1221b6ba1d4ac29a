package services

import (
	"context"

	"soracom-harvest/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// SoracomAPI is the subset of the SORACOM API the harvest pipeline needs.
type SoracomAPI interface {
	Authenticate(ctx context.Context, creds models.Credentials) (*models.Session, error)
	ListSubscribers(ctx context.Context, session *models.Session) ([]models.Subscriber, error)
	GetSubscriberData(ctx context.Context, session *models.Session, imsi string) ([]models.TelemetryRecord, error)
}

// HarvestService downloads and decodes the Harvest data of every subscriber.
type HarvestService struct {
	api        SoracomAPI
	logContext logrus.FieldLogger
}

func NewHarvestService(api SoracomAPI, logger logrus.FieldLogger) *HarvestService {
	return &HarvestService{
		api:        api,
		logContext: logger.WithField("context", "harvest"),
	}
}

// Run authenticates, lists the subscribers and fetches each subscriber's
// data concurrently. The result keeps the subscriber order. If any fetch or
// decode fails, Run waits for the remaining fetches and returns the first
// error without a result.
func (h *HarvestService) Run(ctx context.Context, creds models.Credentials) (models.ResultSet, error) {
	logContext := h.logContext.WithFields(logrus.Fields{
		"method": "Run",
		"run_id": uuid.New().String(),
	})

	if creds.AuthKeyID == "" || creds.AuthKey == "" {
		return nil, &MissingCredentialsError{AuthKeyID: creds.AuthKeyID, AuthKey: creds.AuthKey}
	}

	session, err := h.api.Authenticate(ctx, creds)
	if err != nil {
		return nil, err
	}

	subscribers, err := h.api.ListSubscribers(ctx, session)
	if err != nil {
		return nil, err
	}
	logContext.WithField("subscribers", len(subscribers)).Info("fetching subscriber data")

	result := make(models.ResultSet, len(subscribers))
	var g errgroup.Group
	for i, sub := range subscribers {
		g.Go(func() error {
			imsi := sub.IMSI()
			records, err := h.api.GetSubscriberData(ctx, session, imsi)
			if err != nil {
				logContext.WithFields(logrus.Fields{
					"imsi":  imsi,
					"error": err,
				}).Warn("failed to fetch subscriber data")
				return err
			}
			decoded, err := DecodeRecords(records)
			if err != nil {
				logContext.WithFields(logrus.Fields{
					"imsi":  imsi,
					"error": err,
				}).Warn("failed to decode subscriber data")
				return err
			}
			result[i] = decoded
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logContext.WithField("records", countRecords(result)).Info("harvest complete")
	return result, nil
}

func countRecords(result models.ResultSet) int {
	n := 0
	for _, records := range result {
		n += len(records)
	}
	return n
}
