package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"dxbdata/server/internal/models"
)

// DefaultScanLookback bounds the first scan of an alert that has no
// watermark yet, so a fresh alert does not replay the whole ledger.
const DefaultScanLookback = 24 * time.Hour

// RecordStore is the read-only query interface over the transaction
// ledger. Implementations must return records strictly newer than
// the given time, pre-filtered by the criteria where convenient; the
// scanner re-checks every record against the matcher regardless.
type RecordStore interface {
	TransactionsAfter(ctx context.Context, after time.Time, f Filter) ([]models.Transaction, error)
}

// AlertStore exposes the active alerts and owns watermark persistence.
type AlertStore interface {
	ListActive(ctx context.Context) ([]models.Alert, error)
	AdvanceWatermark(ctx context.Context, alertID uint, scannedAt time.Time) error
}

// TriggerLedger is the append-only record of fired (alert, record)
// pairs. At most one entry may exist per pair.
type TriggerLedger interface {
	Exists(ctx context.Context, alertID, transactionID uint) (bool, error)
	Append(ctx context.Context, alertID, transactionID uint, at time.Time) error
}

// Notifier delivers a message to a subscriber, best effort. Delivery
// failure never rolls back a ledger write.
type Notifier interface {
	Notify(subscriberID, message string) error
}

// ScanSummary reports what a scan pass did. Failures are scoped: a
// failed alert leaves its watermark untouched and does not stop the
// other alerts.
type ScanSummary struct {
	RunID        string    `json:"run_id"`
	StartedAt    time.Time `json:"started_at"`
	Alerts       int       `json:"alerts"`
	Matched      int       `json:"matched"`
	Deduplicated int       `json:"deduplicated"`
	FailedAlerts int       `json:"failed_alerts"`
	RecordErrors int       `json:"record_errors"`
}

// Scanner incrementally matches new ledger records against active
// alerts. Each alert's watermark is a single-writer value: it is read
// at the start of the alert's scan and advanced exactly once, after
// all matches have been processed, and only if the record query itself
// succeeded. Cancellation mid-alert leaves the watermark where it was,
// so a retry from the same watermark is safe; the trigger ledger
// deduplicates any records that were already appended.
type Scanner struct {
	records  RecordStore
	alerts   AlertStore
	ledger   TriggerLedger
	notifier Notifier
	logger   *logrus.Logger
}

// NewScanner creates a scanner. The notifier may be nil, in which case
// matches are recorded but nothing is sent.
func NewScanner(records RecordStore, alerts AlertStore, ledger TriggerLedger, notifier Notifier, logger *logrus.Logger) *Scanner {
	if logger == nil {
		logger = logrus.New()
	}
	return &Scanner{
		records:  records,
		alerts:   alerts,
		ledger:   ledger,
		notifier: notifier,
		logger:   logger,
	}
}

// ScanAll runs one scan pass over every active alert. It returns an
// error only when the alert list itself cannot be fetched or the
// context is cancelled; per-alert failures are counted in the summary.
func (s *Scanner) ScanAll(ctx context.Context) (ScanSummary, error) {
	summary := ScanSummary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}

	alerts, err := s.alerts.ListActive(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to list active alerts: %w", err)
	}
	summary.Alerts = len(alerts)

	log := s.logger.WithField("run_id", summary.RunID)
	log.WithField("alerts", len(alerts)).Info("Starting alert scan pass")

	for i := range alerts {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		matched, deduped, recordErrs, err := s.scanAlert(ctx, &alerts[i])
		summary.Matched += matched
		summary.Deduplicated += deduped
		summary.RecordErrors += recordErrs
		if err != nil {
			if ctx.Err() != nil {
				return summary, err
			}
			summary.FailedAlerts++
			log.WithError(err).WithField("alert_id", alerts[i].ID).Error("Alert scan failed, watermark not advanced")
		}
	}

	log.WithFields(logrus.Fields{
		"matched":       summary.Matched,
		"deduplicated":  summary.Deduplicated,
		"failed_alerts": summary.FailedAlerts,
		"record_errors": summary.RecordErrors,
	}).Info("Alert scan pass complete")

	return summary, nil
}

// scanAlert scans one alert from its watermark and advances the
// watermark on success. Record-level failures are tolerated: the
// watermark still advances, and the unique index on the trigger ledger
// guarantees no duplicate entry if the same record fires again later.
func (s *Scanner) scanAlert(ctx context.Context, alert *models.Alert) (matched, deduped, recordErrs int, err error) {
	scanStart := time.Now()

	watermark := scanStart.Add(-DefaultScanLookback)
	if alert.LastScannedAt != nil {
		watermark = *alert.LastScannedAt
	}

	txs, err := s.records.TransactionsAfter(ctx, watermark, FilterFromAlert(alert))
	if err != nil {
		return 0, 0, 0, fmt.Errorf("record query failed for alert %d: %w", alert.ID, err)
	}

	for i := range txs {
		if err := ctx.Err(); err != nil {
			return matched, deduped, recordErrs, err
		}

		tx := &txs[i]
		if !AlertMatches(alert, tx) {
			continue
		}

		exists, err := s.ledger.Exists(ctx, alert.ID, tx.ID)
		if err != nil {
			recordErrs++
			s.logger.WithError(err).WithFields(logrus.Fields{
				"alert_id":       alert.ID,
				"transaction_id": tx.ID,
			}).Error("Trigger lookup failed, skipping record")
			continue
		}
		if exists {
			deduped++
			continue
		}

		if err := s.ledger.Append(ctx, alert.ID, tx.ID, scanStart); err != nil {
			recordErrs++
			s.logger.WithError(err).WithFields(logrus.Fields{
				"alert_id":       alert.ID,
				"transaction_id": tx.ID,
			}).Error("Trigger append failed, skipping record")
			continue
		}
		matched++

		if s.notifier != nil {
			if err := s.notifier.Notify(alert.SubscriberID, formatAlertMessage(alert, tx)); err != nil {
				s.logger.WithError(err).WithField("alert_id", alert.ID).Warn("Notification delivery failed")
			}
		}
	}

	if err := s.alerts.AdvanceWatermark(ctx, alert.ID, scanStart); err != nil {
		return matched, deduped, recordErrs, fmt.Errorf("failed to advance watermark for alert %d: %w", alert.ID, err)
	}
	return matched, deduped, recordErrs, nil
}

func formatAlertMessage(alert *models.Alert, tx *models.Transaction) string {
	msg := fmt.Sprintf("🔔 <b>Alert matched</b>\n%s", tx.AreaName)
	if tx.BuildingName != "" {
		msg += fmt.Sprintf("\n🏢 %s", tx.BuildingName)
	}
	msg += fmt.Sprintf("\n💰 %.0f", tx.Worth)
	if p := tx.UnitPrice(); p > 0 {
		msg += fmt.Sprintf(" (%.0f/m²)", p)
	}
	if alert.Threshold != nil {
		msg += fmt.Sprintf("\nRule: %s %.0f", alert.AlertType, *alert.Threshold)
	}
	msg += fmt.Sprintf("\n📅 %s", tx.InstanceDate.Format("2006-01-02"))
	return msg
}
