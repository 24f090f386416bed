package points

import (
	"context"
	"fmt"
	"time"

	"github.com/school-portal/portal-backend/internal/models"
	"github.com/school-portal/portal-backend/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const reconcileBatchSize = 200

// Mismatch describes an account whose balance disagrees with its ledger.
type Mismatch struct {
	StudentID uint64 `json:"student_id"`
	Balance   int64  `json:"balance"`
	LedgerSum int64  `json:"ledger_sum"`

	// BrokenEntryID is the first entry whose balance_after does not match the running sum, or 0.
	BrokenEntryID uint64 `json:"broken_entry_id,omitempty"`
	// LastBalanceAfter is the balance_after of the newest entry, or 0 without entries.
	LastBalanceAfter int64 `json:"last_balance_after"`
}

// Reconcile checks one account against its ledger. It returns nil when they agree.
// The balance and the entries are read under the account lock, so writes in flight never
// show up as a mismatch.
func (s *Service) Reconcile(ctx context.Context, studentID uint64) (*Mismatch, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	release, errLock := s.lock(ctx, accountKey(studentID))
	if errLock != nil {
		return nil, errLock
	}
	defer release()

	var mismatch *Mismatch
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, errAccount := loadAccount(tx, studentID, clause.LockingStrengthShare)
		if errAccount != nil {
			return errAccount
		}
		var errAudit error
		mismatch, errAudit = auditAccount(tx, account)
		return errAudit
	})
	if errTx != nil {
		return nil, errTx
	}
	return mismatch, nil
}

func auditAccount(tx *gorm.DB, account *models.Account) (*Mismatch, error) {
	var entries []models.LedgerEntry
	if errFind := tx.
		Select("id", "amount", "balance_after").
		Where("student_id = ?", account.StudentID).
		Order("id ASC").
		Find(&entries).Error; errFind != nil {
		return nil, fmt.Errorf("points: load ledger for audit: %w", errFind)
	}

	var (
		running int64
		broken  uint64
		last    int64
	)
	for _, entry := range entries {
		running += entry.Amount
		if broken == 0 && entry.BalanceAfter != running {
			broken = entry.ID
		}
		last = entry.BalanceAfter
	}
	if running == account.Balance && last == account.Balance && broken == 0 {
		return nil, nil
	}
	return &Mismatch{
		StudentID:        account.StudentID,
		Balance:          account.Balance,
		LedgerSum:        running,
		BrokenEntryID:    broken,
		LastBalanceAfter: last,
	}, nil
}

// ReconcileAll checks every account and returns the ones that disagree with the ledger.
// The batch scan only yields student ids; each account is re-read by Reconcile.
func (s *Service) ReconcileAll(ctx context.Context) ([]Mismatch, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var (
		mismatches []Mismatch
		batch      []models.Account
		errAudit   error
	)
	res := s.db.WithContext(ctx).
		Select("id", "student_id").
		Order("id ASC").
		FindInBatches(&batch, reconcileBatchSize, func(tx *gorm.DB, _ int) error {
			for i := range batch {
				if errCtx := ctx.Err(); errCtx != nil {
					return errCtx
				}
				mismatch, errReconcile := s.Reconcile(ctx, batch[i].StudentID)
				if errReconcile != nil {
					errAudit = errReconcile
					return errReconcile
				}
				if mismatch != nil {
					mismatches = append(mismatches, *mismatch)
				}
			}
			return nil
		})
	if errAudit != nil {
		return nil, errAudit
	}
	if res.Error != nil {
		return nil, fmt.Errorf("points: scan accounts: %w", res.Error)
	}
	return mismatches, nil
}

const defaultAuditInterval = time.Hour

// Auditor periodically reconciles every account and reports mismatches. It never writes.
type Auditor struct {
	svc      *Service
	interval time.Duration
}

// NewAuditor builds an Auditor. A non-positive interval falls back to the
// LEDGER_AUDIT_INTERVAL_SECONDS setting, then to one hour.
func NewAuditor(svc *Service, interval time.Duration) *Auditor {
	if svc == nil {
		return nil
	}
	return &Auditor{svc: svc, interval: interval}
}

// Start launches the audit loop in a background goroutine.
func (a *Auditor) Start(ctx context.Context) {
	if a == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go a.run(ctx)
	log.Infof("ledger auditor started (interval=%s)", a.currentInterval())
}

func (a *Auditor) currentInterval() time.Duration {
	if a.interval > 0 {
		return a.interval
	}
	seconds := settings.Int64(settings.LedgerAuditIntervalSecondsKey, settings.DefaultLedgerAuditIntervalSeconds)
	if seconds <= 0 {
		return defaultAuditInterval
	}
	return time.Duration(seconds) * time.Second
}

func (a *Auditor) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		a.AuditOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		timer := time.NewTimer(a.currentInterval())
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		}
	}
}

// AuditOnce runs one reconciliation pass and returns the mismatches found.
func (a *Auditor) AuditOnce(ctx context.Context) []Mismatch {
	if a == nil || a.svc == nil {
		return nil
	}
	start := time.Now()
	mismatches, errAudit := a.svc.ReconcileAll(ctx)
	if errAudit != nil {
		if ctx.Err() == nil {
			log.WithError(errAudit).Warn("ledger audit failed")
		}
		return nil
	}
	a.svc.metrics.SetMismatchedAccounts(len(mismatches))
	for _, m := range mismatches {
		log.WithFields(log.Fields{
			"student_id":      m.StudentID,
			"balance":         m.Balance,
			"ledger_sum":      m.LedgerSum,
			"broken_entry_id": m.BrokenEntryID,
		}).Error("ledger audit: balance does not match ledger")
	}
	log.Debugf("ledger audit finished: %d mismatches in %s", len(mismatches), time.Since(start))
	return mismatches
}
