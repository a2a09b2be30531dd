package workers

import (
	"context"
	"log"
	"time"

	"skillchain/models"
	"skillchain/services"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// ChainSyncWorker reconciles the local certificate mirror against the
// chain: revocations happen on the contract, so chain_valid can only be
// discovered by polling. Revocation is one-way, already-invalid rows are
// never re-checked.
type ChainSyncWorker struct {
	DB    *gorm.DB
	Chain services.ChainClient
}

func NewChainSyncWorker(db *gorm.DB, chain services.ChainClient) *ChainSyncWorker {
	return &ChainSyncWorker{DB: db, Chain: chain}
}

// Start schedules the periodic reconciliation. The returned scheduler keeps
// running until the process exits.
func (w *ChainSyncWorker) Start(interval time.Duration) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(w.syncOnce),
	)
	if err != nil {
		return err
	}

	sched.Start()
	log.Printf("✅ Chain sync worker running (every %s)", interval)
	return nil
}

func (w *ChainSyncWorker) syncOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var certificates []models.Certificate
	if err := w.DB.Where("chain_valid = ?", true).Find(&certificates).Error; err != nil {
		log.Printf("[ChainSync] DB error: %v", err)
		return
	}

	revoked := 0
	for _, cert := range certificates {
		valid, err := w.Chain.IsValid(ctx, cert.TokenID)
		if err != nil {
			log.Printf("[ChainSync] isValid failed for token %d: %v", cert.TokenID, err)
			continue
		}

		now := time.Now().UTC()
		updates := map[string]interface{}{
			"chain_valid":      valid,
			"chain_checked_at": now,
		}
		if err := w.DB.Model(&models.Certificate{}).
			Where("id = ?", cert.ID).
			Updates(updates).Error; err != nil {
			log.Printf("[ChainSync] Failed to update certificate %s: %v", cert.ID, err)
			continue
		}
		if !valid {
			revoked++
			log.Printf("[ChainSync] Token %d revoked on chain, mirror updated", cert.TokenID)
		}
	}

	if revoked > 0 {
		log.Printf("[ChainSync] Checked %d certificate(s), %d newly revoked", len(certificates), revoked)
	}
}
