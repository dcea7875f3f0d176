package core

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/shipbatch/internal/address"
	"github.com/JonMunkholm/shipbatch/internal/logging"
	"golang.org/x/sync/errgroup"
)

// unavailableMessage is recorded on rows whose validation could not run.
const unavailableMessage = "Validation service unavailable"

// ValidateAddress validates one address through the provider chain.
func (s *Service) ValidateAddress(ctx context.Context, a address.Address) address.Result {
	res := s.validator.Validate(ctx, a)
	logging.FromContext(ctx).Info("address validation result",
		"status", res.Status,
		"provider", res.Provider,
		"message_count", len(res.Messages),
	)
	return res
}

// ValidationSummary is the outcome of validating every row of a batch.
type ValidationSummary struct {
	BatchID   string `json:"batchId"`
	TotalRows int    `json:"totalRows"`
	Valid     int    `json:"valid"`
	Warning   int    `json:"warning"`
	Invalid   int    `json:"invalid"`
	Rows      []Row  `json:"rows"`
}

// ValidateBatch validates every row's recipient and marks the batch
// validated. Rows are validated concurrently by a bounded pool of workers;
// each worker writes only its own result slot, and the counts are derived
// once every row has finished. A row whose validation panics is recorded
// as a warning and does not stop the others.
func (s *Service) ValidateBatch(ctx context.Context, batchID string) (*ValidationSummary, error) {
	ctx = logging.WithBatch(ctx, batchID)
	log := logging.FromContext(ctx)

	b, err := s.withBatch(ctx, batchID, func(b *Batch) error {
		if err := s.checkEditable(ctx, b); err != nil {
			return err
		}
		log.Info("starting batch address validation", "rows", len(b.Rows), "workers", s.workers)

		results := make([]address.Result, len(b.Rows))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.workers)
		for i := range b.Rows {
			recipient := b.Rows[i].Recipient
			rowNumber := b.Rows[i].RowNumber
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i] = s.validateRow(gctx, recipient, rowNumber)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("validate batch %s: %w", batchID, err)
		}

		now := s.now()
		for i := range b.Rows {
			res := results[i]
			v := Validation{
				Status:      res.Status,
				Messages:    res.Messages,
				ValidatedAt: &now,
			}
			if v.Messages == nil {
				v.Messages = []string{}
			}
			if res.Status != address.StatusInvalid {
				v.SuggestedAddress = res.SuggestedAddress
			}
			b.Rows[i].Validation = v
		}
		b.Status = StatusValidated
		return nil
	})
	if err != nil {
		return nil, err
	}

	sum := &ValidationSummary{
		BatchID:   b.BatchID,
		TotalRows: b.Stats.TotalRows,
		Valid:     b.Stats.ValidRows,
		Warning:   b.Stats.WarningRows,
		Invalid:   b.Stats.InvalidRows,
		Rows:      b.Rows,
	}
	log.Info("batch validation complete",
		"valid", sum.Valid,
		"warning", sum.Warning,
		"invalid", sum.Invalid,
	)
	return sum, nil
}

// validateRow runs the validator for one row, converting a panic into the
// unavailable warning.
func (s *Service) validateRow(ctx context.Context, a address.Address, rowNumber int) (res address.Result) {
	defer func() {
		if r := recover(); r != nil {
			logging.FromContext(ctx).Error("row validation failed",
				"row", rowNumber,
				"error", fmt.Sprint(r),
			)
			res = address.Result{
				Status:   address.StatusWarning,
				Messages: []string{unavailableMessage},
			}
		}
	}()
	return s.validator.Validate(ctx, a)
}
