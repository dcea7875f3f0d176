package core

import (
	"time"

	"github.com/JonMunkholm/shipbatch/internal/address"
	"github.com/JonMunkholm/shipbatch/internal/rates"
)

// Recompute derives Stats from the rows. Every operation that changes rows
// calls it before the batch is saved.
func (b *Batch) Recompute() {
	st := Stats{TotalRows: len(b.Rows)}
	var cost rates.Money
	for i := range b.Rows {
		r := &b.Rows[i]
		switch r.Validation.Status {
		case address.StatusValid:
			st.ValidRows++
		case address.StatusWarning:
			st.WarningRows++
		case address.StatusInvalid:
			st.InvalidRows++
		}
		st.TotalWeight += r.Package.Weight
		if r.Shipping.ServiceType.IsSet() && r.Shipping.Rate != nil {
			cost = cost.Add(*r.Shipping.Rate)
		}
	}
	st.EstimatedCost = cost
	b.Stats = st
}

// renumber assigns contiguous 1-based row numbers in slice order.
func (b *Batch) renumber() {
	for i := range b.Rows {
		b.Rows[i].RowNumber = i + 1
	}
}

// touch recomputes derived fields and stamps the modification time.
func (b *Batch) touch(now time.Time) {
	b.Recompute()
	b.LastModifiedAt = now
}

// blockingRows counts the rows that block purchase: invalid addresses or no
// selected service.
func (b *Batch) blockingRows() int {
	n := 0
	for i := range b.Rows {
		r := &b.Rows[i]
		if r.Validation.Status == address.StatusInvalid || !r.Shipping.ServiceType.IsSet() {
			n++
		}
	}
	return n
}

// editable rejects changes to purchased or cancelled batches.
func (b *Batch) editable() error {
	switch b.Status {
	case StatusPurchased:
		return ErrBatchPurchased
	case StatusCancelled:
		return ErrBatchCancelled
	}
	return nil
}
