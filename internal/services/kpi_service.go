package services

import (
	"database/sql"
	"net/http"

	"github.com/truecost/backend/internal/models"
	"github.com/truecost/backend/internal/period"
)

// KpiService derives the bookkeeping-accuracy ratio: total adjustment
// magnitude over total utility-view expense for a month range.
type KpiService struct {
	db      *sql.DB
	reports *ReportService
}

func NewKpiService(db *sql.DB, reports *ReportService) *KpiService {
	return &KpiService{db: db, reports: reports}
}

// AdjustmentKpi computes the ratio over [fromPeriodYm, toPeriodYm];
// open bounds clamp to the journal's first and last months.
func (s *KpiService) AdjustmentKpi(fromPeriodYm, toPeriodYm *string) (*models.AdjustmentKpi, error) {
	from, to, ok, err := s.resolveRange(fromPeriodYm, toPeriodYm)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Empty journal and no explicit bounds: nothing to measure.
		return &models.AdjustmentKpi{}, nil
	}
	if from.After(to) {
		return nil, models.NewValidationError("fromPeriodYm must not be after toPeriodYm")
	}

	var adjustmentTotal int64
	err = s.db.QueryRow(`
		SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
		WHERE accrual_type = 'Adjustment'
		  AND substr(occurred_at, 1, 7) >= ? AND substr(occurred_at, 1, 7) <= ?`,
		from.String(), to.String()).Scan(&adjustmentTotal)
	if err != nil {
		return nil, err
	}

	var expenseTotal int64
	for m := from; !m.After(to); m = m.Next() {
		report, err := s.reports.Utility(m.String())
		if err != nil {
			return nil, err
		}
		expenseTotal += report.TotalExpenseCents
	}

	ratio := 0.0
	if expenseTotal > 0 {
		ratio = float64(adjustmentTotal) / float64(expenseTotal)
	}
	return &models.AdjustmentKpi{
		AdjustmentTotalCents: adjustmentTotal,
		ExpenseTotalCents:    expenseTotal,
		Ratio:                ratio,
	}, nil
}

func (s *KpiService) resolveRange(fromPeriodYm, toPeriodYm *string) (from, to period.Month, ok bool, err error) {
	if fromPeriodYm != nil {
		if from, err = period.Parse(*fromPeriodYm); err != nil {
			return from, to, false, models.NewValidationError("invalid fromPeriodYm: %s", *fromPeriodYm)
		}
	}
	if toPeriodYm != nil {
		if to, err = period.Parse(*toPeriodYm); err != nil {
			return from, to, false, models.NewValidationError("invalid toPeriodYm: %s", *toPeriodYm)
		}
	}
	if fromPeriodYm != nil && toPeriodYm != nil {
		return from, to, true, nil
	}

	var minYm, maxYm sql.NullString
	err = s.db.QueryRow(`
		SELECT MIN(substr(occurred_at, 1, 7)), MAX(substr(occurred_at, 1, 7)) FROM transactions`).
		Scan(&minYm, &maxYm)
	if err != nil {
		return from, to, false, err
	}
	if !minYm.Valid || !maxYm.Valid {
		// Nothing journaled yet, so an open bound has nothing to clamp to.
		return from, to, false, nil
	}

	if fromPeriodYm == nil {
		if from, err = period.Parse(minYm.String); err != nil {
			return from, to, false, err
		}
	}
	if toPeriodYm == nil {
		if to, err = period.Parse(maxYm.String); err != nil {
			return from, to, false, err
		}
	}
	return from, to, true, nil
}

// ListAdjustmentKpi handles GET /kpis/adjustments
func (s *KpiService) ListAdjustmentKpi(w http.ResponseWriter, r *http.Request) {
	var fromPeriodYm, toPeriodYm *string
	if v := r.URL.Query().Get("fromPeriodYm"); v != "" {
		fromPeriodYm = &v
	}
	if v := r.URL.Query().Get("toPeriodYm"); v != "" {
		toPeriodYm = &v
	}

	kpi, err := s.AdjustmentKpi(fromPeriodYm, toPeriodYm)
	if err != nil {
		SendAPIError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, kpi)
}
