package services

import (
	"database/sql"
	"net/http"

	"github.com/truecost/backend/internal/models"
	"github.com/truecost/backend/internal/period"
)

// ReportService aggregates the journal and the amortization schedules
// into monthly expense views. Reads are plain committed reads; reports
// never write.
type ReportService struct {
	db *sql.DB
}

func NewReportService(db *sql.DB) *ReportService {
	return &ReportService{db: db}
}

// reportBuilder accumulates labeled amounts in first-occurrence order.
type reportBuilder struct {
	periodYm string
	index    map[string]int
	items    []models.ReportItem
	total    int64
}

func newReportBuilder(periodYm string) *reportBuilder {
	return &reportBuilder{periodYm: periodYm, index: map[string]int{}}
}

func (b *reportBuilder) add(label string, amountCents int64) {
	if i, ok := b.index[label]; ok {
		b.items[i].AmountCents += amountCents
	} else {
		b.index[label] = len(b.items)
		b.items = append(b.items, models.ReportItem{Label: label, AmountCents: amountCents})
	}
	b.total += amountCents
}

func (b *reportBuilder) report() *models.Report {
	items := b.items
	if items == nil {
		items = []models.ReportItem{}
	}
	return &models.Report{PeriodYm: b.periodYm, TotalExpenseCents: b.total, Items: items}
}

type journalRow struct {
	amountCents     int64
	fromAccountID   *string
	toAccountID     *string
	isAssetPurchase bool
	label           string
}

// ownedAccountIDs loads the full set of user-tracked account ids; the
// report logic needs it to tell external outflows from internal
// transfers.
func (s *ReportService) ownedAccountIDs() (map[string]bool, error) {
	rows, err := s.db.Query(`SELECT id FROM accounts`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	owned := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		owned[id] = true
	}
	return owned, rows.Err()
}

// isExternalOutflow reports whether a journal row moves value from a
// tracked account out of the tracked set.
func isExternalOutflow(row journalRow, owned map[string]bool) bool {
	if row.fromAccountID == nil || !owned[*row.fromAccountID] {
		return false
	}
	return row.toAccountID == nil || !owned[*row.toAccountID]
}

func (s *ReportService) journalRows(periodYm string, flowOnly bool) ([]journalRow, error) {
	query := `
		SELECT t.amount_cents, t.from_account_id, t.to_account_id, t.is_asset_purchase,
		       COALESCE(c.name, 'Uncategorized') AS label
		FROM transactions t
		LEFT JOIN categories c ON t.category_id = c.id
		WHERE substr(t.occurred_at, 1, 7) = ?`
	if flowOnly {
		query += ` AND t.accrual_type = 'Flow' AND t.is_asset_purchase = 0`
	}
	query += ` ORDER BY t.occurred_at ASC, t.created_at ASC`

	rows, err := s.db.Query(query, periodYm)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []journalRow
	for rows.Next() {
		var r journalRow
		var from, to sql.NullString
		if err := rows.Scan(&r.amountCents, &from, &to, &r.isAssetPurchase, &r.label); err != nil {
			return nil, err
		}
		if from.Valid {
			r.fromAccountID = &from.String
		}
		if to.Valid {
			r.toAccountID = &to.String
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// CashFlow is the bank-statement view: every external outflow journaled
// in the month, grouped by category. Internal transfers, including
// asset purchases, never count.
func (s *ReportService) CashFlow(periodYm string) (*models.Report, error) {
	if _, err := period.Parse(periodYm); err != nil {
		return nil, models.NewValidationError("invalid periodYm: %s", periodYm)
	}

	owned, err := s.ownedAccountIDs()
	if err != nil {
		return nil, err
	}
	rows, err := s.journalRows(periodYm, false)
	if err != nil {
		return nil, err
	}

	b := newReportBuilder(periodYm)
	for _, r := range rows {
		if isExternalOutflow(r, owned) {
			b.add(r.label, r.amountCents)
		}
	}
	return b.report(), nil
}

// Utility is the true-cost-of-living view: non-purchase external
// outflows plus one smoothed depreciation line per accruing schedule.
// The raw purchase transfer is excluded, its cost arrives month by
// month instead.
func (s *ReportService) Utility(periodYm string) (*models.Report, error) {
	month, err := period.Parse(periodYm)
	if err != nil {
		return nil, models.NewValidationError("invalid periodYm: %s", periodYm)
	}

	owned, err := s.ownedAccountIDs()
	if err != nil {
		return nil, err
	}
	rows, err := s.journalRows(periodYm, true)
	if err != nil {
		return nil, err
	}

	b := newReportBuilder(periodYm)
	for _, r := range rows {
		if isExternalOutflow(r, owned) {
			b.add(r.label, r.amountCents)
		}
	}

	if err := s.addDepreciation(b, month); err != nil {
		return nil, err
	}
	return b.report(), nil
}

func (s *ReportService) addDepreciation(b *reportBuilder, month period.Month) error {
	rows, err := s.db.Query(`
		SELECT s.strategy, s.total_periods, s.residual_cents, s.start_date, t.amount_cents, a.name
		FROM amortization_schedules s
		JOIN transactions t ON t.id = s.source_transaction_id
		JOIN accounts a ON a.id = s.asset_account_id
		ORDER BY s.created_at ASC`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var strategy models.AmortizationStrategy
		var totalPeriods int
		var residualCents, purchaseCents int64
		var startDate, assetName string
		if err := rows.Scan(&strategy, &totalPeriods, &residualCents, &startDate, &purchaseCents, &assetName); err != nil {
			return err
		}

		start, err := period.FromDate(startDate)
		if err != nil {
			return models.NewValidationError("schedule has invalid startDate: %s", startDate)
		}
		periodIndex := month.Since(start)
		amount := DepreciationForPeriod(strategy, purchaseCents-residualCents, totalPeriods, periodIndex)
		if amount > 0 {
			b.add(assetName, amount)
		}
	}
	return rows.Err()
}

// GetCashFlowReport handles GET /reports/cash-flow
func (s *ReportService) GetCashFlowReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.CashFlow(r.URL.Query().Get("periodYm"))
	if err != nil {
		SendAPIError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, report)
}

// GetUtilityReport handles GET /reports/utility
func (s *ReportService) GetUtilityReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.Utility(r.URL.Query().Get("periodYm"))
	if err != nil {
		SendAPIError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, report)
}
