package services

import (
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reportStubStore struct {
	evaluations []*EvaluationRecord
	vendors     []*Vendor
	discards    []*DiscardRecord
	users       []*UserAccess
}

func (s *reportStubStore) ListEvaluations() ([]*EvaluationRecord, error) { return s.evaluations, nil }
func (s *reportStubStore) ListVendors() ([]*Vendor, error)               { return s.vendors, nil }
func (s *reportStubStore) ListUsers() ([]*UserAccess, error)             { return s.users, nil }

func (s *reportStubStore) ListDiscards(ctx EvalContext) ([]*DiscardRecord, error) {
	out := []*DiscardRecord{}
	for _, d := range s.discards {
		if d.Context == ctx {
			out = append(out, d)
		}
	}
	return out, nil
}

var testMaxScores = map[string]float64{"finance": 30, "both": 25, "IT": 35}

func newTestReport(store *reportStubStore) *ReportService {
	return NewReportService(store, testMaxScores, 60)
}

func rec(vendor string, month time.Month, scores map[string]float64) *EvaluationRecord {
	return &EvaluationRecord{
		ID:               "e-" + vendor,
		VendorName:       vendor,
		EvaluatorName:    "Dana",
		DepartmentScores: scores,
		SubmittedAt:      time.Date(2025, month, 10, 0, 0, 0, 0, time.UTC),
	}
}

func TestPerDepartmentAverage(t *testing.T) {
	svc := newTestReport(&reportStubStore{})
	records := []*EvaluationRecord{
		rec("Acme", time.February, map[string]float64{"finance": 15, "IT": 35}),
		rec("Acme", time.March, map[string]float64{"finance": 30}),
	}

	perDept := svc.PerDepartmentAverage(records)
	// finance: ((15/30 + 30/30) / 2) × 100 = 75, IT: 100, both: no contributions.
	assert.InDelta(t, 75, perDept["finance"], 1e-9)
	assert.InDelta(t, 100, perDept["IT"], 1e-9)
	assert.Zero(t, perDept["both"])
}

func TestPerDepartmentAverageIdempotent(t *testing.T) {
	svc := newTestReport(&reportStubStore{})
	records := []*EvaluationRecord{
		rec("Acme", time.February, map[string]float64{"finance": 21, "both": 5}),
	}
	first := svc.PerDepartmentAverage(records)
	second := svc.PerDepartmentAverage(records)
	assert.Equal(t, first, second)
}

func TestOverallAverage(t *testing.T) {
	svc := newTestReport(&reportStubStore{})

	assert.Nil(t, svc.OverallAverage(map[string]float64{"finance": 0, "IT": 0}))

	overall := svc.OverallAverage(map[string]float64{"finance": 75, "IT": 100, "both": 0})
	require.NotNil(t, overall)
	assert.InDelta(t, 87.5, *overall, 1e-9)
}

func TestQuarterlyAverage(t *testing.T) {
	svc := newTestReport(&reportStubStore{})
	records := []*EvaluationRecord{
		rec("Acme", time.January, map[string]float64{"IT": 35}),
		rec("Acme", time.March, map[string]float64{"IT": 17.5}),
		rec("Acme", time.July, map[string]float64{"finance": 15}),
	}

	quarterly := svc.QuarterlyAverage(records)
	assert.InDelta(t, 75, quarterly["Q1"], 1e-9) // (100 + 50) / 2
	assert.Zero(t, quarterly["Q2"])
	assert.InDelta(t, 50, quarterly["Q3"], 1e-9)
	assert.Zero(t, quarterly["Q4"])
	assert.Len(t, quarterly, 4)
}

func TestLowPerformingDepartments(t *testing.T) {
	svc := newTestReport(&reportStubStore{})
	low := svc.LowPerformingDepartments(map[string]float64{
		"finance": 45,
		"IT":      80,
		"both":    0, // unevaluated, not low-performing
	})
	assert.Equal(t, []string{"finance"}, low)
}

func TestVendorReport(t *testing.T) {
	store := &reportStubStore{
		evaluations: []*EvaluationRecord{
			rec("Acme", time.February, map[string]float64{"finance": 27, "IT": 31.5}),
			rec("acme ", time.May, map[string]float64{"finance": 24}),
			rec("Other", time.May, map[string]float64{"finance": 3}),
		},
	}
	svc := newTestReport(store)

	report, err := svc.VendorReport("Acme")
	require.NoError(t, err)
	// Matching is case-insensitive and trimmed: 2 of the 3 records count.
	assert.Equal(t, 2, report.TotalEvaluations)
	// finance: (27/30 + 24/30)/2 × 100 = 85, IT: 90.
	assert.InDelta(t, 85, report.PerDepartment["finance"], 0.01)
	assert.InDelta(t, 90, report.PerDepartment["IT"], 0.01)
	require.NotNil(t, report.Overall)
	assert.InDelta(t, 87.5, *report.Overall, 0.01)
	assert.Equal(t, "Excellent overall performance.", report.Summary)
	require.NotNil(t, report.BestDepartment)
	assert.Equal(t, "IT", report.BestDepartment.Department)
	require.NotNil(t, report.WeakestDepartment)
	assert.Equal(t, "finance", report.WeakestDepartment.Department)
	assert.Empty(t, report.LowPerforming)
	assert.Len(t, report.Rows, 2)
	assert.Equal(t, "2025-02-10", report.Rows[0].Date)
}

func TestVendorReportNoEvaluations(t *testing.T) {
	svc := newTestReport(&reportStubStore{})

	report, err := svc.VendorReport("Ghost")
	require.NoError(t, err)
	assert.Zero(t, report.TotalEvaluations)
	assert.Nil(t, report.Overall)
	assert.Equal(t, "No evaluations submitted for this vendor yet.", report.Summary)
	for _, q := range []string{"Q1", "Q2", "Q3", "Q4"} {
		assert.Zero(t, report.Quarterly[q])
	}
	assert.Nil(t, report.BestDepartment)
	assert.Nil(t, report.WeakestDepartment)
}

func TestVendorReportSummaryBands(t *testing.T) {
	cases := []struct {
		score   float64 // raw finance score out of 30
		summary string
	}{
		{27, "Excellent overall performance."},
		{22.5, "Satisfactory performance with room to grow."},
		{16.5, "Needs improvement."},
		{9, "Poor performance. Take corrective actions."},
	}
	for _, tc := range cases {
		store := &reportStubStore{evaluations: []*EvaluationRecord{
			rec("Acme", time.May, map[string]float64{"finance": tc.score}),
		}}
		report, err := newTestReport(store).VendorReport("Acme")
		require.NoError(t, err)
		assert.Equal(t, tc.summary, report.Summary, "score %v", tc.score)
	}
}

func TestOverview(t *testing.T) {
	store := &reportStubStore{
		vendors: []*Vendor{
			{ID: "v1", Name: "Zeta"},
			{ID: "v2", Name: "Acme", IsNew: true},
			{ID: "v3", Name: "Gone", Discarded: true},
		},
		evaluations: []*EvaluationRecord{
			rec("Zeta", time.May, map[string]float64{"finance": 15}),
		},
	}
	svc := newTestReport(store)

	rows, err := svc.Overview()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Acme", rows[0].Name)
	assert.Nil(t, rows[0].Score)
	assert.Equal(t, "Zeta", rows[1].Name)
	require.NotNil(t, rows[1].Score)
	assert.InDelta(t, 50, *rows[1].Score, 0.01)
}

func TestNewVendorStatusBoard(t *testing.T) {
	store := &reportStubStore{
		vendors: []*Vendor{
			{ID: "v1", Name: "Fresh", IsNew: true},
			{ID: "v2", Name: "Old"},
		},
		discards: []*DiscardRecord{
			{VendorName: "Shady", Reason: ReasonRegulatoryNoncompliance, DiscardedBy: "u1", DiscardedAt: time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC), Context: ContextNew},
			{VendorName: "Legacy", Reason: ReasonPrequalificationFailure, DiscardedBy: "u2", Context: ContextExisting},
		},
		users: []*UserAccess{{UID: "u1", Name: "Sam"}},
	}
	svc := newTestReport(store)

	board, err := svc.NewVendorStatusBoard()
	require.NoError(t, err)
	require.Len(t, board.Approved, 1)
	assert.Equal(t, "Fresh", board.Approved[0].Name)
	require.Len(t, board.Discarded, 1)
	assert.Equal(t, "Shady", board.Discarded[0].VendorName)
	assert.Equal(t, "Sam", board.Discarded[0].DiscardedByName)
	assert.Equal(t, "2025-04-02", board.Discarded[0].DiscardedAt)
}

func TestExportEvaluationsCSV(t *testing.T) {
	store := &reportStubStore{evaluations: []*EvaluationRecord{
		{
			ID:            "e1",
			EvaluatorName: "Dana",
			VendorName:    "Acme",
			TotalScore:    2.2,
			SubmittedAt:   time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC),
			Responses: map[string]EvaluationResponse{
				"q2": {QuestionID: "q2", Text: "Delivery punctuality", Score: 4, Weight: 2},
				"q1": {QuestionID: "q1", Text: "Product quality", Score: 3, Weight: 1},
			},
		},
	}}
	svc := newTestReport(store)

	b, err := svc.ExportEvaluationsCSV()
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(string(b))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3) // header + one row per response
	assert.Equal(t, "evaluation_id", rows[0][0])
	// Question IDs sort ascending for a stable export.
	assert.Equal(t, "q1", rows[1][3])
	assert.Equal(t, "q2", rows[2][3])
	assert.Equal(t, "Dana", rows[1][1])
	assert.Equal(t, "2.2", rows[1][7])
	assert.Equal(t, "2025-05-10T12:00:00Z", rows[1][8])
}
