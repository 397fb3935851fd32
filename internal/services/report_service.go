package services

import (
	"bytes"
	"encoding/csv"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ReportStore abstracts the evaluation reads the reporting engine needs.
type ReportStore interface {
	ListEvaluations() ([]*EvaluationRecord, error)
	ListVendors() ([]*Vendor, error)
	ListDiscards(ctx EvalContext) ([]*DiscardRecord, error)
	ListUsers() ([]*UserAccess, error)
}

// ReportService computes per-vendor, per-department, and per-quarter
// normalized averages. Department score ceilings come from configuration.
type ReportService struct {
	store     ReportStore
	maxScores map[string]float64
	threshold float64
}

func NewReportService(store ReportStore, maxScores map[string]float64, lowThreshold float64) *ReportService {
	if lowThreshold <= 0 {
		lowThreshold = 60
	}
	return &ReportService{store: store, maxScores: maxScores, threshold: lowThreshold}
}

// PerDepartmentAverage averages (raw/max)×100 per department over the
// records where that department's raw score is positive. Departments with
// no positive contribution report 0. Accumulation keeps full precision;
// round only at presentation boundaries.
func (s *ReportService) PerDepartmentAverage(records []*EvaluationRecord) map[string]float64 {
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, rec := range records {
		for dept, max := range s.maxScores {
			raw := rec.DepartmentScores[dept]
			if raw > 0 {
				sums[dept] += raw / max * 100
				counts[dept]++
			}
		}
	}
	out := make(map[string]float64, len(s.maxScores))
	for dept := range s.maxScores {
		if counts[dept] > 0 {
			out[dept] = sums[dept] / float64(counts[dept])
		} else {
			out[dept] = 0
		}
	}
	return out
}

// OverallAverage is the arithmetic mean of the positive per-department
// percentages. It is nil, not zero, when nothing contributed.
func (s *ReportService) OverallAverage(perDept map[string]float64) *float64 {
	sum := 0.0
	n := 0
	for _, pct := range perDept {
		if pct > 0 {
			sum += pct
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}

// QuarterlyAverage buckets each record's normalized average by submission
// quarter. Empty buckets report 0.
func (s *ReportService) QuarterlyAverage(records []*EvaluationRecord) map[string]float64 {
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, rec := range records {
		q := quarterOf(int(rec.SubmittedAt.Month()))
		sums[q] += s.recordNormalizedAverage(rec)
		counts[q]++
	}
	out := map[string]float64{}
	for _, q := range []string{"Q1", "Q2", "Q3", "Q4"} {
		if counts[q] > 0 {
			out[q] = sums[q] / float64(counts[q])
		} else {
			out[q] = 0
		}
	}
	return out
}

// LowPerformingDepartments returns the departments whose average is
// positive yet below the configured threshold, sorted by name.
func (s *ReportService) LowPerformingDepartments(perDept map[string]float64) []string {
	out := []string{}
	for dept, pct := range perDept {
		if pct > 0 && pct < s.threshold {
			out = append(out, dept)
		}
	}
	sort.Strings(out)
	return out
}

func (s *ReportService) recordNormalizedAverage(rec *EvaluationRecord) float64 {
	sum := 0.0
	n := 0
	for dept, max := range s.maxScores {
		raw := rec.DepartmentScores[dept]
		if raw > 0 {
			sum += raw / max * 100
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func quarterOf(month int) string {
	return []string{"Q1", "Q2", "Q3", "Q4"}[(month-1)/3]
}

// DepartmentStat pairs a department with its average percentage.
type DepartmentStat struct {
	Department string  `json:"department"`
	Average    float64 `json:"average"`
}

// ReportRow is one evaluation in the per-vendor report table.
type ReportRow struct {
	Evaluator        string             `json:"evaluator"`
	DepartmentScores map[string]float64 `json:"department_scores"`
	Normalized       map[string]float64 `json:"normalized"`
	Date             string             `json:"date"`
}

// VendorReport is the full per-vendor report surface.
type VendorReport struct {
	VendorName       string             `json:"vendor_name"`
	TotalEvaluations int                `json:"total_evaluations"`
	PerDepartment    map[string]float64 `json:"per_department"`
	Overall          *float64           `json:"overall"`
	Quarterly        map[string]float64 `json:"quarterly"`
	LowPerforming    []string           `json:"low_performing"`
	BestDepartment   *DepartmentStat    `json:"best_department,omitempty"`
	WeakestDepartment *DepartmentStat   `json:"weakest_department,omitempty"`
	Summary          string             `json:"summary"`
	Rows             []ReportRow        `json:"rows"`
}

// VendorReport assembles the report for one vendor, matched by name
// (case-insensitive, trimmed).
func (s *ReportService) VendorReport(vendorName string) (*VendorReport, error) {
	all, err := s.store.ListEvaluations()
	if err != nil {
		return nil, err
	}
	want := strings.ToLower(strings.TrimSpace(vendorName))
	records := make([]*EvaluationRecord, 0, len(all))
	for _, rec := range all {
		if strings.ToLower(strings.TrimSpace(rec.VendorName)) == want {
			records = append(records, rec)
		}
	}

	perDept := s.PerDepartmentAverage(records)
	overall := s.OverallAverage(perDept)
	quarterly := s.QuarterlyAverage(records)

	report := &VendorReport{
		VendorName:       vendorName,
		TotalEvaluations: len(records),
		PerDepartment:    roundMap(perDept),
		Quarterly:        roundMap(quarterly),
		LowPerforming:    s.LowPerformingDepartments(perDept),
		Summary:          summarize(overall),
		Rows:             s.buildRows(records),
	}
	if overall != nil {
		rounded := Round2(*overall)
		report.Overall = &rounded
	}
	report.BestDepartment, report.WeakestDepartment = bestAndWeakest(perDept)
	return report, nil
}

func (s *ReportService) buildRows(records []*EvaluationRecord) []ReportRow {
	rows := make([]ReportRow, 0, len(records))
	for _, rec := range records {
		normalized := map[string]float64{}
		for dept, max := range s.maxScores {
			if raw := rec.DepartmentScores[dept]; raw > 0 {
				normalized[dept] = Round2(raw / max * 100)
			} else {
				normalized[dept] = 0
			}
		}
		rows = append(rows, ReportRow{
			Evaluator:        rec.EvaluatorName,
			DepartmentScores: rec.DepartmentScores,
			Normalized:       normalized,
			Date:             rec.SubmittedAt.UTC().Format("2006-01-02"),
		})
	}
	return rows
}

func roundMap(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = Round2(v)
	}
	return out
}

func summarize(overall *float64) string {
	if overall == nil {
		return "No evaluations submitted for this vendor yet."
	}
	switch v := *overall; {
	case v >= 85:
		return "Excellent overall performance."
	case v >= 70:
		return "Satisfactory performance with room to grow."
	case v >= 50:
		return "Needs improvement."
	default:
		return "Poor performance. Take corrective actions."
	}
}

func bestAndWeakest(perDept map[string]float64) (*DepartmentStat, *DepartmentStat) {
	var best, weakest *DepartmentStat
	depts := make([]string, 0, len(perDept))
	for d := range perDept {
		depts = append(depts, d)
	}
	sort.Strings(depts)
	for _, dept := range depts {
		avg := perDept[dept]
		if avg <= 0 {
			continue
		}
		if best == nil || avg > best.Average {
			best = &DepartmentStat{Department: dept, Average: Round2(avg)}
		}
		if weakest == nil || avg < weakest.Average {
			weakest = &DepartmentStat{Department: dept, Average: Round2(avg)}
		}
	}
	return best, weakest
}

// VendorOverview is one row of the score overview dashboard.
type VendorOverview struct {
	VendorID string   `json:"vendor_id"`
	Name     string   `json:"name"`
	IsNew    bool     `json:"is_new"`
	Score    *float64 `json:"score"`
}

// Overview lists every non-discarded vendor with its overall normalized
// average (nil when unevaluated).
func (s *ReportService) Overview() ([]*VendorOverview, error) {
	vendors, err := s.store.ListVendors()
	if err != nil {
		return nil, err
	}
	all, err := s.store.ListEvaluations()
	if err != nil {
		return nil, err
	}
	byVendor := map[string][]*EvaluationRecord{}
	for _, rec := range all {
		key := strings.ToLower(strings.TrimSpace(rec.VendorName))
		byVendor[key] = append(byVendor[key], rec)
	}
	out := make([]*VendorOverview, 0, len(vendors))
	for _, v := range vendors {
		if v.Discarded {
			continue
		}
		row := &VendorOverview{VendorID: v.ID, Name: v.Name, IsNew: v.IsNew}
		records := byVendor[strings.ToLower(strings.TrimSpace(v.Name))]
		if overall := s.OverallAverage(s.PerDepartmentAverage(records)); overall != nil {
			rounded := Round2(*overall)
			row.Score = &rounded
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// DiscardView is a discard record with the discarder's name resolved.
type DiscardView struct {
	VendorName      string `json:"vendor_name"`
	Reason          string `json:"reason"`
	DiscardedByName string `json:"discarded_by_name"`
	DiscardedAt     string `json:"discarded_at"`
}

// NewVendorStatus is the new-vendor board: current scores for vendors still
// in the running plus the discard list.
type NewVendorStatus struct {
	Approved  []*VendorOverview `json:"approved"`
	Discarded []*DiscardView    `json:"discarded"`
}

// NewVendorStatusBoard builds the status board for new vendors.
func (s *ReportService) NewVendorStatusBoard() (*NewVendorStatus, error) {
	overview, err := s.Overview()
	if err != nil {
		return nil, err
	}
	approved := make([]*VendorOverview, 0, len(overview))
	for _, row := range overview {
		if row.IsNew {
			approved = append(approved, row)
		}
	}

	discards, err := s.store.ListDiscards(ContextNew)
	if err != nil {
		return nil, err
	}
	users, err := s.store.ListUsers()
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.UID] = u.Name
	}
	views := make([]*DiscardView, 0, len(discards))
	for _, d := range discards {
		name := names[d.DiscardedBy]
		if name == "" {
			name = "Unknown"
		}
		views = append(views, &DiscardView{
			VendorName:      d.VendorName,
			Reason:          d.Reason,
			DiscardedByName: name,
			DiscardedAt:     d.DiscardedAt.UTC().Format("2006-01-02"),
		})
	}
	return &NewVendorStatus{Approved: approved, Discarded: views}, nil
}

// ExportEvaluationsCSV renders every evaluation response as one long-format
// CSV row for offline analysis.
func (s *ReportService) ExportEvaluationsCSV() ([]byte, error) {
	records, err := s.store.ListEvaluations()
	if err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"evaluation_id", "evaluator", "vendor", "question_id", "question", "score", "weight", "total_score", "submitted_at"})
	for _, rec := range records {
		ids := make([]string, 0, len(rec.Responses))
		for id := range rec.Responses {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			r := rec.Responses[id]
			row := []string{
				rec.ID,
				rec.EvaluatorName,
				rec.VendorName,
				r.QuestionID,
				r.Text,
				strconv.FormatFloat(r.Score, 'f', -1, 64),
				strconv.FormatFloat(r.Weight, 'f', -1, 64),
				strconv.FormatFloat(rec.TotalScore, 'f', -1, 64),
				rec.SubmittedAt.UTC().Format(time.RFC3339),
			}
			if err := w.Write(row); err != nil {
				return nil, err
			}
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
