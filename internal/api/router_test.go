package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/iscore/vendoreval/internal/config"
	"github.com/iscore/vendoreval/internal/middleware"
	"github.com/iscore/vendoreval/internal/services"
	"github.com/iscore/vendoreval/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	cfg := &config.Config{
		DepartmentMaxScores: map[string]float64{"finance": 30, "both": 25, "IT": 35},
		LowScoreThreshold:   60,
	}
	mux := http.NewServeMux()
	NewRouter(zap.NewNop(), st, cfg).Register(mux)
	srv := httptest.NewServer(middleware.WithAuth(mux))
	t.Cleanup(srv.Close)
	return srv, st
}

func adminToken(t *testing.T, st *store.MemoryStore) string {
	t.Helper()
	if err := st.AddUser(&services.UserAccess{UID: "admin1", Name: "Root", Email: "root@example.com", Role: "admin"}); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	tok, err := middleware.SignToken("admin1", "root@example.com", "admin", time.Hour)
	if err != nil {
		t.Fatalf("sign admin token: %v", err)
	}
	return tok
}

func doJSON(t *testing.T, method, url, token string, body any, out any) int {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

func seedQuestions(t *testing.T, st *store.MemoryStore) {
	t.Helper()
	qs := []*services.Question{
		{ID: "q1", Text: "Product quality", Weight: 1, Criteria: "quality", Source: services.SourceNew},
		{ID: "q2", Text: "Offers volume discounts", Weight: 2, Criteria: "pricing", Source: services.SourceShared, AnswerType: services.AnswerBinary},
	}
	for _, q := range qs {
		if err := st.AddQuestion(q); err != nil {
			t.Fatalf("seed question: %v", err)
		}
	}
	if err := st.AddPrequalQuestion(&services.PrequalQuestion{ID: "p1", Criteria: "legal", Text: "Is the vendor compliant with applicable regulations?"}); err != nil {
		t.Fatalf("seed prequal question: %v", err)
	}
}

func TestEvaluationJourney(t *testing.T) {
	srv, st := newTestServer(t)
	admin := adminToken(t, st)
	seedQuestions(t, st)

	// Register an evaluator.
	var reg struct {
		Token string `json:"token"`
		UID   string `json:"uid"`
		Role  string `json:"role"`
	}
	code := doJSON(t, http.MethodPost, srv.URL+"/api/auth/register", "", map[string]string{
		"name": "Dana", "email": "dana@example.com", "password": "Secret123", "department": "IT",
	}, &reg)
	if code != http.StatusOK || reg.Token == "" || reg.Role != "employee" {
		t.Fatalf("register: code=%d resp=%+v", code, reg)
	}

	// Admin registers a new vendor.
	var vendor services.Vendor
	code = doJSON(t, http.MethodPost, srv.URL+"/api/vendors", admin, map[string]any{
		"name": "Acme Supplies", "is_new": true,
	}, &vendor)
	if code != http.StatusOK || vendor.ID == "" {
		t.Fatalf("create vendor: code=%d resp=%+v", code, vendor)
	}

	// Employee cannot create vendors or list users.
	if code := doJSON(t, http.MethodPost, srv.URL+"/api/vendors", reg.Token, map[string]any{"name": "Nope"}, nil); code != http.StatusForbidden {
		t.Fatalf("expected 403 creating vendor as employee, got %d", code)
	}
	if code := doJSON(t, http.MethodGet, srv.URL+"/api/users", reg.Token, nil, nil); code != http.StatusForbidden {
		t.Fatalf("expected 403 listing users as employee, got %d", code)
	}

	// Evaluation requires the capability flag: access denied workflow first.
	var denied struct {
		State string `json:"state"`
	}
	code = doJSON(t, http.MethodPost, srv.URL+"/api/evaluation/start", reg.Token, map[string]string{
		"vendor_id": vendor.ID, "context": "new",
	}, &denied)
	if code != http.StatusOK || denied.State != "access_denied" {
		t.Fatalf("expected access denied workflow, got code=%d state=%q", code, denied.State)
	}

	// Admin grants both capabilities and opens the evaluation window.
	for _, key := range []string{"prerequisite", "evaluation"} {
		if code := doJSON(t, http.MethodPost, srv.URL+"/api/users/"+reg.UID+"/access", admin, map[string]string{"key": key}, nil); code != http.StatusOK {
			t.Fatalf("toggle %s: code=%d", key, code)
		}
	}
	code = doJSON(t, http.MethodPut, srv.URL+"/api/settings/window", admin, map[string]string{
		"start": "2000-01-01T00:00:00Z", "end": "2100-01-01T00:00:00Z",
	}, nil)
	if code != http.StatusOK {
		t.Fatalf("save window: code=%d", code)
	}

	// Vendor shows up in the new-context selection list.
	var listResp struct {
		Vendors []*services.SelectableVendor `json:"vendors"`
	}
	code = doJSON(t, http.MethodGet, srv.URL+"/api/vendors?context=new", reg.Token, nil, &listResp)
	if code != http.StatusOK || len(listResp.Vendors) != 1 || listResp.Vendors[0].AlreadyEvaluated {
		t.Fatalf("vendor list: code=%d resp=%+v", code, listResp)
	}

	// Pre-qualification: one legal question, answered yes.
	var pq struct {
		State string `json:"state"`
	}
	code = doJSON(t, http.MethodPost, srv.URL+"/api/prequal/start", reg.Token, map[string]string{
		"vendor_id": vendor.ID, "context": "new",
	}, &pq)
	if code != http.StatusOK || pq.State != "awaiting_answer" {
		t.Fatalf("prequal start: code=%d state=%q", code, pq.State)
	}
	code = doJSON(t, http.MethodPost, srv.URL+"/api/prequal/answer", reg.Token, map[string]string{"value": "yes"}, &pq)
	if code != http.StatusOK || pq.State != "passed" {
		t.Fatalf("prequal answer: code=%d state=%q", code, pq.State)
	}

	// Scored evaluation: two questions (merged new + shared, grouped).
	var ev struct {
		State string `json:"state"`
		Total int    `json:"total"`
	}
	code = doJSON(t, http.MethodPost, srv.URL+"/api/evaluation/start", reg.Token, map[string]string{
		"vendor_id": vendor.ID, "context": "new",
	}, &ev)
	if code != http.StatusOK || ev.State != "answering" || ev.Total != 2 {
		t.Fatalf("evaluation start: code=%d resp=%+v", code, ev)
	}
	// Groups sort by criteria: pricing (binary q2) before quality (q1).
	for _, answer := range []string{"yes", "5"} {
		if code := doJSON(t, http.MethodPost, srv.URL+"/api/evaluation/select", reg.Token, map[string]string{"value": answer}, nil); code != http.StatusOK {
			t.Fatalf("select %q: code=%d", answer, code)
		}
		if code := doJSON(t, http.MethodPost, srv.URL+"/api/evaluation/next", reg.Token, nil, &ev); code != http.StatusOK {
			t.Fatalf("next after %q: code=%d", answer, code)
		}
	}
	if ev.State != "confirming" {
		t.Fatalf("expected confirming, got %q", ev.State)
	}

	var confirm struct {
		State  string                     `json:"state"`
		Record *services.EvaluationRecord `json:"record"`
	}
	code = doJSON(t, http.MethodPost, srv.URL+"/api/evaluation/confirm", reg.Token, nil, &confirm)
	if code != http.StatusOK || confirm.State != "submitted" || confirm.Record == nil {
		t.Fatalf("confirm: code=%d resp=%+v", code, confirm)
	}
	// (5/5×2) + (5/5×1) = 3.00
	if confirm.Record.TotalScore != 3 {
		t.Fatalf("TotalScore = %v, want 3", confirm.Record.TotalScore)
	}
	if confirm.Record.DepartmentScores["IT"] != 3 {
		t.Fatalf("department scores = %+v", confirm.Record.DepartmentScores)
	}

	// The vendor is now blocked for this user.
	code = doJSON(t, http.MethodPost, srv.URL+"/api/evaluation/start", reg.Token, map[string]string{
		"vendor_id": vendor.ID, "context": "new",
	}, nil)
	if code != http.StatusConflict {
		t.Fatalf("expected 409 re-evaluating, got %d", code)
	}

	// Reporting sees the submission.
	var report services.VendorReport
	code = doJSON(t, http.MethodGet, srv.URL+"/api/reports/vendor?name=Acme+Supplies", reg.Token, nil, &report)
	if code != http.StatusOK || report.TotalEvaluations != 1 {
		t.Fatalf("vendor report: code=%d resp=%+v", code, report)
	}
	if report.Overall == nil {
		t.Fatalf("expected overall score in report")
	}
}

func TestPrequalDisqualificationJourney(t *testing.T) {
	srv, st := newTestServer(t)
	admin := adminToken(t, st)
	seedQuestions(t, st)

	if err := st.AddUser(&services.UserAccess{
		UID: "sam1", Name: "Sam", Email: "sam@example.com", Role: "employee", Department: "finance",
		Access: services.AccessFlags{Prerequisite: true, Evaluation: true},
	}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	tok, err := middleware.SignToken("sam1", "sam@example.com", "employee", time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	var vendor services.Vendor
	if code := doJSON(t, http.MethodPost, srv.URL+"/api/vendors", admin, map[string]any{"name": "Shady Corp", "is_new": true}, &vendor); code != http.StatusOK {
		t.Fatalf("create vendor: code=%d", code)
	}

	var pq struct {
		State   string `json:"state"`
		Discard *struct {
			Reason string `json:"reason"`
		} `json:"discard"`
	}
	if code := doJSON(t, http.MethodPost, srv.URL+"/api/prequal/start", tok, map[string]string{"vendor_id": vendor.ID, "context": "new"}, &pq); code != http.StatusOK {
		t.Fatalf("prequal start: code=%d", code)
	}
	if code := doJSON(t, http.MethodPost, srv.URL+"/api/prequal/answer", tok, map[string]string{"value": "no"}, &pq); code != http.StatusOK {
		t.Fatalf("prequal answer: code=%d", code)
	}
	if pq.State != "disqualified" || pq.Discard == nil || pq.Discard.Reason != services.ReasonRegulatoryNoncompliance {
		t.Fatalf("unexpected disqualification response: %+v", pq)
	}

	// The discarded vendor is gone from selection and refused on force-entry.
	var listResp struct {
		Vendors []*services.SelectableVendor `json:"vendors"`
	}
	if code := doJSON(t, http.MethodGet, srv.URL+"/api/vendors?context=new", tok, nil, &listResp); code != http.StatusOK || len(listResp.Vendors) != 0 {
		t.Fatalf("expected empty vendor list, got %+v", listResp)
	}
	if code := doJSON(t, http.MethodPost, srv.URL+"/api/evaluation/start", tok, map[string]string{"vendor_id": vendor.ID, "context": "new"}, nil); code != http.StatusForbidden {
		t.Fatalf("expected 403 for discarded vendor, got %d", code)
	}

	// It appears on the new-vendor status board with the screener's name.
	var board services.NewVendorStatus
	if code := doJSON(t, http.MethodGet, srv.URL+"/api/reports/new-vendors", tok, nil, &board); code != http.StatusOK {
		t.Fatalf("status board: code=%d", code)
	}
	if len(board.Discarded) != 1 || board.Discarded[0].DiscardedByName != "Sam" {
		t.Fatalf("unexpected board: %+v", board)
	}
}
