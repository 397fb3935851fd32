package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/iscore/vendoreval/internal/services"
)

// POST /api/prequal/{start|answer|back|exit}
func (rt *Router) handlePrequal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	uid, ok := rt.uid(w, r)
	if !ok {
		return
	}
	action := strings.TrimPrefix(r.URL.Path, "/api/prequal/")
	switch action {
	case "start":
		var req struct {
			VendorID string `json:"vendor_id"`
			Context  string `json:"context"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		evalCtx, err := services.ParseEvalContext(req.Context)
		if err != nil {
			rt.writeError(w, err)
			return
		}
		wf, skip, err := rt.workflows.StartPrequal(uid, req.VendorID, evalCtx)
		if err != nil {
			rt.writeError(w, err)
			return
		}
		if skip {
			rt.writeJSON(w, map[string]any{"skip": true})
			return
		}
		rt.writeJSON(w, prequalView(wf, false))
	case "answer":
		var req struct {
			Value   string `json:"value"`
			Comment string `json:"comment"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		wf, err := rt.workflows.Prequal(uid)
		if err != nil {
			rt.writeError(w, err)
			return
		}
		if err := wf.Answer(req.Value, req.Comment); err != nil {
			rt.writeError(w, err)
			return
		}
		rt.writeJSON(w, prequalView(wf, false))
	case "back":
		wf, err := rt.workflows.Prequal(uid)
		if err != nil {
			rt.writeError(w, err)
			return
		}
		if err := wf.Back(); err != nil {
			rt.writeError(w, err)
			return
		}
		rt.writeJSON(w, prequalView(wf, false))
	case "exit":
		rt.workflows.ExitPrequal(uid)
		rt.writeJSON(w, map[string]any{"ok": true})
	default:
		http.NotFound(w, r)
	}
}

func prequalView(wf *services.PrequalWorkflow, skip bool) map[string]any {
	out := map[string]any{
		"skip":        skip,
		"state":       wf.State(),
		"step":        wf.Step(),
		"vendor_id":   wf.VendorID(),
		"vendor_name": wf.VendorName(),
	}
	if q := wf.Current(); q != nil {
		out["question"] = q
	}
	if d := wf.Discard(); d != nil {
		out["discard"] = map[string]any{"reason": d.Reason, "vendor_name": d.VendorName}
	}
	return out
}

// POST /api/evaluation/{start|select|next|back|confirm|exit}
func (rt *Router) handleEvaluation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	uid, ok := rt.uid(w, r)
	if !ok {
		return
	}
	action := strings.TrimPrefix(r.URL.Path, "/api/evaluation/")
	switch action {
	case "start":
		var req struct {
			VendorID string `json:"vendor_id"`
			Context  string `json:"context"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		evalCtx, err := services.ParseEvalContext(req.Context)
		if err != nil {
			rt.writeError(w, err)
			return
		}
		wf, err := rt.workflows.StartEvaluation(uid, req.VendorID, evalCtx)
		if err != nil {
			rt.writeError(w, err)
			return
		}
		rt.writeJSON(w, evaluationView(wf))
	case "select":
		var req struct {
			Value string `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		wf, err := rt.workflows.Evaluation(uid)
		if err != nil {
			rt.writeError(w, err)
			return
		}
		if err := wf.Select(req.Value); err != nil {
			rt.writeError(w, err)
			return
		}
		rt.writeJSON(w, evaluationView(wf))
	case "next":
		rt.stepEvaluation(w, uid, func(wf *services.EvaluationWorkflow) error { return wf.Next() })
	case "back":
		rt.stepEvaluation(w, uid, func(wf *services.EvaluationWorkflow) error { return wf.Back() })
	case "confirm":
		wf, err := rt.workflows.Evaluation(uid)
		if err != nil {
			rt.writeError(w, err)
			return
		}
		rec, err := wf.Confirm()
		if err != nil {
			rt.writeError(w, err)
			return
		}
		rt.writeJSON(w, map[string]any{"state": wf.State(), "record": rec})
	case "exit":
		rt.workflows.ExitEvaluation(uid)
		rt.writeJSON(w, map[string]any{"ok": true})
	default:
		http.NotFound(w, r)
	}
}

func (rt *Router) stepEvaluation(w http.ResponseWriter, uid string, step func(*services.EvaluationWorkflow) error) {
	wf, err := rt.workflows.Evaluation(uid)
	if err != nil {
		rt.writeError(w, err)
		return
	}
	if err := step(wf); err != nil {
		rt.writeError(w, err)
		return
	}
	rt.writeJSON(w, evaluationView(wf))
}

func evaluationView(wf *services.EvaluationWorkflow) map[string]any {
	out := map[string]any{
		"state":       wf.State(),
		"step":        wf.Step(),
		"total":       wf.QuestionCount(),
		"vendor_id":   wf.VendorID(),
		"vendor_name": wf.VendorName(),
	}
	if q := wf.Current(); q != nil {
		out["question"] = q
	}
	if sel := wf.Selected(); sel != nil {
		out["selected"] = *sel
	}
	return out
}
