package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/susu3304/potbot/internal/money"
	"github.com/susu3304/potbot/internal/settle"
)

const maxBodyBytes = 1 << 20

// settleRequest carries balances as typed by a user: numbers, numeric strings,
// "" or "-" for fields still being edited, or null.
type settleRequest struct {
	Balances    map[string]money.Input `json:"balances"`
	AutoBalance *bool                  `json:"auto_balance,omitempty"`
	Policy      string                 `json:"policy,omitempty"`
}

type solveResponse struct {
	OK        bool              `json:"ok"`
	Transfers []settle.Transfer `json:"transfers,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Residual  *money.Amount     `json:"residual,omitempty"`
}

type settleResponse struct {
	OK       bool          `json:"ok"`
	Reason   string        `json:"reason,omitempty"`
	Residual *money.Amount `json:"residual,omitempty"`
	*settle.Plan
}

func decodeSettleRequest(w http.ResponseWriter, r *http.Request) (*settleRequest, bool) {
	var req settleRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return nil, false
	}
	if req.Balances == nil {
		http.Error(w, "missing balances", http.StatusBadRequest)
		return nil, false
	}
	return &req, true
}

// balances reads every field as a number, counting placeholders and junk as 0
// just like validation does.
func (req *settleRequest) balances() money.Balances {
	b := make(money.Balances, len(req.Balances))
	for id, in := range req.Balances {
		b[id] = in.Amount()
	}
	return b
}

func (a *API) handleValidate(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSettleRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, settle.ValidateInputs(req.Balances))
}

func (a *API) handleAutoBalance(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSettleRequest(w, r)
	if !ok {
		return
	}
	policy, err := settle.ParsePolicy(req.Policy)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	in := req.balances()
	out := settle.AutoBalanceWith(in, policy)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"balances": out,
		"adjusted": !in.Equal(out),
	})
}

func (a *API) handleSolve(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSettleRequest(w, r)
	if !ok {
		return
	}

	transfers, err := settle.Solve(req.balances())
	var unbalanced *settle.UnbalancedError
	if errors.As(err, &unbalanced) {
		writeJSON(w, http.StatusUnprocessableEntity, solveResponse{
			Reason:   settle.ErrUnbalanced.Error(),
			Residual: &unbalanced.Residual,
		})
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, solveResponse{OK: true, Transfers: transfers})
}

func (a *API) handleSettle(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSettleRequest(w, r)
	if !ok {
		return
	}
	policy, err := settle.ParsePolicy(req.Policy)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	opts := settle.Options{AutoBalance: a.config.AutoBalance, Policy: policy}
	if req.AutoBalance != nil {
		opts.AutoBalance = *req.AutoBalance
	}

	plan, err := settle.Settle(req.balances(), opts)
	var unbalanced *settle.UnbalancedError
	if errors.As(err, &unbalanced) {
		writeJSON(w, http.StatusUnprocessableEntity, settleResponse{
			Reason:   settle.ErrUnbalanced.Error(),
			Residual: &unbalanced.Residual,
			Plan:     plan,
		})
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, settleResponse{OK: true, Plan: plan})
}
