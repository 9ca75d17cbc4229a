package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"earnLedger/internal/config"
	"earnLedger/internal/model"
	"earnLedger/internal/rewards"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type poolResponse struct {
	Pool                  model.Pool `json:"pool"`
	RewardPerShareDisplay string     `json:"reward_per_share_display"`
}

type buybackRequest struct {
	Amount    uint64 `json:"amount"`
	MinOutput uint64 `json:"min_output"`
}

type buybackResponse struct {
	Spent  uint64 `json:"spent"`
	Burned uint64 `json:"burned"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMaster(w http.ResponseWriter, r *http.Request) {
	master, err := s.ledger.Master(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, master)
}

func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := s.ledger.Assets(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if assets == nil {
		assets = []model.Asset{}
	}
	writeJSON(w, http.StatusOK, assets)
}

func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	mint, ok := addressParam(w, r, "mint")
	if !ok {
		return
	}
	asset, err := s.ledger.Asset(r.Context(), mint)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

func (s *Server) handlePool(w http.ResponseWriter, r *http.Request) {
	mint, ok := addressParam(w, r, "mint")
	if !ok {
		return
	}
	pool, err := s.ledger.Pool(r.Context(), mint)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, poolResponse{
		Pool:                  pool,
		RewardPerShareDisplay: rewards.FormatScaled(&pool.RewardPerShare),
	})
}

func (s *Server) handleTreasury(w http.ResponseWriter, r *http.Request) {
	mint, ok := addressParam(w, r, "mint")
	if !ok {
		return
	}
	t, err := s.ledger.Treasury(r.Context(), mint)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleStakers(w http.ResponseWriter, r *http.Request) {
	mint, ok := addressParam(w, r, "mint")
	if !ok {
		return
	}
	accounts, err := s.ledger.StakeAccounts(r.Context(), mint)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if accounts == nil {
		accounts = []model.StakeAccount{}
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	mint, ok := addressParam(w, r, "mint")
	if !ok {
		return
	}
	owner, ok := addressParam(w, r, "owner")
	if !ok {
		return
	}
	pos, err := s.ledger.Position(r.Context(), mint, owner)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

func (s *Server) handleUpdateRewards(w http.ResponseWriter, r *http.Request) {
	mint, ok := addressParam(w, r, "mint")
	if !ok {
		return
	}
	pool, err := s.ledger.UpdateRewards(r.Context(), mint)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, poolResponse{
		Pool:                  pool,
		RewardPerShareDisplay: rewards.FormatScaled(&pool.RewardPerShare),
	})
}

func (s *Server) handleBuyback(w http.ResponseWriter, r *http.Request) {
	mint, ok := addressParam(w, r, "mint")
	if !ok {
		return
	}
	var req buybackRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: "invalid JSON body"})
		return
	}

	result, err := s.ledger.ExecuteBuyback(r.Context(), mint, req.Amount, req.MinOutput)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, buybackResponse{Spent: result.Spent, Burned: result.Burned})
}

func addressParam(w http.ResponseWriter, r *http.Request, name string) (common.Address, bool) {
	addr, err := config.ParseAddress(chi.URLParam(r, name))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: name + ": " + err.Error()})
		return common.Address{}, false
	}
	return addr, true
}

// statusFor maps ledger errors onto HTTP statuses.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrTokenNotRegistered),
		errors.Is(err, model.ErrPoolNotFound),
		errors.Is(err, model.ErrStakeAccountNotFound),
		errors.Is(err, model.ErrMasterNotInitialized):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, model.ErrUnauthorized):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, model.ErrInvalidAmount),
		errors.Is(err, model.ErrInvalidTokenMint):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, model.ErrBelowBuybackThreshold),
		errors.Is(err, model.ErrInsufficientBalance),
		errors.Is(err, model.ErrSlippageExceeded),
		errors.Is(err, model.ErrTokenNotActive),
		errors.Is(err, model.ErrPoolPaused):
		return http.StatusConflict, "rejected"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: code, Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
