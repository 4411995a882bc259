// Package api exposes the vesting engine over HTTP JSON.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"solana-vesting/internal/domain"
	"solana-vesting/internal/vesting"
)

const maxBodyBytes = 1 << 20

// Server serves the /v1 vesting API.
type Server struct {
	engine *vesting.Engine
	log    *logrus.Entry
}

// NewServer creates an API server backed by engine.
func NewServer(engine *vesting.Engine, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Server{engine: engine, log: log.WithField("component", "api")}
}

// Register adds the /v1 routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/pools", s.handleCreatePool)
	mux.HandleFunc("GET /v1/pools", s.handleListPools)
	mux.HandleFunc("GET /v1/pools/{address}", s.handleGetPool)
	mux.HandleFunc("GET /v1/companies/{name}/pool", s.handleGetPoolByCompany)
	mux.HandleFunc("POST /v1/pools/{address}/deposits", s.handleDeposit)
	mux.HandleFunc("POST /v1/pools/{address}/schedules", s.handleCreateSchedule)
	mux.HandleFunc("GET /v1/pools/{address}/schedules", s.handleListSchedules)
	mux.HandleFunc("GET /v1/schedules/{address}", s.handleGetSchedule)
	mux.HandleFunc("POST /v1/schedules/{address}/claim", s.handleClaim)
	mux.HandleFunc("GET /v1/schedules/{address}/claims", s.handleListClaims)
	mux.HandleFunc("GET /v1/beneficiaries/{address}/schedules", s.handleListBeneficiarySchedules)
	mux.HandleFunc("GET /v1/accounts/{owner}/balances/{mint}", s.handleTokenBalance)
}

// Handler returns the /v1 routes wrapped in Middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return Middleware(s.log, mux)
}

func caller(r *http.Request) (string, error) {
	id := r.Header.Get(CallerHeader)
	if id == "" {
		return "", errMissingCaller
	}
	return id, nil
}

func decodeBody(r *http.Request, w http.ResponseWriter, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %v: %w", err, vesting.ErrInvalidInput)
	}
	return nil
}

func (s *Server) handleCreatePool(w http.ResponseWriter, r *http.Request) {
	operator, err := caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req CreatePoolRequest
	if err := decodeBody(r, w, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	pool, err := s.engine.CreatePool(r.Context(), operator, req.CompanyName, domain.Mint{
		Address:  req.Mint,
		Decimals: req.Decimals,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newPoolResponse(pool, 0))
}

func (s *Server) handleListPools(w http.ResponseWriter, r *http.Request) {
	pools, err := s.engine.ListPools(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := make([]PoolResponse, 0, len(pools))
	for _, p := range pools {
		balance, err := s.engine.CustodyBalance(r.Context(), p.Address)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		resp = append(resp, newPoolResponse(p, balance))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetPool(w http.ResponseWriter, r *http.Request) {
	pool, err := s.engine.GetPool(r.Context(), r.PathValue("address"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writePool(w, r, pool)
}

func (s *Server) handleGetPoolByCompany(w http.ResponseWriter, r *http.Request) {
	pool, err := s.engine.GetPoolByCompany(r.Context(), r.PathValue("name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writePool(w, r, pool)
}

func (s *Server) writePool(w http.ResponseWriter, r *http.Request, pool *domain.VestingPool) {
	balance, err := s.engine.CustodyBalance(r.Context(), pool.Address)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPoolResponse(pool, balance))
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	funder, err := caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req DepositRequest
	if err := decodeBody(r, w, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	address := r.PathValue("address")
	balance, err := s.engine.Deposit(r.Context(), funder, address, req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	pool, err := s.engine.GetPool(r.Context(), address)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DepositResponse{
		PoolAddress:      address,
		Amount:           req.Amount,
		CustodyBalance:   balance,
		CustodyBalanceUI: vesting.UIAmount(balance, pool.Decimals),
	})
}

func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	operator, err := caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req CreateScheduleRequest
	if err := decodeBody(r, w, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	sch, err := s.engine.CreateSchedule(r.Context(), operator, vesting.ScheduleParams{
		PoolAddress:     r.PathValue("address"),
		Beneficiary:     req.Beneficiary,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		CliffTime:       req.CliffTime,
		TotalAllocation: req.TotalAllocation,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	pool, err := s.engine.GetPool(r.Context(), sch.PoolAddress)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newScheduleResponse(sch, pool.Decimals))
}

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")
	schedules, err := s.engine.ListSchedules(r.Context(), address)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	pool, err := s.engine.GetPool(r.Context(), address)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := make([]ScheduleResponse, 0, len(schedules))
	for _, sch := range schedules {
		resp = append(resp, newScheduleResponse(sch, pool.Decimals))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListBeneficiarySchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := s.engine.ListSchedulesByBeneficiary(r.Context(), r.PathValue("address"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := make([]ScheduleResponse, 0, len(schedules))
	for _, sch := range schedules {
		pool, err := s.engine.GetPool(r.Context(), sch.PoolAddress)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		resp = append(resp, newScheduleResponse(sch, pool.Decimals))
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGetSchedule evaluates the schedule at ?at= when given, else at the
// engine clock.
func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	var at int64
	if raw := r.URL.Query().Get("at"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("at %q: %w", raw, vesting.ErrInvalidInput))
			return
		}
		at = v
	} else {
		now, err := s.engine.Now(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		at = now
	}

	sch, status, err := s.engine.ScheduleStatus(r.Context(), r.PathValue("address"), at)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	pool, err := s.engine.GetPool(r.Context(), sch.PoolAddress)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := newScheduleResponse(sch, pool.Decimals)
	resp.Status = newStatusResponse(status, pool.Decimals)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	beneficiary, err := caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	now, err := s.engine.Now(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	rec, err := s.engine.Claim(r.Context(), beneficiary, r.PathValue("address"), now)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	pool, err := s.engine.GetPool(r.Context(), rec.PoolAddress)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newClaimResponse(rec, pool.Decimals))
}

func (s *Server) handleListClaims(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")
	claims, err := s.engine.ListClaims(r.Context(), address)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sch, err := s.engine.GetSchedule(r.Context(), address)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	pool, err := s.engine.GetPool(r.Context(), sch.PoolAddress)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := make([]ClaimResponse, 0, len(claims))
	for _, c := range claims {
		resp = append(resp, newClaimResponse(c, pool.Decimals))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTokenBalance(w http.ResponseWriter, r *http.Request) {
	owner, mint := r.PathValue("owner"), r.PathValue("mint")
	amount, err := s.engine.TokenBalance(r.Context(), owner, mint)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{Owner: owner, Mint: mint, Amount: amount})
}
