package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"TroveDesk/internal/collector"
	"TroveDesk/internal/model"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
)

const (
	pricesCacheControl = "public, s-maxage=300, max-age=300, stale-while-revalidate=60"
	noStore            = "no-store"
	msgPriceFailure    = "Failed to fetch prices"
)

type errorBody struct {
	Error        string `json:"error"`
	ErrorType    string `json:"errorType,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	prices, err := s.deps.Prices.Collect(r.Context())
	if err != nil {
		kind := collector.Classify(err)
		s.logger.Warn("serving price failure", "errorType", kind, "request_id", RequestIDFrom(r.Context()))
		w.Header().Set("Cache-Control", noStore)
		writeJSON(w, http.StatusBadGateway, errorBody{
			Error:        msgPriceFailure,
			ErrorType:    string(kind),
			ErrorMessage: err.Error(),
		})
		return
	}
	w.Header().Set("Cache-Control", pricesCacheControl)
	writeJSON(w, http.StatusOK, map[string]model.PriceSet{"prices": prices})
}

func (s *Server) handleTrovesByAccount(w http.ResponseWriter, r *http.Request) {
	account, ok := parseAddress(r.URL.Query().Get("account"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account address")
		return
	}
	troves := s.deps.Indexer.TrovesByAccount(r.Context(), account)
	if troves == nil {
		troves = []model.Trove{}
	}
	writeJSON(w, http.StatusOK, map[string][]model.Trove{"troves": troves})
}

func (s *Server) handleTroveByID(w http.ResponseWriter, r *http.Request) {
	id, err := model.ParsePrefixedTroveID(chi.URLParam(r, "prefixedId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	trove := s.deps.Indexer.TroveByID(r.Context(), id)
	if trove == nil {
		writeError(w, http.StatusNotFound, "trove not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]*model.Trove{"trove": trove})
}

func (s *Server) handleLoan(w http.ResponseWriter, r *http.Request) {
	view, err := s.deps.Loans.Load(r.Context(), chi.URLParam(r, "prefixedId"))
	if err != nil {
		if errors.Is(err, model.ErrInvalidTroveID) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleBrackets(w http.ResponseWriter, r *http.Request) {
	brackets := s.deps.Indexer.AllInterestRateBrackets(r.Context())
	if brackets == nil {
		brackets = []model.InterestRateBracket{}
	}
	writeJSON(w, http.StatusOK, map[string][]model.InterestRateBracket{"brackets": brackets})
}

func (s *Server) handleInterestBatches(w http.ResponseWriter, r *http.Request) {
	branch, err := strconv.Atoi(chi.URLParam(r, "branchId"))
	if err != nil || branch < 0 {
		writeError(w, http.StatusBadRequest, "invalid branch id")
		return
	}
	var managers []common.Address
	for _, raw := range strings.Split(r.URL.Query().Get("addresses"), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		addr, ok := parseAddress(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid address "+raw)
			return
		}
		managers = append(managers, addr)
	}
	batches, err := s.deps.Indexer.InterestBatches(r.Context(), branch, managers)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if batches == nil {
		batches = []model.InterestBatch{}
	}
	writeJSON(w, http.StatusOK, map[string][]model.InterestBatch{"batches": batches})
}

func (s *Server) handleGovernance(w http.ResponseWriter, r *http.Request) {
	data, err := s.deps.Indexer.GovernanceGlobalData(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleUserAllocations(w http.ResponseWriter, r *http.Request) {
	user, ok := parseAddress(chi.URLParam(r, "address"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	allocations, err := s.deps.Indexer.UserAllocationHistory(r.Context(), user)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if allocations == nil {
		allocations = []model.Allocation{}
	}
	writeJSON(w, http.StatusOK, map[string][]model.Allocation{"allocations": allocations})
}

func (s *Server) handleTotalAllocations(w http.ResponseWriter, r *http.Request) {
	initiative, ok := parseAddress(chi.URLParam(r, "address"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	allocations, err := s.deps.Indexer.TotalAllocationHistory(r.Context(), initiative)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if allocations == nil {
		allocations = []model.TotalAllocation{}
	}
	writeJSON(w, http.StatusOK, map[string][]model.TotalAllocation{"allocations": allocations})
}

func (s *Server) handleSubgraphStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Indicator.Snapshot())
}

func (s *Server) handleBlockNumber(w http.ResponseWriter, r *http.Request) {
	block, err := s.deps.Indexer.IndexedBlockNumber(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"blockNumber": block})
}

func parseAddress(raw string) (common.Address, bool) {
	raw = strings.TrimSpace(raw)
	if !common.IsHexAddress(raw) {
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}
