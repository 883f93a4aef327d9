package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pvplan/pvplan/internal/app/compensation"
	"github.com/pvplan/pvplan/internal/app/roster"
	"github.com/pvplan/pvplan/internal/domain"
	"github.com/pvplan/pvplan/internal/infra/observability"
)

// ─── Plan API ───────────────────────────────────────────────────────────────
//
// POST /api/compute   roster in, compensation result out
// POST /api/levels    roster in, per-depth breakdown out
// POST /api/duplicate duplication parameters in, generated roster + result out
// GET  /api/ranks     the rank table
// GET  /api/license/{code} license validity

// duplicateRequest is the body of POST /api/duplicate.
type duplicateRequest struct {
	Directs        int                `json:"directs" validate:"gte=0"`
	PerMember      int                `json:"per_member" validate:"gte=0"`
	Depth          int                `json:"depth" validate:"gte=0"`
	Volume         float64            `json:"volume" validate:"gte=0"`
	Rank           domain.RankSetting `json:"rank"`
	PersonalVolume float64            `json:"personal_volume" validate:"gte=0"`
}

func (d duplicateRequest) plan() roster.DuplicationPlan {
	return roster.DuplicationPlan{
		Directs:   d.Directs,
		PerMember: d.PerMember,
		Depth:     d.Depth,
		Volume:    d.Volume,
		Rank:      d.Rank,
	}
}

// duplicateResponse pairs the generated roster with its result.
type duplicateResponse struct {
	Members  int                       `json:"members"`
	Downline []domain.Member           `json:"downline"`
	Result   domain.CompensationResult `json:"result"`
}

// handleCompute computes earnings for a roster.
// POST /api/compute
func (s *Server) handleCompute(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeRoster(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.compute(r, in))
}

// handleLevels returns the per-depth breakdown of a roster.
// POST /api/levels
func (s *Server) handleLevels(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeRoster(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"levels": compensation.Levels(in.Downline),
	})
}

// handleDuplicate builds a uniform network and computes it.
// POST /api/duplicate
func (s *Server) handleDuplicate(w http.ResponseWriter, r *http.Request) {
	var req duplicateRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.maxDepth > 0 && req.Depth > s.maxDepth {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("depth %d exceeds limit %d", req.Depth, s.maxDepth))
		return
	}

	downline, err := roster.Duplicate(req.plan())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	in := domain.PlanInput{PersonalVolume: req.PersonalVolume, Downline: downline}
	writeJSON(w, http.StatusOK, duplicateResponse{
		Members:  roster.Count(downline),
		Downline: downline,
		Result:   s.compute(r, in),
	})
}

// handleRanks returns the rank table.
// GET /api/ranks
func (s *Server) handleRanks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"ranks": domain.Ranks()})
}

// handleLicense reports whether a code is valid.
// GET /api/license/{code}
func (s *Server) handleLicense(w http.ResponseWriter, r *http.Request) {
	st, err := s.licenses.Check(chi.URLParam(r, "code"), time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	observability.LicenseLookups.WithLabelValues(statusLabel(st)).Inc()
	writeJSON(w, http.StatusOK, st)
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// decodeRoster reads and validates a PlanInput body. On failure it has
// already written the response.
func (s *Server) decodeRoster(w http.ResponseWriter, r *http.Request) (domain.PlanInput, bool) {
	var in domain.PlanInput
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return in, false
	}
	in.Downline = roster.EnsureIDs(in.Downline)
	if err := roster.Validate(in.Downline, s.maxDepth); err != nil {
		writeDomainError(w, err)
		return in, false
	}
	return in, true
}

// compute runs the engine inside a span and records metrics.
func (s *Server) compute(r *http.Request, in domain.PlanInput) domain.CompensationResult {
	ctx := observability.WithTraceID(r.Context(), middleware.GetReqID(r.Context()))
	span := s.tracer.StartSpan(ctx, "compute", nil)

	start := time.Now()
	res := compensation.Compute(in)
	elapsed := time.Since(start)

	span.SetAttr("rank", res.Rank.String())
	span.SetAttr("members", strconv.Itoa(res.DownlineMembers))
	s.tracer.EndSpan(span, nil)
	observability.RecordComputation(res.Rank.String(), res.DownlineMembers, elapsed)
	return res
}

func statusLabel(st domain.LicenseStatus) string {
	if st.Valid {
		return "valid"
	}
	return st.Reason
}
