package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pvplan/pvplan/internal/app/license"
	"github.com/pvplan/pvplan/internal/domain"
	"github.com/pvplan/pvplan/internal/infra/sqlite"
)

// ─── Helpers ────────────────────────────────────────────────────────────────

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return NewServer(10, 5*time.Second)
}

func newLicensedServer(t *testing.T, require bool) (*Server, *license.Service) {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	svc := license.NewService(db)
	s := newTestServer(t)
	s.SetLicenses(svc, require)
	return s, svc
}

func do(t *testing.T, h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode: %v (body %s)", err, w.Body.String())
	}
}

// ─── Basic Routes ───────────────────────────────────────────────────────────

func TestHealthAndVersion(t *testing.T) {
	h := newTestServer(t).Handler()

	w := do(t, h, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = do(t, h, http.MethodGet, "/api/version", "", nil)
	var resp map[string]string
	decode(t, w, &resp)
	if resp["version"] != Version {
		t.Errorf("version = %q, want %q", resp["version"], Version)
	}
}

func TestRanks(t *testing.T) {
	w := do(t, newTestServer(t).Handler(), http.MethodGet, "/api/ranks", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Ranks []domain.RankInfo `json:"ranks"`
	}
	decode(t, w, &resp)
	if len(resp.Ranks) != len(domain.Ranks()) {
		t.Fatalf("got %d ranks, want %d", len(resp.Ranks), len(domain.Ranks()))
	}
	if resp.Ranks[0].Rank != domain.RankMember || resp.Ranks[0].DiscountPercent != 25 {
		t.Errorf("first rank = %+v", resp.Ranks[0])
	}
	last := resp.Ranks[len(resp.Ranks)-1]
	if last.Rank != domain.RankPresident || last.RoyaltyThreshold != 10000 {
		t.Errorf("last rank = %+v", last)
	}
}

func TestCORS(t *testing.T) {
	h := newTestServer(t).Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/compute", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	// Browsers send the requested header names lowercased.
	req.Header.Set("Access-Control-Request-Headers", strings.ToLower(LicenseHeader))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code >= 300 {
		t.Fatalf("preflight status = %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("Allow-Origin = %q", w.Header().Get("Access-Control-Allow-Origin"))
	}

	w = do(t, h, http.MethodGet, "/api/ranks", "", map[string]string{"Origin": "https://example.com"})
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header on simple request")
	}
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t)
	s.SetRateLimit(0.001, 2)
	h := s.Handler()

	codes := make([]int, 3)
	for i := range codes {
		codes[i] = do(t, h, http.MethodPost, "/api/compute", `{}`, nil).Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("burst requests = %v, want 200s", codes[:2])
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("third request = %d, want 429", codes[2])
	}
	// The rank table is not limited.
	if w := do(t, h, http.MethodGet, "/api/ranks", "", nil); w.Code != http.StatusOK {
		t.Errorf("ranks: expected 200, got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	if w := do(t, s.Handler(), http.MethodGet, "/metrics", "", nil); w.Code != http.StatusNotFound {
		t.Errorf("metrics disabled: expected 404, got %d", w.Code)
	}
	s.EnableMetrics()
	w := do(t, s.Handler(), http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

// ─── Compute ────────────────────────────────────────────────────────────────

func TestCompute(t *testing.T) {
	s := newTestServer(t)
	body := `{
		"personal_volume": 1500,
		"downline": [
			{"id": "a", "name": "Anna", "volume": 3000, "rank": "Supervisor"},
			{"id": "b", "name": "Bruno", "volume": 400}
		]
	}`
	w := do(t, s.Handler(), http.MethodPost, "/api/compute", body, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var res domain.CompensationResult
	decode(t, w, &res)
	if res.Rank != domain.RankSupervisor {
		t.Errorf("rank = %s, want Supervisor", res.Rank)
	}
	if res.TotalVolume != 4900 {
		t.Errorf("TotalVolume = %v, want 4900", res.TotalVolume)
	}
	if res.DownlineMembers != 2 || len(res.Contributions) != 2 {
		t.Errorf("members = %d, contributions = %d", res.DownlineMembers, len(res.Contributions))
	}
	if res.Next == nil || res.Next.Rank != domain.RankWorldTeam {
		t.Errorf("next = %+v, want World Team", res.Next)
	}

	if s.Tracer().SpanCount() != 1 {
		t.Errorf("SpanCount() = %d, want 1", s.Tracer().SpanCount())
	}
	span := s.Tracer().Spans(1)[0]
	if span.Attrs["rank"] != "Supervisor" || span.Attrs["members"] != "2" {
		t.Errorf("span attrs = %v", span.Attrs)
	}
}

func TestCompute_EmptyBody(t *testing.T) {
	w := do(t, newTestServer(t).Handler(), http.MethodPost, "/api/compute", `{}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var res domain.CompensationResult
	decode(t, w, &res)
	if res.Rank != domain.RankMember || res.TotalEarnings != 0 {
		t.Errorf("empty roster result = %+v", res)
	}
}

func TestCompute_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"personal_volume": `},
		{"unknown rank", `{"downline": [{"name": "x", "rank": "Emperor"}]}`},
		{"duplicate ids", `{"downline": [{"id": "a"}, {"id": "a"}]}`},
	}

	h := newTestServer(t).Handler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/api/compute", tt.body, nil)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestCompute_DepthLimit(t *testing.T) {
	s := NewServer(2, time.Second)
	body := `{"downline": [{"id": "a", "children": [{"id": "b", "children": [{"id": "c"}]}]}]}`
	w := do(t, s.Handler(), http.MethodPost, "/api/compute", body, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

// ─── Levels / Duplicate ─────────────────────────────────────────────────────

func TestLevels(t *testing.T) {
	body := `{"downline": [
		{"id": "a", "volume": 100, "children": [{"id": "a1", "volume": 10}]},
		{"id": "b", "volume": 50}
	]}`
	w := do(t, newTestServer(t).Handler(), http.MethodPost, "/api/levels", body, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Levels []domain.LevelSummary `json:"levels"`
	}
	decode(t, w, &resp)
	want := []domain.LevelSummary{
		{Depth: 1, Members: 2, Volume: 150, Turnover: 300},
		{Depth: 2, Members: 1, Volume: 10, Turnover: 20},
	}
	if len(resp.Levels) != len(want) {
		t.Fatalf("levels = %+v", resp.Levels)
	}
	for i := range want {
		if resp.Levels[i] != want[i] {
			t.Errorf("level %d = %+v, want %+v", i+1, resp.Levels[i], want[i])
		}
	}
}

func TestDuplicate(t *testing.T) {
	body := `{"directs": 4, "per_member": 2, "depth": 2, "volume": 100, "personal_volume": 200}`
	w := do(t, newTestServer(t).Handler(), http.MethodPost, "/api/duplicate", body, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp duplicateResponse
	decode(t, w, &resp)
	if resp.Members != 12 {
		t.Errorf("members = %d, want 12", resp.Members)
	}
	// 200 personal + 12*100 downline
	if resp.Result.TotalVolume != 1400 {
		t.Errorf("TotalVolume = %v, want 1400", resp.Result.TotalVolume)
	}
	if resp.Result.Rank != domain.RankSeniorConsultant {
		t.Errorf("rank = %s, want Senior Consultant", resp.Result.Rank)
	}
}

func TestDuplicate_Limits(t *testing.T) {
	h := newTestServer(t).Handler()

	w := do(t, h, http.MethodPost, "/api/duplicate", `{"directs": 1, "per_member": 1, "depth": 11}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("too deep: expected 400, got %d", w.Code)
	}
	w = do(t, h, http.MethodPost, "/api/duplicate", `{"directs": 100, "per_member": 100, "depth": 4}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("too large: expected 400, got %d", w.Code)
	}
	w = do(t, h, http.MethodPost, "/api/duplicate", `{"directs": -1, "depth": 1}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("negative: expected 400, got %d", w.Code)
	}
	w = do(t, h, http.MethodPost, "/api/duplicate", `{"directs": 1, "depth": 1, "volume": -5}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("negative volume: expected 400, got %d", w.Code)
	}
}

// ─── License ────────────────────────────────────────────────────────────────

func TestLicenseRoute_NotMountedWithoutRegistry(t *testing.T) {
	w := do(t, newTestServer(t).Handler(), http.MethodGet, "/api/license/ABC", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestLicenseLookup(t *testing.T) {
	s, svc := newLicensedServer(t, false)
	l, err := svc.Issue("Anna", 0)
	if err != nil {
		t.Fatal(err)
	}
	h := s.Handler()

	w := do(t, h, http.MethodGet, "/api/license/"+strings.ToLower(l.Code), "", nil)
	var st domain.LicenseStatus
	decode(t, w, &st)
	if !st.Valid || st.Holder != "Anna" {
		t.Errorf("status = %+v", st)
	}

	w = do(t, h, http.MethodGet, "/api/license/NOPE", "", nil)
	st = domain.LicenseStatus{}
	decode(t, w, &st)
	if st.Valid || st.Reason != license.ReasonNotFound {
		t.Errorf("status = %+v", st)
	}

	// Without the gate, compute stays open.
	if w := do(t, h, http.MethodPost, "/api/compute", `{}`, nil); w.Code != http.StatusOK {
		t.Errorf("ungated compute: expected 200, got %d", w.Code)
	}
}

func TestLicenseGate(t *testing.T) {
	s, svc := newLicensedServer(t, true)
	good, _ := svc.Issue("Anna", time.Hour)
	revoked, _ := svc.Issue("Bruno", 0)
	if err := svc.Revoke(revoked.Code); err != nil {
		t.Fatal(err)
	}
	h := s.Handler()

	tests := []struct {
		name string
		code string
		want int
	}{
		{"missing", "", http.StatusForbidden},
		{"unknown", "XXXX", http.StatusForbidden},
		{"revoked", revoked.Code, http.StatusForbidden},
		{"valid", good.Code, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/api/compute", `{}`, map[string]string{LicenseHeader: tt.code})
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}

	// Rank table stays public.
	if w := do(t, h, http.MethodGet, "/api/ranks", "", nil); w.Code != http.StatusOK {
		t.Errorf("ranks: expected 200, got %d", w.Code)
	}
}

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrInvalidRoster, http.StatusBadRequest},
		{domain.ErrMemberNotFound, http.StatusNotFound},
		{domain.ErrLicenseExpired, http.StatusForbidden},
		{bytes.ErrTooLarge, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		writeDomainError(w, tt.err)
		if w.Code != tt.want {
			t.Errorf("writeDomainError(%v) = %d, want %d", tt.err, w.Code, tt.want)
		}
	}
}
