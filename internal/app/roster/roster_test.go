package roster

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pvplan/pvplan/internal/domain"
)

// ─── Helpers ────────────────────────────────────────────────────────────────

func sampleTree() []domain.Member {
	return []domain.Member{
		{ID: "a", Name: "Anna", Volume: 100, Children: []domain.Member{
			{ID: "a1", Name: "Bruno", Volume: 50},
			{ID: "a2", Name: "Carla", Volume: 70, Children: []domain.Member{
				{ID: "a21", Name: "Dario", Volume: 10},
			}},
		}},
		{ID: "b", Name: "Elena", Volume: 200},
	}
}

// ─── Member Tests ───────────────────────────────────────────────────────────

func TestNewMember(t *testing.T) {
	m := NewMember("Anna")
	if m.ID == "" {
		t.Error("NewMember should assign an id")
	}
	if m.Rank.IsManual() || m.Volume != 0 || len(m.Children) != 0 {
		t.Errorf("NewMember defaults = %+v", m)
	}
	if other := NewMember("Anna"); other.ID == m.ID {
		t.Error("ids should be unique")
	}
}

func TestFindCountDepth(t *testing.T) {
	tree := sampleTree()

	m, ok := Find(tree, "a21")
	if !ok || m.Name != "Dario" {
		t.Errorf("Find(a21) = %+v, %v", m, ok)
	}
	if _, ok := Find(tree, "zz"); ok {
		t.Error("Find should miss unknown ids")
	}
	if got := Count(tree); got != 5 {
		t.Errorf("Count = %d, want 5", got)
	}
	if got := Depth(tree); got != 3 {
		t.Errorf("Depth = %d, want 3", got)
	}
	if Depth(nil) != 0 || Count(nil) != 0 {
		t.Error("empty tree should have zero depth and count")
	}
}

// ─── Edit Tests ─────────────────────────────────────────────────────────────

func TestAddChild(t *testing.T) {
	tree := sampleTree()
	child := domain.Member{ID: "new", Name: "Franco", Volume: 5}

	out, err := AddChild(tree, "a2", child)
	if err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	got, ok := Find(out, "a2")
	if !ok || len(got.Children) != 2 || got.Children[1].ID != "new" {
		t.Errorf("a2 children = %+v", got.Children)
	}
	if orig, _ := Find(tree, "a2"); len(orig.Children) != 1 {
		t.Error("AddChild mutated the original tree")
	}
}

func TestAddChild_UnknownParent(t *testing.T) {
	_, err := AddChild(sampleTree(), "missing", NewMember("x"))
	if !errors.Is(err, domain.ErrMemberNotFound) {
		t.Errorf("err = %v, want ErrMemberNotFound", err)
	}
}

func TestUpdate(t *testing.T) {
	tree := sampleTree()
	out, err := Update(tree, "a1", func(m *domain.Member) {
		m.Name = "Bruno B."
		m.Volume = 4500
		m.Rank = domain.ManualRank(domain.RankSupervisor)
		m.ID = "hijack"
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, ok := Find(out, "a1")
	if !ok {
		t.Fatal("id should survive Update")
	}
	if got.Name != "Bruno B." || got.Volume != 4500 {
		t.Errorf("updated member = %+v", got)
	}
	if r, ok := got.Rank.Manual(); !ok || r != domain.RankSupervisor {
		t.Errorf("rank = %v", got.Rank)
	}
	if orig, _ := Find(tree, "a1"); orig.Volume != 50 {
		t.Error("Update mutated the original tree")
	}
}

func TestRemove_DropsSubtree(t *testing.T) {
	tree := sampleTree()
	out, err := Remove(tree, "a2")
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok := Find(out, "a21"); ok {
		t.Error("children of a removed member should be removed too")
	}
	if Count(out) != 3 {
		t.Errorf("Count = %d, want 3", Count(out))
	}
	if Count(tree) != 5 {
		t.Error("Remove mutated the original tree")
	}

	if _, err := Remove(tree, "missing"); !errors.Is(err, domain.ErrMemberNotFound) {
		t.Errorf("err = %v, want ErrMemberNotFound", err)
	}
}

func TestReset(t *testing.T) {
	tree := sampleTree()
	tree[1].Rank = domain.ManualRank(domain.RankGET)

	out := Reset(tree)
	if Count(out) != Count(tree) {
		t.Fatalf("Reset changed the shape")
	}
	for _, id := range []string{"a", "a1", "a2", "a21", "b"} {
		m, _ := Find(out, id)
		if m.Volume != 0 || m.Rank.IsManual() {
			t.Errorf("%s not reset: %+v", id, m)
		}
	}
	if tree[0].Volume != 100 || !tree[1].Rank.IsManual() {
		t.Error("Reset mutated the original tree")
	}
}

func TestAppendAndFlat(t *testing.T) {
	base := Flat(NewMember("a"), NewMember("b"))
	out := Append(base, NewMember("c"))
	if len(out) != 3 || len(base) != 2 {
		t.Errorf("len(out)=%d len(base)=%d", len(out), len(base))
	}
	if Depth(out) != 1 {
		t.Errorf("flat roster depth = %d, want 1", Depth(out))
	}
}

// ─── Validation Tests ───────────────────────────────────────────────────────

func TestValidate(t *testing.T) {
	if err := Validate(sampleTree(), 3); err != nil {
		t.Errorf("Validate(sample): %v", err)
	}
	if err := Validate(sampleTree(), 2); !errors.Is(err, domain.ErrInvalidRoster) {
		t.Errorf("depth limit err = %v", err)
	}

	dup := sampleTree()
	dup[1].ID = "a21"
	if err := Validate(dup, 0); !errors.Is(err, domain.ErrInvalidRoster) {
		t.Errorf("duplicate id err = %v", err)
	}

	noID := []domain.Member{{Name: "anon"}}
	if err := Validate(noID, 0); !errors.Is(err, domain.ErrInvalidRoster) {
		t.Errorf("missing id err = %v", err)
	}
	if err := Validate(EnsureIDs(noID), 0); err != nil {
		t.Errorf("EnsureIDs should fix missing ids: %v", err)
	}
}

// ─── Duplication Tests ──────────────────────────────────────────────────────

func TestDuplicate(t *testing.T) {
	tree, err := Duplicate(DuplicationPlan{Directs: 3, PerMember: 2, Depth: 3, Volume: 100})
	if err != nil {
		t.Fatalf("Duplicate: %v", err)
	}
	// 3 + 6 + 12
	if got := Count(tree); got != 21 {
		t.Errorf("Count = %d, want 21", got)
	}
	if got := Depth(tree); got != 3 {
		t.Errorf("Depth = %d, want 3", got)
	}
	if err := Validate(tree, 0); err != nil {
		t.Errorf("generated tree invalid: %v", err)
	}
}

func TestDuplicationPlan_Size(t *testing.T) {
	tests := []struct {
		plan DuplicationPlan
		want int
	}{
		{DuplicationPlan{}, 0},
		{DuplicationPlan{Directs: 5, Depth: 1}, 5},
		{DuplicationPlan{Directs: 5, PerMember: 0, Depth: 4}, 5},
		{DuplicationPlan{Directs: 3, PerMember: 3, Depth: 5}, 363},
		{DuplicationPlan{Directs: 10, PerMember: 10, Depth: 6}, -1},
		{DuplicationPlan{Directs: 2, PerMember: 1 << 40, Depth: 3}, -1},
	}
	for _, tt := range tests {
		if got := tt.plan.Size(); got != tt.want {
			t.Errorf("%+v.Size() = %d, want %d", tt.plan, got, tt.want)
		}
	}
}

func TestDuplicate_TooLarge(t *testing.T) {
	_, err := Duplicate(DuplicationPlan{Directs: 50, PerMember: 50, Depth: 4})
	if !errors.Is(err, domain.ErrInvalidRoster) {
		t.Errorf("err = %v, want ErrInvalidRoster", err)
	}
}

// ─── File Tests ─────────────────────────────────────────────────────────────

func TestSaveLoad_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "team.toml")
	in := domain.PlanInput{PersonalVolume: 1500, Downline: sampleTree()}
	in.Downline[1].Rank = domain.ManualRank(domain.RankSupervisor)

	if err := Save(path, in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.PersonalVolume != 1500 || Count(got.Downline) != 5 {
		t.Errorf("loaded = %+v", got)
	}
	b, _ := Find(got.Downline, "b")
	if r, ok := b.Rank.Manual(); !ok || r != domain.RankSupervisor {
		t.Errorf("b rank = %v", b.Rank)
	}
}

func TestSaveLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "team.yml")
	in := domain.PlanInput{PersonalVolume: 300, Downline: sampleTree()}
	in.Downline[0].Children[1].Rank = domain.ManualRank(domain.RankWorldTeam)

	if err := Save(path, in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(in, got); diff != "" {
		t.Errorf("yaml round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_YAMLRankNames(t *testing.T) {
	const doc = `
personal_volume: 1200
downline:
  - id: a
    name: Anna
    volume: 4100
    rank: world team
  - id: b
    volume: 20
`
	in, err := Decode(strings.NewReader(doc), FormatYAML)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if r, ok := in.Downline[0].Rank.Manual(); !ok || r != domain.RankWorldTeam {
		t.Errorf("a rank = %v", in.Downline[0].Rank)
	}
	if in.Downline[1].Rank.IsManual() {
		t.Error("missing rank should stay derived")
	}

	if _, err := Decode(strings.NewReader("downline: [{rank: emperor}]"), FormatYAML); !errors.Is(err, domain.ErrUnknownRank) {
		t.Errorf("err = %v, want ErrUnknownRank", err)
	}
}

func TestDecode_JSONAssignsIDs(t *testing.T) {
	const doc = `{"personal_volume": 800, "downline": [
		{"name": "Anna", "volume": 600, "rank": "auto", "children": [{"name": "Bruno", "volume": 10}]}
	]}`
	in, err := Decode(strings.NewReader(doc), FormatJSON)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if in.Downline[0].ID == "" || in.Downline[0].Children[0].ID == "" {
		t.Error("Decode should assign ids to members without one")
	}
}

func TestEncode_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, Format("xml"), domain.PlanInput{}); !errors.Is(err, domain.ErrRosterFormat) {
		t.Errorf("err = %v, want ErrRosterFormat", err)
	}
	if _, err := Load("team.xml"); !errors.Is(err, domain.ErrRosterFormat) {
		t.Errorf("err = %v, want ErrRosterFormat", err)
	}
}
