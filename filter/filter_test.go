package filter

import (
	"context"
	"strings"
	"testing"

	"github.com/rushteam/petmatch/core"
)

func ptr(v float64) *float64 { return &v }

func testPrefs() *core.Preferences {
	return &core.Preferences{
		Type: "Cat", Gender: "Female", MaturitySize: "Small", FurLength: "Short", Color: "Black",
		AgeMonths: ptr(12), Fee: ptr(0), Breed: "Persian",
	}
}

func testItem(name string, mutate func(*core.Pet)) *core.Item {
	p := &core.Pet{
		Name: name, Type: "Cat", Gender: "Female", MaturitySize: "Small", FurLength: "Short",
		Color: "Black", Breed: "Persian", Health: "Healthy", AgeMonths: 12, Fee: 50,
	}
	if mutate != nil {
		mutate(p)
	}
	return core.NewItem(0, p, nil)
}

func TestAttributeMatchFilter(t *testing.T) {
	rctx := &core.RecommendContext{Preferences: testPrefs()}
	tests := []struct {
		name   string
		fields []string
		item   *core.Item
		want   bool
	}{
		{"all equal", nil, testItem("a", nil), false},
		{"type differs", nil, testItem("a", func(p *core.Pet) { p.Type = "Dog" }), true},
		{"color differs", nil, testItem("a", func(p *core.Pet) { p.Color = "White" }), true},
		{"case sensitive", nil, testItem("a", func(p *core.Pet) { p.Gender = "female" }), true},
		{"unchecked field ignored", nil, testItem("a", func(p *core.Pet) { p.Breed = "Siamese" }), false},
		{"custom fields", []string{core.FieldBreed}, testItem("a", func(p *core.Pet) { p.Breed = "Siamese" }), true},
		{"numeric field", []string{core.FieldAge}, testItem("a", nil), false},
		{"query lacks field", []string{core.FieldHealth}, testItem("a", nil), true},
		{"no pet", nil, core.NewItem(0, nil, nil), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewAttributeMatchFilter(tt.fields...).ShouldFilter(context.Background(), rctx, tt.item)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("ShouldFilter = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExprFilter(t *testing.T) {
	rctx := &core.RecommendContext{Preferences: testPrefs()}
	tests := []struct {
		expr string
		want bool // 是否过滤
	}{
		{`item.pet.Health == "Healthy"`, false},
		{`item.pet.Fee <= 10.0`, true},
		{`item.pet.Breed1_Name == pref.Breed1_Name`, false},
		{`item.pet["Age(months)"] >= 12.0`, false},
		{`has(pref.Health)`, true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			f, err := NewExprFilter(tt.expr)
			if err != nil {
				t.Fatalf("NewExprFilter: %v", err)
			}
			got, err := f.ShouldFilter(context.Background(), rctx, testItem("a", nil))
			if err != nil {
				t.Fatalf("ShouldFilter: %v", err)
			}
			if got != tt.want {
				t.Errorf("ShouldFilter = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := NewExprFilter(`item.score +`); err == nil {
		t.Error("syntax error should fail at build time")
	}
	if _, err := NewExprFilter(`1 + 2`); err == nil {
		t.Error("non-boolean expression should fail at build time")
	}
}

func TestFilterNode(t *testing.T) {
	rctx := &core.RecommendContext{Preferences: testPrefs()}
	items := []*core.Item{
		testItem("Luna", nil),
		testItem("Rex", func(p *core.Pet) { p.Type = "Dog" }),
		testItem("Mochi", nil),
		testItem("Adopted", nil),
	}
	node := &FilterNode{Filters: []Filter{
		NewAttributeMatchFilter(),
		NewBlacklistFilter([]string{"Adopted"}),
	}}
	out, err := node.Process(context.Background(), rctx, items)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[0].ID != "Luna" || out[1].ID != "Mochi" {
		t.Fatalf("got %d items", len(out))
	}
	if lbl := items[1].Labels["filtered"]; lbl.Source != "filter.attribute_match" {
		t.Errorf("Rex label = %+v", lbl)
	}
	if lbl := items[3].Labels["filtered"]; lbl.Source != "filter.blacklist" {
		t.Errorf("Adopted label = %+v", lbl)
	}
}

func TestFilterNodeError(t *testing.T) {
	f, err := NewExprFilter(`item.pet.Missing == "x"`)
	if err != nil {
		t.Fatal(err)
	}
	_, err = (&FilterNode{Filters: []Filter{f}}).Process(context.Background(), &core.RecommendContext{}, []*core.Item{testItem("a", nil)})
	if err == nil || !strings.Contains(err.Error(), "filter.expr") {
		t.Errorf("err = %v", err)
	}
}
