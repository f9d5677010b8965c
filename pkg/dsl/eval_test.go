package dsl

import (
	"testing"

	"github.com/rushteam/petmatch/core"
	"github.com/rushteam/petmatch/pkg/utils"
)

func TestEvaluate(t *testing.T) {
	fee := 0.0
	item := core.NewItem(3, &core.Pet{Name: "Luna", Type: "Cat", Health: "Healthy", Fee: 25}, nil)
	item.Score = 0.82
	item.PutLabel("rank_position", utils.Label{Value: "1", Source: "rank"})
	rctx := &core.RecommendContext{
		RequestID:   "req-1",
		Preferences: &core.Preferences{Type: "Cat", Fee: &fee},
		Params:      map[string]any{"max_fee": 30.0},
	}

	tests := []struct {
		expr    string
		want    bool
		wantErr bool
	}{
		{"", true, false},
		{`item.score > 0.8`, true, false},
		{`item.index == 3`, true, false},
		{`item.id == "Luna"`, true, false},
		{`item.pet.Type == pref.Type`, true, false},
		{`item.pet.Fee <= rctx.params.max_fee`, true, false},
		{`label.rank_position == "1"`, true, false},
		{`rctx.request_id == "req-1"`, true, false},
		{`has(pref.Gender)`, false, false},
		{`has(pref.Fee) && pref.Fee == 0.0`, true, false},
		{`item.pet.Unknown == "x"`, false, true},
		{`item.score >`, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Evaluate(tt.expr, item, rctx)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Evaluate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompileCached(t *testing.T) {
	a, err := Compile(`item.score > 0.5`)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := Compile(`item.score > 0.5`)
	if a != b {
		t.Error("compiled programs should be cached by expression")
	}
	if a.String() != `item.score > 0.5` {
		t.Errorf("String = %q", a.String())
	}
}

func TestEvalNilInputs(t *testing.T) {
	ok, err := Evaluate(`has(item.id)`, nil, nil)
	if err != nil || ok {
		t.Errorf("nil item: %v, %v", ok, err)
	}
}
