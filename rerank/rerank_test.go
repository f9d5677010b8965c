package rerank

import (
	"context"
	"testing"

	"github.com/rushteam/petmatch/core"
	"github.com/rushteam/petmatch/images"
)

func itemsWithPaths(paths ...[]string) []*core.Item {
	items := make([]*core.Item, len(paths))
	for i, p := range paths {
		items[i] = core.NewItem(i, &core.Pet{Name: string(rune('A' + i)), ImagePaths: p}, nil)
	}
	return items
}

func TestImageNode(t *testing.T) {
	node := &ImageNode{Resolver: images.NewURLResolver("http://localhost:8000")}
	items := itemsWithPaths(
		[]string{"input/images/1.jpg", "input/images/2.jpg", "input/images/3.jpg", "input/images/4.jpg", "input/images/5.jpg"},
		nil,
		[]string{"x/only.png"},
	)

	out, err := node.Process(context.Background(), nil, items)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d items, want 2 (item without images dropped)", len(out))
	}
	want := []string{
		"http://localhost:8000/images/1.jpg",
		"http://localhost:8000/images/2.jpg",
		"http://localhost:8000/images/3.jpg",
	}
	if len(out[0].Images) != 3 {
		t.Fatalf("images = %q", out[0].Images)
	}
	for i := range want {
		if out[0].Images[i] != want[i] {
			t.Errorf("images[%d] = %q, want %q", i, out[0].Images[i], want[i])
		}
	}
	if out[1].Images[0] != "http://localhost:8000/images/only.png" {
		t.Errorf("images = %q", out[1].Images)
	}
	if items[1].Labels["dropped"].Value != "no_images" {
		t.Errorf("dropped item should be labelled: %v", items[1].Labels)
	}
}

func TestTopNNode(t *testing.T) {
	items := itemsWithPaths(nil, nil, nil, nil)
	tests := []struct {
		n    int
		want int
	}{
		{0, 4},
		{-1, 4},
		{2, 2},
		{10, 4},
	}
	for _, tt := range tests {
		out, _ := (&TopNNode{N: tt.n}).Process(context.Background(), nil, items)
		if len(out) != tt.want {
			t.Errorf("N=%d: got %d items, want %d", tt.n, len(out), tt.want)
		}
	}
}

func TestDiversity(t *testing.T) {
	breeds := []string{"Persian", "Persian", "Siamese", "Persian", "Siamese"}
	items := make([]*core.Item, len(breeds))
	for i, b := range breeds {
		items[i] = core.NewItem(i, &core.Pet{Name: b, Breed: b}, nil)
	}
	out, err := (&Diversity{MaxPerGroup: 1}).Process(context.Background(), nil, items)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(out) != 2 || out[0].Index != 0 || out[1].Index != 2 {
		t.Errorf("got indexes %v", indexes(out))
	}

	out, _ = (&Diversity{Field: core.FieldBreed, MaxPerGroup: 2}).Process(context.Background(), nil, items)
	if len(out) != 4 {
		t.Errorf("got indexes %v, want 4 items", indexes(out))
	}
}

func indexes(items []*core.Item) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.Index
	}
	return out
}
