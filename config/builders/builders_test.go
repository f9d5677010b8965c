package builders

import (
	"strings"
	"testing"

	"github.com/rushteam/petmatch/config"
	"github.com/rushteam/petmatch/pipeline"
	"github.com/rushteam/petmatch/rank"
	"github.com/rushteam/petmatch/rerank"
)

func TestSupportedTypes(t *testing.T) {
	got := strings.Join(config.SupportedTypes(), ",")
	want := "filter,rank.similarity,rerank.diversity,rerank.images,rerank.topn"
	if got != want {
		t.Errorf("SupportedTypes = %s, want %s", got, want)
	}
}

func TestBuildDefaultPipeline(t *testing.T) {
	rc := config.RecommendConfig{Threshold: 0.7, ImageLimit: 3, TopN: 10, Expr: `item.score > 0.8`}
	p, err := config.BuildPipeline(config.DefaultPipelineConfig(rc, "http://localhost:8000"))
	if err != nil {
		t.Fatalf("BuildPipeline: %v", err)
	}
	if len(p.Nodes) != 4 {
		t.Fatalf("nodes = %d", len(p.Nodes))
	}
	sim, ok := p.Nodes[0].(*rank.SimilarityNode)
	if !ok || !sim.HasThreshold || sim.Threshold != 0.7 {
		t.Errorf("similarity node = %+v", p.Nodes[0])
	}
	img, ok := p.Nodes[2].(*rerank.ImageNode)
	if !ok || img.Limit != 3 {
		t.Errorf("image node = %+v", p.Nodes[2])
	}
	topn, ok := p.Nodes[3].(*rerank.TopNNode)
	if !ok || topn.N != 10 {
		t.Errorf("topn node = %+v", p.Nodes[3])
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		node pipeline.NodeConfig
		want string
	}{
		{"unknown node", pipeline.NodeConfig{Type: "recall.hot"}, "unsupported node type"},
		{"missing filters", pipeline.NodeConfig{Type: "filter"}, "filters"},
		{"unknown filter", pipeline.NodeConfig{Type: "filter", Config: map[string]interface{}{
			"filters": []interface{}{map[string]interface{}{"type": "exposed"}},
		}}, "unknown filter type"},
		{"bad expr", pipeline.NodeConfig{Type: "filter", Config: map[string]interface{}{
			"filters": []interface{}{map[string]interface{}{"type": "expr", "expr": "item.score >"}},
		}}, "expr filter"},
		{"bad threshold", pipeline.NodeConfig{Type: "rank.similarity", Config: map[string]interface{}{"threshold": "high"}}, "threshold"},
		{"no base url", pipeline.NodeConfig{Type: "rerank.images"}, "base_url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &pipeline.Config{}
			cfg.Pipeline.Nodes = []pipeline.NodeConfig{tt.node}
			_, err := config.BuildPipeline(cfg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestBuildSimilarityWithoutThreshold(t *testing.T) {
	node, err := BuildSimilarityNode(map[string]interface{}{"top_k": 3})
	if err != nil {
		t.Fatal(err)
	}
	sim := node.(*rank.SimilarityNode)
	if sim.HasThreshold || sim.TopK != 3 {
		t.Errorf("node = %+v", sim)
	}
}
