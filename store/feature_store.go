// Package store 保存图片特征库：内存中的 (标识, 向量) 列表、从图片源构建、持久化与一次性加载。
package store

import (
	"fmt"
	"sync"

	"github.com/rushteam/petmatch/core"
)

// FeatureStore 是内存中的特征库：有序的 (图片标识, 特征向量) 列表。
//
// 约束：
//   - 标识唯一
//   - 所有向量长度一致，由第一条记录确定
//
// 初始化完成后只读，可被并发请求共享。
type FeatureStore struct {
	mu      sync.RWMutex
	ids     []string
	vectors [][]float64
	index   map[string]int
	dim     int
}

// NewFeatureStore 创建空特征库
func NewFeatureStore() *FeatureStore {
	return &FeatureStore{index: make(map[string]int)}
}

// FromEntries 用已有记录构造特征库，记录违反约束时返回错误
func FromEntries(entries []core.FeatureEntry) (*FeatureStore, error) {
	s := NewFeatureStore()
	for _, e := range entries {
		if err := s.Add(e.ID, e.Vector); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add 追加一条记录。标识重复、向量为空或维度不一致时返回 INVALID_INPUT。
func (s *FeatureStore) Add(id string, vec []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		return core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput, "store: empty id")
	}
	if len(vec) == 0 {
		return core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput, "store: empty vector for "+id)
	}
	if _, ok := s.index[id]; ok {
		return core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput, "store: duplicate id "+id)
	}
	if s.dim != 0 && len(vec) != s.dim {
		return core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput,
			fmt.Sprintf("store: %s has dimension %d, store dimension is %d", id, len(vec), s.dim))
	}
	if s.dim == 0 {
		s.dim = len(vec)
	}
	s.index[id] = len(s.ids)
	s.ids = append(s.ids, id)
	s.vectors = append(s.vectors, vec)
	return nil
}

// All 返回平行的标识与向量切片（按插入顺序），调用方不得修改
func (s *FeatureStore) All() ([]string, [][]float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ids[:len(s.ids):len(s.ids)], s.vectors[:len(s.vectors):len(s.vectors)]
}

// Entries 返回全部记录（按插入顺序）
func (s *FeatureStore) Entries() []core.FeatureEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.FeatureEntry, len(s.ids))
	for i := range s.ids {
		out[i] = core.FeatureEntry{ID: s.ids[i], Vector: s.vectors[i]}
	}
	return out
}

// Get 按标识读取向量
func (s *FeatureStore) Get(id string) ([]float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return s.vectors[i], true
}

// Len 返回记录数
func (s *FeatureStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// Dimension 返回向量维度，空库为 0
func (s *FeatureStore) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dim
}
