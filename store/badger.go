package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v4"

	"github.com/rushteam/petmatch/core"
)

// 键布局：
//
//	file_paths/00000000 -> 图片标识（UTF-8）
//	features/00000000   -> 小端 float64 向量
//	meta/count          -> 记录数（十进制），最后写入
var metaCountKey = []byte("meta/count")

func datasetKey(dataset string, i int) []byte {
	return []byte(fmt.Sprintf("%s/%08d", dataset, i))
}

// BadgerPersister 把特征库保存在本地 BadgerDB 目录中（默认持久化后端）。
type BadgerPersister struct {
	db    *badger.DB
	owned bool
}

// OpenBadger 打开（或创建）BadgerDB；inMemory 为 true 时不落盘，测试使用。
func OpenBadger(path string, inMemory bool) (*BadgerPersister, error) {
	opts := badger.DefaultOptions(path)
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for feature store: %w", err)
	}
	return &BadgerPersister{db: db, owned: true}, nil
}

// NewBadgerPersister 使用已打开的数据库，Close 不会关闭它
func NewBadgerPersister(db *badger.DB) *BadgerPersister {
	return &BadgerPersister{db: db}
}

func (p *BadgerPersister) Name() string { return "badger" }

// Persist 覆盖写入：先清空旧数据，再批量写入两个数据集，最后写入记录数。
// 写入中途失败时 meta/count 缺失，下次 Load 返回 NOT_FOUND 并触发重建。
func (p *BadgerPersister) Persist(ctx context.Context, entries []core.FeatureEntry) error {
	if err := p.db.DropPrefix(metaCountKey, []byte(core.DatasetFilePaths+"/"), []byte(core.DatasetFeatures+"/")); err != nil {
		return fmt.Errorf("badger: clear feature store: %w", err)
	}

	wb := p.db.NewWriteBatch()
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			wb.Cancel()
			return err
		}
		if err := wb.Set(datasetKey(core.DatasetFilePaths, i), []byte(e.ID)); err != nil {
			wb.Cancel()
			return fmt.Errorf("badger: write %s: %w", core.DatasetFilePaths, err)
		}
		if err := wb.Set(datasetKey(core.DatasetFeatures, i), EncodeVector(e.Vector)); err != nil {
			wb.Cancel()
			return fmt.Errorf("badger: write %s: %w", core.DatasetFeatures, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("badger: flush feature store: %w", err)
	}

	return p.db.Update(func(txn *badger.Txn) error {
		return txn.Set(metaCountKey, []byte(strconv.Itoa(len(entries))))
	})
}

// Load 读取全部记录，顺序与写入时一致
func (p *BadgerPersister) Load(ctx context.Context) ([]core.FeatureEntry, error) {
	var entries []core.FeatureEntry
	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaCountKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return core.ErrFeatureStoreNotFound
		}
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		n, err := strconv.Atoi(string(raw))
		if err != nil || n < 0 {
			return fmt.Errorf("invalid count %q: %w", raw, core.ErrFeatureStoreCorrupt)
		}

		entries = make([]core.FeatureEntry, 0, n)
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			id, err := getValue(txn, datasetKey(core.DatasetFilePaths, i))
			if err != nil {
				return err
			}
			payload, err := getValue(txn, datasetKey(core.DatasetFeatures, i))
			if err != nil {
				return err
			}
			vec, err := DecodeVector(payload)
			if err != nil {
				return err
			}
			entries = append(entries, core.FeatureEntry{ID: string(id), Vector: vec})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger: load feature store: %w", err)
	}
	return entries, nil
}

func getValue(txn *badger.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("missing key %s: %w", key, core.ErrFeatureStoreCorrupt)
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

// Close 关闭由 OpenBadger 打开的数据库
func (p *BadgerPersister) Close() error {
	if p.owned {
		return p.db.Close()
	}
	return nil
}

var _ core.FeatureStorePersister = (*BadgerPersister)(nil)
