package core

import "context"

// 持久化容器中的两个命名数据集。
const (
	DatasetFilePaths = "file_paths"
	DatasetFeatures  = "features"
)

// FeatureEntry 是特征库中的一条记录：图片标识 + 特征向量。
// 同一个特征库中标识唯一，向量长度在构建时确定。
type FeatureEntry struct {
	ID     string
	Vector []float64
}

// FeatureStorePersister 是特征库持久化的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（store）实现
//   - 标识列表与向量列表作为两个平行数据集保存，往返必须逐字节一致
//
// 实现：
//   - store.BadgerPersister（默认，本地目录）
//   - store.RedisPersister
type FeatureStorePersister interface {
	// Name 返回后端名称（用于日志/监控）
	Name() string

	// Persist 覆盖写入全部记录
	Persist(ctx context.Context, entries []FeatureEntry) error

	// Load 读取全部记录；容器不存在时返回 ErrFeatureStoreNotFound
	Load(ctx context.Context) ([]FeatureEntry, error)

	// Close 关闭连接/释放资源
	Close() error
}

// 特征库错误定义
var (
	// ErrFeatureStoreNotFound 表示持久化容器不存在
	ErrFeatureStoreNotFound = NewDomainError(ModuleStore, ErrorCodeNotFound, "store: persisted feature store not found")

	// ErrFeatureStoreCorrupt 表示持久化容器内容不一致
	ErrFeatureStoreCorrupt = NewDomainError(ModuleStore, ErrorCodeInternalError, "store: persisted feature store is corrupt")
)
