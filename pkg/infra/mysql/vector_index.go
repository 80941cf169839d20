package mysql

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"opsguard/common/entity"
	"opsguard/common/model"
	"opsguard/pkg/errorutil"
)

// DefaultScanLimit 单次检索最多载入的候选条目数（按更新时间取最新）
const DefaultScanLimit = 5000

// VectorIndex 事故向量索引（memory_item 表）
// 向量以 JSON 存储，相似检索在进程内计算余弦距离，候选集受 scanLimit 限制
type VectorIndex struct {
	db        *gorm.DB
	scanLimit int
	now       func() time.Time
}

// VectorIndexOption 索引选项
type VectorIndexOption func(*VectorIndex)

// WithScanLimit 设置候选条目上限，<=0 不生效
func WithScanLimit(n int) VectorIndexOption {
	return func(idx *VectorIndex) {
		if n > 0 {
			idx.scanLimit = n
		}
	}
}

// NewVectorIndex 创建向量索引
func NewVectorIndex(db *gorm.DB, opts ...VectorIndexOption) *VectorIndex {
	idx := &VectorIndex{db: db, scanLimit: DefaultScanLimit, now: time.Now}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Upsert 按事故 ID 写入或覆盖索引条目，并回写 incidents.embedding_ref
func (idx *VectorIndex) Upsert(ctx context.Context, doc *model.IndexDocument, vec []float32) error {
	item, err := memoryItemFromDoc(doc, vec, idx.now())
	if err != nil {
		return errorutil.NonRetriable(err.Error())
	}

	err = idx.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(item).Error; err != nil {
			return err
		}
		return tx.Model(&entity.Incident{}).
			Where("id = ?", doc.IncidentID).
			Update("embedding_ref", item.ID).Error
	})
	if err != nil {
		return errorutil.Transient("failed to upsert memory item", err)
	}
	return nil
}

// Query 相似检索；service 为空时不过滤
func (idx *VectorIndex) Query(ctx context.Context, vec []float32, service string, k int) ([]model.SearchHit, error) {
	var items []entity.MemoryItem
	if err := idx.candidates(ctx, service).Find(&items).Error; err != nil {
		return nil, errorutil.Transient("failed to load memory items", err)
	}
	return rankItems(items, vec, k), nil
}

// candidates 检索候选集：最新的 scanLimit 条
func (idx *VectorIndex) candidates(ctx context.Context, service string) *gorm.DB {
	q := idx.db.WithContext(ctx).Model(&entity.MemoryItem{})
	if service != "" {
		q = q.Where("service = ?", service)
	}
	return q.Order("updated_at DESC").Limit(idx.scanLimit)
}
