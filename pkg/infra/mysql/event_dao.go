package mysql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"opsguard/common/entity"
	"opsguard/common/model"
	"opsguard/pkg/errorutil"
)

// EventDAO 原始事件数据访问对象
type EventDAO struct {
	db *gorm.DB
}

// NewEventDAO 创建 EventDAO 实例
func NewEventDAO(db *gorm.DB) *EventDAO {
	return &EventDAO{db: db}
}

// InsertRawEvent 写入原始事件，返回自增 ID
func (dao *EventDAO) InsertRawEvent(ctx context.Context, ev *model.RawEvent) (int64, error) {
	e, err := rawEventToEntity(ev)
	if err != nil {
		return 0, errorutil.Malformed("invalid raw event", err)
	}
	e.ID = 0
	if err := dao.db.WithContext(ctx).Create(e).Error; err != nil {
		return 0, errorutil.Transient("failed to insert raw event", err)
	}
	return e.ID, nil
}

// GetRawEvent 根据 ID 获取原始事件；不存在时返回 NotFound
func (dao *EventDAO) GetRawEvent(ctx context.Context, id int64) (*model.RawEvent, error) {
	var e entity.RawEvent
	result := dao.db.WithContext(ctx).Where("id = ?", id).First(&e)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errorutil.NotFound(fmt.Sprintf("raw event %d not found", id))
		}
		return nil, errorutil.Transient("failed to get raw event", result.Error)
	}

	ev, err := rawEventFromEntity(&e)
	if err != nil {
		return nil, errorutil.NonRetriable(err.Error())
	}
	return ev, nil
}
