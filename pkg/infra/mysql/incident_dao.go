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

// IncidentDAO 事故数据访问对象
type IncidentDAO struct {
	db *gorm.DB
}

// NewIncidentDAO 创建 IncidentDAO 实例
func NewIncidentDAO(db *gorm.DB) *IncidentDAO {
	return &IncidentDAO{db: db}
}

// InsertIncident 单事务写入事故，提交后返回 ID
func (dao *IncidentDAO) InsertIncident(ctx context.Context, inc *model.Incident) (int64, error) {
	e, err := incidentToEntity(inc)
	if err != nil {
		return 0, errorutil.NonRetriable(err.Error())
	}
	e.ID = 0

	err = dao.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(e).Error
	})
	if err != nil {
		return 0, errorutil.Transient("failed to insert incident", err)
	}
	return e.ID, nil
}

// GetIncident 根据 ID 获取事故
func (dao *IncidentDAO) GetIncident(ctx context.Context, id int64) (*model.Incident, error) {
	var e entity.Incident
	result := dao.db.WithContext(ctx).Where("id = ?", id).First(&e)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errorutil.NotFound(fmt.Sprintf("incident %d not found", id))
		}
		return nil, errorutil.Transient("failed to get incident", result.Error)
	}
	inc, err := incidentFromEntity(&e)
	if err != nil {
		return nil, errorutil.NonRetriable(err.Error())
	}
	return inc, nil
}
