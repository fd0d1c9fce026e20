package implementation

import (
	"context"
	"errors"

	"sentinel-be/internal/repository/specification"

	"gorm.io/gorm"
)

type entityMapper[M any, E any] interface {
	ToEntity(m *M) *E
	ToModel(e *E) *M
}

// baseRepository carries the Create/FindOne/FindAll plumbing shared by all tables.
type baseRepository[M any, E any] struct {
	db     *gorm.DB
	mapper entityMapper[M, E]
}

func (r *baseRepository[M, E]) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *baseRepository[M, E]) Create(ctx context.Context, e *E) error {
	m := r.mapper.ToModel(e)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*e = *r.mapper.ToEntity(m)
	return nil
}

func (r *baseRepository[M, E]) FindOne(ctx context.Context, specs ...specification.Specification) (*E, error) {
	var m M
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *baseRepository[M, E]) FindAll(ctx context.Context, specs ...specification.Specification) ([]*E, error) {
	var models []*M
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*E, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}
