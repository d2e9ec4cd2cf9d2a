package medicines

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sahilkhatri/pharmakart-backend/pkg/db/models"
	"github.com/sahilkhatri/pharmakart-backend/pkg/pagination"
)

// Repository defines persistence operations for the medicine catalog.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, medicine *models.Medicine) (*models.Medicine, error)
	Update(ctx context.Context, medicine *models.Medicine) (*models.Medicine, error)
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Medicine, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Medicine, error)
	ListByPharmacy(ctx context.Context, pharmacyID uuid.UUID) ([]models.Medicine, error)
	Search(ctx context.Context, params pagination.Params, query string) (*SearchResult, error)
}

// SearchResult wraps a catalog page plus the next page cursor.
type SearchResult struct {
	Medicines  []models.Medicine `json:"medicines"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a medicine repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, medicine *models.Medicine) (*models.Medicine, error) {
	if err := r.db.WithContext(ctx).Create(medicine).Error; err != nil {
		return nil, err
	}
	return medicine, nil
}

func (r *repository) Update(ctx context.Context, medicine *models.Medicine) (*models.Medicine, error) {
	if err := r.db.WithContext(ctx).Save(medicine).Error; err != nil {
		return nil, err
	}
	return medicine, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Medicine{}, "id = ?", id).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Medicine, error) {
	var medicine models.Medicine
	err := r.db.WithContext(ctx).
		Preload("Stock").
		First(&medicine, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &medicine, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Medicine, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var medicines []models.Medicine
	err := r.db.WithContext(ctx).
		Preload("Stock").
		Where("id IN ?", ids).
		Find(&medicines).Error
	if err != nil {
		return nil, err
	}
	return medicines, nil
}

func (r *repository) ListByPharmacy(ctx context.Context, pharmacyID uuid.UUID) ([]models.Medicine, error) {
	var medicines []models.Medicine
	err := r.db.WithContext(ctx).
		Preload("Stock").
		Where("pharmacy_id = ?", pharmacyID).
		Order("name ASC").
		Find(&medicines).Error
	if err != nil {
		return nil, err
	}
	return medicines, nil
}

func (r *repository) Search(ctx context.Context, params pagination.Params, query string) (*SearchResult, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	q := r.db.WithContext(ctx).
		Preload("Stock").
		Order("created_at DESC, id DESC").
		Limit(limit + 1)

	if trimmed := strings.TrimSpace(query); trimmed != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(trimmed)+"%")
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var medicines []models.Medicine
	if err := q.Find(&medicines).Error; err != nil {
		return nil, err
	}

	result := &SearchResult{}
	if len(medicines) > limit {
		medicines = medicines[:limit]
		last := medicines[len(medicines)-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	result.Medicines = medicines
	return result, nil
}
