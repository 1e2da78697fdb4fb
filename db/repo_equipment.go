package db

import (
	"context"
	"strings"

	"kitshed/models"
)

// Equipment rows are owned by the asset catalog; this service reads them,
// checks kit membership, and flips status on maintenance flags.

func (r *Repo) CreateEquipment(ctx context.Context, eq *models.Equipment) error {
	if strings.TrimSpace(eq.Name) == "" || strings.TrimSpace(eq.Code) == "" {
		return Validationf("equipment name and code are required")
	}
	if eq.Status == "" {
		eq.Status = models.EquipmentActive
	}
	if err := r.DB.WithContext(ctx).Create(eq).Error; err != nil {
		if isUniqueViolation(err) {
			return Conflictf("equipment code %q already exists", eq.Code)
		}
		return err
	}
	return nil
}

func (r *Repo) FindEquipmentByID(ctx context.Context, tenantID string, id uint) (*models.Equipment, error) {
	var eq models.Equipment
	err := r.DB.WithContext(ctx).
		First(&eq, "tenant_id = ? AND id = ?", tenantID, id).Error
	if err != nil {
		return nil, asNotFound(err, "equipment %d not found", id)
	}
	return &eq, nil
}

type EquipmentQuery struct {
	Q      string
	Status string
	TypeID uint
	Page   int
	Size   int
}

type ListEquipmentResult struct {
	Equipment []models.Equipment `json:"equipment"`
	Total     int64              `json:"total"`
}

func (r *Repo) ListEquipment(ctx context.Context, tenantID string, q EquipmentQuery) (ListEquipmentResult, error) {
	page, size := normalizePage(q.Page, q.Size)

	tx := r.DB.WithContext(ctx).Model(&models.Equipment{}).Where("tenant_id = ?", tenantID)
	if s := strings.TrimSpace(q.Q); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		tx = tx.Where("LOWER(name) LIKE ? OR LOWER(code) LIKE ?", like, like)
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	if q.TypeID != 0 {
		tx = tx.Where("type_id = ?", q.TypeID)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return ListEquipmentResult{}, err
	}
	var rows []models.Equipment
	if err := tx.
		Order("created_at DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&rows).Error; err != nil {
		return ListEquipmentResult{}, err
	}
	return ListEquipmentResult{Equipment: rows, Total: total}, nil
}

// AvailableEquipmentForKit returns active equipment that is not a member of
// any live kit. With a template id the result is narrowed to the types the
// template requires.
func (r *Repo) AvailableEquipmentForKit(ctx context.Context, tenantID string, templateID *uint) ([]models.Equipment, error) {
	tx := r.DB.WithContext(ctx).Model(&models.Equipment{}).
		Where("tenant_id = ? AND status = ?", tenantID, models.EquipmentActive).
		Where("id NOT IN (?)", r.DB.Model(&models.KitItem{}).Select("equipment_id"))

	if templateID != nil {
		tpl, err := r.GetTemplate(ctx, tenantID, *templateID)
		if err != nil {
			return nil, err
		}
		types := make([]uint, 0, len(tpl.Items))
		for _, it := range tpl.Items {
			types = append(types, it.TypeID)
		}
		if len(types) == 0 {
			return []models.Equipment{}, nil
		}
		tx = tx.Where("type_id IN ?", types)
	}

	var rows []models.Equipment
	if err := tx.Order("code ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
