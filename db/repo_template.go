package db

import (
	"context"
	"strings"

	"kitshed/models"

	"gorm.io/gorm"
)

// Kit Template Registry: blueprints for kits. Created by administrators,
// referenced (never mutated) by the checkout flow.

type TemplateItemInput struct {
	TypeID    uint `json:"typeId"`
	Quantity  int  `json:"quantity"`
	Mandatory bool `json:"mandatory"`
}

type CreateTemplateInput struct {
	Name                  string              `json:"name"`
	Category              string              `json:"category"`
	DefaultLoanDays       int                 `json:"defaultLoanDays"`
	RequireSignature      bool                `json:"requireSignature"`
	RequireConditionCheck bool                `json:"requireConditionCheck"`
	Items                 []TemplateItemInput `json:"items"`
}

func (r *Repo) CreateTemplate(ctx context.Context, tenantID string, in CreateTemplateInput) (*models.KitTemplate, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, Validationf("template name is required")
	}
	if len(in.Items) == 0 {
		return nil, Validationf("template needs at least one item")
	}
	seen := map[uint]bool{}
	for _, it := range in.Items {
		if it.TypeID == 0 {
			return nil, Validationf("template item needs an equipment type")
		}
		if it.Quantity < 1 {
			return nil, Validationf("template item quantity must be at least 1")
		}
		if seen[it.TypeID] {
			return nil, Conflictf("duplicate equipment type %d in template items", it.TypeID)
		}
		seen[it.TypeID] = true
	}
	if in.DefaultLoanDays <= 0 {
		in.DefaultLoanDays = 7
	}

	code, err := r.Codes.NextCode(ctx, SeriesTemplate, tenantID)
	if err != nil {
		return nil, err
	}

	tpl := &models.KitTemplate{
		TenantID:              tenantID,
		Code:                  code,
		Name:                  strings.TrimSpace(in.Name),
		Category:              in.Category,
		DefaultLoanDays:       in.DefaultLoanDays,
		RequireSignature:      in.RequireSignature,
		RequireConditionCheck: in.RequireConditionCheck,
		Active:                true,
	}
	for i, it := range in.Items {
		tpl.Items = append(tpl.Items, models.TemplateItem{
			TypeID:    it.TypeID,
			Quantity:  it.Quantity,
			Mandatory: it.Mandatory,
			Position:  i,
		})
	}

	if err := r.DB.WithContext(ctx).Create(tpl).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, Conflictf("template code %q already exists", code)
		}
		return nil, err
	}
	return tpl, nil
}

func (r *Repo) GetTemplate(ctx context.Context, tenantID string, id uint) (*models.KitTemplate, error) {
	var tpl models.KitTemplate
	err := r.DB.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		First(&tpl, "tenant_id = ? AND id = ?", tenantID, id).Error
	if err != nil {
		return nil, asNotFound(err, "template %d not found", id)
	}
	return &tpl, nil
}

type TemplateQuery struct {
	Q      string
	Active *bool
	Page   int
	Size   int
}

type ListTemplatesResult struct {
	Templates []models.KitTemplate `json:"templates"`
	Total     int64                `json:"total"`
}

func (r *Repo) ListTemplates(ctx context.Context, tenantID string, q TemplateQuery) (ListTemplatesResult, error) {
	page, size := normalizePage(q.Page, q.Size)

	tx := r.DB.WithContext(ctx).Model(&models.KitTemplate{}).Where("tenant_id = ?", tenantID)
	if s := strings.TrimSpace(q.Q); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		tx = tx.Where("LOWER(name) LIKE ? OR LOWER(code) LIKE ?", like, like)
	}
	if q.Active != nil {
		tx = tx.Where("active = ?", *q.Active)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return ListTemplatesResult{}, err
	}
	var rows []models.KitTemplate
	if err := tx.
		Order("created_at DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&rows).Error; err != nil {
		return ListTemplatesResult{}, err
	}
	return ListTemplatesResult{Templates: rows, Total: total}, nil
}

// DeactivateTemplate stops new kits being created from the template. Kits
// already composed from it keep their reference.
func (r *Repo) DeactivateTemplate(ctx context.Context, tenantID string, id uint) error {
	res := r.DB.WithContext(ctx).Model(&models.KitTemplate{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Update("active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return NotFoundf("template %d not found", id)
	}
	return nil
}
