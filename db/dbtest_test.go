package db

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"kitshed/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

// stubNumbering hands out sequential codes per series, standing in for the
// Redis-backed gateway.
type stubNumbering struct {
	seq map[string]int
}

func (s *stubNumbering) NextCode(_ context.Context, series, tenantID string) (string, error) {
	if s.seq == nil {
		s.seq = map[string]int{}
	}
	key := tenantID + ":" + series
	s.seq[key]++
	return fmt.Sprintf("%s-%04d", series, s.seq[key]), nil
}

// stubIdentity resolves from a fixed map.
type stubIdentity map[int64]string

func (s stubIdentity) ResolveUser(_ context.Context, userID int64) (string, error) {
	name, ok := s[userID]
	if !ok {
		return "", NotFoundf("user %d not found", userID)
	}
	return name, nil
}

const (
	testTenant   = "acme"
	borrowerDana = int64(7)
	borrowerMax  = int64(8)
)

func openTestRepo(t *testing.T) *Repo {
	t.Helper()
	conn, err := gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        filepath.Join(t.TempDir(), "kitshed_test.db"),
	}, &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, Migrate(conn))

	return NewRepo(conn, &stubNumbering{}, stubIdentity{
		borrowerDana: "Dana Field",
		borrowerMax:  "Max Store",
	})
}

func seedEquipment(t *testing.T, r *Repo, code string, typeID uint) *models.Equipment {
	t.Helper()
	eq := &models.Equipment{TenantID: testTenant, Code: code, Name: "eq " + code, TypeID: typeID}
	require.NoError(t, r.CreateEquipment(context.Background(), eq))
	return eq
}

func seedTemplate(t *testing.T, r *Repo, items ...TemplateItemInput) *models.KitTemplate {
	t.Helper()
	tpl, err := r.CreateTemplate(context.Background(), testTenant, CreateTemplateInput{
		Name:             "field survey",
		DefaultLoanDays:  3,
		RequireSignature: true,
		Items:            items,
	})
	require.NoError(t, err)
	return tpl
}

func seedAdHocKit(t *testing.T, r *Repo, equipmentIDs ...uint) *models.EquipmentKit {
	t.Helper()
	kit, err := r.CreateAdHocKit(context.Background(), testTenant, CreateKitInput{
		Name:         "field kit",
		EquipmentIDs: equipmentIDs,
	})
	require.NoError(t, err)
	return kit
}
