package db

import (
	"fmt"
	"log"
	"os"

	"kitshed/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func ConnectDB() *gorm.DB {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}
	if err := Migrate(conn); err != nil {
		log.Fatal("Failed to migrate models: ", err)
	}
	return conn
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Equipment{},
		&models.KitTemplate{},
		&models.TemplateItem{},
		&models.EquipmentKit{},
		&models.KitItem{},
		&models.KitCheckout{},
		&models.CheckoutItem{},
		&models.CheckoutEvent{},
	); err != nil {
		return err
	}

	// One physical item lives in at most one live kit. The service layer
	// checks first for a friendly message; this index makes races fail loudly.
	if err := db.Exec(fmt.Sprintf(`
	  CREATE UNIQUE INDEX IF NOT EXISTS %s_one_kit_per_equipment
	  ON %s (equipment_id)
	  WHERE deleted_at IS NULL;
	`, models.KitItemTable, models.KitItemTable)).Error; err != nil {
		return err
	}

	// At most one non-terminal checkout per kit.
	if err := db.Exec(fmt.Sprintf(`
	  CREATE UNIQUE INDEX IF NOT EXISTS %s_one_live_per_kit
	  ON %s (kit_id)
	  WHERE status NOT IN ('returned', 'cancelled');
	`, models.CheckoutTable, models.CheckoutTable)).Error; err != nil {
		return err
	}

	// Overdue sweep scans by (status, expected_return_at).
	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_status_expected_return
	  ON %s (status, expected_return_at);
	`, models.CheckoutTable, models.CheckoutTable)).Error; err != nil {
		return err
	}

	return nil
}
