package services

import (
	"encoding/json"
	"fmt"
	"time"

	"namiokai-backend/database"
	"namiokai-backend/models"

	"github.com/google/uuid"
)

// SpaceBackup is the JSON export format for one space's bill collection.
type SpaceBackup struct {
	SpaceID    uuid.UUID     `json:"space_id"`
	SpaceName  string        `json:"space_name"`
	ExportedAt time.Time     `json:"exported_at"`
	Bills      []models.Bill `json:"bills"`
}

// ExportSpaceBills serializes every bill of a space to JSON.
func ExportSpaceBills(spaceID uuid.UUID) ([]byte, error) {
	var space models.Space
	if err := database.DB.First(&space, spaceID).Error; err != nil {
		return nil, fmt.Errorf("space not found: %w", err)
	}

	var bills []models.Bill
	if err := database.DB.Where("space_id = ?", spaceID).Order("date ASC").Find(&bills).Error; err != nil {
		return nil, err
	}

	backup := SpaceBackup{
		SpaceID:    space.ID,
		SpaceName:  space.Name,
		ExportedAt: time.Now().UTC(),
		Bills:      bills,
	}

	return json.MarshalIndent(backup, "", "  ")
}

// ImportSpaceBills restores bills from a backup into a space. Bills failing
// validation are skipped and counted; ids are regenerated so an import never
// collides with existing rows.
func ImportSpaceBills(spaceID uuid.UUID, data []byte) (imported int, skipped int, err error) {
	var backup SpaceBackup
	if err := json.Unmarshal(data, &backup); err != nil {
		return 0, 0, fmt.Errorf("invalid backup file: %w", err)
	}

	for _, bill := range backup.Bills {
		bill.ID = uuid.Nil
		bill.SpaceID = spaceID
		if !bill.IsValid() {
			skipped++
			continue
		}
		if err := database.DB.Create(&bill).Error; err != nil {
			skipped++
			continue
		}
		imported++
	}

	return imported, skipped, nil
}
