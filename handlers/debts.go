package handlers

import (
	"net/http"
	"time"

	"namiokai-backend/database"
	"namiokai-backend/models"
	"namiokai-backend/services"
	"namiokai-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DebtEntryResponse is one bill's contribution to a pair debt.
type DebtEntryResponse struct {
	Amount      float64         `json:"amount"`
	BillID      uuid.UUID       `json:"bill_id"`
	BillType    models.BillType `json:"bill_type"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
}

// PairDebtsResponse is the netted debt for one directed user pair with its
// bill breakdown.
type PairDebtsResponse struct {
	DebtorID     uuid.UUID           `json:"debtor_id"`
	DebtorName   string              `json:"debtor_name"`
	CreditorID   uuid.UUID           `json:"creditor_id"`
	CreditorName string              `json:"creditor_name"`
	Amount       float64             `json:"amount"`
	Bills        []DebtEntryResponse `json:"bills"`
}

// SpaceDebtsResponse is one space's full ledger plus the current user's slice.
type SpaceDebtsResponse struct {
	SpaceID       uuid.UUID           `json:"space_id"`
	SpaceName     string              `json:"space_name"`
	Period        models.Period       `json:"period"`
	Debts         []PairDebtsResponse `json:"debts"`
	YouOwe        float64             `json:"you_owe"`
	OwedToYou     float64             `json:"owed_to_you"`
	CreditorCount int                 `json:"creditor_count"`
	FetchError    string              `json:"fetch_error,omitempty"`
}

// GET /api/spaces/:id/debts — ledger for the space's current period
func GetSpaceDebts(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	spaceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid space ID")
		return
	}

	if !isMember(spaceID, userID) {
		utils.Unauthorized(c, "You are not a member of this space")
		return
	}

	var space models.Space
	if err := database.DB.First(&space, spaceID).Error; err != nil {
		utils.NotFound(c, "Space not found")
		return
	}

	result := services.GetDebtsService().SpaceDebtsFor(c.Request.Context(), space, userID, time.Now())

	utils.SuccessResponse(c, http.StatusOK, "", buildSpaceDebtsResponse(result, userID))
}

// GET /api/debts — every space the current user belongs to
func GetAllDebts(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	var memberships []models.SpaceMember
	database.DB.Where("user_id = ?", userID).Find(&memberships)

	var spaceIDs []uuid.UUID
	for _, m := range memberships {
		spaceIDs = append(spaceIDs, m.SpaceID)
	}

	var spaces []models.Space
	if len(spaceIDs) > 0 {
		database.DB.Where("id IN ?", spaceIDs).Order("created_at DESC").Find(&spaces)
	}

	results := services.GetDebtsService().CalculateAll(c.Request.Context(), spaces, userID)

	responses := make([]SpaceDebtsResponse, 0, len(results))
	for _, r := range results {
		responses = append(responses, buildSpaceDebtsResponse(r, userID))
	}

	utils.SuccessResponse(c, http.StatusOK, "", responses)
}

func buildSpaceDebtsResponse(result services.SpaceDebts, userID uuid.UUID) SpaceDebtsResponse {
	ledger := result.Debts

	// Resolve display names once per response
	names := make(map[uuid.UUID]string)
	userName := func(id uuid.UUID) string {
		if name, ok := names[id]; ok {
			return name
		}
		var user models.User
		database.DB.First(&user, id)
		names[id] = user.Name
		return user.Name
	}

	var pairs []PairDebtsResponse
	for debtor, creditors := range ledger.AllDebts() {
		for creditor, entries := range creditors {
			pair := PairDebtsResponse{
				DebtorID:     debtor,
				DebtorName:   userName(debtor),
				CreditorID:   creditor,
				CreditorName: userName(creditor),
				Amount:       utils.RoundToTwo(ledger.Debt(debtor, creditor)),
			}
			for _, e := range entries {
				pair.Bills = append(pair.Bills, DebtEntryResponse{
					Amount:      utils.RoundToTwo(e.Amount),
					BillID:      e.Bill.ID,
					BillType:    e.Bill.Type,
					Description: e.Bill.Description,
					Date:        e.Bill.Date,
				})
			}
			pairs = append(pairs, pair)
		}
	}

	return SpaceDebtsResponse{
		SpaceID:       result.Space.ID,
		SpaceName:     result.Space.Name,
		Period:        result.Period,
		Debts:         pairs,
		YouOwe:        utils.RoundToTwo(ledger.TotalDebt(userID)),
		OwedToYou:     utils.RoundToTwo(ledger.TotalOwedToYou(userID)),
		CreditorCount: ledger.TotalDebtsCount(userID),
		FetchError:    result.FetchError,
	}
}
