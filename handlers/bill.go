package handlers

import (
	"fmt"
	"net/http"
	"time"

	"namiokai-backend/database"
	"namiokai-backend/models"
	"namiokai-backend/services"
	"namiokai-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// POST /api/spaces/:id/bills
func CreateBill(c *gin.Context) {
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

	var req models.CreateBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	paidBy, err := uuid.Parse(req.PaidBy)
	if err != nil {
		utils.BadRequest(c, "Invalid paid_by user ID")
		return
	}
	if !isMember(spaceID, paidBy) {
		utils.BadRequest(c, "Payer must be a member of this space")
		return
	}

	// Parse bill date
	date := time.Now()
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err == nil {
			date = parsed
		}
	}

	bill := models.Bill{
		SpaceID:          spaceID,
		Type:             req.Type,
		CreatedBy:        userID,
		PaidBy:           paidBy,
		SplitUIDs:        req.SplitUIDs,
		Description:      req.Description,
		Amount:           req.Amount,
		TripPricePerUser: req.TripPricePerUser,
		Destination:      req.Destination,
		Date:             date,
	}

	// The validation gate: nothing invalid is ever persisted, so the debt
	// engine only ever sees well-formed bills.
	if !bill.IsValid() {
		utils.BadRequest(c, billValidationMessage(&bill))
		return
	}

	if err := database.DB.Create(&bill).Error; err != nil {
		utils.InternalError(c, "Failed to create bill")
		return
	}

	// Computed ledgers for this space are stale now
	services.GetDebtsService().Invalidate(c.Request.Context(), spaceID)

	// Log activity
	var payer models.User
	database.DB.First(&payer, paidBy)
	var space models.Space
	database.DB.First(&space, spaceID)

	database.DB.Create(&models.Activity{
		SpaceID:     spaceID,
		UserID:      userID,
		Type:        "bill_added",
		ReferenceID: bill.ID,
		Description: fmt.Sprintf("%s added \"%s\" (%.2f)", payer.Name, billLabel(&bill), bill.Total()),
	})

	// Send notifications asynchronously
	go services.GetNotificationService().NotifyBillAdded(bill, payer, space)

	response := buildBillResponse(bill.ID)
	utils.SuccessResponse(c, http.StatusCreated, "Bill added", response)
}

// GET /api/spaces/:id/bills
// Defaults to the space's current period; ?from=YYYY-MM-DD&to=YYYY-MM-DD
// selects an explicit range.
func GetSpaceBills(c *gin.Context) {
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

	period := space.CurrentPeriod(time.Now())
	if from, err := time.Parse("2006-01-02", c.Query("from")); err == nil {
		period.Start = from
	}
	if to, err := time.Parse("2006-01-02", c.Query("to")); err == nil {
		period.End = to.AddDate(0, 0, 1) // inclusive end date
	}

	var pagination utils.PaginationQuery
	c.ShouldBindQuery(&pagination)

	var bills []models.Bill
	database.DB.Where("space_id = ? AND date >= ? AND date < ?", spaceID, period.Start, period.End).
		Order("date DESC, created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit).
		Find(&bills)

	var responses []models.BillResponse
	for _, b := range bills {
		responses = append(responses, buildBillResponse(b.ID))
	}

	utils.SuccessResponse(c, http.StatusOK, "", responses)
}

// GET /api/bills/:id
func GetBill(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	billID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid bill ID")
		return
	}

	var bill models.Bill
	if err := database.DB.First(&bill, billID).Error; err != nil {
		utils.NotFound(c, "Bill not found")
		return
	}

	if !isMember(bill.SpaceID, userID) {
		utils.Unauthorized(c, "You are not a member of this space")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", buildBillResponse(billID))
}

// PUT /api/bills/:id
// A bill is replaced wholesale on edit, then revalidated; partial updates
// never leave an invalid bill behind.
func UpdateBill(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	billID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid bill ID")
		return
	}

	var bill models.Bill
	if err := database.DB.First(&bill, billID).Error; err != nil {
		utils.NotFound(c, "Bill not found")
		return
	}

	if !isMember(bill.SpaceID, userID) {
		utils.Unauthorized(c, "You are not a member of this space")
		return
	}

	var req models.UpdateBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	if req.PaidBy != "" {
		paidBy, err := uuid.Parse(req.PaidBy)
		if err != nil {
			utils.BadRequest(c, "Invalid paid_by user ID")
			return
		}
		if !isMember(bill.SpaceID, paidBy) {
			utils.BadRequest(c, "Payer must be a member of this space")
			return
		}
		bill.PaidBy = paidBy
	}
	if len(req.SplitUIDs) > 0 {
		bill.SplitUIDs = req.SplitUIDs
	}
	if req.Description != "" {
		bill.Description = req.Description
	}
	if req.Amount > 0 {
		bill.Amount = req.Amount
	}
	if req.TripPricePerUser > 0 {
		bill.TripPricePerUser = req.TripPricePerUser
	}
	if req.Destination != "" {
		bill.Destination = req.Destination
	}
	if req.Date != "" {
		if parsed, err := time.Parse("2006-01-02", req.Date); err == nil {
			bill.Date = parsed
		}
	}

	if !bill.IsValid() {
		utils.BadRequest(c, billValidationMessage(&bill))
		return
	}

	if err := database.DB.Save(&bill).Error; err != nil {
		utils.InternalError(c, "Failed to update bill")
		return
	}

	services.GetDebtsService().Invalidate(c.Request.Context(), bill.SpaceID)

	var editor models.User
	database.DB.First(&editor, userID)

	database.DB.Create(&models.Activity{
		SpaceID:     bill.SpaceID,
		UserID:      userID,
		Type:        "bill_updated",
		ReferenceID: bill.ID,
		Description: fmt.Sprintf("%s updated \"%s\"", editor.Name, billLabel(&bill)),
	})

	utils.SuccessResponse(c, http.StatusOK, "Bill updated", buildBillResponse(bill.ID))
}

// DELETE /api/bills/:id
func DeleteBill(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	billID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid bill ID")
		return
	}

	var bill models.Bill
	if err := database.DB.First(&bill, billID).Error; err != nil {
		utils.NotFound(c, "Bill not found")
		return
	}

	// Creator deletes their own bill; anyone else needs admin
	if bill.CreatedBy != userID && !isAdmin(bill.SpaceID, userID) {
		utils.Unauthorized(c, "Only the bill creator or a space admin can delete a bill")
		return
	}

	// Log before deleting
	var deleter models.User
	database.DB.First(&deleter, userID)

	database.DB.Create(&models.Activity{
		SpaceID:     bill.SpaceID,
		UserID:      userID,
		Type:        "bill_deleted",
		Description: fmt.Sprintf("%s deleted \"%s\" (%.2f)", deleter.Name, billLabel(&bill), bill.Total()),
	})

	database.DB.Delete(&bill)

	services.GetDebtsService().Invalidate(c.Request.Context(), bill.SpaceID)

	utils.SuccessResponse(c, http.StatusOK, "Bill deleted", nil)
}

// DELETE /api/spaces/:id/bills — admin bulk clear
func ClearSpaceBills(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	spaceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid space ID")
		return
	}

	if !isAdmin(spaceID, userID) {
		utils.Unauthorized(c, "Only a space admin can clear bills")
		return
	}

	var admin models.User
	database.DB.First(&admin, userID)
	var space models.Space
	database.DB.First(&space, spaceID)

	result := database.DB.Where("space_id = ?", spaceID).Delete(&models.Bill{})

	services.GetDebtsService().Invalidate(c.Request.Context(), spaceID)

	database.DB.Create(&models.Activity{
		SpaceID:     spaceID,
		UserID:      userID,
		Type:        "bills_cleared",
		Description: fmt.Sprintf("%s cleared all bills in %s", admin.Name, space.Name),
	})

	go services.GetNotificationService().NotifyBillsCleared(space, admin)

	utils.SuccessResponse(c, http.StatusOK, fmt.Sprintf("Cleared %d bills", result.RowsAffected), nil)
}

// GET /api/spaces/:id/export — admin JSON backup
func ExportSpaceBills(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	spaceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid space ID")
		return
	}

	if !isAdmin(spaceID, userID) {
		utils.Unauthorized(c, "Only a space admin can export bills")
		return
	}

	data, err := services.ExportSpaceBills(spaceID)
	if err != nil {
		utils.InternalError(c, "Failed to export bills")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=namiokai-%s.json", spaceID))
	c.Data(http.StatusOK, "application/json", data)
}

// POST /api/spaces/:id/import — admin JSON restore
func ImportSpaceBills(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	spaceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid space ID")
		return
	}

	if !isAdmin(spaceID, userID) {
		utils.Unauthorized(c, "Only a space admin can import bills")
		return
	}

	data, err := c.GetRawData()
	if err != nil {
		utils.BadRequest(c, "Failed to read request body")
		return
	}

	imported, skipped, err := services.ImportSpaceBills(spaceID, data)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	services.GetDebtsService().Invalidate(c.Request.Context(), spaceID)

	utils.SuccessResponse(c, http.StatusOK,
		fmt.Sprintf("Imported %d bills, skipped %d", imported, skipped), nil)
}

// billLabel names a bill for activity rows: trips by destination, the rest
// by description.
func billLabel(bill *models.Bill) string {
	if bill.Type == models.BillTypeTrip {
		return bill.Destination
	}
	return bill.Description
}

func billValidationMessage(bill *models.Bill) string {
	if bill.PaidBy == uuid.Nil {
		return "A payer is required"
	}
	if len(bill.SplitUIDs) == 0 {
		return "At least one split participant is required"
	}
	switch bill.Type {
	case models.BillTypeTrip:
		if bill.Destination == "" {
			return "A trip destination is required"
		}
		return "Trip price per user must be greater than zero"
	case models.BillTypePurchase, models.BillTypeFlat:
		return "Amount must be greater than zero"
	default:
		return "Unknown bill type"
	}
}

// Build bill response with payer name and computed costs
func buildBillResponse(billID uuid.UUID) models.BillResponse {
	var bill models.Bill
	if err := database.DB.First(&bill, billID).Error; err != nil {
		return models.BillResponse{}
	}

	var payer models.User
	database.DB.First(&payer, bill.PaidBy)

	return models.BillResponse{
		ID:                bill.ID,
		SpaceID:           bill.SpaceID,
		Type:              bill.Type,
		CreatedBy:         bill.CreatedBy,
		PaidBy:            bill.PaidBy,
		PayerName:         payer.Name,
		SplitUIDs:         bill.SplitUIDs,
		Description:       bill.Description,
		Destination:       bill.Destination,
		Total:             bill.Total(),
		SplitPricePerUser: bill.SplitPricePerUser(),
		Date:              bill.Date,
		CreatedAt:         bill.CreatedAt,
	}
}
