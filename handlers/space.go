package handlers

import (
	"fmt"
	"net/http"

	"namiokai-backend/database"
	"namiokai-backend/models"
	"namiokai-backend/services"
	"namiokai-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Check membership of a space
func isMember(spaceID, userID uuid.UUID) bool {
	var member models.SpaceMember
	err := database.DB.Where("space_id = ? AND user_id = ?", spaceID, userID).First(&member).Error
	return err == nil
}

// Check admin role in a space
func isAdmin(spaceID, userID uuid.UUID) bool {
	var member models.SpaceMember
	err := database.DB.Where("space_id = ? AND user_id = ? AND role = ?", spaceID, userID, "admin").First(&member).Error
	return err == nil
}

// POST /api/spaces
func CreateSpace(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	var req models.CreateSpaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	recurrence := models.RecurrenceRule(req.Recurrence)
	if recurrence == "" {
		recurrence = models.RecurrenceMonthly
	}

	space := models.Space{
		Name:       req.Name,
		Recurrence: recurrence,
		CreatedBy:  userID,
	}

	if err := database.DB.Create(&space).Error; err != nil {
		utils.InternalError(c, "Failed to create space")
		return
	}

	// Creator becomes admin
	database.DB.Create(&models.SpaceMember{
		SpaceID: space.ID,
		UserID:  userID,
		Role:    "admin",
	})

	// Add other members if provided
	for _, memberInput := range req.Members {
		memberUUID, err := uuid.Parse(memberInput)
		if err != nil {
			// Might be an email, try to find user
			var user models.User
			if dbErr := database.DB.Where("email = ?", memberInput).First(&user).Error; dbErr == nil {
				memberUUID = user.ID
			} else {
				// Send invitation
				go services.InviteToSpace(space.ID, userID, memberInput)
				continue
			}
		}

		if memberUUID != userID {
			database.DB.Create(&models.SpaceMember{
				SpaceID: space.ID,
				UserID:  memberUUID,
				Role:    "member",
			})
		}
	}

	// Log activity
	var creator models.User
	database.DB.First(&creator, userID)
	database.DB.Create(&models.Activity{
		SpaceID:     space.ID,
		UserID:      userID,
		Type:        "space_created",
		ReferenceID: space.ID,
		Description: fmt.Sprintf("%s created space \"%s\"", creator.Name, space.Name),
	})

	response := buildSpaceResponse(space.ID)
	utils.SuccessResponse(c, http.StatusCreated, "Space created", response)
}

// GET /api/spaces
func GetSpaces(c *gin.Context) {
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

	var responses []models.SpaceResponse
	for _, s := range spaces {
		responses = append(responses, buildSpaceResponse(s.ID))
	}

	utils.SuccessResponse(c, http.StatusOK, "", responses)
}

// GET /api/spaces/:id
func GetSpace(c *gin.Context) {
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

	response := buildSpaceResponse(spaceID)
	utils.SuccessResponse(c, http.StatusOK, "", response)
}

// PUT /api/spaces/:id
func UpdateSpace(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	spaceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid space ID")
		return
	}

	if !isAdmin(spaceID, userID) {
		utils.Unauthorized(c, "Only a space admin can update the space")
		return
	}

	var req models.UpdateSpaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Recurrence != "" {
		updates["recurrence"] = req.Recurrence
	}

	database.DB.Model(&models.Space{}).Where("id = ?", spaceID).Updates(updates)

	// A new recurrence changes period boundaries, so cached ledgers are stale
	if req.Recurrence != "" {
		services.GetDebtsService().Invalidate(c.Request.Context(), spaceID)
	}

	response := buildSpaceResponse(spaceID)
	utils.SuccessResponse(c, http.StatusOK, "Space updated", response)
}

// POST /api/spaces/:id/members
func AddMember(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	spaceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid space ID")
		return
	}

	if !isAdmin(spaceID, userID) {
		utils.Unauthorized(c, "Only a space admin can add members")
		return
	}

	var req models.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	var targetUser models.User
	found := false

	if req.UserID != "" {
		memberUUID, _ := uuid.Parse(req.UserID)
		if err := database.DB.First(&targetUser, memberUUID).Error; err == nil {
			found = true
		}
	}

	if !found && req.Email != "" {
		if err := database.DB.Where("email = ?", req.Email).First(&targetUser).Error; err == nil {
			found = true
		}
	}

	if found {
		// Check if already a member
		var existing models.SpaceMember
		if err := database.DB.Where("space_id = ? AND user_id = ?", spaceID, targetUser.ID).First(&existing).Error; err == nil {
			utils.BadRequest(c, "User is already a member of this space")
			return
		}

		database.DB.Create(&models.SpaceMember{
			SpaceID: spaceID,
			UserID:  targetUser.ID,
			Role:    "member",
		})

		// Log activity and notify
		var adder models.User
		database.DB.First(&adder, userID)
		var space models.Space
		database.DB.First(&space, spaceID)

		database.DB.Create(&models.Activity{
			SpaceID:     spaceID,
			UserID:      userID,
			Type:        "member_joined",
			Description: fmt.Sprintf("%s added %s to %s", adder.Name, targetUser.Name, space.Name),
		})

		go services.GetNotificationService().NotifyMemberAdded(targetUser, adder, space)

		utils.SuccessResponse(c, http.StatusOK, "Member added", targetUser.ToResponse())
	} else {
		// User not registered — send invitation
		go services.InviteToSpace(spaceID, userID, req.Email)
		utils.SuccessResponse(c, http.StatusOK, "Invitation sent", nil)
	}
}

// DELETE /api/spaces/:id/members/:uid
func RemoveMember(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	spaceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid space ID")
		return
	}

	targetID, err := uuid.Parse(c.Param("uid"))
	if err != nil {
		utils.BadRequest(c, "Invalid user ID")
		return
	}

	// Members may leave on their own; removing someone else needs admin
	if targetID != userID && !isAdmin(spaceID, userID) {
		utils.Unauthorized(c, "Only a space admin can remove members")
		return
	}

	var member models.SpaceMember
	if err := database.DB.Where("space_id = ? AND user_id = ?", spaceID, targetID).First(&member).Error; err != nil {
		utils.NotFound(c, "Member not found")
		return
	}

	database.DB.Delete(&member)

	var target models.User
	database.DB.First(&target, targetID)
	var space models.Space
	database.DB.First(&space, spaceID)

	database.DB.Create(&models.Activity{
		SpaceID:     spaceID,
		UserID:      userID,
		Type:        "member_left",
		Description: fmt.Sprintf("%s left %s", target.Name, space.Name),
	})

	utils.SuccessResponse(c, http.StatusOK, "Member removed", nil)
}

// POST /api/spaces/:id/invite
func InviteToSpaceHandler(c *gin.Context) {
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

	var req models.InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	go services.InviteToSpace(spaceID, userID, req.Email)

	utils.SuccessResponse(c, http.StatusOK, "Invitation sent", nil)
}

// Build space response with member details
func buildSpaceResponse(spaceID uuid.UUID) models.SpaceResponse {
	var space models.Space
	if err := database.DB.First(&space, spaceID).Error; err != nil {
		return models.SpaceResponse{}
	}

	var members []models.SpaceMember
	database.DB.Where("space_id = ?", spaceID).Find(&members)

	var memberResponses []models.SpaceMemberResponse
	for _, m := range members {
		var user models.User
		database.DB.First(&user, m.UserID)
		memberResponses = append(memberResponses, models.SpaceMemberResponse{
			UserID:   m.UserID,
			Name:     user.Name,
			Email:    user.Email,
			Role:     m.Role,
			JoinedAt: m.JoinedAt,
		})
	}

	return models.SpaceResponse{
		ID:         space.ID,
		Name:       space.Name,
		Recurrence: space.Recurrence,
		CreatedBy:  space.CreatedBy,
		Members:    memberResponses,
		CreatedAt:  space.CreatedAt,
	}
}
