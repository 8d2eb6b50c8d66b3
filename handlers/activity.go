package handlers

import (
	"net/http"

	"namiokai-backend/database"
	"namiokai-backend/models"
	"namiokai-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GET /api/activity — global activity feed for current user
func GetActivity(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	var pagination utils.PaginationQuery
	c.ShouldBindQuery(&pagination)

	// Get all spaces user is in
	var memberships []models.SpaceMember
	database.DB.Where("user_id = ?", userID).Find(&memberships)

	var spaceIDs []uuid.UUID
	for _, m := range memberships {
		spaceIDs = append(spaceIDs, m.SpaceID)
	}

	var activities []models.Activity
	if len(spaceIDs) > 0 {
		database.DB.Where("space_id IN ?", spaceIDs).
			Preload("User").
			Order("created_at DESC").
			Offset(pagination.Offset()).
			Limit(pagination.Limit).
			Find(&activities)

		// Attach space names
		spaceNames := make(map[uuid.UUID]string)
		var spaces []models.Space
		database.DB.Where("id IN ?", spaceIDs).Find(&spaces)
		for _, s := range spaces {
			spaceNames[s.ID] = s.Name
		}
		for i := range activities {
			activities[i].SpaceName = spaceNames[activities[i].SpaceID]
		}
	}

	utils.SuccessResponse(c, http.StatusOK, "", activities)
}

// GET /api/spaces/:id/activity — activity feed for a specific space
func GetSpaceActivity(c *gin.Context) {
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

	var pagination utils.PaginationQuery
	c.ShouldBindQuery(&pagination)

	var activities []models.Activity
	database.DB.Where("space_id = ?", spaceID).
		Preload("User").
		Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit).
		Find(&activities)

	utils.SuccessResponse(c, http.StatusOK, "", activities)
}
