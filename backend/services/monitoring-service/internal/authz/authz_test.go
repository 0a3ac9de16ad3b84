package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"envmonitor/backend/services/monitoring-service/internal/models"
)

func TestCanTable(t *testing.T) {
	everyone := []models.Role{models.RoleAdmin, models.RoleManager, models.RoleResearcher, models.RoleTechnician}
	allowed := map[Action][]models.Role{
		ActionResolveAlert:  everyone,
		ActionDismissAlert:  everyone,
		ActionManageCatalog: everyone,
		ActionManageUsers:   {models.RoleAdmin},
	}
	roles := []models.Role{models.RoleAdmin, models.RoleManager, models.RoleResearcher, models.RoleTechnician, "GUEST"}

	for action, permitted := range allowed {
		for _, role := range roles {
			want := false
			for _, p := range permitted {
				if p == role {
					want = true
				}
			}
			assert.Equal(t, want, Can(role, action), "%s %s", role, action)
		}
	}
	assert.False(t, Can(models.RoleAdmin, "stations:launch"))
}

func TestActorContext(t *testing.T) {
	_, ok := ActorFrom(context.Background())
	assert.False(t, ok)

	ctx := WithActor(context.Background(), Actor{UserID: "u1", Role: models.RoleResearcher})
	actor, ok := ActorFrom(ctx)
	assert.True(t, ok)
	assert.True(t, actor.Can(ActionResolveAlert))
	assert.True(t, actor.Can(ActionDismissAlert))
	assert.True(t, actor.Can(ActionManageCatalog))
	assert.False(t, actor.Can(ActionManageUsers))
	assert.False(t, Actor{Role: models.RoleAdmin}.Can(ActionManageUsers), "anonymous actor")
}
