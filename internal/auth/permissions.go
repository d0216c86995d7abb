package auth

import "verdict_backend/internal/models"

// Разрешения по ролям
const (
	PermRequestsCreate = "requests:create"
	PermRequestsRead   = "requests:read:self"
	PermVerdictsSubmit = "verdicts:submit"
	PermCreditsRead    = "credits:read:self"
	PermCreditsGrant   = "credits:grant"
	PermRequestsAny    = "requests:read:any"
)

var Permissions = map[models.UserRole][]string{
	models.UserRoleAdmin: {
		PermRequestsCreate,
		PermRequestsRead,
		PermRequestsAny,
		PermVerdictsSubmit,
		PermCreditsRead,
		PermCreditsGrant,
	},
	models.UserRoleRequester: {
		PermRequestsCreate,
		PermRequestsRead,
		PermVerdictsSubmit,
		PermCreditsRead,
	},
	models.UserRoleJudge: {
		PermRequestsCreate,
		PermRequestsRead,
		PermVerdictsSubmit,
		PermCreditsRead,
	},
	models.UserRoleExpert: {
		PermRequestsCreate,
		PermRequestsRead,
		PermVerdictsSubmit,
		PermCreditsRead,
	},
}

// HasPermission проверяет есть ли у роли указанное разрешение
func HasPermission(role models.UserRole, permission string) bool {
	for _, p := range Permissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}
