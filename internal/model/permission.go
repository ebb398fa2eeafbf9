package model

// Permission represents a string code for a specific system action.
type Permission string

const (
	// PermissionQuizzesRead allows viewing quizzes including correctness flags.
	PermissionQuizzesRead Permission = "quizzes:read"

	// PermissionQuizzesWrite allows creating and replacing quizzes.
	PermissionQuizzesWrite Permission = "quizzes:write"

	// PermissionSubmissionsRead allows viewing any user's submissions.
	PermissionSubmissionsRead Permission = "submissions:read"

	// PermissionSubmissionsGrade allows awarding points on coding answers and finalizing submissions.
	PermissionSubmissionsGrade Permission = "submissions:grade"

	// PermissionUsersWrite allows registering student and reviewer accounts.
	PermissionUsersWrite Permission = "users:write"
)

// AllPermissions is a slice of all available permissions.
var AllPermissions = []Permission{
	PermissionQuizzesRead,
	PermissionQuizzesWrite,
	PermissionSubmissionsRead,
	PermissionSubmissionsGrade,
	PermissionUsersWrite,
}

// PermissionsFor returns the permission codes granted to a role.
// Students act only on their own submissions and carry no codes.
func PermissionsFor(role Role) []string {
	if role != RoleAdmin {
		return nil
	}
	codes := make([]string, len(AllPermissions))
	for i, p := range AllPermissions {
		codes[i] = string(p)
	}
	return codes
}
