// Package policy holds the single authorization table consulted by
// middleware and services.
package policy

import "github.com/noah-isme/vozsegura-api/internal/models"

// Capability is an action a principal may be allowed to perform.
type Capability string

const (
	SubmitReport  Capability = "denuncia.submit"
	ReviewReports Capability = "denuncia.review"
	ManageReports Capability = "denuncia.manage"
	ManageCatalog Capability = "catalogo.manage"
	ManageUsers   Capability = "usuario.manage"
)

// roleCapabilities maps roles to their granted capabilities.
var roleCapabilities = map[models.Role][]Capability{
	models.RoleEstudiante: {SubmitReport},
	models.RoleDocente:    {SubmitReport, ReviewReports},
	models.RoleAdmin:      {SubmitReport, ReviewReports, ManageReports, ManageCatalog, ManageUsers},
}

// Allows reports whether role holds capability.
func Allows(role models.Role, capability Capability) bool {
	for _, granted := range roleCapabilities[role] {
		if granted == capability {
			return true
		}
	}
	return false
}

// CanAccessReport reports whether principal may read or edit the report.
// Administrators see every report; other principals only the ones they own.
func CanAccessReport(principal *models.Principal, report *models.Denuncia) bool {
	if principal == nil || report == nil {
		return false
	}
	if Allows(principal.Role, ManageReports) {
		return true
	}
	if principal.Role.IsAdmin() {
		return false
	}
	return report.OwnedBy(principal.ID)
}

// OwnsReports reports whether reports created by role are linked to the principal.
// Administrator ids live in a separate table and cannot own reports.
func OwnsReports(role models.Role) bool {
	return role.Valid() && !role.IsAdmin()
}
