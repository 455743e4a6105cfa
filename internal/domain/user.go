package domain

// Role is the platform role of an authenticated actor.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCompany  Role = "company"
	RoleManager  Role = "manager"
	RoleDriver   Role = "driver"
	RoleCustomer Role = "customer"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCompany, RoleManager, RoleDriver, RoleCustomer:
		return true
	}
	return false
}

// Actor is the already-authenticated caller of an operation.
type Actor struct {
	ID        string
	Role      Role
	CompanyID string // stored affiliation; empty for company owners and admins

	IP        string
	UserAgent string
}

// IsAdmin reports whether the actor holds the privileged platform role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// IsStaff reports whether the actor manages trips on behalf of a company.
func (a Actor) IsStaff() bool {
	return a.Role == RoleCompany || a.Role == RoleManager || a.Role == RoleAdmin
}

// CompanyScopeOf resolves the company an actor operates in. Company owners
// are their own company; managers, drivers and customers use their stored
// affiliation. Admins have no scope and see every company.
func CompanyScopeOf(a Actor) string {
	switch a.Role {
	case RoleCompany:
		return a.ID
	case RoleManager, RoleDriver, RoleCustomer:
		return a.CompanyID
	default:
		return ""
	}
}

// InCompany reports whether the trip belongs to the actor's company scope.
func (a Actor) InCompany(t *Trip) bool {
	if a.IsAdmin() {
		return true
	}
	scope := CompanyScopeOf(a)
	return scope != "" && scope == t.CompanyID
}

// CanView reports whether the actor may read the trip. Drivers see trips
// attached to them, customers see their own orders.
func (a Actor) CanView(t *Trip) bool {
	if !a.InCompany(t) {
		return false
	}
	switch a.Role {
	case RoleDriver:
		return t.Driver() == a.ID
	case RoleCustomer:
		return t.CustomerID == a.ID
	}
	return true
}
