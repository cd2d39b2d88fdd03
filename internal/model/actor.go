package model

// Role names carried in the access token "role" claim.
const (
    RoleAdmin     = "ADMIN"
    RoleOrganizer = "ORGANIZER"
    RoleMember    = "MEMBER"
)

// Actor is the authenticated caller of an operation as supplied by the
// JWT middleware.  The service layer never authenticates users itself;
// it only consults the role for authorization decisions.
//
// Fields:
//  UserID – identifier of the user in the identity provider.
//  Role   – one of ADMIN, ORGANIZER or MEMBER.
type Actor struct {
    UserID uint64
    Role   string
}

// IsAdmin reports whether the actor holds the ADMIN role.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// CanPublish reports whether the actor may make an event visible for
// registration.  Organizers create drafts that an admin publishes.
func (a Actor) CanPublish() bool { return a.IsAdmin() }

// CanManage reports whether the actor may change an event created by
// createdBy.  Admins manage every event; organizers only their own.
func (a Actor) CanManage(createdBy uint64) bool {
    switch a.Role {
    case RoleAdmin:
        return true
    case RoleOrganizer:
        return a.UserID != 0 && a.UserID == createdBy
    }
    return false
}
