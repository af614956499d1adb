// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package policy

import (
	"fmt"

	"github.com/danielhkuo/votertag/apperr"
	"github.com/danielhkuo/votertag/models"
)

// Operation is the kind of data access being checked
type Operation string

const (
	OpSelect Operation = "select"
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Capability is a coarse permission that is not tied to a single row
type Capability string

const (
	CapExport      Capability = "export"
	CapViewAudit   Capability = "view_audit"
	CapManageUsers Capability = "manage_users"
)

var (
	ErrInactive    = fmt.Errorf("%w: principal is inactive", apperr.ErrAuthorization)
	ErrUnknownRole = fmt.Errorf("%w: unknown role", apperr.ErrAuthorization)
	ErrNoHomeArea  = fmt.Errorf("%w: principal has no home area", apperr.ErrAuthorization)
	ErrOperation   = fmt.Errorf("%w: operation not permitted for role", apperr.ErrAuthorization)
	ErrOutOfArea   = fmt.Errorf("%w: row is outside the principal's home area", apperr.ErrAuthorization)
	ErrOtherUser   = fmt.Errorf("%w: row belongs to another principal", apperr.ErrAuthorization)
)

// voterGrants lists the voter operations each role may perform.
// super_admin is absent because it is granted everything.
var voterGrants = map[models.Role]map[Operation]bool{
	models.RoleCandidate:          {OpSelect: true, OpUpdate: true},
	models.RoleSuperUser:          {OpSelect: true, OpUpdate: true},
	models.RolePDM:                {OpSelect: true, OpUpdate: true},
	models.RoleCandidateAssistant: {OpSelect: true},
}

var capabilities = map[models.Role]map[Capability]bool{
	models.RoleSuperAdmin:         {CapExport: true, CapViewAudit: true, CapManageUsers: true},
	models.RoleCandidate:          {CapExport: true},
	models.RoleSuperUser:          {CapExport: true},
	models.RolePDM:                {CapExport: true},
	models.RoleCandidateAssistant: {},
}

// Scope is the set of voter rows a principal may touch for one operation.
// All means every row; otherwise only rows whose home area equals HomeArea.
type Scope struct {
	All      bool
	HomeArea string
}

// Contains reports whether the voter lies inside the scope
func (s Scope) Contains(v models.Voter) bool {
	return s.All || (s.HomeArea != "" && v.HomeArea == s.HomeArea)
}

// VoterScope resolves the rows p may access with op.
// Checks run in order: active flag, role, operation grant, home area.
func VoterScope(p models.Principal, op Operation) (Scope, error) {
	if !p.IsActive {
		return Scope{}, ErrInactive
	}
	if p.Role == models.RoleSuperAdmin {
		return Scope{All: true}, nil
	}

	grants, ok := voterGrants[p.Role]
	if !ok {
		return Scope{}, ErrUnknownRole
	}
	if !grants[op] {
		return Scope{}, ErrOperation
	}
	if p.HomeArea == "" {
		return Scope{}, ErrNoHomeArea
	}
	return Scope{HomeArea: p.HomeArea}, nil
}

// AuthorizeVoter decides whether p may perform op on voter v
func AuthorizeVoter(p models.Principal, op Operation, v models.Voter) error {
	scope, err := VoterScope(p, op)
	if err != nil {
		return err
	}
	if !scope.Contains(v) {
		return ErrOutOfArea
	}
	return nil
}

// AuthorizePrincipal decides whether p may perform op on the target
// principal row. Non-admins may read and update only their own row.
func AuthorizePrincipal(p models.Principal, op Operation, target models.Principal) error {
	if !p.IsActive {
		return ErrInactive
	}
	if !p.Role.Valid() {
		return ErrUnknownRole
	}
	if p.Role == models.RoleSuperAdmin {
		return nil
	}
	switch op {
	case OpSelect, OpUpdate:
		if p.ID != "" && p.ID == target.ID {
			return nil
		}
		return ErrOtherUser
	}
	return ErrOperation
}

// Allows reports whether p holds a capability
func Allows(p models.Principal, c Capability) bool {
	if !p.IsActive {
		return false
	}
	return capabilities[p.Role][c]
}

// Require is Allows as an error
func Require(p models.Principal, c Capability) error {
	if !p.IsActive {
		return ErrInactive
	}
	if !Allows(p, c) {
		return fmt.Errorf("%w: %s required", apperr.ErrAuthorization, c)
	}
	return nil
}
