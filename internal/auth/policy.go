// Package auth holds the authorization policy, token issuance and password
// hashing used by the service and HTTP layers.
package auth

import (
	"fmt"

	"medi-kart/internal/model"
)

// Operation names a protected action.
type Operation string

const (
	OpCreateMedicine           Operation = "medicine.create"
	OpManageCart               Operation = "cart.manage"
	OpPlaceOrder               Operation = "order.place"
	OpListOwnOrders            Operation = "order.list_own"
	OpViewOrder                Operation = "order.view"
	OpViewAnyOrder             Operation = "order.view_any"
	OpCancelOrder              Operation = "order.cancel"
	OpListAllOrders            Operation = "order.list_all"
	OpUpdateOrderStatus        Operation = "order.update_status"
	OpCreatePrescription       Operation = "prescription.create"
	OpListOwnPrescriptions     Operation = "prescription.list_own"
	OpListAllPrescriptions     Operation = "prescription.list_all"
	OpViewPrescription         Operation = "prescription.view"
	OpViewAnyPrescription      Operation = "prescription.view_any"
	OpRespondPrescription      Operation = "prescription.respond"
	OpUpdatePrescriptionStatus Operation = "prescription.update_status"
	OpViewProfile              Operation = "account.profile"
)

var allRoles = []model.Role{model.RolePatient, model.RolePharmacist, model.RoleAdmin}

// DefaultRules is the operation to role table enforced by DefaultPolicy.
var DefaultRules = map[Operation][]model.Role{
	OpCreateMedicine:           {model.RoleAdmin},
	OpManageCart:               allRoles,
	OpPlaceOrder:               allRoles,
	OpListOwnOrders:            allRoles,
	OpViewOrder:                allRoles,
	OpViewAnyOrder:             {model.RoleAdmin},
	OpCancelOrder:              allRoles,
	OpListAllOrders:            {model.RoleAdmin},
	OpUpdateOrderStatus:        {model.RoleAdmin},
	OpCreatePrescription:       {model.RolePatient},
	OpListOwnPrescriptions:     {model.RolePatient},
	OpListAllPrescriptions:     {model.RolePharmacist, model.RoleAdmin},
	OpViewPrescription:         allRoles,
	OpViewAnyPrescription:      {model.RolePharmacist, model.RoleAdmin},
	OpRespondPrescription:      {model.RolePharmacist, model.RoleAdmin},
	OpUpdatePrescriptionStatus: {model.RolePharmacist, model.RoleAdmin},
	OpViewProfile:              allRoles,
}

// Policy decides which roles may perform which operations. Operations not
// present in the table are denied.
type Policy struct {
	rules map[Operation]map[model.Role]struct{}
}

// NewPolicy builds a policy from an operation to roles table.
func NewPolicy(rules map[Operation][]model.Role) *Policy {
	p := &Policy{rules: make(map[Operation]map[model.Role]struct{}, len(rules))}
	for op, roles := range rules {
		set := make(map[model.Role]struct{}, len(roles))
		for _, r := range roles {
			set[r] = struct{}{}
		}
		p.rules[op] = set
	}
	return p
}

// DefaultPolicy returns the policy built from DefaultRules.
func DefaultPolicy() *Policy {
	return NewPolicy(DefaultRules)
}

// Allows reports whether role may perform op.
func (p *Policy) Allows(op Operation, role model.Role) bool {
	roles, ok := p.rules[op]
	if !ok {
		return false
	}
	_, ok = roles[role]
	return ok
}

// Authorize returns an access denied error when the principal's role may not
// perform op.
func (p *Policy) Authorize(op Operation, principal model.Principal) error {
	if p.Allows(op, principal.Role) {
		return nil
	}
	return model.NewAccessDeniedError(fmt.Sprintf("Access denied: role %q cannot perform %s", principal.Role, op))
}
