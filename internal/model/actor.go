package model

import "slices"

// Permissions understood by the order workflow.
const (
	PermOrderManage  = "order:manage"
	PermWalletManage = "wallet:manage"
	PermStockManage  = "stock:manage"
)

// Actor is the authenticated caller as asserted by the identity collaborator.
type Actor struct {
	UserID      int64
	Permissions []string
}

// Can reports whether the actor holds permission.
func (a Actor) Can(permission string) bool {
	return slices.Contains(a.Permissions, permission)
}

// CanAccess reports whether the actor may act on an order owned by ownerID.
func (a Actor) CanAccess(ownerID int64) bool {
	return a.UserID == ownerID || a.Can(PermOrderManage)
}
