package specification

import "gorm.io/gorm"

// Specification is a composable query clause. The in-memory repositories
// interpret the concrete types in this package directly.
type Specification interface {
	Apply(db *gorm.DB) *gorm.DB
}
