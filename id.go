package payroll

import "github.com/xraph/payroll/id"

// ID is the primary identifier type for all payroll entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
