package hallpass

import "github.com/xraph/hallpass/id"

// ID is the primary identifier type for all hallpass entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
