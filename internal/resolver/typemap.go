package resolver

import (
	"github.com/Rana718/bde/internal/catalog"
	"github.com/Rana718/bde/internal/types"
)

// KindOf maps a schema column type to its semantic kind. Arrays and
// families without a mapping resolve to Unknown.
func KindOf(t catalog.SQLType) types.Kind {
	if t.Array {
		return types.Unknown
	}
	switch t.Family {
	case catalog.FamilyInteger:
		return types.Int
	case catalog.FamilyDecimal:
		return types.Float
	case catalog.FamilyChar, catalog.FamilyEnum:
		return types.String
	case catalog.FamilyBoolean:
		return types.Bool
	case catalog.FamilyDateTime:
		return types.DateTime
	case catalog.FamilyBinary:
		return types.Bytes
	}
	return types.Unknown
}

func columnType(c *catalog.Column) types.ResolvedType {
	return types.ResolvedType{Kind: KindOf(c.Type), Nullable: c.Nullable}
}
