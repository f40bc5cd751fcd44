package resolver

import (
	"fmt"

	"github.com/Rana718/bde/internal/types"
)

// CardinalityMismatchError is returned when the declared cardinality
// contradicts the statement's projection.
type CardinalityMismatchError struct {
	Statement   string
	Cardinality types.Cardinality
	Columns     int
}

func (e *CardinalityMismatchError) Error() string {
	if e.Cardinality.ReturnsRows() {
		return fmt.Sprintf("%s is declared :%s but returns no columns", e.Statement, e.Cardinality)
	}
	return fmt.Sprintf("%s is declared :%s but returns %d columns", e.Statement, e.Cardinality, e.Columns)
}
