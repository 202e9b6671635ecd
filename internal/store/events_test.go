package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventFilterWhereClause(t *testing.T) {
	zone := int64(9)

	clause, args := EventFilter{}.whereClause()
	assert.Empty(t, clause)
	assert.Empty(t, args)

	clause, args = EventFilter{ZoneID: &zone}.whereClause()
	assert.Equal(t, " AND zone_id = $2", clause)
	assert.Equal(t, []any{zone}, args)

	clause, args = EventFilter{Type: "TANK_ALARM"}.whereClause()
	assert.Equal(t, " AND type = $2", clause)
	assert.Equal(t, []any{"TANK_ALARM"}, args)

	clause, args = EventFilter{ZoneID: &zone, Type: "TANK_ALARM"}.whereClause()
	assert.Equal(t, " AND zone_id = $2 AND type = $3", clause)
	assert.Equal(t, []any{zone, "TANK_ALARM"}, args)
}

func TestEventFilterLimitDefault(t *testing.T) {
	assert.Equal(t, 50, EventFilter{}.limit())
	assert.Equal(t, 10, EventFilter{Limit: 10}.limit())
}
