package reporting

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommissionsQuery(t *testing.T) {
	q := commissionsQuery("brand-prod.backoffice")

	assert.Contains(t, q, "`brand-prod.backoffice.point_transactions`")
	assert.Contains(t, q, "`brand-prod.backoffice.orders`")
	assert.Contains(t, q, "@from")
	assert.Contains(t, q, "@to")
	assert.Equal(t, 1, strings.Count(q, "GROUP BY"))
}

func TestNewReporter_RejectsDatasetInjection(t *testing.T) {
	_, err := NewReporter(context.Background(), "brand-prod", "backoffice`; DROP TABLE x; --")
	require.Error(t, err)
}
