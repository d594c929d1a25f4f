package repository

import (
	"fmt"

	"github.com/lib/pq"

	"github.com/pacific-edu/pacemis-api/internal/authz"
)

// latestRowJoin renders the shared "latest related row per parent"
// primitive: a LEFT JOIN LATERAL pulling the single newest child row for
// each parent, aliased so the caller can select its columns and filter on
// them. Both the staff and student listings annotate rows through this
// helper so the row-level filter and the list views agree on what "latest"
// means.
//
// childTable rows are matched on childFK = parentAlias.id and ordered by
// orderBy (newest first, ties broken by creation time then ID).
func latestRowJoin(childTable, childFK, parentAlias, joinAlias, orderBy string) string {
	return fmt.Sprintf(`LEFT JOIN LATERAL (
        SELECT * FROM %s WHERE %s = %s.id
        ORDER BY %s, created_at DESC, id DESC LIMIT 1
    ) %s ON true`, childTable, childFK, parentAlias, orderBy, joinAlias)
}

// scopeCondition renders a listing scope against the query's latest-school
// column. Unrestricted scope adds no condition. A school scope appends one
// positional ANY($n) condition bound to the school-ID array. Empty scope
// must be short-circuited by the caller before building any query; it
// renders a contradiction here as a backstop.
func scopeCondition(scope authz.Scope, column string, args []interface{}) (string, []interface{}) {
	switch scope.Kind {
	case authz.ScopeUnrestricted:
		return "", args
	case authz.ScopeSchools:
		cond := fmt.Sprintf("%s = ANY($%d)", column, len(args)+1)
		return cond, append(args, pq.Array(scope.SchoolIDs))
	default:
		return "1=0", args
	}
}
