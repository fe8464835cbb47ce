package middleware

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/sf10-api/pkg/errors"
	"github.com/noah-isme/sf10-api/pkg/response"
)

// RoleMask is indexed by role level: subject teacher, adviser, chairman,
// registrar, admin.
type RoleMask [5]bool

// Allows reports whether any of the given role levels is enabled.
func (m RoleMask) Allows(roles []int) bool {
	for _, role := range roles {
		if role >= 0 && role < len(m) && m[role] {
			return true
		}
	}
	return false
}

type routeKey struct {
	Method string
	Path   string
}

// AccessTable maps (method, gin route pattern) to the roles allowed through.
// The table is assembled once at startup and never mutated afterwards.
type AccessTable map[routeKey]RoleMask

// DefaultAccessTable returns the route authorization matrix. Paths are gin
// full-path patterns relative to the API prefix.
func DefaultAccessTable(prefix string) AccessTable {
	masks := map[routeKey]RoleMask{
		{"GET", "/students"}:                          {true, true, true, true, true},
		{"POST", "/students"}:                         {false, true, true, false, true},
		{"GET", "/students/:id"}:                      {true, true, true, true, true},
		{"PUT", "/students/:id"}:                      {false, true, false, false, true},
		{"POST", "/students/:id"}:                     {false, true, false, false, true},
		{"PUT", "/students/:id/records/:recordId"}:    {false, true, false, false, true},
		{"GET", "/students/:id/downloads/sf10"}:       {false, true, false, true, true},
		{"GET", "/students/:id/downloads/reportCard"}: {false, true, false, true, true},
		{"POST", "/students/:id/grades"}:              {true, false, false, false, true},
		{"DELETE", "/students/:id/grades"}:            {true, false, false, false, true},

		{"GET", "/teachers"}:                   {false, false, false, false, true},
		{"POST", "/teachers"}:                  {false, false, false, false, true},
		{"GET", "/teachers/:id"}:               {false, false, false, false, true},
		{"PUT", "/teachers/:id"}:               {false, false, false, false, true},
		{"PUT", "/teachers/:id/resetpassword"}: {false, false, false, false, true},

		{"GET", "/sections"}:                   {false, false, true, false, true},
		{"POST", "/sections"}:                  {false, false, true, false, true},
		{"GET", "/sections/:id"}:               {false, false, true, false, true},
		{"PUT", "/sections/:id"}:               {false, false, true, false, true},
		{"DELETE", "/sections/:id"}:            {false, false, true, false, true},
		{"POST", "/sections/:id/:studentId"}:   {false, false, true, false, true},
		{"POST", "/sections/:id/adviser"}:      {false, false, true, false, true},
		{"DELETE", "/sections/:id/adviser"}:    {false, false, true, false, true},
		{"POST", "/sections/:id/teacher"}:      {false, false, true, false, true},
		{"DELETE", "/sections/:id/teacher"}:    {false, false, true, false, true},
		{"GET", "/sections/:id/downloads/sf1"}: {false, false, true, true, true},

		{"POST", "/enroll"}:        {false, false, true, false, true},
		{"DELETE", "/enroll/:lrn"}: {false, false, true, false, true},

		{"GET", "/logs"}:     {false, false, false, false, true},
		{"GET", "/logs/:id"}: {false, false, false, false, true},
	}

	table := make(AccessTable, len(masks))
	for key, mask := range masks {
		table[routeKey{Method: key.Method, Path: prefix + key.Path}] = mask
	}
	return table
}

// RBAC authorizes requests against the access table. Routes without an entry
// are denied regardless of role.
func RBAC(table AccessTable) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := CurrentUser(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		mask, ok := table[routeKey{Method: c.Request.Method, Path: c.FullPath()}]
		if !ok || !mask.Allows(claims.Roles) {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
