package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sf10-api/internal/models"
)

func rbacRouter(table AccessTable, claims *models.JWTClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
	})
	router.Use(RBAC(table))
	handler := func(c *gin.Context) { c.Status(http.StatusNoContent) }
	router.GET("/api/students", handler)
	router.POST("/api/students/:id/grades", handler)
	router.GET("/api/logs", handler)
	router.GET("/api/unlisted", handler)
	return router
}

func perform(router *gin.Engine, method, path string) int {
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	router.ServeHTTP(recorder, req)
	return recorder.Code
}

func TestRBACAllowsListedRole(t *testing.T) {
	table := DefaultAccessTable("/api")
	claims := &models.JWTClaims{TeacherID: "teacher-1", Roles: []int{models.RoleSubjectTeacher}}
	router := rbacRouter(table, claims)

	if code := perform(router, http.MethodGet, "/api/students"); code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", code)
	}
	if code := perform(router, http.MethodPost, "/api/students/s-1/grades"); code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", code)
	}
}

func TestRBACDeniesUnlistedRole(t *testing.T) {
	table := DefaultAccessTable("/api")
	claims := &models.JWTClaims{TeacherID: "teacher-1", Roles: []int{models.RoleAdviser}}
	router := rbacRouter(table, claims)

	if code := perform(router, http.MethodPost, "/api/students/s-1/grades"); code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", code)
	}
	if code := perform(router, http.MethodGet, "/api/logs"); code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", code)
	}
}

func TestRBACDeniesRoutesWithoutEntry(t *testing.T) {
	table := DefaultAccessTable("/api")
	claims := &models.JWTClaims{TeacherID: "teacher-1", Roles: []int{models.RoleAdmin}}
	router := rbacRouter(table, claims)

	if code := perform(router, http.MethodGet, "/api/unlisted"); code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", code)
	}
}

func TestRBACRequiresClaims(t *testing.T) {
	table := DefaultAccessTable("/api")
	router := rbacRouter(table, nil)

	if code := perform(router, http.MethodGet, "/api/students"); code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", code)
	}
}

func TestRoleMaskAllows(t *testing.T) {
	mask := RoleMask{false, true, false, false, true}
	if !mask.Allows([]int{models.RoleAdviser}) {
		t.Fatal("expected adviser to be allowed")
	}
	if mask.Allows([]int{models.RoleChairman, models.RoleRegistrar}) {
		t.Fatal("expected chairman and registrar to be denied")
	}
	if mask.Allows([]int{-1, 9}) {
		t.Fatal("expected out of range levels to be denied")
	}
}
