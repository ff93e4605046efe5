package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"realty_leads_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type identity struct {
	team  *uuid.UUID
	admin bool
}

func (i identity) UserID() uuid.UUID { return uuid.Nil }
func (i identity) Roles() []string   { return nil }
func (i identity) HasRole(r string) bool {
	return i.admin && r == httpkit.RoleAdmin
}
func (i identity) TeamID() *uuid.UUID    { return i.team }
func (i identity) IsAuthenticated() bool { return true }

func TestResolveTeam(t *testing.T) {
	gin.SetMode(gin.TestMode)
	team := uuid.New()
	other := uuid.New()

	tests := []struct {
		name     string
		id       identity
		query    string
		wantOK   bool
		wantTeam *uuid.UUID
		status   int
	}{
		{"member defaults to own team", identity{team: &team}, "", true, &team, 0},
		{"member asks for own team", identity{team: &team}, team.String(), true, &team, 0},
		{"member asks for other team", identity{team: &team}, other.String(), false, nil, http.StatusForbidden},
		{"no team in token", identity{}, "", false, nil, http.StatusForbidden},
		{"admin all teams", identity{admin: true}, "", true, nil, 0},
		{"admin one team", identity{admin: true}, other.String(), true, &other, 0},
		{"admin bad id", identity{admin: true}, "nope", false, nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/insights?teamId="+tt.query, nil)

			got, ok := resolveTeam(c, tt.id)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v", ok)
			}
			if !ok {
				if w.Code != tt.status {
					t.Fatalf("status = %d, want %d", w.Code, tt.status)
				}
				return
			}
			switch {
			case tt.wantTeam == nil && got != nil:
				t.Fatalf("team = %v, want nil", got)
			case tt.wantTeam != nil && (got == nil || *got != *tt.wantTeam):
				t.Fatalf("team = %v, want %v", got, tt.wantTeam)
			}
		})
	}
}
