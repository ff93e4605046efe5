package httpkit

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"realty_leads_backend/platform/apperr"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const testSecret = "test-secret"

type jwtConfig struct{}

func (jwtConfig) GetJWTAccessSecret() string { return testSecret }

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return raw
}

func accessClaims(userID uuid.UUID, roles ...string) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   userID.String(),
		"type":  "access",
		"roles": roles,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
}

func newAuthEngine(allowed ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	e := gin.New()
	e.GET("/me", AuthRequired(jwtConfig{}), RequireRole(allowed...), func(c *gin.Context) {
		id := MustGetIdentity(c)
		body := gin.H{"userId": id.UserID().String()}
		if id.TeamID() != nil {
			body["teamId"] = id.TeamID().String()
		}
		c.JSON(http.StatusOK, body)
	})
	return e
}

func TestAuthRequired(t *testing.T) {
	userID := uuid.New()
	teamID := uuid.New()

	withTeam := accessClaims(userID, RoleAgent)
	withTeam["team_id"] = teamID.String()
	refresh := accessClaims(userID, RoleAgent)
	refresh["type"] = "refresh"
	expired := accessClaims(userID, RoleAgent)
	expired["exp"] = time.Now().Add(-time.Minute).Unix()
	badTeam := accessClaims(userID, RoleAgent)
	badTeam["team_id"] = "not-a-uuid"

	tests := []struct {
		name     string
		header   string
		query    string
		wantCode int
		wantTeam string
	}{
		{name: "missing token", wantCode: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer nope", wantCode: http.StatusUnauthorized},
		{name: "refresh token rejected", header: "Bearer " + signToken(t, refresh), wantCode: http.StatusUnauthorized},
		{name: "expired token rejected", header: "Bearer " + signToken(t, expired), wantCode: http.StatusUnauthorized},
		{name: "invalid team claim", header: "Bearer " + signToken(t, badTeam), wantCode: http.StatusUnauthorized},
		{name: "valid header token", header: "Bearer " + signToken(t, accessClaims(userID, RoleAgent)), wantCode: http.StatusOK},
		{name: "query token for event streams", query: signToken(t, accessClaims(userID, RoleAgent)), wantCode: http.StatusOK},
		{name: "team claim exposed", header: "Bearer " + signToken(t, withTeam), wantCode: http.StatusOK, wantTeam: teamID.String()},
	}

	e := newAuthEngine(RoleAgent, RoleAdmin)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/me"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["userId"] != userID.String() {
				t.Fatalf("userId = %q", body["userId"])
			}
			if body["teamId"] != tt.wantTeam {
				t.Fatalf("teamId = %q, want %q", body["teamId"], tt.wantTeam)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	e := newAuthEngine(RoleAdmin)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, accessClaims(uuid.New(), RoleAgent)))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("agent on admin route = %d, want 403", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, accessClaims(uuid.New(), RoleAgent, RoleAdmin)))
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin = %d, want 200", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	e := gin.New()
	e.POST("/msg", NewIPRateLimiter(rate.Limit(0.001), 2, nil).RateLimit(), func(c *gin.Context) {
		c.Status(http.StatusAccepted)
	})

	codes := make([]int, 0, 3)
	for range 3 {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/msg", nil))
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusAccepted || codes[1] != http.StatusAccepted || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v, want burst of 2 then 429", codes)
	}
}

func TestHandleErrorMapsKinds(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{name: "not found", err: apperr.NotFound("lead not found"), wantCode: http.StatusNotFound, wantMsg: "lead not found"},
		{name: "wrapped transition", err: fmt.Errorf("accept: %w", apperr.InvalidTransition("lead is not offered")), wantCode: http.StatusConflict, wantMsg: "lead is not offered"},
		{name: "external", err: apperr.External("listing store unavailable", errors.New("timeout")), wantCode: http.StatusBadGateway, wantMsg: "listing store unavailable"},
		{name: "plain error hidden", err: errors.New("pq: connection reset"), wantCode: http.StatusInternalServerError, wantMsg: "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)

			if !HandleError(c, tt.err) {
				t.Fatal("HandleError returned false")
			}
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			var body ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error != tt.wantMsg {
				t.Fatalf("error = %q, want %q", body.Error, tt.wantMsg)
			}
		})
	}

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	if HandleError(c, nil) {
		t.Fatal("nil error reported as handled")
	}
}
