package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"crocus/internal/config"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
	config.Set(&config.Config{JWTSecret: testSecret})
}

func setupPipelineRouter(mw gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw)
	r.POST("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "actor": c.GetString(ActorKey)})
	})
	return r
}

func doRequest(r *gin.Engine, apiKey, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/test", http.NoBody)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse response body: %v", err)
	}
	return result
}

func signToken(t *testing.T, secret, subject, tokenType string, expires time.Time) string {
	t.Helper()
	claims := &JWTClaims{
		Email:     subject + "@agency.test",
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func assertCode(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	errObj, ok := parseBody(t, rec)["error"].(map[string]interface{})
	if !ok {
		t.Fatal("expected error object in response")
	}
	if code, _ := errObj["code"].(string); code != want {
		t.Errorf("error code = %q, want %q", code, want)
	}
}

func TestPipelineAuthMiddleware(t *testing.T) {
	tests := []struct {
		name          string
		configuredKey string
		requestKey    string
		wantStatus    int
		wantErrorCode string
	}{
		{
			name:          "valid_api_key",
			configuredKey: "secret-pipeline-key",
			requestKey:    "secret-pipeline-key",
			wantStatus:    http.StatusOK,
		},
		{
			name:          "invalid_api_key",
			configuredKey: "secret-pipeline-key",
			requestKey:    "wrong-key",
			wantStatus:    http.StatusUnauthorized,
			wantErrorCode: "INVALID_API_KEY",
		},
		{
			name:          "missing_api_key",
			configuredKey: "secret-pipeline-key",
			requestKey:    "",
			wantStatus:    http.StatusUnauthorized,
			wantErrorCode: "INVALID_API_KEY",
		},
		{
			name:          "empty_configured_key",
			configuredKey: "",
			requestKey:    "any-key",
			wantStatus:    http.StatusServiceUnavailable,
			wantErrorCode: "PIPELINE_NOT_CONFIGURED",
		},
		{
			name:          "partial_match_rejected",
			configuredKey: "secret-pipeline-key",
			requestKey:    "secret-pipeline",
			wantStatus:    http.StatusUnauthorized,
			wantErrorCode: "INVALID_API_KEY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupPipelineRouter(PipelineAuthMiddleware(tt.configuredKey))
			rec := doRequest(router, tt.requestKey, "")

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantErrorCode != "" {
				assertCode(t, rec, tt.wantErrorCode)
			}
			if tt.wantStatus == http.StatusOK {
				if actor, _ := parseBody(t, rec)["actor"].(string); actor != PipelineActor {
					t.Errorf("actor = %q, want %q", actor, PipelineActor)
				}
			}
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	valid := signToken(t, testSecret, "op-1", "access", time.Now().Add(time.Hour))

	tests := []struct {
		name       string
		bearer     string
		wantStatus int
	}{
		{name: "valid_token", bearer: valid, wantStatus: http.StatusOK},
		{name: "missing_header", bearer: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong_secret", bearer: signToken(t, "other", "op-1", "access", time.Now().Add(time.Hour)), wantStatus: http.StatusUnauthorized},
		{name: "expired", bearer: signToken(t, testSecret, "op-1", "access", time.Now().Add(-time.Minute)), wantStatus: http.StatusUnauthorized},
		{name: "refresh_token", bearer: signToken(t, testSecret, "op-1", "refresh", time.Now().Add(time.Hour)), wantStatus: http.StatusUnauthorized},
		{name: "no_subject", bearer: signToken(t, testSecret, "", "access", time.Now().Add(time.Hour)), wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupPipelineRouter(AuthMiddleware())
			rec := doRequest(router, "", tt.bearer)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				if actor, _ := parseBody(t, rec)["actor"].(string); actor != "op-1" {
					t.Errorf("actor = %q, want op-1", actor)
				}
			} else {
				assertCode(t, rec, "UNAUTHORIZED")
			}
		})
	}
}

func TestOperatorOrPipeline(t *testing.T) {
	router := setupPipelineRouter(OperatorOrPipeline("secret-pipeline-key"))

	t.Run("api_key", func(t *testing.T) {
		rec := doRequest(router, "secret-pipeline-key", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("bad_api_key_does_not_fall_back", func(t *testing.T) {
		token := signToken(t, testSecret, "op-1", "access", time.Now().Add(time.Hour))
		rec := doRequest(router, "wrong", token)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
		assertCode(t, rec, "INVALID_API_KEY")
	})

	t.Run("operator_token", func(t *testing.T) {
		token := signToken(t, testSecret, "op-2", "access", time.Now().Add(time.Hour))
		rec := doRequest(router, "", token)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if actor, _ := parseBody(t, rec)["actor"].(string); actor != "op-2" {
			t.Errorf("actor = %q, want op-2", actor)
		}
	})

	t.Run("neither", func(t *testing.T) {
		rec := doRequest(router, "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})
}
