package integration

import (
	"fmt"
	"net/http"
	"testing"

	"gorm.io/gorm/clause"

	"crocus/internal/models"
	"crocus/internal/testutil"
)

func TestJobsFlow_PipelineRunsAllAndOperatorReads(t *testing.T) {
	app := setupApp(t)
	token := operatorToken(t, "op-3")
	accountID := app.createAccount(t, token, "Main EUR", "EUR")

	rec := app.request("POST", "/api/v1/rates", `{"date":"2024-06-01","rates":{"USD":"1.08","GBP":"0.85"}}`, token)
	expectStatus(t, rec, http.StatusOK)

	rec = app.request("POST", "/api/v1/transactions", fmt.Sprintf(
		`{"date":"2024-06-03","status":"actual","kind":"in","amount":"500","currency":"EUR","account_id":%q}`,
		accountID), token)
	expectStatus(t, rec, http.StatusCreated)

	booking := models.Booking{
		ID:          "BK-100",
		Type:        "standard",
		Brutto:      testutil.Dec("1000"),
		InternalNet: testutil.Dec("800"),
		Operator:    "Alpha",
		CreatedDate: "2024-06-02",
	}
	if err := app.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&booking).Error; err != nil {
		t.Fatalf("failed to seed booking: %v", err)
	}

	rec = app.pipelineRequest("POST", "/api/v1/jobs/all/run", "", testAPIKey)
	expectStatus(t, rec, http.StatusOK)
	jobs := parseJSON(t, rec)["jobs"].([]interface{})
	if len(jobs) != 5 {
		t.Fatalf("expected 5 job statuses, got %d", len(jobs))
	}
	for _, j := range jobs {
		job := j.(map[string]interface{})
		if job["state"] != "done" {
			t.Errorf("expected job %v done, got %v (%v)", job["name"], job["state"], job["message"])
		}
	}

	rec = app.request("GET", "/api/v1/jobs/overview", "", token)
	expectStatus(t, rec, http.StatusOK)

	rec = app.request("GET", "/api/v1/caches/overview", "", token)
	expectStatus(t, rec, http.StatusOK)
	balances := parseJSON(t, rec)["balances"].([]interface{})
	if len(balances) != 1 {
		t.Fatalf("expected 1 balance, got %d", len(balances))
	}
	if native := balances[0].(map[string]interface{})["native"]; native != "1500" {
		t.Errorf("expected native balance 1500, got %v", native)
	}

	rec = app.request("GET", "/api/v1/caches/sales-daily?from=2024-06-01&to=2024-06-30", "", token)
	expectStatus(t, rec, http.StatusOK)
	rows := parseJSON(t, rec)["rows"].([]interface{})
	if len(rows) != 1 {
		t.Fatalf("expected 1 sales row, got %d", len(rows))
	}
	if rows[0].(map[string]interface{})["brutto"] != "1000" {
		t.Errorf("expected brutto 1000, got %v", rows[0].(map[string]interface{})["brutto"])
	}

	rec = app.request("GET", "/api/v1/caches/founders", "", token)
	expectStatus(t, rec, http.StatusOK)
}

func TestJobsFlow_PipelineAuth(t *testing.T) {
	app := setupApp(t)

	t.Run("wrong key", func(t *testing.T) {
		rec := app.pipelineRequest("POST", "/api/v1/jobs/all/run", "", "not-the-key")
		expectStatus(t, rec, http.StatusUnauthorized)
		if code := errorCode(t, rec); code != "INVALID_API_KEY" {
			t.Errorf("expected INVALID_API_KEY, got %s", code)
		}
	})

	t.Run("no credentials", func(t *testing.T) {
		rec := app.request("GET", "/api/v1/jobs", "", "")
		expectStatus(t, rec, http.StatusUnauthorized)
	})

	t.Run("operator token also works", func(t *testing.T) {
		rec := app.request("POST", "/api/v1/jobs/sales_dashboard/run", "", operatorToken(t, "op-4"))
		expectStatus(t, rec, http.StatusOK)
	})

	t.Run("unknown job", func(t *testing.T) {
		rec := app.pipelineRequest("POST", "/api/v1/jobs/weekly/run", "", testAPIKey)
		expectStatus(t, rec, http.StatusNotFound)
		if code := errorCode(t, rec); code != "UNKNOWN_JOB" {
			t.Errorf("expected UNKNOWN_JOB, got %s", code)
		}
	})

	t.Run("status before any run", func(t *testing.T) {
		rec := app.pipelineRequest("GET", "/api/v1/jobs/founders", "", testAPIKey)
		expectStatus(t, rec, http.StatusNotFound)
	})
}
