package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"

	"github.com/casperlundberg/offload-autoscale-env/internal/config"
	"github.com/casperlundberg/offload-autoscale-env/internal/database"
)

type ServerTestSuite struct {
	suite.Suite
	db     *database.DB
	repo   *database.Repository
	server *Server
}

func (s *ServerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	db, err := database.NewDatabase(":memory:")
	s.Require().NoError(err)
	s.db = db
	s.repo = database.NewRepository(db)

	cfg := config.Default()
	cfg.Server.MaxSlots = 500
	cfg.Simulation.BatchSize = 16
	s.server, err = NewServer(s.repo, cfg, nil)
	s.Require().NoError(err)
}

func (s *ServerTestSuite) TearDownTest() {
	s.db.Close()
}

func (s *ServerTestSuite) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.server.Handler().ServeHTTP(w, req)
	return w
}

type createdRun struct {
	RunID  string `json:"run_id"`
	Report struct {
		Policy   string    `json:"policy"`
		Episodes int       `json:"episodes"`
		AvgTotal []float64 `json:"avg_total"`
	} `json:"report"`
}

func (s *ServerTestSuite) createRun(policy string, slots int) createdRun {
	w := s.do(http.MethodPost, "/api/v1/runs", gin.H{
		"name":   "api test",
		"policy": policy,
		"budget": 800,
		"slots":  slots,
		"seed":   5,
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var out createdRun
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func (s *ServerTestSuite) TestHealth() {
	w := s.do(http.MethodGet, "/api/v1/health", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "healthy")
}

func (s *ServerTestSuite) TestCreateRunPersistsSlots() {
	out := s.createRun("fixed", 120)
	s.NotEmpty(out.RunID)
	s.Equal("fixed", out.Report.Policy)
	s.Equal(1, out.Report.Episodes)
	s.Len(out.Report.AvgTotal, 120)

	w := s.do(http.MethodGet, "/api/v1/runs/"+out.RunID, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var run database.Run
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &run))
	s.Equal(database.StatusCompleted, run.Status)
	s.Equal(int64(5), run.Seed)

	w = s.do(http.MethodGet, "/api/v1/runs/"+out.RunID+"/slots?limit=10", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var records []database.SlotRecord
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &records))
	s.Len(records, 10)

	w = s.do(http.MethodGet, "/api/v1/runs/"+out.RunID+"/summary", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var summary database.RunSummary
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &summary))
	s.Equal(int64(120), summary.SlotCount)
	s.Equal(int64(1), summary.Episodes)
	s.Greater(summary.TotalReward, 0.0)

	w = s.do(http.MethodGet, "/api/v1/runs/"+out.RunID+"/events?type="+database.EventEpisodeDone, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var events []database.Event
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &events))
	s.Len(events, 1)
}

func (s *ServerTestSuite) TestCreateRunRejectsBadRequests() {
	cases := map[string]gin.H{
		"missing policy": {"slots": 10},
		"missing slots":  {"policy": "myopic"},
		"unknown policy": {"policy": "ppo", "slots": 10},
		"too many slots": {"policy": "myopic", "slots": 501},
		"bad action":     {"policy": "constant", "slots": 10, "action": 2},
		"bad parameters": {"policy": "myopic", "slots": 10, "parameters": gin.H{"max_servers": 0}},
	}
	for name, body := range cases {
		w := s.do(http.MethodPost, "/api/v1/runs", body)
		s.Equal(http.StatusBadRequest, w.Code, name)
		s.Contains(w.Body.String(), "error", name)
	}

	runs, err := s.repo.ListRuns("")
	s.Require().NoError(err)
	s.Empty(runs)
}

func (s *ServerTestSuite) TestListAndDeleteRuns() {
	first := s.createRun("fixed", 10)
	s.createRun("myopic", 10)

	w := s.do(http.MethodGet, "/api/v1/runs?policy=myopic", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var runs []database.Run
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &runs))
	s.Require().Len(runs, 1)
	s.Equal("myopic", runs[0].Policy)

	w = s.do(http.MethodDelete, "/api/v1/runs/"+first.RunID, nil)
	s.Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodDelete, "/api/v1/runs/"+first.RunID, nil)
	s.Equal(http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/api/v1/runs/"+first.RunID, nil)
	s.Equal(http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/api/v1/runs/"+first.RunID+"/summary", nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *ServerTestSuite) TestOverview() {
	w := s.do(http.MethodGet, "/api/v1/overview?policies=fixed,myopic&slots=40&seed=3", nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var out struct {
		Slots   int `json:"slots"`
		Reports map[string]struct {
			AvgTotal  []float64 `json:"avg_total"`
			AvgEnergy []float64 `json:"avg_energy"`
		} `json:"reports"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &out))
	s.Equal(40, out.Slots)
	s.Require().Len(out.Reports, 2)
	s.Len(out.Reports["myopic"].AvgTotal, 40)
	s.Len(out.Reports["fixed"].AvgEnergy, 40)

	s.Equal(http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/overview?slots=0", nil).Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/overview?slots=1000", nil).Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/overview?seed=-1", nil).Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/overview?policies=ppo", nil).Code)
}

func (s *ServerTestSuite) TestMetricsEndpoint() {
	s.createRun("myopic", 20)

	w := s.do(http.MethodGet, "/metrics", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `edgesim_slots_total{policy="myopic"} 20`)
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}
