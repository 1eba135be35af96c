package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/aggregator"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/logger"
)

type ServerTestSuite struct {
	suite.Suite
	agg    *aggregator.Aggregator
	server *httptest.Server
}

func (suite *ServerTestSuite) SetupTest() {
	suite.agg = aggregator.New(logger.NewNopLogger())
	suite.server = httptest.NewServer(New(suite.agg, logger.NewNopLogger()).Handler())
}

func (suite *ServerTestSuite) TearDownTest() {
	suite.server.Close()
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

const ruleConfigDoc = `
name: api_threshold
rules:
  buy: "$price < 95"
  sell: "$price > 105"
`

func (suite *ServerTestSuite) postJSON(path string, body any) *http.Response {
	payload, err := json.Marshal(body)
	suite.Require().NoError(err)

	resp, err := http.Post(suite.server.URL+path, "application/json", bytes.NewReader(payload))
	suite.Require().NoError(err)

	return resp
}

func (suite *ServerTestSuite) addRuleStrategy() string {
	resp := suite.postJSON("/strategies", map[string]string{
		"type":   "rule",
		"config": ruleConfigDoc,
	})
	defer resp.Body.Close()

	suite.Require().Equal(http.StatusCreated, resp.StatusCode)

	var created struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	suite.Require().NoError(json.NewDecoder(resp.Body).Decode(&created))
	suite.Equal("api_threshold", created.Name)

	return created.ID
}

func (suite *ServerTestSuite) TestAddAndListStrategies() {
	id := suite.addRuleStrategy()

	resp, err := http.Get(suite.server.URL + "/strategies")
	suite.Require().NoError(err)

	defer resp.Body.Close()

	var listing struct {
		Mode       string `json:"mode"`
		Strategies []struct {
			ID      string `json:"id"`
			Name    string `json:"name"`
			Enabled bool   `json:"enabled"`
			Running bool   `json:"running"`
		} `json:"strategies"`
	}

	suite.Require().NoError(json.NewDecoder(resp.Body).Decode(&listing))
	suite.Equal("first_signal", listing.Mode)
	suite.Require().Len(listing.Strategies, 1)
	suite.Equal(id, listing.Strategies[0].ID)
	suite.True(listing.Strategies[0].Enabled)
	suite.False(listing.Strategies[0].Running)
}

func (suite *ServerTestSuite) TestAddInvalidRuleConfigIs400() {
	resp := suite.postJSON("/strategies", map[string]string{
		"type":   "rule",
		"config": "rules: [",
	})
	defer resp.Body.Close()

	suite.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (suite *ServerTestSuite) TestAddScriptStrategy() {
	resp := suite.postJSON("/strategies", map[string]string{
		"type":   "script",
		"source": `function onTick(ctx) { return 0; }`,
	})
	defer resp.Body.Close()

	suite.Equal(http.StatusCreated, resp.StatusCode)
}

func (suite *ServerTestSuite) TestScriptViolationsAreReported() {
	resp := suite.postJSON("/strategies", map[string]string{
		"type":   "script",
		"source": "eval(\"1\");\nfunction onTick(ctx) { return 0; }",
	})
	defer resp.Body.Close()

	suite.Equal(http.StatusBadRequest, resp.StatusCode)

	var body struct {
		Error      string `json:"error"`
		Category   string `json:"category"`
		Violations []struct {
			Code string `json:"code"`
			Line int    `json:"line"`
		} `json:"violations"`
	}

	suite.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	suite.Equal("strategy", body.Category)
	suite.Require().Len(body.Violations, 1)
	suite.Equal("SBX008", body.Violations[0].Code)
	suite.Equal(1, body.Violations[0].Line)
}

func (suite *ServerTestSuite) TestUnknownTypeIs400() {
	resp := suite.postJSON("/strategies", map[string]string{"type": "python"})
	defer resp.Body.Close()

	suite.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (suite *ServerTestSuite) TestEnableDisableAndRemove() {
	id := suite.addRuleStrategy()

	resp := suite.postJSON(fmt.Sprintf("/strategies/%s/disable", id), nil)
	resp.Body.Close()
	suite.Equal(http.StatusNoContent, resp.StatusCode)

	handles := suite.agg.Handles()
	suite.Require().Len(handles, 1)
	suite.False(handles[0].Enabled)

	resp = suite.postJSON(fmt.Sprintf("/strategies/%s/enable", id), nil)
	resp.Body.Close()
	suite.Equal(http.StatusNoContent, resp.StatusCode)

	req, err := http.NewRequest(http.MethodDelete, suite.server.URL+"/strategies/"+id, nil)
	suite.Require().NoError(err)

	deleteResp, err := http.DefaultClient.Do(req)
	suite.Require().NoError(err)

	deleteResp.Body.Close()
	suite.Equal(http.StatusNoContent, deleteResp.StatusCode)
	suite.Empty(suite.agg.Handles())
}

func (suite *ServerTestSuite) TestRemoveUnknownIs404() {
	req, err := http.NewRequest(http.MethodDelete, suite.server.URL+"/strategies/00000000-0000-0000-0000-000000000000", nil)
	suite.Require().NoError(err)

	resp, err := http.DefaultClient.Do(req)
	suite.Require().NoError(err)

	resp.Body.Close()
	suite.Equal(http.StatusNotFound, resp.StatusCode)
}

func (suite *ServerTestSuite) TestSetMode() {
	payload, _ := json.Marshal(map[string]string{"mode": "majority_vote"})

	req, err := http.NewRequest(http.MethodPut, suite.server.URL+"/mode", bytes.NewReader(payload))
	suite.Require().NoError(err)

	resp, err := http.DefaultClient.Do(req)
	suite.Require().NoError(err)

	resp.Body.Close()
	suite.Equal(http.StatusNoContent, resp.StatusCode)
	suite.Equal(aggregator.ModeMajorityVote, suite.agg.Mode())
}

func (suite *ServerTestSuite) TestSetInvalidModeIs400() {
	payload, _ := json.Marshal(map[string]string{"mode": "quorum"})

	req, err := http.NewRequest(http.MethodPut, suite.server.URL+"/mode", bytes.NewReader(payload))
	suite.Require().NoError(err)

	resp, err := http.DefaultClient.Do(req)
	suite.Require().NoError(err)

	resp.Body.Close()
	suite.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (suite *ServerTestSuite) TestStartStop() {
	suite.addRuleStrategy()

	resp := suite.postJSON("/start", nil)
	resp.Body.Close()
	suite.Equal(http.StatusNoContent, resp.StatusCode)
	suite.True(suite.agg.Handles()[0].Running)

	resp = suite.postJSON("/stop", nil)
	resp.Body.Close()
	suite.Equal(http.StatusNoContent, resp.StatusCode)
	suite.False(suite.agg.Handles()[0].Running)
}
