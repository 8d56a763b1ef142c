package explorer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/fundme/commoncon"
	"github.com/fundme/contract/system/oracle"
	"github.com/fundme/verify"
	"gotest.tools/v3/assert"
)

const feedAddress = "0x00000000000000000000000000000000000000aa"

func do(t *testing.T, h http.Handler, req *http.Request) verify.Response {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, rec.Code, http.StatusOK)
	var resp verify.Response
	assert.NilError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestSubmitPollAndGetSource(t *testing.T) {
	srv := New(func(_ context.Context, address string) (string, bool) {
		return commoncon.MockV3AggregatorName, address == feedAddress
	}, "")
	h := srv.Router()

	form := url.Values{
		"module":          {"contract"},
		"action":          {"verifysourcecode"},
		"contractaddress": {strings.ToUpper(feedAddress[2:])},
		"contractname":    {commoncon.MockV3AggregatorName},
		"sourceCode":      {oracle.Artifact().Source},
	}
	req := httptest.NewRequest(http.MethodPost, "/api", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp := do(t, h, req)
	assert.Equal(t, resp.Status, "1")
	guid := resp.Result

	check := "/api?module=contract&action=checkverifystatus&guid=" + guid
	assert.Equal(t, do(t, h, httptest.NewRequest(http.MethodGet, check, nil)).Result, verify.StatusPending)
	assert.Equal(t, do(t, h, httptest.NewRequest(http.MethodGet, check, nil)).Result, verify.StatusPass)

	src := do(t, h, httptest.NewRequest(http.MethodGet, "/api?module=contract&action=getsourcecode&address="+feedAddress, nil))
	assert.Equal(t, src.Status, "1")
	assert.Equal(t, src.Result, commoncon.MockV3AggregatorName)
}

func TestBadRequest(t *testing.T) {
	srv := New(func(context.Context, string) (string, bool) { return "", false }, "")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api", strings.NewReader("module=account"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, rec.Code, http.StatusBadRequest)
}
