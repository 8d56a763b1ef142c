package explorer

import (
	"encoding/json"
	"net/http"

	"github.com/cloudflare/cfssl/log"
	"github.com/fundme/verify"
)

const BadRequest = "Request Param Invalid"

//解析出请求中的指定参数（query 或 form）
func ParseParam(key string, request *http.Request) string {
	return request.FormValue(key)
}

//返回请求参数错误
func BadRequestResponse(writer http.ResponseWriter) {
	writer.WriteHeader(http.StatusBadRequest)
	_, _ = writer.Write([]byte(BadRequest))
}

func ok(writer http.ResponseWriter, result string) {
	writeResponse(writer, verify.Response{Status: "1", Message: "OK", Result: result})
}

func notOK(writer http.ResponseWriter, result string) {
	writeResponse(writer, verify.Response{Status: "0", Message: "NOTOK", Result: result})
}

func writeResponse(writer http.ResponseWriter, resp verify.Response) {
	writer.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(writer).Encode(resp); err != nil {
		log.Errorf("write response: %s", err)
	}
}
