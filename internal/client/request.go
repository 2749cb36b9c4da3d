package client

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/xbrlus/xbrlapi/internal/constants"
	xbrlhttp "github.com/xbrlus/xbrlapi/internal/http"
	"github.com/xbrlus/xbrlapi/pkg/xbrl"
)

func normalizeMethod(method string) (string, error) {
	method = strings.ToUpper(strings.TrimSpace(method))

	switch method {
	case "":
		return http.MethodGet, nil
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
		return method, nil
	default:
		return "", fmt.Errorf("%w: %s", constants.ErrUnsupportedMethod, method)
	}
}

// buildRequest renders params for call. Grant requests, recognised by a
// grant_type parameter, never carry the bearer token.
func buildRequest(call *preparedCall, params xbrl.Params, accessToken string) (*xbrlhttp.Request, error) {
	req := &xbrlhttp.Request{
		Method:  call.method,
		Path:    call.route,
		Headers: make(map[string]string),
	}

	if accessToken != "" && !params.Has(constants.ParamGrantType) {
		req.Headers[constants.HeaderAuthorization] = "Bearer " + accessToken
	}

	if len(params) == 0 {
		return req, nil
	}

	if call.method == http.MethodGet {
		query, err := params.Encode()
		if err != nil {
			return nil, fmt.Errorf("encoding query: %w", err)
		}

		req.Query = query

		return req, nil
	}

	if call.encodeJSON {
		body, err := params.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("encoding JSON body: %w", err)
		}

		req.Body = body
		req.Headers[constants.HeaderContentType] = constants.ContentTypeJSON

		return req, nil
	}

	form, err := params.Encode()
	if err != nil {
		return nil, fmt.Errorf("encoding form body: %w", err)
	}

	req.Body = []byte(form)
	req.Headers[constants.HeaderContentType] = constants.ContentTypeForm

	return req, nil
}
