package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/xbrlus/xbrlapi/internal/constants"
	"github.com/xbrlus/xbrlapi/pkg/xbrl"
)

var versionSegment = regexp.MustCompile(`^v[0-9]+$`)

// page is one decoded paginated response.
type page struct {
	data   []json.RawMessage
	paging xbrl.Paging
	extra  map[string]json.RawMessage
}

// decodePage returns nil, nil for a valid JSON body without a paging member.
func decodePage(body []byte) (*page, error) {
	if len(body) == 0 {
		return nil, nil //nolint:nilnil
	}

	if !json.Valid(body) {
		return nil, constants.ErrMalformedResponse
	}

	var members map[string]json.RawMessage

	err := json.Unmarshal(body, &members)
	if err != nil {
		// arrays and scalars are never paginated
		return nil, nil //nolint:nilerr,nilnil
	}

	rawPaging, ok := members["paging"]
	if !ok || string(rawPaging) == "null" {
		return nil, nil //nolint:nilnil
	}

	out := &page{extra: make(map[string]json.RawMessage)}

	err = json.Unmarshal(rawPaging, &out.paging)
	if err != nil {
		return nil, fmt.Errorf("%w: paging: %w", constants.ErrMalformedResponse, err)
	}

	if rawData, ok := members["data"]; ok && string(rawData) != "null" {
		err = json.Unmarshal(rawData, &out.data)
		if err != nil {
			return nil, fmt.Errorf("%w: data: %w", constants.ErrMalformedResponse, err)
		}
	}

	for key, value := range members {
		if key != "data" && key != "paging" {
			out.extra[key] = value
		}
	}

	return out, nil
}

// paginationState is the running assembly of one Call.
type paginationState struct {
	maxRecords int
	pages      int
	offsetBase int
	paging     xbrl.Paging
	data       []json.RawMessage
	extra      map[string]json.RawMessage
}

func newPaginationState(maxRecords int) *paginationState {
	return &paginationState{maxRecords: maxRecords}
}

func (s *paginationState) started() bool {
	return s.pages > 0
}

func (s *paginationState) total() int {
	return s.paging.Count
}

// merge adopts the first page and appends later ones.
func (s *paginationState) merge(p *page) {
	if s.pages == 0 {
		s.paging = p.paging
		s.offsetBase = p.paging.Offset
		s.data = append([]json.RawMessage{}, p.data...)
		s.extra = p.extra
	} else {
		s.data = append(s.data, p.data...)
		s.paging.Count += p.paging.Count
		s.paging.Limit = p.paging.Limit
		s.paging.Offset = constants.MergedOffset
	}

	s.pages++
}

// more reports whether another page should be requested after p.
func (s *paginationState) more(p *page) bool {
	return p.paging.Count >= p.paging.Limit &&
		p.paging.Count > 0 &&
		s.paging.Count < s.maxRecords
}

func (s *paginationState) nextOffset() int {
	return s.paging.Count + s.offsetBase
}

func (s *paginationState) result() *xbrl.Result {
	paging := s.paging

	data := s.data
	if data == nil {
		data = []json.RawMessage{}
	}

	return &xbrl.Result{Data: data, Paging: &paging, Extra: s.extra}
}

// entityPath returns the route segment after the API version segment, e.g.
// "fact" for /api/v1/fact/search.
func entityPath(route string) (string, error) {
	path := route

	parsed, err := url.Parse(route)
	if err == nil {
		path = parsed.Path
	}

	segments := strings.Split(strings.Trim(path, "/"), "/")

	for i, segment := range segments {
		if versionSegment.MatchString(segment) && i+1 < len(segments) && segments[i+1] != "" {
			return segments[i+1], nil
		}
	}

	return "", fmt.Errorf("%w: %w: %s", constants.ErrContinuationUnsupported, constants.ErrNoEntityPath, route)
}

// continuationParams returns the original params with an offset directive
// appended to the fields selection.
func continuationParams(route string, params xbrl.Params, offset int) (xbrl.Params, error) {
	fields, ok := params.GetString(constants.ParamFields)
	if !ok || strings.TrimSpace(fields) == "" {
		return nil, fmt.Errorf("%w: %w: %s", constants.ErrContinuationUnsupported, constants.ErrMissingFieldsParam, route)
	}

	entity, err := entityPath(route)
	if err != nil {
		return nil, err
	}

	directive := entity + ".offset(" + strconv.Itoa(offset) + ")"

	return params.Set(constants.ParamFields, fields+","+directive), nil
}
