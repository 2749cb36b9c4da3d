package commands

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xbrlus/xbrlapi/internal/constants"
	"github.com/xbrlus/xbrlapi/pkg/xbrl"
)

type callOptions struct {
	params   []string
	fields   string
	method   string
	json     bool
	maxLimit int
	raw      bool
}

func newCallCommand(state *rootState) *cobra.Command {
	opts := &callOptions{}

	cmd := &cobra.Command{
		Use:   "call ROUTE",
		Short: "Call an API route",
		Long: `Call an API route and print the result. Paginated routes are followed
until a short page arrives or the record cap is reached.`,
		Example: `  xbrl call /api/v1/fact/search \
    --param concept.local-name=Assets \
    --param period.fiscal-year=2023 \
    --fields fact.value,entity.name,fact.limit(100) \
    --max-limit 500`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := state.output()
			if err != nil {
				return err
			}

			params, err := parseParams(opts.params)
			if err != nil {
				return err
			}

			if opts.fields != "" {
				params = params.Set(constants.ParamFields, opts.fields)
			}

			if opts.maxLimit > 0 {
				params = params.Set(constants.ParamMaxLimit, opts.maxLimit)
			}

			ctx := cmd.Context()

			cli, release, err := state.newClient(ctx)
			if err != nil {
				return err
			}
			defer release()

			req := &xbrl.CallRequest{
				Route:      args[0],
				Params:     params,
				Method:     opts.method,
				EncodeJSON: opts.json,
			}

			if opts.raw {
				req.ForwardHeaders = http.Header{}

				resp, err := cli.CallRaw(ctx, req)
				if err != nil {
					return fmt.Errorf("calling %s: %w", req.Route, err)
				}

				return writeRaw(cmd.OutOrStdout(), format, resp)
			}

			res, err := cli.Call(ctx, req)
			if err != nil {
				return fmt.Errorf("calling %s: %w", req.Route, err)
			}

			return writeResult(cmd.OutOrStdout(), format, res)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.params, "param", "p", nil, "request parameter as key=value (repeatable)")
	cmd.Flags().StringVarP(&opts.fields, "fields", "f", "", "fields parameter, e.g. fact.value,fact.limit(100)")
	cmd.Flags().StringVarP(&opts.method, "method", "X", http.MethodGet, "HTTP method (GET, POST, PUT, DELETE)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "send a non-GET body as JSON instead of a form")
	cmd.Flags().IntVar(&opts.maxLimit, "max-limit", 0, "maximum number of records to assemble")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "make a single request and print headers and body as received")

	return cmd
}

// parseParams turns key=value pairs into ordered parameters.
func parseParams(pairs []string) (xbrl.Params, error) {
	params := xbrl.Params{}

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("%w: %q", constants.ErrInvalidParamFormat, pair)
		}

		params = params.Set(strings.TrimSpace(key), value)
	}

	return params, nil
}
