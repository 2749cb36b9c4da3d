// Package xbrlclient provides the main entry point for constructing an XBRL US
// API client that implements the xbrl.Client interface.
//
// It resolves configuration through an xbrl.ConfigProvider, builds the HTTP
// transport, obtains a token pair and returns a client whose calls refresh
// expired tokens and assemble paginated results transparently.
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/xbrlus/xbrlapi/pkg/xbrl"
//	  "github.com/xbrlus/xbrlapi/pkg/xbrlclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  // From a literal configuration:
//	  cli, err := xbrlclient.NewFromConfig(ctx, &xbrl.Config{
//	    BaseURL:      "https://api.xbrl.us",
//	    ClientID:     "id",
//	    ClientSecret: "secret",
//	    Platform:     "pc",
//	    Username:     "me@example.com",
//	    Password:     "secret",
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  // Or from ~/.xbrlus/config.yml, .env and XBRLUS_* variables, keeping
//	  // tokens in ~/.xbrlus/tokens.yml between runs:
//	  store, err := xbrlclient.NewFileTokenStore("")
//	  if err != nil { log.Fatal(err) }
//	  cli, err = xbrlclient.NewFromEnvironment(ctx, xbrlclient.WithTokenStore(store))
//	  if err != nil { log.Fatal(err) }
//
//	  res, err := cli.Get(ctx, "/api/v1/report/search", xbrl.NewParams(
//	    "report.entity-name", "APPLE INC.",
//	    "fields", "report.id,report.filing-date,report.limit(20)",
//	  ))
//	  if err != nil { log.Fatal(err) }
//	  _ = res.Data
//	}
//
// Options
//
// WithTokenStore, WithErrorHandler, WithInterceptors, WithMaxRecords,
// WithRetryBackOff and WithLogger tune the client. Without a token store the
// tokens live in memory only and every process logs in afresh.
package xbrlclient
