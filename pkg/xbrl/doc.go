// Package xbrl provides types, interfaces, and helpers for working with the
// XBRL US API.
//
// # Overview
//
// The xbrl package defines the configuration, credential, parameter and result
// types shared by the client, plus the collaborator interfaces a caller can
// implement (ConfigProvider, TokenStore, ErrorHandler, Logger). A concrete
// client is provided by the xbrlclient package, which wires configuration,
// transport, authentication and the pagination engine. Most consumers import
// xbrlclient to construct a client and then work with the types declared here.
//
// Getting a client
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
//	  facts, err := cli.Get(ctx, "/api/v1/fact/search", xbrl.NewParams(
//	    "concept.local-name", "Assets",
//	    "fields", "fact.value,fact.limit(100)",
//	    "max_limit", 500,
//	  ))
//	  if err != nil { log.Fatal(err) }
//	  _ = facts.Data
//	}
//
// # Pagination
//
// List endpoints answer with {data, paging}. When a page is full the client
// asks for the next one by appending an offset directive to the fields
// parameter, and keeps going until a short page arrives or the record cap is
// reached. The cap defaults to 10000 and can be changed per call with the
// reserved max_limit parameter, which is never sent to the server.
//
// # Errors
//
// Failures are reported as ConfigurationError, AuthenticationError, APIError or
// TransportError. Helpers such as IsAPIError and IsAuthenticationError make it
// easy to branch on them.
package xbrl
