// Package tool provides the simulated customer-support tools offered to the
// support specialists.
//
// Every tool implements langchaingo's tools.Tool and additionally describes
// its JSON-schema parameters, so agents can advertise it to a model that
// supports function calling. Results are canned strings; account status,
// balances and log findings are drawn from an injectable random source.
package tool
