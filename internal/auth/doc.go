// Package auth provides authentication middleware for the estimatelens HTTP
// surface.
//
// APIKey(mode, header, key) returns middleware that validates the API key in
// the named request header. When mode != "apikey" or key == "", all requests
// pass through (local development with auth disabled). When the key is
// incorrect or absent the middleware answers 401 with a JSON error body.
// Websocket upgrades may carry the key in the api_key query parameter since
// browsers cannot set headers on them.
package auth
