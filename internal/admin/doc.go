// Package admin serves the HTTP admin surface.
//
// Routes:
//
//	GET  /admin/config/jokes/settings  current settings as JSON
//	PUT  /admin/config/jokes/settings  update one or more settings
//	POST /admin/config/jokes/import    import page_size jokes from api_url
//	GET  /admin/jokes                  latest page_size jokes, newest first
//	GET  /jokes/content                redirect to the content listing
//	GET  /jokes/logs                   redirect to the module's log listing
//	GET  /health                       store reachability
//	GET  /metrics                      Prometheus metrics
package admin
